package models

import "encoding/json"

// EventSource identifies who produced a trajectory event.
type EventSource string

const (
	SourceAgent       EventSource = "agent"
	SourceUser        EventSource = "user"
	SourceEnvironment EventSource = "environment"
)

// Action tags the converter gives special meaning to. Any other tag is
// treated as a generic tool invocation.
const (
	ActionSystem  = "system"
	ActionMessage = "message"
	ActionRun     = "run"
	ActionRead    = "read"
	ActionWrite   = "write"
	ActionThink   = "think"
	ActionFinish  = "finish"
)

// Event is one entry of an OpenHands trajectory history. Every field is
// optional; a field of the wrong JSON type decodes as absent.
type Event struct {
	Source      EventSource    `json:"source,omitempty"`
	Action      string         `json:"action,omitempty"`
	Observation string         `json:"observation,omitempty"`
	Message     string         `json:"message,omitempty"`
	Content     string         `json:"content,omitempty"`
	Args        map[string]any `json:"args,omitempty"`

	// Extras is kept as decoded. nil means the event carried no extras.
	Extras any `json:"extras,omitempty"`
}

// Text returns the event's free text, preferring content over message.
func (e Event) Text() string {
	if e.Content != "" {
		return e.Content
	}
	return e.Message
}

// UnmarshalJSON decodes an event leniently. A history entry that is not a JSON
// object decodes to the zero Event, which the converter skips.
func (e *Event) UnmarshalJSON(data []byte) error {
	*e = Event{}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil || raw == nil {
		return nil
	}

	e.Source = EventSource(stringValue(raw["source"]))
	e.Action = stringValue(raw["action"])
	e.Observation = stringValue(raw["observation"])
	e.Message = stringValue(raw["message"])
	e.Content = stringValue(raw["content"])
	e.Args, _ = raw["args"].(map[string]any)
	e.Extras = raw["extras"]

	return nil
}

func stringValue(v any) string {
	s, _ := v.(string)
	return s
}
