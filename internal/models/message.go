package models

// Role identifies the speaker of a transcript message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ChatMessage is one message of a normalized transcript. Role decides which of
// the optional fields are set: assistant messages may carry ToolCalls, tool
// messages carry ToolCallID and Function.
type ChatMessage struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	Function   string     `json:"function,omitempty"`
}

// ToolCall is a single invocation requested by the agent.
type ToolCall struct {
	ID        string           `json:"id"`
	Function  string           `json:"function"`
	Arguments map[string]any   `json:"arguments"`
	Type      string           `json:"type"`
	View      *ToolCallContent `json:"view,omitempty"`
}

// ToolCallContent is the human-readable rendering of a tool call.
type ToolCallContent struct {
	Format  string `json:"format"`
	Content string `json:"content"`
}

func UserMessage(content string) ChatMessage {
	return ChatMessage{Role: RoleUser, Content: content}
}

func AssistantMessage(content string, calls ...ToolCall) ChatMessage {
	return ChatMessage{Role: RoleAssistant, Content: content, ToolCalls: calls}
}

func ToolMessage(content, toolCallID, function string) ChatMessage {
	return ChatMessage{Role: RoleTool, Content: content, ToolCallID: toolCallID, Function: function}
}

// Transcript is an ordered conversation.
type Transcript struct {
	Messages []ChatMessage `json:"messages"`
}

// AgentRun is one converted trajectory paired with its flat metadata, the
// unit handed to a collection sink.
type AgentRun struct {
	Transcripts []Transcript   `json:"transcripts"`
	Metadata    map[string]any `json:"metadata"`
}

// InstanceID returns the instance id recorded in the run metadata, if any.
func (r AgentRun) InstanceID() string {
	id, _ := r.Metadata["instance_id"].(string)
	return id
}

// Status returns the scores status recorded in the run metadata.
func (r AgentRun) Status() Status {
	scores, ok := r.Metadata["scores"].(map[string]any)
	if !ok {
		return StatusUnknown
	}
	switch s := scores["status"].(type) {
	case Status:
		return s
	case string:
		return Status(s)
	}
	return StatusUnknown
}
