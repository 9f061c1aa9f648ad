package convert

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gso-bench/gso-ingest/internal/models"
)

// pendingCall is the single tool call still waiting for its observation.
type pendingCall struct {
	function string
	id       string
}

// scan is the state of one conversion. A fresh scan is used for every call to
// Convert so ids and pending calls never leak between trajectories.
type scan struct {
	messages []models.ChatMessage
	pending  *pendingCall
	calls    int
}

// Convert builds transcript messages from an event history. It never fails;
// events it cannot interpret are skipped.
func Convert(history []models.Event) []models.ChatMessage {
	s := &scan{}
	for _, ev := range history {
		s.step(ev)
	}
	return s.messages
}

func (s *scan) step(ev models.Event) {
	switch {
	case ev.Action == models.ActionSystem:
		return

	case ev.Source == models.SourceUser && ev.Action == models.ActionMessage:
		if text := messageText(ev); hasText(text) {
			s.messages = append(s.messages, models.UserMessage(text))
		}

	case ev.Source == models.SourceAgent && ev.Action != "" && ev.Action != models.ActionMessage:
		s.agentAction(ev)

	case ev.Source == models.SourceAgent && ev.Action == models.ActionMessage:
		if text := messageText(ev); hasText(text) {
			s.messages = append(s.messages, models.AssistantMessage(text))
		}
		s.pending = nil

	case ev.Observation != "" && s.pending != nil:
		s.observe(ev)
	}
}

func (s *scan) agentAction(ev models.Event) {
	args := decodeArgs(ev.Args)

	if n, ok := narrations[ev.Action]; ok {
		if text := n.text(args); hasText(text) {
			s.messages = append(s.messages, models.AssistantMessage(n.label+text))
		}
		s.pending = nil
		return
	}

	build, ok := invocations[ev.Action]
	if !ok {
		build = genericInvocation
	}
	inv := build(ev.Action, ev.Args, args)

	s.calls++
	id := fmt.Sprintf("call_%d", s.calls)

	s.messages = append(s.messages, models.AssistantMessage(args.Thought, models.ToolCall{
		ID:        id,
		Function:  inv.function,
		Arguments: inv.arguments,
		Type:      "function",
		View:      &models.ToolCallContent{Format: "markdown", Content: inv.view},
	}))
	s.pending = &pendingCall{function: inv.function, id: id}
}

func (s *scan) observe(ev models.Event) {
	content := ev.Content
	if content == "" && ev.Extras != nil {
		content = renderExtras(ev.Extras)
	}

	s.messages = append(s.messages, models.ToolMessage(TruncateObservation(content), s.pending.id, s.pending.function))
	s.pending = nil
}

// messageText prefers args.content and falls back to the event's own text
// when args.content is blank.
func messageText(ev models.Event) string {
	if c := decodeArgs(ev.Args).Content; hasText(c) {
		return c
	}
	return ev.Text()
}

func hasText(s string) bool {
	return strings.TrimSpace(s) != ""
}

// renderExtras renders an observation's extras as JSON. Map keys come out
// sorted, so the rendering is deterministic.
func renderExtras(extras any) string {
	b, err := json.Marshal(extras)
	if err != nil {
		return fmt.Sprint(extras)
	}
	return string(b)
}
