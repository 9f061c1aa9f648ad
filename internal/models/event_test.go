package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventUnmarshal_Fields(t *testing.T) {
	var ev Event
	err := json.Unmarshal([]byte(`{
		"source": "agent",
		"action": "run",
		"message": "Running command: pytest",
		"args": {"command": "pytest", "thought": "run tests"},
		"extras": {"exit_code": 0}
	}`), &ev)
	require.NoError(t, err)

	assert.Equal(t, SourceAgent, ev.Source)
	assert.Equal(t, ActionRun, ev.Action)
	assert.Equal(t, "pytest", ev.Args["command"])
	assert.Equal(t, "Running command: pytest", ev.Text())
	assert.NotNil(t, ev.Extras)
}

func TestEventUnmarshal_WrongTypesDecodeAsAbsent(t *testing.T) {
	var ev Event
	err := json.Unmarshal([]byte(`{"source": 7, "action": ["run"], "content": {"x": 1}, "args": "nope"}`), &ev)
	require.NoError(t, err)

	assert.Empty(t, ev.Source)
	assert.Empty(t, ev.Action)
	assert.Empty(t, ev.Content)
	assert.Nil(t, ev.Args)
}

func TestEventUnmarshal_NonObjectEntries(t *testing.T) {
	var history []Event
	err := json.Unmarshal([]byte(`["oops", 3, null, {"source": "user", "action": "message"}]`), &history)
	require.NoError(t, err)
	require.Len(t, history, 4)

	for _, ev := range history[:3] {
		assert.Equal(t, Event{}, ev)
	}
	assert.Equal(t, SourceUser, history[3].Source)
}

func TestEventText_PrefersContent(t *testing.T) {
	assert.Equal(t, "body", Event{Content: "body", Message: "msg"}.Text())
	assert.Equal(t, "msg", Event{Message: "msg"}.Text())
	assert.Empty(t, Event{}.Text())
}
