package models

import "encoding/json"

// Trajectory is one line of an OpenHands output.jsonl file.
type Trajectory struct {
	InstanceID string              `json:"instance_id"`
	History    []Event             `json:"history"`
	Metadata   *TrajectoryMetadata `json:"metadata,omitempty"`
	Metrics    map[string]any      `json:"metrics,omitempty"`
	Instance   *InstanceInfo       `json:"instance,omitempty"`
	TestResult map[string]any      `json:"test_result,omitempty"`
}

// TrajectoryMetadata is the static run configuration recorded by the agent harness.
type TrajectoryMetadata struct {
	AgentClass *string    `json:"agent_class,omitempty"`
	LLMConfig  *LLMConfig `json:"llm_config,omitempty"`
}

type LLMConfig struct {
	Model *string `json:"model,omitempty"`
}

// InstanceInfo describes the benchmark task the trajectory was run against.
type InstanceInfo struct {
	Repo *string `json:"repo,omitempty"`
	API  *string `json:"api,omitempty"`
}

// UnmarshalJSON decodes the optional blocks leniently: a block or field of
// the wrong JSON type reads as absent instead of failing the whole line.
func (t *Trajectory) UnmarshalJSON(data []byte) error {
	var raw struct {
		InstanceID string  `json:"instance_id"`
		History    []Event `json:"history"`
		Metadata   any     `json:"metadata"`
		Metrics    any     `json:"metrics"`
		Instance   any     `json:"instance"`
		TestResult any     `json:"test_result"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*t = Trajectory{InstanceID: raw.InstanceID, History: raw.History}
	t.Metrics, _ = raw.Metrics.(map[string]any)
	t.TestResult, _ = raw.TestResult.(map[string]any)

	if md, ok := raw.Metadata.(map[string]any); ok {
		t.Metadata = &TrajectoryMetadata{AgentClass: optString(md["agent_class"])}
		if lc, ok := md["llm_config"].(map[string]any); ok {
			t.Metadata.LLMConfig = &LLMConfig{Model: optString(lc["model"])}
		}
	}
	if inst, ok := raw.Instance.(map[string]any); ok {
		t.Instance = &InstanceInfo{Repo: optString(inst["repo"]), API: optString(inst["api"])}
	}
	return nil
}

func optString(v any) *string {
	if s, ok := v.(string); ok {
		return &s
	}
	return nil
}

// HasPatch reports whether the embedded test result carries a non-empty git patch.
// The second return value is false when there is no test result block at all.
func (t *Trajectory) HasPatch() (hasPatch bool, ok bool) {
	if len(t.TestResult) == 0 {
		return false, false
	}
	return truthy(t.TestResult["git_patch"]), true
}

// truthy treats null, false, zero, and empty strings, lists and objects as false.
func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	case float64:
		return x != 0
	case json.Number:
		f, err := x.Float64()
		return err != nil || f != 0
	case []any:
		return len(x) > 0
	case map[string]any:
		return len(x) > 0
	default:
		return true
	}
}
