package models

// Status is the categorical outcome attached to every aggregated trajectory.
type Status string

const (
	StatusUnknown     Status = "unknown"
	StatusPassed      Status = "passed"
	StatusOptBase     Status = "opt_base"
	StatusTestFailed  Status = "test_failed"
	StatusPatchFailed Status = "patch_failed"
	StatusError       Status = "error"
)

// InstanceReport is the per-instance evaluation outcome found in
// <logs>/<instance_id>/report.json, keyed by instance id in that file.
type InstanceReport struct {
	TestPassed               bool           `json:"test_passed" mapstructure:"test_passed"`
	OptBase                  bool           `json:"opt_base" mapstructure:"opt_base"`
	OptCommit                bool           `json:"opt_commit" mapstructure:"opt_commit"`
	OptMain                  bool           `json:"opt_main" mapstructure:"opt_main"`
	PatchSuccessfullyApplied bool           `json:"patch_successfully_applied" mapstructure:"patch_successfully_applied"`
	OptStats                 map[string]any `json:"opt_stats,omitempty" mapstructure:"opt_stats"`
}

// RunReport is the run-wide report that buckets instance ids by outcome.
type RunReport struct {
	InstanceSets InstanceSets   `json:"instance_sets"`
	Summary      map[string]any `json:"summary,omitempty"`
}

type InstanceSets struct {
	PassedIDs      []string `json:"passed_ids,omitempty"`
	OptBaseIDs     []string `json:"opt_base_ids,omitempty"`
	TestFailedIDs  []string `json:"test_failed_ids,omitempty"`
	PatchFailedIDs []string `json:"patch_failed_ids,omitempty"`
	ErrorIDs       []string `json:"error_ids,omitempty"`
}
