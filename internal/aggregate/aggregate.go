// Package aggregate builds the flat metadata attached to each converted
// trajectory, merging the trajectory itself with optional instance and run
// reports.
package aggregate

import (
	"slices"

	"github.com/gso-bench/gso-ingest/internal/models"
)

// statusBuckets is checked in order; the first run-report set containing the
// instance id decides its status.
var statusBuckets = []struct {
	status models.Status
	ids    func(models.InstanceSets) []string
}{
	{models.StatusPassed, func(s models.InstanceSets) []string { return s.PassedIDs }},
	{models.StatusOptBase, func(s models.InstanceSets) []string { return s.OptBaseIDs }},
	{models.StatusTestFailed, func(s models.InstanceSets) []string { return s.TestFailedIDs }},
	{models.StatusPatchFailed, func(s models.InstanceSets) []string { return s.PatchFailedIDs }},
	{models.StatusError, func(s models.InstanceSets) []string { return s.ErrorIDs }},
}

// Metadata returns the metadata mapping for one trajectory. instance and run
// may be nil. Keys whose value is absent are left out.
func Metadata(traj *models.Trajectory, instance *models.InstanceReport, run *models.RunReport, modelName string) map[string]any {
	md := map[string]any{
		"instance_id": traj.InstanceID,
	}

	if traj.Metadata != nil {
		setString(md, "agent_class", traj.Metadata.AgentClass)
		if traj.Metadata.LLMConfig != nil {
			setString(md, "llm_model", traj.Metadata.LLMConfig.Model)
		}
	}

	if len(traj.Metrics) > 0 {
		md["metrics"] = traj.Metrics
	}

	if traj.Instance != nil {
		setString(md, "repo", traj.Instance.Repo)
		setString(md, "api", traj.Instance.API)
	}

	if hasPatch, ok := traj.HasPatch(); ok {
		md["has_patch"] = hasPatch
	}

	md["scores"] = Scores(traj.InstanceID, instance, run)

	if modelName != "" {
		md["model_name"] = modelName
	}

	return md
}

// Scores derives the scores block. The instance report supplies the boolean
// outcomes and speedups; only the run report moves status off unknown.
func Scores(instanceID string, instance *models.InstanceReport, run *models.RunReport) map[string]any {
	scores := map[string]any{
		"status": models.StatusUnknown,
	}

	if instance != nil {
		scores["test_passed"] = instance.TestPassed
		scores["opt_base"] = instance.OptBase
		scores["opt_commit"] = instance.OptCommit
		scores["opt_main"] = instance.OptMain
		scores["patch_applied"] = instance.PatchSuccessfullyApplied

		if len(instance.OptStats) > 0 {
			scores["gm_speedup_patch_base"] = instance.OptStats["gm_speedup_patch_base"]
			scores["gm_speedup_patch_commit"] = instance.OptStats["gm_speedup_patch_commit"]
		}
	}

	if run != nil {
		if status, ok := RunStatus(instanceID, run); ok {
			scores["status"] = status
		}
	}

	return scores
}

// RunStatus looks the instance up in the run report's id sets.
func RunStatus(instanceID string, run *models.RunReport) (models.Status, bool) {
	for _, b := range statusBuckets {
		if slices.Contains(b.ids(run.InstanceSets), instanceID) {
			return b.status, true
		}
	}
	return "", false
}

func setString(md map[string]any, key string, v *string) {
	if v != nil {
		md[key] = *v
	}
}
