// Package reports loads the optional GSO evaluation reports that feed the
// scores of each trajectory.
package reports

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/go-viper/mapstructure/v2"
	"github.com/gso-bench/gso-ingest/internal/models"
	"github.com/gso-bench/gso-ingest/internal/validation"
)

// RunReportPattern matches run-level report files, named
// <model>.<run_id>.report.json, inside a submission's logs directory.
const RunReportPattern = "*.report.json"

// InstancePath returns where the report for one instance lives under logsDir.
func InstancePath(logsDir, instanceID string) string {
	return filepath.Join(logsDir, instanceID, "report.json")
}

// LoadInstance reads the evaluation report for one instance. It returns nil
// with a nil error when the report file does not exist or has no entry for the
// instance. Any other failure is returned so the caller can warn and carry on.
func LoadInstance(logsDir, instanceID string) (*models.InstanceReport, error) {
	if logsDir == "" {
		return nil, nil
	}

	path := InstancePath(logsDir, instanceID)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading instance report %s: %w", path, err)
	}

	if err := validation.Check(validation.KindInstanceReport, data); err != nil {
		return nil, fmt.Errorf("instance report %s: %w", path, err)
	}

	var byInstance map[string]map[string]any
	if err := json.Unmarshal(data, &byInstance); err != nil {
		return nil, fmt.Errorf("parsing instance report %s: %w", path, err)
	}

	entry := byInstance[instanceID]
	if len(entry) == 0 {
		return nil, nil
	}

	var report models.InstanceReport
	if err := mapstructure.Decode(entry, &report); err != nil {
		return nil, fmt.Errorf("decoding instance report %s: %w", path, err)
	}
	return &report, nil
}

// LoadRun reads a run-level report file.
func LoadRun(path string) (*models.RunReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading run report: %w", err)
	}

	if err := validation.Check(validation.KindRunReport, data); err != nil {
		return nil, fmt.Errorf("run report %s: %w", path, err)
	}

	var report models.RunReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("parsing run report %s: %w", path, err)
	}
	return &report, nil
}

// FindRun returns the first run report (in name order) in <submissionDir>/logs.
// An empty path with a nil error means there is none.
func FindRun(submissionDir string) (string, error) {
	logsDir := filepath.Join(submissionDir, "logs")
	if _, err := os.Stat(logsDir); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("checking logs directory: %w", err)
	}

	matches, err := filepath.Glob(filepath.Join(logsDir, RunReportPattern))
	if err != nil {
		return "", fmt.Errorf("searching run reports: %w", err)
	}
	if len(matches) == 0 {
		return "", nil
	}
	sort.Strings(matches)
	return matches[0], nil
}
