// Package reportsync copies per-model run reports into a results tree and
// writes the manifest that indexes them.
package reportsync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/gso-bench/gso-ingest/internal/validation"
)

const (
	DefaultDashboardURL = "https://docent.transluce.org/dashboard"
	DefaultGCSBase      = "gs://gso-experiments"
	ManifestName        = "manifest.json"
	reportsDir          = "reports"
)

// ModelEntry is one model in the registry file.
type ModelEntry struct {
	ReportFile string  `json:"report_file"`
	DocentID   *string `json:"docent_id,omitempty"`
}

// LoadModels reads and validates a model registry.
func LoadModels(path string) (map[string]ModelEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading models file: %w", err)
	}
	if err := validation.Check(validation.KindModels, data); err != nil {
		return nil, fmt.Errorf("models file %s: %w", path, err)
	}
	var models map[string]ModelEntry
	if err := json.Unmarshal(data, &models); err != nil {
		return nil, fmt.Errorf("parsing models file %s: %w", path, err)
	}
	return models, nil
}

// Manifest is written to <results>/manifest.json.
type Manifest struct {
	Models map[string]ManifestEntry `json:"models"`
}

type ManifestEntry struct {
	DocentURL *string `json:"docent_url"`
	GCSPath   string  `json:"gcs_path"`
	Report    string  `json:"report"`
	Summary   Summary `json:"summary"`
}

// Summary carries selected report summary fields. Absent fields stay null.
type Summary struct {
	TotalInstances any `json:"total_instances"`
	OptCommit      any `json:"opt_commit"`
	OptBase        any `json:"opt_base"`
	Passed         any `json:"passed"`
	Score          any `json:"score"`
}

// Mirror receives a copy of every written file, keyed by its path relative
// to the results directory.
type Mirror interface {
	MirrorFile(ctx context.Context, localPath, name string) error
}

// Options configure a sync.
type Options struct {
	ReportsSrc   string
	ResultsDir   string
	DashboardURL string
	GCSBase      string
	Mirror       Mirror
	Out          io.Writer
}

// Result lists what a sync did.
type Result struct {
	Copied       []string
	Skipped      []string
	ManifestPath string
}

// Sync copies each registered model's report verbatim to
// <results>/reports/<model>.json and writes the manifest. Models whose
// source report is missing are skipped.
func Sync(ctx context.Context, models map[string]ModelEntry, opts Options) (*Result, error) {
	if opts.DashboardURL == "" {
		opts.DashboardURL = DefaultDashboardURL
	}
	if opts.GCSBase == "" {
		opts.GCSBase = DefaultGCSBase
	}
	if opts.Out == nil {
		opts.Out = io.Discard
	}

	dst := filepath.Join(opts.ResultsDir, reportsDir)
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return nil, fmt.Errorf("creating reports dir: %w", err)
	}

	res := &Result{}
	manifest := Manifest{Models: make(map[string]ManifestEntry)}

	names := make([]string, 0, len(models))
	for name := range models {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		entry := models[name]
		src := filepath.Join(opts.ReportsSrc, entry.ReportFile)

		data, err := os.ReadFile(src)
		if err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return res, fmt.Errorf("reading report for %s: %w", name, err)
			}
			fmt.Fprintf(opts.Out, "SKIP %s: %s not found\n", name, src) //nolint:errcheck
			res.Skipped = append(res.Skipped, name)
			continue
		}

		rel := reportsDir + "/" + name + ".json"
		out := filepath.Join(dst, name+".json")
		if err := os.WriteFile(out, data, 0o644); err != nil {
			return res, fmt.Errorf("writing report for %s: %w", name, err)
		}
		fmt.Fprintf(opts.Out, "OK %s: %s\n", name, filepath.Base(out)) //nolint:errcheck
		res.Copied = append(res.Copied, name)

		summary, err := readSummary(data)
		if err != nil {
			return res, fmt.Errorf("report for %s: %w", name, err)
		}

		manifest.Models[name] = ManifestEntry{
			DocentURL: docentURL(opts.DashboardURL, entry.DocentID),
			GCSPath:   strings.TrimSuffix(opts.GCSBase, "/") + "/" + name,
			Report:    rel,
			Summary:   summary,
		}

		if opts.Mirror != nil {
			if err := opts.Mirror.MirrorFile(ctx, out, rel); err != nil {
				return res, fmt.Errorf("mirroring report for %s: %w", name, err)
			}
		}
	}

	path := filepath.Join(opts.ResultsDir, ManifestName)
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return res, fmt.Errorf("marshal manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return res, fmt.Errorf("writing manifest: %w", err)
	}
	res.ManifestPath = path
	fmt.Fprintf(opts.Out, "\nWrote manifest: %s\n", path) //nolint:errcheck

	if opts.Mirror != nil {
		if err := opts.Mirror.MirrorFile(ctx, path, ManifestName); err != nil {
			return res, fmt.Errorf("mirroring manifest: %w", err)
		}
	}
	return res, nil
}

func readSummary(data []byte) (Summary, error) {
	var report struct {
		Summary map[string]any `json:"summary"`
	}
	if err := json.Unmarshal(data, &report); err != nil {
		return Summary{}, fmt.Errorf("parsing report: %w", err)
	}
	s := report.Summary
	return Summary{
		TotalInstances: s["total_instances"],
		OptCommit:      s["opt_commit"],
		OptBase:        s["opt_base"],
		Passed:         s["passed_instances"],
		Score:          s["score"],
	}, nil
}

func docentURL(base string, id *string) *string {
	if id == nil || *id == "" {
		return nil
	}
	u := strings.TrimSuffix(base, "/") + "/" + *id
	return &u
}
