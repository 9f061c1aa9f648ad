package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/gso-bench/gso-ingest/internal/aggregate"
	"github.com/gso-bench/gso-ingest/internal/convert"
	"github.com/gso-bench/gso-ingest/internal/models"
	"github.com/gso-bench/gso-ingest/internal/reports"
	"github.com/gso-bench/gso-ingest/internal/trajectory"
	"github.com/gso-bench/gso-ingest/internal/validation"
)

// ParseLine decodes one trajectory line after checking it against the
// trajectory schema.
func ParseLine(data []byte) (*models.Trajectory, error) {
	if err := validation.Check(validation.KindTrajectory, data); err != nil {
		return nil, err
	}
	var traj models.Trajectory
	if err := json.Unmarshal(data, &traj); err != nil {
		return nil, fmt.Errorf("parsing trajectory: %w", err)
	}
	return &traj, nil
}

// BuildAgentRun converts one trajectory into an agent run. The second return
// value is false when the trajectory has no instance id, no history, or no
// event that converts into a message.
func BuildAgentRun(traj *models.Trajectory, instance *models.InstanceReport, run *models.RunReport, modelName string) (*models.AgentRun, bool) {
	if traj == nil || traj.InstanceID == "" || len(traj.History) == 0 {
		return nil, false
	}
	messages := convert.Convert(traj.History)
	if len(messages) == 0 {
		return nil, false
	}
	return &models.AgentRun{
		Transcripts: []models.Transcript{{Messages: messages}},
		Metadata:    aggregate.Metadata(traj, instance, run, modelName),
	}, true
}

// LineError records a line that could not be parsed.
type LineError struct {
	File string
	Line int
	Err  error
}

func (e LineError) Error() string {
	return fmt.Sprintf("%s:%d: %v", e.File, e.Line, e.Err)
}

// Stats counts what happened to the lines of one or more trajectory files.
type Stats struct {
	Lines     int
	Blank     int
	Malformed int
	Discarded int
	Prepared  int
	Statuses  map[models.Status]int
}

// Add folds o into s.
func (s *Stats) Add(o Stats) {
	s.Lines += o.Lines
	s.Blank += o.Blank
	s.Malformed += o.Malformed
	s.Discarded += o.Discarded
	s.Prepared += o.Prepared
	for k, v := range o.Statuses {
		if s.Statuses == nil {
			s.Statuses = make(map[models.Status]int)
		}
		s.Statuses[k] += v
	}
}

// BuildOptions controls how lines become agent runs.
type BuildOptions struct {
	File      string
	LogsDir   string
	RunReport *models.RunReport
	ModelName string
	Workers   int

	// OnSkip, when set, is called for every line that yields no agent run.
	// reason is "malformed" or "discarded". It may be called concurrently.
	OnSkip func(line int, reason string, err error)
}

// Built is the outcome of converting one trajectory file.
type Built struct {
	Runs   []*models.AgentRun
	Errors []LineError
	Stats  Stats
}

type lineResult struct {
	run *models.AgentRun
	err error
}

// Build converts lines concurrently. Runs come back in line order regardless
// of the worker count. The only error returned is context cancellation.
func Build(ctx context.Context, lines []trajectory.Line, blank int, opts BuildOptions) (*Built, error) {
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	results := make([]lineResult, len(lines))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, line := range lines {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = buildLine(line, opts)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := &Built{
		Stats: Stats{
			Lines:    len(lines) + blank,
			Blank:    blank,
			Statuses: make(map[models.Status]int),
		},
	}
	for i, res := range results {
		switch {
		case res.err != nil:
			out.Stats.Malformed++
			out.Errors = append(out.Errors, LineError{File: opts.File, Line: lines[i].Number, Err: res.err})
		case res.run == nil:
			out.Stats.Discarded++
		default:
			out.Runs = append(out.Runs, res.run)
			out.Stats.Statuses[res.run.Status()]++
		}
	}
	out.Stats.Prepared = len(out.Runs)
	return out, nil
}

func buildLine(line trajectory.Line, opts BuildOptions) lineResult {
	traj, err := ParseLine(line.Data)
	if err != nil {
		slog.Warn("skipping malformed trajectory line", "file", opts.File, "line", line.Number, "error", err)
		if opts.OnSkip != nil {
			opts.OnSkip(line.Number, "malformed", err)
		}
		return lineResult{err: err}
	}

	var instance *models.InstanceReport
	if traj.InstanceID != "" {
		instance, err = reports.LoadInstance(opts.LogsDir, traj.InstanceID)
		if err != nil {
			slog.Warn("ignoring instance report", "instance_id", traj.InstanceID, "error", err)
			instance = nil
		}
	}

	run, ok := BuildAgentRun(traj, instance, opts.RunReport, opts.ModelName)
	if !ok {
		slog.Debug("discarding trajectory", "file", opts.File, "line", line.Number, "instance_id", traj.InstanceID)
		if opts.OnSkip != nil {
			opts.OnSkip(line.Number, "discarded", nil)
		}
		return lineResult{}
	}
	return lineResult{run: run}
}
