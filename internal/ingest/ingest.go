package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gso-bench/gso-ingest/internal/models"
	"github.com/gso-bench/gso-ingest/internal/reports"
	"github.com/gso-bench/gso-ingest/internal/session"
	"github.com/gso-bench/gso-ingest/internal/trajectory"
)

// ErrNoTrajectories is returned when a recursive ingest finds no trajectory files.
var ErrNoTrajectories = errors.New("no trajectory files found")

// PartialFailureError is returned when at least one batch failed to upload.
type PartialFailureError struct {
	Failed int
	Total  int
}

func (e *PartialFailureError) Error() string {
	return fmt.Sprintf("%d of %d batches failed to upload", e.Failed, e.Total)
}

// Source is one trajectory file together with the reports that score it.
type Source struct {
	TrajectoryFile string
	LogsDir        string
	RunReport      *models.RunReport
	ModelName      string
}

// SourceOptions overrides the defaults ResolveSource derives from the
// submission directory.
type SourceOptions struct {
	LogsDir    string
	ReportFile string
	ModelName  string
}

// ResolveSource locates the trajectory file and optional reports of one
// submission directory. Missing reports are not an error; the logs directory
// is cleared with a note and an unreadable run report is dropped with a
// warning.
func ResolveSource(submissionDir string, opts SourceOptions, notes io.Writer) (*Source, error) {
	info, err := os.Stat(submissionDir)
	if err != nil {
		return nil, fmt.Errorf("submission directory not found: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("submission directory %s is not a directory", submissionDir)
	}

	file, err := trajectory.Resolve(submissionDir)
	if err != nil {
		return nil, err
	}
	return FileSource(file, opts, notes)
}

// FileSource is ResolveSource for an explicit trajectory file. The file's
// directory plays the role of the submission directory.
func FileSource(file string, opts SourceOptions, notes io.Writer) (*Source, error) {
	if _, err := os.Stat(file); err != nil {
		return nil, fmt.Errorf("trajectory file: %w", err)
	}
	submissionDir := filepath.Dir(file)

	src := &Source{
		TrajectoryFile: file,
		LogsDir:        opts.LogsDir,
		ModelName:      opts.ModelName,
	}
	if src.ModelName == "" {
		src.ModelName = modelNameFor(submissionDir)
	}

	if src.LogsDir == "" {
		src.LogsDir = filepath.Join(submissionDir, "logs")
	}
	if _, err := os.Stat(src.LogsDir); err != nil {
		src.LogsDir = ""
		if notes != nil {
			fmt.Fprintln(notes, "Note: No logs directory found, scoring info will be limited") //nolint:errcheck
		}
	}

	if opts.ReportFile != "" {
		if _, err := os.Stat(opts.ReportFile); err == nil {
			run, err := reports.LoadRun(opts.ReportFile)
			if err != nil {
				slog.Warn("could not load report", "path", opts.ReportFile, "error", err)
			} else {
				src.RunReport = run
			}
		}
	}
	if src.RunReport == nil {
		src.RunReport = findRunReport(submissionDir)
	}
	return src, nil
}

// DiscoverSources resolves every submission under base that holds a
// trajectory file. Each source takes its model name from its directory.
func DiscoverSources(base string, notes io.Writer) ([]*Source, error) {
	files, err := trajectory.Find(base)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%s: %w", base, ErrNoTrajectories)
	}

	var out []*Source
	seen := make(map[string]bool)
	for _, f := range files {
		dir := filepath.Dir(f)
		if seen[dir] {
			continue
		}
		seen[dir] = true
		src, err := ResolveSource(dir, SourceOptions{}, notes)
		if err != nil {
			return nil, err
		}
		out = append(out, src)
	}
	return out, nil
}

func findRunReport(submissionDir string) *models.RunReport {
	path, err := reports.FindRun(submissionDir)
	if err != nil {
		slog.Warn("searching run report", "dir", submissionDir, "error", err)
		return nil
	}
	if path == "" {
		return nil
	}
	run, err := reports.LoadRun(path)
	if err != nil {
		slog.Warn("could not load report", "path", path, "error", err)
		return nil
	}
	return run
}

func modelNameFor(submissionDir string) string {
	abs, err := filepath.Abs(submissionDir)
	if err != nil {
		return filepath.Base(submissionDir)
	}
	return filepath.Base(abs)
}

// Options configure an Ingester.
type Options struct {
	CollectionName string
	CollectionID   string
	BatchSize      int
	Workers        int
	SinkName       string

	// Public publishes newly created collections. ConfirmPublic, when set,
	// is asked first and may decline.
	Public        bool
	ConfirmPublic func(collectionName string) (bool, error)

	Session session.Recorder
	Out     io.Writer
}

// SourceResult is the per-file part of a Result.
type SourceResult struct {
	Source *Source
	Stats  Stats
	Errors []LineError
}

// Result summarizes a finished ingest.
type Result struct {
	CollectionID string
	Created      bool
	Public       bool
	Sources      []SourceResult
	Upload       UploadResult
	Batches      int
	Duration     time.Duration
}

// Stats totals the per-source counters.
func (r *Result) Stats() Stats {
	var s Stats
	for _, src := range r.Sources {
		s.Add(src.Stats)
	}
	return s
}

// Ingester drives the parse, convert and upload pipeline for a set of sources.
type Ingester struct {
	sink Sink
	opts Options
}

func New(sink Sink, opts Options) *Ingester {
	if opts.BatchSize < 1 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.Session == nil {
		opts.Session = session.Discard
	}
	if opts.Out == nil {
		opts.Out = io.Discard
	}
	return &Ingester{sink: sink, opts: opts}
}

// Run ingests every source into one collection. It returns a
// *PartialFailureError together with the result when some batches failed.
func (in *Ingester) Run(ctx context.Context, sources []*Source) (*Result, error) {
	start := time.Now()
	res := &Result{}

	if len(sources) == 0 {
		return res, ErrNoTrajectories
	}

	var runs []*models.AgentRun
	for _, src := range sources {
		in.opts.Session.Record(session.EventIngestStart,
			session.IngestStartData(src.TrajectoryFile, src.ModelName, in.opts.SinkName, in.opts.BatchSize))

		built, err := in.build(ctx, src)
		if err != nil {
			in.opts.Session.Record(session.EventError, session.ErrorData(err.Error(), map[string]any{"file": src.TrajectoryFile}))
			return res, err
		}
		res.Sources = append(res.Sources, SourceResult{Source: src, Stats: built.Stats, Errors: built.Errors})
		runs = append(runs, built.Runs...)
	}
	fmt.Fprintf(in.opts.Out, "Prepared %d runs\n", len(runs)) //nolint:errcheck

	if err := in.collection(ctx, res); err != nil {
		in.opts.Session.Record(session.EventError, session.ErrorData(err.Error(), nil))
		return res, err
	}

	upload, err := Upload(ctx, in.sink, res.CollectionID, runs, in.opts.BatchSize, in.opts.Session)
	res.Upload = upload
	res.Batches = len(Batches(runs, in.opts.BatchSize))
	res.Duration = time.Since(start)

	in.opts.Session.Record(session.EventIngestComplete,
		session.IngestCompleteData(len(runs), upload.Sent, len(upload.Failed), res.Duration.Milliseconds()))

	if err != nil {
		return res, err
	}
	if len(upload.Failed) > 0 {
		return res, &PartialFailureError{Failed: len(upload.Failed), Total: res.Batches}
	}
	return res, nil
}

func (in *Ingester) build(ctx context.Context, src *Source) (*Built, error) {
	lines, blank, err := trajectory.ReadFile(src.TrajectoryFile)
	if err != nil {
		return nil, err
	}
	return Build(ctx, lines, blank, BuildOptions{
		File:      src.TrajectoryFile,
		LogsDir:   src.LogsDir,
		RunReport: src.RunReport,
		ModelName: src.ModelName,
		Workers:   in.opts.Workers,
		OnSkip: func(line int, reason string, err error) {
			detail := ""
			if err != nil {
				detail = err.Error()
			}
			in.opts.Session.Record(session.EventTrajectorySkipped, session.TrajectorySkippedData(line, reason, detail))
		},
	})
}

// collection reuses the configured collection id or creates a new one.
func (in *Ingester) collection(ctx context.Context, res *Result) error {
	if in.opts.CollectionID != "" {
		res.CollectionID = in.opts.CollectionID
		in.opts.Session.Record(session.EventCollectionReady, session.CollectionReadyData(res.CollectionID, false))
		return nil
	}
	if in.opts.CollectionName == "" {
		return errors.New("collection name is required when no collection id is given")
	}

	id, err := in.sink.CreateCollection(ctx, in.opts.CollectionName, CollectionDescription)
	if err != nil {
		return err
	}
	res.CollectionID = id
	res.Created = true
	in.opts.Session.Record(session.EventCollectionReady, session.CollectionReadyData(id, true))

	if !in.opts.Public {
		fmt.Fprintf(in.opts.Out, "Created collection: %s (%s)\n", in.opts.CollectionName, id) //nolint:errcheck
		return nil
	}
	if in.opts.ConfirmPublic != nil {
		ok, err := in.opts.ConfirmPublic(in.opts.CollectionName)
		if err != nil {
			return fmt.Errorf("confirming public collection: %w", err)
		}
		if !ok {
			fmt.Fprintf(in.opts.Out, "Created private collection: %s (%s)\n", in.opts.CollectionName, id) //nolint:errcheck
			return nil
		}
	}

	if err := in.sink.MakeCollectionPublic(ctx, id); err != nil {
		if !errors.Is(err, errors.ErrUnsupported) {
			return err
		}
		slog.Info("sink does not publish collections", "collection_id", id)
		fmt.Fprintf(in.opts.Out, "Created collection: %s (%s)\n", in.opts.CollectionName, id) //nolint:errcheck
		return nil
	}
	res.Public = true
	fmt.Fprintf(in.opts.Out, "Created public collection: %s (%s)\n", in.opts.CollectionName, id) //nolint:errcheck
	return nil
}
