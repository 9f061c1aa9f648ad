package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/gso-bench/gso-ingest/internal/blobsink"
	"github.com/gso-bench/gso-ingest/internal/docent"
	"github.com/gso-bench/gso-ingest/internal/ingest"
	"github.com/gso-bench/gso-ingest/internal/projectconfig"
	"github.com/gso-bench/gso-ingest/internal/session"
	"github.com/gso-bench/gso-ingest/internal/transcript"
)

const (
	sinkDocent = "docent"
	sinkAzblob = "azblob"
	sinkDir    = "dir"
)

type ingestFlags struct {
	submissionDir  string
	collectionName string
	collectionID   string
	batchSize      int
	logsDir        string
	reportFile     string
	modelName      string
	workers        int
	sink           string
	outDir         string
	yes            bool
	public         bool
	sessionLog     bool
	recursive      bool
}

func newIngestCommand() *cobra.Command {
	var f ingestFlags

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Convert a submission's trajectories and upload them to a collection",
		Long: `Convert every trajectory in <submission-dir>/output.jsonl into a transcript,
attach metadata and scores from the evaluation reports, and upload the runs in
batches.

Without --collection-id a new collection named --collection-name is created and
made publicly viewable (interactive sessions are asked first; --yes skips the
question). Batches that fail to upload are logged and skipped; the command then
exits with status 1.

With --recursive, --submission-dir is searched for every output.jsonl and all of
them are uploaded into the same collection, each run named after its directory.
Each directory then uses its own logs/ reports, so --logs-dir, --report-file and
--model-name are rejected.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(cmd, &f)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&f.submissionDir, "submission-dir", "", "Directory containing output.jsonl (required)")
	flags.StringVar(&f.collectionName, "collection-name", "", "Name for a new collection")
	flags.StringVar(&f.collectionID, "collection-id", "", "Existing collection ID to add runs to")
	flags.IntVar(&f.batchSize, "batch-size", projectconfig.DefaultBatchSize, "Agent runs per upload request")
	flags.StringVar(&f.logsDir, "logs-dir", "", "Directory of per-instance evaluation reports (default <submission-dir>/logs)")
	flags.StringVar(&f.reportFile, "report-file", "", "Run-level report.json (default: first <submission-dir>/logs/*.report.json)")
	flags.StringVar(&f.modelName, "model-name", "", "Model name recorded in metadata (default: submission directory name)")
	flags.IntVar(&f.workers, "workers", projectconfig.DefaultWorkers, "Concurrent trajectory conversions")
	flags.StringVar(&f.sink, "sink", projectconfig.DefaultSink, "Destination: docent, azblob or dir")
	flags.StringVar(&f.outDir, "out-dir", "transcripts", "Root directory for the dir sink")
	flags.BoolVarP(&f.yes, "yes", "y", false, "Publish new collections without asking")
	flags.BoolVar(&f.public, "public", true, "Make a newly created collection publicly viewable")
	flags.BoolVar(&f.sessionLog, "session-log", false, "Write an NDJSON session log of the ingest")
	flags.BoolVar(&f.recursive, "recursive", false, "Ingest every output.jsonl below --submission-dir")
	_ = cmd.MarkFlagRequired("submission-dir") //nolint:errcheck

	return cmd
}

// applyConfig fills flags the user did not set from the project config.
func (f *ingestFlags) applyConfig(cmd *cobra.Command, cfg *projectconfig.ProjectConfig) {
	flags := cmd.Flags()
	if !flags.Changed("batch-size") {
		f.batchSize = cfg.Ingest.BatchSize
	}
	if !flags.Changed("workers") {
		f.workers = cfg.Ingest.Workers
	}
	if !flags.Changed("sink") {
		f.sink = cfg.Ingest.Sink
	}
	if !flags.Changed("public") && cfg.Ingest.Public != nil {
		f.public = *cfg.Ingest.Public
	}
	if !flags.Changed("session-log") && cfg.Ingest.SessionLog != nil {
		f.sessionLog = *cfg.Ingest.SessionLog
	}
}

func runIngest(cmd *cobra.Command, f *ingestFlags) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	f.applyConfig(cmd, cfg)

	if f.collectionName == "" && f.collectionID == "" {
		return errors.New("either --collection-name or --collection-id is required")
	}
	if f.batchSize < 1 {
		return fmt.Errorf("--batch-size must be positive, got %d", f.batchSize)
	}

	out := cmd.OutOrStdout()

	sources, err := resolveSources(f, out)
	if err != nil {
		return err
	}

	sink, err := openSink(f.sink, f.outDir, cfg)
	if err != nil {
		return err
	}

	var logger session.Recorder = session.Discard
	if f.sessionLog {
		jl, err := session.Create(session.DefaultLogPath(cfg.Ingest.SessionDir))
		if err != nil {
			return err
		}
		defer jl.Close() //nolint:errcheck
		fmt.Fprintf(out, "Session log: %s\n", jl.Path()) //nolint:errcheck
		logger = jl
	}

	opts := ingest.Options{
		CollectionName: f.collectionName,
		CollectionID:   f.collectionID,
		BatchSize:      f.batchSize,
		Workers:        f.workers,
		SinkName:       f.sink,
		Public:         f.public,
		Session:        logger,
		Out:            out,
	}
	if !f.yes {
		opts.ConfirmPublic = confirmPublish(cmd.InOrStdin(), out, isTerminal(cmd.InOrStdin()))
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, runErr := ingest.New(sink, opts).Run(ctx, sources)
	if res != nil && res.CollectionID != "" {
		printSummary(out, res)
		fmt.Fprintf(out, "\nCollection ID: %s\n", res.CollectionID) //nolint:errcheck
		if f.sink == sinkDocent {
			fmt.Fprintf(out, "View at: %s\n", docent.DashboardURL(cfg.Docent.DashboardURL, res.CollectionID)) //nolint:errcheck
		}
	}
	if errors.Is(runErr, context.Canceled) {
		return errors.New("ingest interrupted")
	}
	return runErr
}

func resolveSources(f *ingestFlags, notes io.Writer) ([]*ingest.Source, error) {
	if f.recursive {
		overrides := []struct{ flag, value string }{
			{"logs-dir", f.logsDir},
			{"report-file", f.reportFile},
			{"model-name", f.modelName},
		}
		for _, o := range overrides {
			if o.value != "" {
				return nil, fmt.Errorf("--%s cannot be combined with --recursive", o.flag)
			}
		}
		return ingest.DiscoverSources(f.submissionDir, notes)
	}
	src, err := ingest.ResolveSource(f.submissionDir, ingest.SourceOptions{
		LogsDir:    f.logsDir,
		ReportFile: f.reportFile,
		ModelName:  f.modelName,
	}, notes)
	if err != nil {
		return nil, err
	}
	return []*ingest.Source{src}, nil
}

func openSink(name, outDir string, cfg *projectconfig.ProjectConfig) (ingest.Sink, error) {
	switch name {
	case sinkDocent:
		key := os.Getenv(cfg.Docent.APIKeyEnv)
		client, err := docent.NewClient(key, docent.WithBaseURL(cfg.Docent.BaseURL), docent.WithUserAgent("gso-ingest/"+version))
		if errors.Is(err, docent.ErrMissingAPIKey) {
			return nil, fmt.Errorf("%w: set %s in the environment or .env file", err, cfg.Docent.APIKeyEnv)
		}
		if err != nil {
			return nil, err
		}
		return client, nil
	case sinkAzblob:
		return openBlobSink(cfg)
	case sinkDir:
		return transcript.NewDirSink(outDir), nil
	default:
		return nil, fmt.Errorf("unknown sink %q (want %s, %s or %s)", name, sinkDocent, sinkAzblob, sinkDir)
	}
}

func openBlobSink(cfg *projectconfig.ProjectConfig) (*blobsink.Sink, error) {
	compress := cfg.Blob.Compress != nil && *cfg.Blob.Compress
	return blobsink.Open(blobsink.Config{
		ConnectionString: os.Getenv(cfg.Blob.ConnectionStringEnv),
		AccountURL:       cfg.Blob.AccountURL,
		Container:        cfg.Blob.Container,
		Compress:         compress,
	})
}
