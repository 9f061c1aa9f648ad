package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gso-bench/gso-ingest/internal/ingest"
	"github.com/gso-bench/gso-ingest/internal/projectconfig"
	"github.com/gso-bench/gso-ingest/internal/spinner"
	"github.com/gso-bench/gso-ingest/internal/trajectory"
	"github.com/gso-bench/gso-ingest/internal/transcript"
)

func newConvertCommand() *cobra.Command {
	var (
		outDir     string
		logsDir    string
		reportFile string
		modelName  string
		workers    int
	)

	cmd := &cobra.Command{
		Use:   "convert <trajectory-file|submission-dir>",
		Short: "Convert trajectories to agent runs without uploading",
		Long: `Convert trajectories offline. Agent runs are written as NDJSON to stdout, or
as one JSON file per instance when --out-dir is given. Reports are looked up
the same way as for ingest.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("workers") {
				cfg, err := loadConfig()
				if err != nil {
					return err
				}
				workers = cfg.Ingest.Workers
			}

			stderr := cmd.ErrOrStderr()
			opts := ingest.SourceOptions{LogsDir: logsDir, ReportFile: reportFile, ModelName: modelName}

			var src *ingest.Source
			info, err := os.Stat(args[0])
			if err != nil {
				return fmt.Errorf("reading %s: %w", args[0], err)
			}
			if info.IsDir() {
				src, err = ingest.ResolveSource(args[0], opts, stderr)
			} else {
				src, err = ingest.FileSource(args[0], opts, stderr)
			}
			if err != nil {
				return err
			}

			lines, blank, err := trajectory.ReadFile(src.TrajectoryFile)
			if err != nil {
				return err
			}

			var spin *spinner.Spinner
			if isTerminal(stderr) {
				spin = spinner.Start(stderr, fmt.Sprintf("Converting %d trajectories", len(lines)))
			}
			built, err := ingest.Build(cmd.Context(), lines, blank, ingest.BuildOptions{
				File:      src.TrajectoryFile,
				LogsDir:   src.LogsDir,
				RunReport: src.RunReport,
				ModelName: src.ModelName,
				Workers:   workers,
			})
			if spin != nil {
				spin.Stop()
			}
			if err != nil {
				return err
			}

			if outDir == "" {
				if err := transcript.WriteNDJSON(cmd.OutOrStdout(), built.Runs); err != nil {
					return err
				}
			} else {
				for _, run := range built.Runs {
					if _, err := transcript.Write(outDir, run); err != nil {
						return err
					}
				}
			}

			fmt.Fprintf(stderr, "Prepared %d runs (%d malformed, %d discarded, %d blank)\n", //nolint:errcheck
				built.Stats.Prepared, built.Stats.Malformed, built.Stats.Discarded, built.Stats.Blank)
			if outDir != "" {
				fmt.Fprintf(stderr, "Wrote %d files to %s\n", len(built.Runs), outDir) //nolint:errcheck
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&outDir, "out-dir", "", "Write one JSON file per agent run into this directory")
	cmd.Flags().StringVar(&logsDir, "logs-dir", "", "Directory of per-instance evaluation reports")
	cmd.Flags().StringVar(&reportFile, "report-file", "", "Run-level report.json")
	cmd.Flags().StringVar(&modelName, "model-name", "", "Model name recorded in metadata")
	cmd.Flags().IntVar(&workers, "workers", projectconfig.DefaultWorkers, "Concurrent trajectory conversions")

	return cmd
}
