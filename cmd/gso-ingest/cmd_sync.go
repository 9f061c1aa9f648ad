package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gso-bench/gso-ingest/internal/projectconfig"
	"github.com/gso-bench/gso-ingest/internal/reportsync"
)

func newSyncReportsCommand() *cobra.Command {
	var (
		modelsFile   string
		reportsSrc   string
		resultsDir   string
		gcsBase      string
		dashboardURL string
		mirror       string
	)

	cmd := &cobra.Command{
		Use:   "sync-reports",
		Short: "Copy model reports into the results tree and write its manifest",
		Long: `Read the model registry, copy each model's report verbatim to
<results-dir>/reports/<model>.json and write <results-dir>/manifest.json
with links to the model's collection and storage path.

Models whose report is missing are skipped. --mirror azblob also uploads the
copied reports and the manifest to the configured blob container.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if !flags.Changed("models-file") {
				modelsFile = cfg.Sync.ModelsFile
			}
			if !flags.Changed("reports-src") {
				reportsSrc = cfg.Sync.ReportsSrc
			}
			if !flags.Changed("results-dir") {
				resultsDir = cfg.Sync.ResultsDir
			}
			if !flags.Changed("gcs-base") {
				gcsBase = cfg.Sync.GCSBase
			}
			if !flags.Changed("dashboard-url") {
				dashboardURL = cfg.Docent.DashboardURL
			}

			reportsSrc, err = projectconfig.ExpandHome(reportsSrc)
			if err != nil {
				return err
			}

			models, err := reportsync.LoadModels(modelsFile)
			if err != nil {
				return err
			}

			opts := reportsync.Options{
				ReportsSrc:   reportsSrc,
				ResultsDir:   resultsDir,
				DashboardURL: dashboardURL,
				GCSBase:      gcsBase,
				Out:          cmd.OutOrStdout(),
			}
			switch mirror {
			case "":
			case sinkAzblob:
				blobs, err := openBlobSink(cfg)
				if err != nil {
					return err
				}
				opts.Mirror = blobs
			default:
				return fmt.Errorf("unknown mirror %q (want %s)", mirror, sinkAzblob)
			}

			_, err = reportsync.Sync(cmd.Context(), models, opts)
			return err
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&modelsFile, "models-file", projectconfig.DefaultModelsFile, "Model registry JSON")
	flags.StringVar(&reportsSrc, "reports-src", projectconfig.DefaultReportsSrc, "Directory holding the source reports")
	flags.StringVar(&resultsDir, "results-dir", projectconfig.DefaultResultsDir, "Results tree to write")
	flags.StringVar(&gcsBase, "gcs-base", projectconfig.DefaultGCSBase, "Storage prefix recorded per model")
	flags.StringVar(&dashboardURL, "dashboard-url", projectconfig.DefaultDocentDashboardURL, "Collection dashboard base URL")
	flags.StringVar(&mirror, "mirror", "", "Also upload results to: azblob")

	return cmd
}
