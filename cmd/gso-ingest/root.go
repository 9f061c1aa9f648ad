package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/gso-bench/gso-ingest/internal/projectconfig"
)

var version = "dev"

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gso-ingest",
		Short: "Convert GSO agent trajectories into analysis transcripts",
		Long: `gso-ingest converts OpenHands trajectories produced on the GSO benchmark
into normalized chat transcripts, scores them from the evaluation reports, and
uploads them to a Docent collection (or Azure Blob Storage, or a local directory).

It also keeps the published results tree in sync with the model registry.`,
		Version:      version,
		SilenceUsage: true,
	}

	debugLogging := cmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	envFile := cmd.PersistentFlags().String("env-file", ".env", "Environment file to load (existing variables win)")
	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if *debugLogging {
			slog.SetLogLoggerLevel(slog.LevelDebug)
		}
		return loadEnvFile(*envFile)
	}

	cmd.AddCommand(newIngestCommand())
	cmd.AddCommand(newConvertCommand())
	cmd.AddCommand(newValidateCommand())
	cmd.AddCommand(newSyncReportsCommand())
	cmd.AddCommand(newSessionCommand())

	return cmd
}

// loadEnvFile loads KEY=value pairs from path without overriding variables
// that are already set. A missing file is not an error.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("loading %s: %w", path, err)
	}
	slog.Debug("loaded environment file", "path", path)
	return nil
}

func loadConfig() (*projectconfig.ProjectConfig, error) {
	cfg, err := projectconfig.Load(".")
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

func execute() error {
	rootCmd := newRootCommand()
	return rootCmd.Execute()
}
