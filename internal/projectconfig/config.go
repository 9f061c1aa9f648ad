// Package projectconfig provides the ProjectConfig struct and loader for
// .gso-ingest.yaml configuration files.
package projectconfig

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// FileName is the configuration file looked up from the working directory.
const FileName = ".gso-ingest.yaml"

// Default values for project configuration. New() references them and no
// other code should duplicate them.
const (
	DefaultDocentBaseURL      = "https://api.docent.transluce.org/rest"
	DefaultDocentDashboardURL = "https://docent.transluce.org/dashboard"
	DefaultDocentAPIKeyEnv    = "DOCENT_API_KEY"

	DefaultBatchSize  = 50
	DefaultWorkers    = 4
	DefaultSink       = "docent"
	DefaultSessionDir = ".gso-ingest/sessions"

	DefaultReportsSrc = "~/gso-internal/reports"
	DefaultResultsDir = "results"
	DefaultModelsFile = "models.json"
	DefaultGCSBase    = "gs://gso-experiments"

	DefaultBlobConnectionStringEnv = "AZURE_STORAGE_CONNECTION_STRING"
)

// DocentConfig holds collection service settings.
type DocentConfig struct {
	BaseURL      string `yaml:"base_url,omitempty"`
	DashboardURL string `yaml:"dashboard_url,omitempty"`
	APIKeyEnv    string `yaml:"api_key_env,omitempty"`
}

// IngestConfig holds defaults for the ingest command.
type IngestConfig struct {
	BatchSize  int    `yaml:"batch_size,omitempty"`
	Workers    int    `yaml:"workers,omitempty"`
	Public     *bool  `yaml:"public,omitempty"`
	SessionLog *bool  `yaml:"session_log,omitempty"`
	SessionDir string `yaml:"session_dir,omitempty"`
	Sink       string `yaml:"sink,omitempty"`
}

// SyncConfig holds report sync paths.
type SyncConfig struct {
	ReportsSrc string `yaml:"reports_src,omitempty"`
	ResultsDir string `yaml:"results_dir,omitempty"`
	ModelsFile string `yaml:"models_file,omitempty"`
	GCSBase    string `yaml:"gcs_base,omitempty"`
}

// BlobConfig holds Azure Blob Storage settings.
type BlobConfig struct {
	AccountURL          string `yaml:"account_url,omitempty"`
	Container           string `yaml:"container,omitempty"`
	ConnectionStringEnv string `yaml:"connection_string_env,omitempty"`
	Compress            *bool  `yaml:"compress,omitempty"`
}

// ProjectConfig is the top-level configuration loaded from .gso-ingest.yaml.
type ProjectConfig struct {
	Docent DocentConfig `yaml:"docent,omitempty"`
	Ingest IngestConfig `yaml:"ingest,omitempty"`
	Sync   SyncConfig   `yaml:"sync,omitempty"`
	Blob   BlobConfig   `yaml:"blob,omitempty"`
}

// New returns a ProjectConfig with all hard-coded defaults populated.
func New() *ProjectConfig {
	return &ProjectConfig{
		Docent: DocentConfig{
			BaseURL:      DefaultDocentBaseURL,
			DashboardURL: DefaultDocentDashboardURL,
			APIKeyEnv:    DefaultDocentAPIKeyEnv,
		},
		Ingest: IngestConfig{
			BatchSize:  DefaultBatchSize,
			Workers:    DefaultWorkers,
			Public:     boolPtr(true),
			SessionLog: boolPtr(false),
			SessionDir: DefaultSessionDir,
			Sink:       DefaultSink,
		},
		Sync: SyncConfig{
			ReportsSrc: DefaultReportsSrc,
			ResultsDir: DefaultResultsDir,
			ModelsFile: DefaultModelsFile,
			GCSBase:    DefaultGCSBase,
		},
		Blob: BlobConfig{
			ConnectionStringEnv: DefaultBlobConnectionStringEnv,
			Compress:            boolPtr(false),
		},
	}
}

// Load finds .gso-ingest.yaml by walking up from startDir (max 10 levels),
// unmarshals it, and fills in missing fields with defaults.
// If no config file is found, returns defaults with a nil error.
// Real I/O errors (e.g. permission denied) are returned to the caller.
func Load(startDir string) (*ProjectConfig, error) {
	cfg := New()

	data, err := findConfigFile(startDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("loading %s: %w", FileName, err)
	}

	var fileCfg ProjectConfig
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", FileName, err)
	}

	mergeConfig(cfg, &fileCfg)
	return cfg, nil
}

// findConfigFile walks up from dir looking for the config file (max 10
// levels). Returns os.ErrNotExist if none is found.
func findConfigFile(dir string) ([]byte, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving path %q: %w", dir, err)
	}
	dir = absDir

	for i := 0; i < 10; i++ {
		p := filepath.Join(dir, FileName)
		data, err := os.ReadFile(p)
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("reading %q: %w", p, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break // reached filesystem root
		}
		dir = parent
	}
	return nil, os.ErrNotExist
}

// mergeConfig overlays non-zero values from src onto dst.
func mergeConfig(dst, src *ProjectConfig) {
	// Docent
	setString(&dst.Docent.BaseURL, src.Docent.BaseURL)
	setString(&dst.Docent.DashboardURL, src.Docent.DashboardURL)
	setString(&dst.Docent.APIKeyEnv, src.Docent.APIKeyEnv)

	// Ingest
	if src.Ingest.BatchSize != 0 {
		dst.Ingest.BatchSize = src.Ingest.BatchSize
	}
	if src.Ingest.Workers != 0 {
		dst.Ingest.Workers = src.Ingest.Workers
	}
	if src.Ingest.Public != nil {
		dst.Ingest.Public = src.Ingest.Public
	}
	if src.Ingest.SessionLog != nil {
		dst.Ingest.SessionLog = src.Ingest.SessionLog
	}
	setString(&dst.Ingest.SessionDir, src.Ingest.SessionDir)
	setString(&dst.Ingest.Sink, src.Ingest.Sink)

	// Sync
	setString(&dst.Sync.ReportsSrc, src.Sync.ReportsSrc)
	setString(&dst.Sync.ResultsDir, src.Sync.ResultsDir)
	setString(&dst.Sync.ModelsFile, src.Sync.ModelsFile)
	setString(&dst.Sync.GCSBase, src.Sync.GCSBase)

	// Blob
	setString(&dst.Blob.AccountURL, src.Blob.AccountURL)
	setString(&dst.Blob.Container, src.Blob.Container)
	setString(&dst.Blob.ConnectionStringEnv, src.Blob.ConnectionStringEnv)
	if src.Blob.Compress != nil {
		dst.Blob.Compress = src.Blob.Compress
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// ExpandHome replaces a leading "~" with the user's home directory.
func ExpandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}

func boolPtr(b bool) *bool { return &b }
