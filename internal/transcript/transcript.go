// Package transcript writes agent runs to the local filesystem, either as one
// JSON document per run inside a collection directory or as NDJSON.
package transcript

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/gso-bench/gso-ingest/internal/models"
)

// sanitize replaces characters that are unsafe in filenames.
var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9_.-]`)

func sanitizeName(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = strings.ReplaceAll(s, " ", "-")
	s = unsafeChars.ReplaceAllString(s, "")
	s = strings.Trim(s, ".")
	if s == "" {
		s = "unnamed"
	}
	return s
}

// CollectionID derives a collection id from a display name and creation time.
func CollectionID(name string, created time.Time) string {
	return fmt.Sprintf("%s-%s", sanitizeName(name), created.UTC().Format("20060102-150405"))
}

// Filename returns the file name for one agent run. The model name is
// prefixed so runs of the same instance by different models do not collide.
func Filename(run *models.AgentRun) string {
	name := run.InstanceID()
	if model, _ := run.Metadata["model_name"].(string); model != "" {
		name = model + "__" + name
	}
	return sanitizeName(name) + ".json"
}

// Write serializes one agent run into dir.
func Write(dir string, run *models.AgentRun) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create transcript dir: %w", err)
	}

	path := filepath.Join(dir, Filename(run))

	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal agent run: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write agent run: %w", err)
	}

	return path, nil
}

// WriteNDJSON writes runs to w, one compact JSON document per line.
func WriteNDJSON(w io.Writer, runs []*models.AgentRun) error {
	enc := json.NewEncoder(w)
	for _, r := range runs {
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("encode agent run %s: %w", r.InstanceID(), err)
		}
	}
	return nil
}

// collectionInfo is stored as collection.json inside each collection directory.
type collectionInfo struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// DirSink is an ingest sink that keeps collections as directories under Root.
type DirSink struct {
	Root string
	now  func() time.Time
}

func NewDirSink(root string) *DirSink {
	return &DirSink{Root: root, now: time.Now}
}

// CreateCollection makes <root>/<name>-<timestamp> and returns its base name
// as the collection id.
func (s *DirSink) CreateCollection(_ context.Context, name, description string) (string, error) {
	created := s.now().UTC()
	id := CollectionID(name, created)
	dir := filepath.Join(s.Root, id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create collection dir: %w", err)
	}

	data, err := json.MarshalIndent(collectionInfo{Name: name, Description: description, CreatedAt: created}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal collection info: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "collection.json"), data, 0o644); err != nil {
		return "", fmt.Errorf("write collection info: %w", err)
	}
	return id, nil
}

// MakeCollectionPublic is not supported; local collections have no visibility.
func (s *DirSink) MakeCollectionPublic(context.Context, string) error {
	return fmt.Errorf("directory sink: %w", errors.ErrUnsupported)
}

func (s *DirSink) AddAgentRuns(ctx context.Context, collectionID string, runs []*models.AgentRun) error {
	dir := filepath.Join(s.Root, collectionID)
	for _, r := range runs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := Write(dir, r); err != nil {
			return err
		}
	}
	return nil
}
