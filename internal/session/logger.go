package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// LogSuffix ends the name of every session log file.
const LogSuffix = "-ingest.jsonl"

// Recorder receives ingest lifecycle events. Recording never fails the
// caller; a file that stops accepting writes is reported once through slog.
type Recorder interface {
	Record(t EventType, data map[string]any)
}

// Discard drops every event.
var Discard Recorder = discard{}

type discard struct{}

func (discard) Record(EventType, map[string]any) {}

// File appends events to one NDJSON file. It is safe for concurrent use.
type File struct {
	mu      sync.Mutex
	f       *os.File
	enc     *json.Encoder
	path    string
	written int
	err     error
}

// Create opens (or appends to) the session log at path, creating parent
// directories as needed.
func Create(path string) (*File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating session log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening session log: %w", err)
	}
	return &File{f: f, enc: json.NewEncoder(f), path: path}, nil
}

// Record writes one event stamped with the current time. After the first
// failed write the log goes quiet.
func (l *File) Record(t EventType, data map[string]any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return
	}
	if err := l.enc.Encode(NewEvent(t, data)); err != nil {
		l.err = err
		slog.Warn("session log stopped", "path", l.path, "event", t, "error", err)
		return
	}
	l.written++
}

// Close closes the file. It also returns the write error that silenced the
// log, if any.
func (l *File) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return errors.Join(l.err, l.f.Close())
}

func (l *File) Path() string { return l.path }

// Written is the number of events recorded so far.
func (l *File) Written() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.written
}

// DefaultLogPath returns a timestamped session log path inside dir.
func DefaultLogPath(dir string) string {
	ts := time.Now().UTC().Format("20060102T150405Z")
	return filepath.Join(dir, ts+LogSuffix)
}
