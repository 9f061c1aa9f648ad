package session

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// SessionFile represents a session log file on disk.
type SessionFile struct {
	Path      string
	Name      string
	Size      int64
	ModTime   time.Time
	NumEvents int
}

// ListSessions finds session log files in dir, newest first.
func ListSessions(dir string) ([]SessionFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading session directory: %w", err)
	}

	var files []SessionFile
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), LogSuffix) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}

		path := filepath.Join(dir, e.Name())
		events, _ := ReadEvents(path) //nolint:errcheck
		files = append(files, SessionFile{
			Path:      path,
			Name:      e.Name(),
			Size:      info.Size(),
			ModTime:   info.ModTime(),
			NumEvents: len(events),
		})
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].ModTime.After(files[j].ModTime)
	})

	return files, nil
}

// ReadEvents parses all events from a session log file, skipping malformed lines.
func ReadEvents(path string) ([]Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening session file: %w", err)
	}
	defer f.Close() //nolint:errcheck

	var events []Event
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var ev Event
		if err := json.Unmarshal(scanner.Bytes(), &ev); err != nil {
			continue
		}
		events = append(events, ev)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading session file: %w", err)
	}
	return events, nil
}

// RenderTimeline writes a human-readable ingest timeline to w.
//
//nolint:errcheck // display-only writes; errors are not actionable
func RenderTimeline(w io.Writer, events []Event) {
	if len(events) == 0 {
		fmt.Fprintln(w, "No events found.")
		return
	}

	fmt.Fprintln(w, "═══════════════════════════════════════════════════════")
	fmt.Fprintln(w, " INGEST TIMELINE")
	fmt.Fprintln(w, "═══════════════════════════════════════════════════════")
	fmt.Fprintln(w)

	start := events[0].Timestamp
	for _, ev := range events {
		ts := formatDuration(ev.Timestamp.Sub(start))

		switch ev.Type {
		case EventIngestStart:
			file, _ := ev.Data["trajectory_file"].(string) //nolint:errcheck
			model, _ := ev.Data["model_name"].(string)     //nolint:errcheck
			sink, _ := ev.Data["sink"].(string)            //nolint:errcheck
			fmt.Fprintf(w, "[%s] 🚀 Ingest started  file=%s  model=%s  sink=%s  batch=%d\n",
				ts, file, model, sink, jsonNumber(ev.Data["batch_size"]))

		case EventCollectionReady:
			id, _ := ev.Data["collection_id"].(string) //nolint:errcheck
			created, _ := ev.Data["created"].(bool)    //nolint:errcheck
			verb := "Using"
			if created {
				verb = "Created"
			}
			fmt.Fprintf(w, "[%s] 📦 %s collection %s\n", ts, verb, id)

		case EventTrajectorySkipped:
			reason, _ := ev.Data["reason"].(string) //nolint:errcheck
			detail, _ := ev.Data["detail"].(string) //nolint:errcheck
			fmt.Fprintf(w, "[%s]    ⤼ line %d skipped (%s) %s\n", ts, jsonNumber(ev.Data["line"]), reason, detail)

		case EventBatchUploaded:
			fmt.Fprintf(w, "[%s] ✓  Batch @%d uploaded (%d runs)\n", ts, jsonNumber(ev.Data["start"]), jsonNumber(ev.Data["size"]))

		case EventBatchFailed:
			msg, _ := ev.Data["error"].(string) //nolint:errcheck
			fmt.Fprintf(w, "[%s] ✗  Batch @%d failed (%d runs): %s\n", ts, jsonNumber(ev.Data["start"]), jsonNumber(ev.Data["size"]), msg)

		case EventError:
			msg, _ := ev.Data["message"].(string) //nolint:errcheck
			fmt.Fprintf(w, "[%s] ❌ Error: %s\n", ts, msg)

		case EventIngestComplete:
			fmt.Fprintf(w, "[%s] 🏁 Ingest complete  %d runs  %d batches sent  %d failed  (%dms)\n",
				ts,
				jsonNumber(ev.Data["prepared"]),
				jsonNumber(ev.Data["batches_sent"]),
				jsonNumber(ev.Data["batches_failed"]),
				jsonNumber(ev.Data["duration_ms"]))

		default:
			fmt.Fprintf(w, "[%s] %s %v\n", ts, ev.Type, ev.Data)
		}
	}
	fmt.Fprintln(w)
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%6dms", d.Milliseconds())
	}
	return fmt.Sprintf("%6.1fs", d.Seconds())
}

// jsonNumber extracts an integer from a JSON-decoded value.
func jsonNumber(v any) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	case json.Number:
		i, _ := n.Int64() //nolint:errcheck
		return int(i)
	}
	return 0
}
