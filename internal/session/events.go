package session

import "time"

// EventType identifies the kind of ingest session event.
type EventType string

const (
	EventIngestStart       EventType = "ingest_start"
	EventIngestComplete    EventType = "ingest_complete"
	EventCollectionReady   EventType = "collection_ready"
	EventTrajectorySkipped EventType = "trajectory_skipped"
	EventBatchUploaded     EventType = "batch_uploaded"
	EventBatchFailed       EventType = "batch_failed"
	EventError             EventType = "error"
)

// Event is a single timestamped entry in a session log.
type Event struct {
	Timestamp time.Time      `json:"timestamp"`
	Type      EventType      `json:"type"`
	Data      map[string]any `json:"data,omitempty"`
}

// NewEvent creates an event with the current timestamp.
func NewEvent(t EventType, data map[string]any) Event {
	return Event{
		Timestamp: time.Now().UTC(),
		Type:      t,
		Data:      data,
	}
}

func IngestStartData(trajectoryFile, modelName, sink string, batchSize int) map[string]any {
	return map[string]any{
		"trajectory_file": trajectoryFile,
		"model_name":      modelName,
		"sink":            sink,
		"batch_size":      batchSize,
	}
}

func CollectionReadyData(collectionID string, created bool) map[string]any {
	return map[string]any{
		"collection_id": collectionID,
		"created":       created,
	}
}

// TrajectorySkippedData records a line that produced no agent run. reason is
// either "malformed" or "discarded".
func TrajectorySkippedData(line int, reason, detail string) map[string]any {
	d := map[string]any{
		"line":   line,
		"reason": reason,
	}
	if detail != "" {
		d["detail"] = detail
	}
	return d
}

func BatchData(start, size int, err error) map[string]any {
	d := map[string]any{
		"start": start,
		"size":  size,
	}
	if err != nil {
		d["error"] = err.Error()
	}
	return d
}

func IngestCompleteData(prepared, batchesSent, batchesFailed int, durationMs int64) map[string]any {
	return map[string]any{
		"prepared":       prepared,
		"batches_sent":   batchesSent,
		"batches_failed": batchesFailed,
		"duration_ms":    durationMs,
	}
}

// ErrorData returns event data for an error.
func ErrorData(message string, details map[string]any) map[string]any {
	d := map[string]any{
		"message": message,
	}
	for k, v := range details {
		d[k] = v
	}
	return d
}
