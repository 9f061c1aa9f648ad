package ingest

import (
	"context"
	"log/slog"

	"github.com/gso-bench/gso-ingest/internal/models"
	"github.com/gso-bench/gso-ingest/internal/session"
)

// DefaultBatchSize is the number of agent runs sent per AddAgentRuns call.
const DefaultBatchSize = 50

// Batches splits runs into consecutive slices of at most size runs. A size
// below one falls back to DefaultBatchSize.
func Batches(runs []*models.AgentRun, size int) [][]*models.AgentRun {
	if size < 1 {
		size = DefaultBatchSize
	}
	var out [][]*models.AgentRun
	for start := 0; start < len(runs); start += size {
		end := min(start+size, len(runs))
		out = append(out, runs[start:end])
	}
	return out
}

// BatchError records one failed batch. Start is the index of its first run.
type BatchError struct {
	Start int
	Size  int
	Err   error
}

// UploadResult summarizes a batched upload.
type UploadResult struct {
	Sent   int
	Failed []BatchError
}

// Upload sends runs to the sink one batch at a time. A failed batch is logged
// and the next one is attempted. Upload stops early only when ctx is done, in
// which case the context error is returned with the partial result.
func Upload(ctx context.Context, sink Sink, collectionID string, runs []*models.AgentRun, batchSize int, log session.Recorder) (UploadResult, error) {
	var res UploadResult
	if log == nil {
		log = session.Discard
	}
	if batchSize < 1 {
		batchSize = DefaultBatchSize
	}

	for i, batch := range Batches(runs, batchSize) {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		start := i * batchSize
		if err := sink.AddAgentRuns(ctx, collectionID, batch); err != nil {
			slog.Error("uploading batch", "start", start, "size", len(batch), "error", err)
			log.Record(session.EventBatchFailed, session.BatchData(start, len(batch), err))
			res.Failed = append(res.Failed, BatchError{Start: start, Size: len(batch), Err: err})
			continue
		}
		slog.Debug("uploaded batch", "start", start, "size", len(batch))
		log.Record(session.EventBatchUploaded, session.BatchData(start, len(batch), nil))
		res.Sent++
	}
	return res, nil
}
