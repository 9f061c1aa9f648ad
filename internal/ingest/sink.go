// Package ingest turns trajectory files into agent runs and ships them to a
// collection sink in batches.
package ingest

//go:generate go tool mockgen -source=sink.go -destination=sink_mock_test.go -package=ingest

import (
	"context"

	"github.com/gso-bench/gso-ingest/internal/models"
)

// CollectionDescription is attached to every collection created by an ingest.
const CollectionDescription = "GSO benchmark trajectories"

// Sink receives agent runs. The Docent client, the blob sink and the local
// directory sink all implement it.
//
// A sink that cannot publish a collection returns an error wrapping
// errors.ErrUnsupported from MakeCollectionPublic.
type Sink interface {
	CreateCollection(ctx context.Context, name, description string) (string, error)
	MakeCollectionPublic(ctx context.Context, collectionID string) error
	AddAgentRuns(ctx context.Context, collectionID string, runs []*models.AgentRun) error
}
