// Package remote abstracts the cross-device system of record: a per-owner
// collection of event documents with upsert, delete, and list-by-owner. The
// sync engine is its only writer.
package remote

import (
	"context"

	"github.com/dt2patel/traveller/internal/model"
)

// Store is the remote document store contract.
type Store interface {
	// Upsert writes the event document for the owner. The local-only sync
	// marker is never persisted remotely.
	Upsert(ctx context.Context, ownerID string, e model.Event) error

	// Delete removes the owner's event document. Deleting an absent document
	// is not an error.
	Delete(ctx context.Context, ownerID, id string) error

	// ListByOwner returns the owner's events ordered by occurred-at
	// descending.
	ListByOwner(ctx context.Context, ownerID string) ([]model.Event, error)

	// Ping reports whether the remote store is reachable.
	Ping(ctx context.Context) error
}
