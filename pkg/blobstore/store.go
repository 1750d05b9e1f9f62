package blobstore

import (
	"context"
	"errors"
)

// ErrSnapshotNotFound is returned when no snapshot exists for a client.
var ErrSnapshotNotFound = errors.New("client snapshot not found")

// Store persists one opaque snapshot blob per client identifier.
// Writes must be atomic: a reader never observes a partially written snapshot.
type Store interface {
	ReadClientSnapshot(ctx context.Context, clientID string) ([]byte, error)
	WriteClientSnapshot(ctx context.Context, clientID string, data []byte) error
	DeleteClientSnapshot(ctx context.Context, clientID string) error

	// ListClientIDs returns the ids of all clients with a stored snapshot,
	// used to rebuild the in-memory index at startup.
	ListClientIDs(ctx context.Context) ([]string, error)
}
