package breeze

import (
	"context"
	"strings"
)

// SnapshotStore persists exported cache documents for offline use.
// Implementations live under the offline package (in-memory, SQL).
type SnapshotStore interface {
	// Get retrieves a snapshot.
	// Returns nil, nil if the key doesn't exist.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a snapshot, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes a snapshot.
	Delete(ctx context.Context, key string) error

	// DeletePrefix removes all snapshots with the given prefix.
	DeletePrefix(ctx context.Context, prefix string) error

	// Clear removes all snapshots.
	Clear(ctx context.Context) error
}

// SnapshotKey names a snapshot within a store.
type SnapshotKey struct {
	Namespace string
	Name      string
	Version   string
}

// String returns the string representation of the snapshot key.
func (k SnapshotKey) String() string {
	parts := []string{k.Namespace, k.Name}
	if k.Version != "" {
		parts = append(parts, k.Version)
	}
	return strings.Join(parts, ":")
}

// Prefix returns the key prefix shared by every snapshot of the namespace.
func (k SnapshotKey) Prefix() string {
	return k.Namespace + ":"
}
