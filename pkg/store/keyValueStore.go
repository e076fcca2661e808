package store

import (
	"context"
	"errors"
)

// ErrUnsupportedStore is returned by NewStore for an unknown backend type.
var ErrUnsupportedStore = errors.New("unsupported store type")

// KeyValueStore is the durable mirror behind the outbox queue. Each call is
// atomic for its key and durable once it returns; there are no transactions
// across keys.
type KeyValueStore interface {
	// Get returns the stored value and whether the key exists.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error
	// Remove deletes key. Removing a missing key is not an error.
	Remove(ctx context.Context, key string) error
	// Close releases the underlying connection or handles.
	Close() error
}
