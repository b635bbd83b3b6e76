// Package store defines the durable key-value store the cache and
// history layers are built on, with bbolt, Redis, and in-memory backends.
package store

import (
	"context"
	"errors"
)

// ErrNotFound indicates the requested key does not exist in the store.
var ErrNotFound = errors.New("store: key not found")

// Store is a string-keyed store of JSON-encoded string values.
//
// Operations are not transactional: a multi-key write interrupted midway
// can leave a subset of the keys written, and callers must tolerate that.
type Store interface {
	// Get returns the value for key, or ErrNotFound.
	Get(ctx context.Context, key string) (string, error)

	// Set writes key to value, overwriting any previous value.
	Set(ctx context.Context, key, value string) error

	// Remove deletes key. Removing an absent key is not an error.
	Remove(ctx context.Context, key string) error

	// GetAllKeys lists every key currently in the store.
	GetAllKeys(ctx context.Context) ([]string, error)

	// MultiGet returns the values for the given keys, in order.
	// Absent keys yield empty strings with ok=false in the result.
	MultiGet(ctx context.Context, keys []string) ([]Value, error)

	// MultiSet writes all pairs. Not atomic.
	MultiSet(ctx context.Context, pairs []Pair) error

	// MultiRemove deletes all given keys. Absent keys are skipped.
	MultiRemove(ctx context.Context, keys []string) error

	// Close releases backend resources.
	Close() error
}

// Pair is a key/value pair for MultiSet.
type Pair struct {
	Key   string
	Value string
}

// Value is a MultiGet result slot.
type Value struct {
	Value string
	OK    bool
}
