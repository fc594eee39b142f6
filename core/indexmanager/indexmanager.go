package indexmanager

import (
	"cmp"
	"context"
	"errors"

	"github.com/sushant-115/bptreeindex/core/indexing/bptree"
)

// --- Error Definitions ---

var (
	ErrKeyNotFound       = errors.New("key not found")
	ErrInvalidRangeLimit = errors.New("range limit must not be negative")
)

// KeyValuePair is one entry returned by a range read.
type KeyValuePair[K cmp.Ordered, V any] struct {
	Key   K
	Value V
}

// IndexManager is the concurrency-safe surface over one ordered index.
type IndexManager[K cmp.Ordered, V any] interface {
	// Put inserts key or replaces its value.
	Put(ctx context.Context, key K, value V) error
	Get(ctx context.Context, key K) (V, bool, error)
	// Delete removes key, returning ErrKeyNotFound when it is absent.
	Delete(ctx context.Context, key K) error
	// GetRange returns up to limit entries with startKey <= key < endKey in
	// ascending order. A limit of 0 means no limit.
	GetRange(ctx context.Context, startKey, endKey K, limit int) ([]KeyValuePair[K, V], error)
	// Scan returns up to limit entries from the smallest key.
	Scan(ctx context.Context, limit int) ([]KeyValuePair[K, V], error)
	Verify(ctx context.Context) error
	Walk(ctx context.Context, fn bptree.WalkFunc[K]) error
	Stats(ctx context.Context) bptree.Stats

	// Version returns the number of mutations applied so far.
	Version() uint64

	Close(ctx context.Context) error
	// Name returns the name/type of this index manager (e.g., "bptree").
	Name() string
}
