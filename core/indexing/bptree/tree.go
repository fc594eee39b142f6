package bptree

import (
	"cmp"
	"fmt"
	"slices"

	"go.uber.org/zap"
)

// MinOrder is the smallest branching factor a tree accepts.
const MinOrder = 3

// Tree is an in-memory B+ tree of order M. Internal nodes route by
// separator keys; leaves hold the key/value pairs and are chained in key
// order in both directions.
//
// A Tree is not safe for concurrent use. Callers that share one must guard
// every operation with a single lock.
type Tree[K cmp.Ordered, V any] struct {
	order   int
	maxKeys int
	minKeys int

	root     nodeID
	height   int
	size     int
	nodes    []*node[K, V]
	freeList []nodeID

	logger    *zap.Logger
	onEvent   func(Event)
	destroyed bool
}

// Option configures a Tree at construction time.
type Option func(*options)

type options struct {
	logger  *zap.Logger
	onEvent func(Event)
}

// WithLogger sets the logger used for structural debug events.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithEventHook installs a callback invoked synchronously after every split,
// borrow, merge and root change.
func WithEventHook(fn func(Event)) Option {
	return func(o *options) { o.onEvent = fn }
}

// New creates an empty tree of the given order. The root starts as a single
// empty leaf.
func New[K cmp.Ordered, V any](order int, opts ...Option) (*Tree[K, V], error) {
	if order < MinOrder {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidOrder, order)
	}
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}

	t := &Tree[K, V]{
		order:   order,
		maxKeys: order - 1,
		minKeys: (order+1)/2 - 1,
		logger:  o.logger,
		onEvent: o.onEvent,
	}
	t.root = t.alloc(true)
	t.height = 1
	return t, nil
}

// usable rejects calls on a nil or destroyed tree before anything is touched.
func (t *Tree[K, V]) usable() error {
	if t == nil {
		return ErrNilTree
	}
	if t.destroyed {
		return ErrTreeDestroyed
	}
	return nil
}

// Search returns the value stored under key. A missing key is reported by
// found == false, not by an error.
func (t *Tree[K, V]) Search(key K) (value V, found bool, err error) {
	if err = t.usable(); err != nil {
		return value, false, err
	}
	_, leafID := t.descend(key)
	leaf := t.nodes[leafID]
	if i, ok := slices.BinarySearch(leaf.keys, key); ok {
		return leaf.values[i], true, nil
	}
	return value, false, nil
}

// Contains reports whether key is present.
func (t *Tree[K, V]) Contains(key K) bool {
	_, found, _ := t.Search(key)
	return found
}

// Order returns the branching factor the tree was created with.
func (t *Tree[K, V]) Order() int { return t.order }

// MaxKeys is Order-1, the most keys any node may hold.
func (t *Tree[K, V]) MaxKeys() int { return t.maxKeys }

// MinKeys is ceil(Order/2)-1, the fewest keys a non-root node may hold.
func (t *Tree[K, V]) MinKeys() int { return t.minKeys }

// Len returns the number of keys stored.
func (t *Tree[K, V]) Len() int {
	if t.usable() != nil {
		return 0
	}
	return t.size
}

// Height returns the number of levels, 1 for a tree whose root is a leaf.
func (t *Tree[K, V]) Height() int {
	if t.usable() != nil {
		return 0
	}
	return t.height
}

// Stats summarizes the shape of the tree.
type Stats struct {
	Order     int
	Height    int
	Keys      int
	Nodes     int
	Leaves    int
	Internals int
	FreeSlots int
}

// Stats counts live nodes by kind. It is O(nodes).
func (t *Tree[K, V]) Stats() Stats {
	if t.usable() != nil {
		return Stats{}
	}
	s := Stats{
		Order:     t.order,
		Height:    t.height,
		Keys:      t.size,
		FreeSlots: len(t.freeList),
	}
	for _, n := range t.nodes {
		if n == nil {
			continue
		}
		s.Nodes++
		if n.leaf {
			s.Leaves++
		} else {
			s.Internals++
		}
	}
	return s
}

// Destroy releases every node. The tree cannot be used afterwards; every
// operation returns ErrTreeDestroyed.
func (t *Tree[K, V]) Destroy() {
	if t.usable() != nil {
		return
	}
	released := 0
	for id, n := range t.nodes {
		if n == nil {
			continue
		}
		t.release(nodeID(id))
		released++
	}
	t.logger.Debug("tree destroyed", zap.Int("nodes_released", released), zap.Int("keys", t.size))

	t.nodes = nil
	t.freeList = nil
	t.root = nilNode
	t.size = 0
	t.height = 0
	t.destroyed = true
}
