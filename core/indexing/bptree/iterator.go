package bptree

import (
	"cmp"
	"slices"
)

// Iterator is a cursor over the leaf chain. It is invalidated by any
// mutation of the tree it was created from.
type Iterator[K cmp.Ordered, V any] struct {
	t    *Tree[K, V]
	leaf nodeID
	pos  int
}

// NewIterator returns an unpositioned cursor. Call First, Last or Seek
// before reading from it.
func (t *Tree[K, V]) NewIterator() *Iterator[K, V] {
	return &Iterator[K, V]{t: t, leaf: nilNode}
}

// Valid reports whether the cursor points at an entry.
func (it *Iterator[K, V]) Valid() bool {
	if it.leaf == nilNode || it.t.usable() != nil {
		return false
	}
	n := it.t.get(it.leaf)
	return n != nil && it.pos >= 0 && it.pos < len(n.keys)
}

// First positions the cursor at the smallest key.
func (it *Iterator[K, V]) First() bool {
	if it.t.usable() != nil {
		return false
	}
	it.leaf, it.pos = it.t.leftmostLeaf(it.t.root), 0
	return it.settleForward()
}

// Last positions the cursor at the largest key.
func (it *Iterator[K, V]) Last() bool {
	if it.t.usable() != nil {
		return false
	}
	it.leaf = it.t.rightmostLeaf(it.t.root)
	it.pos = len(it.t.nodes[it.leaf].keys) - 1
	return it.settleBackward()
}

// Seek positions the cursor at the first key >= key.
func (it *Iterator[K, V]) Seek(key K) bool {
	if it.t.usable() != nil {
		return false
	}
	_, leafID := it.t.descend(key)
	it.leaf = leafID
	it.pos, _ = slices.BinarySearch(it.t.nodes[leafID].keys, key)
	return it.settleForward()
}

// Next advances to the following key.
func (it *Iterator[K, V]) Next() bool {
	if !it.Valid() {
		return false
	}
	it.pos++
	return it.settleForward()
}

// Prev steps back to the preceding key by following prev links.
func (it *Iterator[K, V]) Prev() bool {
	if !it.Valid() {
		return false
	}
	it.pos--
	return it.settleBackward()
}

// Key returns the key under the cursor. The cursor must be valid.
func (it *Iterator[K, V]) Key() K {
	return it.t.nodes[it.leaf].keys[it.pos]
}

// Value returns the value under the cursor. The cursor must be valid.
func (it *Iterator[K, V]) Value() V {
	return it.t.nodes[it.leaf].values[it.pos]
}

// settleForward moves past exhausted leaves along next links.
func (it *Iterator[K, V]) settleForward() bool {
	for it.leaf != nilNode && it.pos >= len(it.t.nodes[it.leaf].keys) {
		it.leaf, it.pos = it.t.nodes[it.leaf].next, 0
	}
	return it.leaf != nilNode
}

// settleBackward moves before exhausted leaves along prev links.
func (it *Iterator[K, V]) settleBackward() bool {
	for it.leaf != nilNode && it.pos < 0 {
		it.leaf = it.t.nodes[it.leaf].prev
		if it.leaf != nilNode {
			it.pos = len(it.t.nodes[it.leaf].keys) - 1
		}
	}
	return it.leaf != nilNode
}

// --- Callback traversal ---

// ItemIterator is called for each entry visited. Returning false stops the
// traversal.
type ItemIterator[K cmp.Ordered, V any] func(key K, value V) bool

// Ascend visits every entry in ascending key order.
func (t *Tree[K, V]) Ascend(fn ItemIterator[K, V]) {
	it := t.NewIterator()
	for ok := it.First(); ok; ok = it.Next() {
		if !fn(it.Key(), it.Value()) {
			return
		}
	}
}

// Descend visits every entry in descending key order.
func (t *Tree[K, V]) Descend(fn ItemIterator[K, V]) {
	it := t.NewIterator()
	for ok := it.Last(); ok; ok = it.Prev() {
		if !fn(it.Key(), it.Value()) {
			return
		}
	}
}

// AscendRange visits entries with greaterOrEqual <= key < lessThan in
// ascending order.
func (t *Tree[K, V]) AscendRange(greaterOrEqual, lessThan K, fn ItemIterator[K, V]) {
	it := t.NewIterator()
	for ok := it.Seek(greaterOrEqual); ok && it.Key() < lessThan; ok = it.Next() {
		if !fn(it.Key(), it.Value()) {
			return
		}
	}
}

// AscendGreaterOrEqual visits entries with key >= pivot in ascending order.
func (t *Tree[K, V]) AscendGreaterOrEqual(pivot K, fn ItemIterator[K, V]) {
	it := t.NewIterator()
	for ok := it.Seek(pivot); ok; ok = it.Next() {
		if !fn(it.Key(), it.Value()) {
			return
		}
	}
}

// Min returns the smallest entry.
func (t *Tree[K, V]) Min() (key K, value V, ok bool) {
	it := t.NewIterator()
	if it.First() {
		return it.Key(), it.Value(), true
	}
	return key, value, false
}

// Max returns the largest entry.
func (t *Tree[K, V]) Max() (key K, value V, ok bool) {
	it := t.NewIterator()
	if it.Last() {
		return it.Key(), it.Value(), true
	}
	return key, value, false
}

// Keys returns all keys in ascending order, read from the leaf chain.
func (t *Tree[K, V]) Keys() []K {
	keys := make([]K, 0, t.Len())
	t.Ascend(func(k K, _ V) bool {
		keys = append(keys, k)
		return true
	})
	return keys
}
