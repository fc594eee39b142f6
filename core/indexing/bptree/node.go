package bptree

import (
	"cmp"
	"slices"
)

// nodeID is a stable handle into the tree's node arena. Child, prev and next
// references are handles, so relinking during split or merge is an index
// rewrite.
type nodeID int32

const nilNode nodeID = -1

// node is either an internal routing node (keys + children) or a leaf
// (keys + values + chain links). Internal nodes hold len(keys)+1 children.
type node[K cmp.Ordered, V any] struct {
	leaf     bool
	keys     []K
	values   []V      // leaves only
	children []nodeID // internal nodes only
	prev     nodeID   // leaves only, non-owning
	next     nodeID   // leaves only, non-owning
}

// childIndex returns the descent index for key: the number of keys k in the
// node with key >= k.
func (n *node[K, V]) childIndex(key K) int {
	i, found := slices.BinarySearch(n.keys, key)
	if found {
		return i + 1
	}
	return i
}

// frame is one level of a descent path: the internal node visited and the
// index of the child taken from it.
type frame struct {
	id  nodeID
	idx int
}

// --- Arena ---

// alloc returns a fresh node, reusing a released slot when one is available.
// Slices are sized to hold one key past MaxKeys so an overflowing node can be
// split without growing.
func (t *Tree[K, V]) alloc(leaf bool) nodeID {
	n := &node[K, V]{
		leaf: leaf,
		keys: make([]K, 0, t.maxKeys+1),
		prev: nilNode,
		next: nilNode,
	}
	if leaf {
		n.values = make([]V, 0, t.maxKeys+1)
	} else {
		n.children = make([]nodeID, 0, t.maxKeys+2)
	}

	if l := len(t.freeList); l > 0 {
		id := t.freeList[l-1]
		t.freeList = t.freeList[:l-1]
		t.nodes[id] = n
		return id
	}
	t.nodes = append(t.nodes, n)
	return nodeID(len(t.nodes) - 1)
}

// release drops a node from the arena and queues its slot for reuse.
func (t *Tree[K, V]) release(id nodeID) {
	n := t.nodes[id]
	clear(n.values[:cap(n.values)])
	t.nodes[id] = nil
	t.freeList = append(t.freeList, id)
}

// get resolves a handle. It returns nil for handles that are out of range or
// point at a released slot.
func (t *Tree[K, V]) get(id nodeID) *node[K, V] {
	if id < 0 || int(id) >= len(t.nodes) {
		return nil
	}
	return t.nodes[id]
}

// descend walks from the root to the leaf that owns key and records every
// internal node visited together with the child index taken.
func (t *Tree[K, V]) descend(key K) ([]frame, nodeID) {
	path := make([]frame, 0, t.height)
	id := t.root
	for n := t.nodes[id]; !n.leaf; n = t.nodes[id] {
		i := n.childIndex(key)
		path = append(path, frame{id: id, idx: i})
		id = n.children[i]
	}
	return path, id
}

// leftmostLeaf returns the first leaf of the subtree rooted at id.
func (t *Tree[K, V]) leftmostLeaf(id nodeID) nodeID {
	for n := t.nodes[id]; !n.leaf; n = t.nodes[id] {
		id = n.children[0]
	}
	return id
}

// rightmostLeaf returns the last leaf of the subtree rooted at id.
func (t *Tree[K, V]) rightmostLeaf(id nodeID) nodeID {
	for n := t.nodes[id]; !n.leaf; n = t.nodes[id] {
		id = n.children[len(n.children)-1]
	}
	return id
}

// minKey returns the smallest key stored under id. The subtree must be
// non-empty.
func (t *Tree[K, V]) minKey(id nodeID) K {
	return t.nodes[t.leftmostLeaf(id)].keys[0]
}
