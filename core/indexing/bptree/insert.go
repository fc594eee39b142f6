package bptree

import "slices"

// Insert stores value under key. Inserting a key that is already present
// replaces its value in place and leaves the structure unchanged.
//
// Algorithm:
// 1. Descend to the target leaf, recording the path
// 2. Insert the pair at its sorted position
// 3. If the leaf overflows, split it and hand the promoted key to its parent
// 4. Repeat the split for every ancestor that overflows in turn
// 5. If the root splits, grow a new root above it
func (t *Tree[K, V]) Insert(key K, value V) error {
	_, err := t.Upsert(key, value)
	return err
}

// Upsert is Insert that also reports whether an existing value was replaced.
func (t *Tree[K, V]) Upsert(key K, value V) (replaced bool, err error) {
	if err := t.usable(); err != nil {
		return false, err
	}

	path, leafID := t.descend(key)
	leaf := t.nodes[leafID]

	pos, found := slices.BinarySearch(leaf.keys, key)
	if found {
		leaf.values[pos] = value
		return true, nil
	}
	leaf.keys = slices.Insert(leaf.keys, pos, key)
	leaf.values = slices.Insert(leaf.values, pos, value)
	t.size++

	promoted, right, split := t.splitIfOverfull(leafID)
	for level := len(path) - 1; split && level >= 0; level-- {
		f := path[level]
		parent := t.nodes[f.id]
		parent.keys = slices.Insert(parent.keys, f.idx, promoted)
		parent.children = slices.Insert(parent.children, f.idx+1, right)
		promoted, right, split = t.splitIfOverfull(f.id)
	}
	if split {
		t.growRoot(promoted, right)
	}
	return false, nil
}

// splitIfOverfull splits id when it holds more than MaxKeys keys and returns
// the key to promote and the new right sibling.
func (t *Tree[K, V]) splitIfOverfull(id nodeID) (promoted K, right nodeID, split bool) {
	if len(t.nodes[id].keys) <= t.maxKeys {
		return promoted, nilNode, false
	}
	if t.nodes[id].leaf {
		promoted, right = t.splitLeaf(id)
	} else {
		promoted, right = t.splitInternal(id)
	}
	return promoted, right, true
}

// splitLeaf keeps entries [0, n/2) in place, moves [n/2, n) to a new leaf
// linked directly after it, and returns the new leaf's first key. The
// promoted key stays in the right leaf.
func (t *Tree[K, V]) splitLeaf(id nodeID) (K, nodeID) {
	rightID := t.alloc(true)
	left, right := t.nodes[id], t.nodes[rightID]

	mid := len(left.keys) / 2
	right.keys = append(right.keys, left.keys[mid:]...)
	right.values = append(right.values, left.values[mid:]...)
	clear(left.values[mid:])
	left.keys = left.keys[:mid]
	left.values = left.values[:mid]

	right.next = left.next
	right.prev = id
	if left.next != nilNode {
		t.nodes[left.next].prev = rightID
	}
	left.next = rightID

	t.emit(EventLeafSplit, id, true)
	return right.keys[0], rightID
}

// splitInternal moves keys and children after the median to a new internal
// node. The median key is promoted and kept in neither half.
func (t *Tree[K, V]) splitInternal(id nodeID) (K, nodeID) {
	rightID := t.alloc(false)
	left, right := t.nodes[id], t.nodes[rightID]

	mid := len(left.keys) / 2
	promoted := left.keys[mid]
	right.keys = append(right.keys, left.keys[mid+1:]...)
	right.children = append(right.children, left.children[mid+1:]...)
	left.keys = left.keys[:mid]
	left.children = left.children[:mid+1]

	t.emit(EventInternalSplit, id, false)
	return promoted, rightID
}

// growRoot places a new internal root above the old one. This is the only
// place the tree gains height.
func (t *Tree[K, V]) growRoot(promoted K, right nodeID) {
	oldRoot := t.root
	rootID := t.alloc(false)
	root := t.nodes[rootID]
	root.keys = append(root.keys, promoted)
	root.children = append(root.children, oldRoot, right)

	t.root = rootID
	t.height++
	t.emit(EventRootSplit, rootID, false)
}
