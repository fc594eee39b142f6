package bptree

import "slices"

// Delete removes key and reports whether it was present. Deleting a missing
// key leaves the tree untouched.
//
// The path from the root is recorded on the way down. After the entry is
// removed from its leaf, the path is walked back up and every child left
// with fewer than MinKeys keys is repaired by borrowing from a sibling or
// merging with one. An internal root left without keys is replaced by its
// only child.
func (t *Tree[K, V]) Delete(key K) (bool, error) {
	if err := t.usable(); err != nil {
		return false, err
	}

	path, leafID := t.descend(key)
	leaf := t.nodes[leafID]

	pos, found := slices.BinarySearch(leaf.keys, key)
	if !found {
		return false, nil
	}
	leaf.keys = slices.Delete(leaf.keys, pos, pos+1)
	leaf.values = slices.Delete(leaf.values, pos, pos+1)
	t.size--

	child := leafID
	for level := len(path) - 1; level >= 0; level-- {
		f := path[level]
		if len(t.nodes[child].keys) < t.minKeys {
			t.fixUnderflow(f.id, f.idx)
		}
		child = f.id
	}
	t.collapseRoot()

	// Only a leaf's first key can also live in an ancestor as a separator.
	if pos == 0 {
		t.repairSeparator(key)
	}
	return true, nil
}

// fixUnderflow repairs the child at idx of parent, which holds fewer than
// MinKeys keys.
func (t *Tree[K, V]) fixUnderflow(parentID nodeID, idx int) {
	parent := t.nodes[parentID]

	var left, right *node[K, V]
	if idx > 0 {
		left = t.nodes[parent.children[idx-1]]
	}
	if idx < len(parent.children)-1 {
		right = t.nodes[parent.children[idx+1]]
	}

	switch {
	case left != nil && len(left.keys) > t.minKeys:
		t.borrowFromLeft(parent, idx)
	case right != nil && len(right.keys) > t.minKeys:
		t.borrowFromRight(parent, idx)
	case left != nil:
		t.merge(parentID, idx-1)
	case right != nil:
		t.merge(parentID, idx)
	}
}

// borrowFromLeft moves the left sibling's last entry to the front of the
// child at idx.
func (t *Tree[K, V]) borrowFromLeft(parent *node[K, V], idx int) {
	childID := parent.children[idx]
	child, left := t.nodes[childID], t.nodes[parent.children[idx-1]]
	last := len(left.keys) - 1

	if child.leaf {
		child.keys = slices.Insert(child.keys, 0, left.keys[last])
		child.values = slices.Insert(child.values, 0, left.values[last])
		left.keys = left.keys[:last]
		clear(left.values[last:])
		left.values = left.values[:last]

		parent.keys[idx-1] = child.keys[0]
	} else {
		// Rotate: the separator comes down, the sibling's last key goes up.
		child.keys = slices.Insert(child.keys, 0, parent.keys[idx-1])
		child.children = slices.Insert(child.children, 0, left.children[last+1])
		parent.keys[idx-1] = left.keys[last]
		left.keys = left.keys[:last]
		left.children = left.children[:last+1]
	}
	t.emit(EventBorrowLeft, childID, child.leaf)
}

// borrowFromRight moves the right sibling's first entry to the end of the
// child at idx.
func (t *Tree[K, V]) borrowFromRight(parent *node[K, V], idx int) {
	childID := parent.children[idx]
	child, right := t.nodes[childID], t.nodes[parent.children[idx+1]]

	if child.leaf {
		child.keys = append(child.keys, right.keys[0])
		child.values = append(child.values, right.values[0])
		right.keys = slices.Delete(right.keys, 0, 1)
		right.values = slices.Delete(right.values, 0, 1)

		parent.keys[idx] = right.keys[0]
	} else {
		child.keys = append(child.keys, parent.keys[idx])
		child.children = append(child.children, right.children[0])
		parent.keys[idx] = right.keys[0]
		right.keys = slices.Delete(right.keys, 0, 1)
		right.children = slices.Delete(right.children, 0, 1)
	}
	t.emit(EventBorrowRight, childID, child.leaf)
}

// merge folds the child at idx+1 of parent into the child at idx, drops the
// separator between them and releases the absorbed node.
func (t *Tree[K, V]) merge(parentID nodeID, idx int) {
	parent := t.nodes[parentID]
	leftID, rightID := parent.children[idx], parent.children[idx+1]
	left, right := t.nodes[leftID], t.nodes[rightID]

	if left.leaf {
		left.keys = append(left.keys, right.keys...)
		left.values = append(left.values, right.values...)

		left.next = right.next
		if right.next != nilNode {
			t.nodes[right.next].prev = leftID
		}
	} else {
		left.keys = append(left.keys, parent.keys[idx])
		left.keys = append(left.keys, right.keys...)
		left.children = append(left.children, right.children...)
	}

	parent.keys = slices.Delete(parent.keys, idx, idx+1)
	parent.children = slices.Delete(parent.children, idx+1, idx+2)
	t.release(rightID)
	t.emit(EventMerge, leftID, left.leaf)
}

// collapseRoot promotes the only child of a keyless internal root. This is
// the only place the tree loses height.
func (t *Tree[K, V]) collapseRoot() {
	root := t.nodes[t.root]
	if root.leaf || len(root.keys) > 0 {
		return
	}
	oldRoot := t.root
	t.root = root.children[0]
	t.release(oldRoot)
	t.height--
	t.emit(EventRootCollapse, oldRoot, false)
}

// repairSeparator rewrites the separator equal to a deleted key, if one is
// left, with the smallest key of the subtree to its right. It follows the
// search descent, so it visits every node that could hold that separator.
func (t *Tree[K, V]) repairSeparator(key K) {
	id := t.root
	for n := t.nodes[id]; !n.leaf; n = t.nodes[id] {
		i := n.childIndex(key)
		if i > 0 && n.keys[i-1] == key {
			n.keys[i-1] = t.minKey(n.children[i])
		}
		id = n.children[i]
	}
}
