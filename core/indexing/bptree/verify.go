package bptree

import "cmp"

// Verify checks every structural invariant without modifying the tree. It
// returns nil when the tree is sound, or an *InvariantError naming the first
// broken invariant. It never panics on a corrupt tree.
//
// Two independent passes are made: a recursive walk from the root that
// checks key order, separators, capacity and leaf depth, and a linear walk of
// the leaf chain that checks ordering and link symmetry. Both must agree on
// the number of keys.
func (t *Tree[K, V]) Verify() error {
	if err := t.usable(); err != nil {
		return err
	}
	if t.get(t.root) == nil {
		return violation(InvariantStructure, t.root, "root handle does not resolve")
	}

	v := verifier[K, V]{t: t, leafDepth: -1, seen: make(map[nodeID]bool)}
	keys, err := v.node(t.root, 0, bound[K]{}, bound[K]{})
	if err != nil {
		return err
	}
	if keys != t.size {
		return violation(InvariantStructure, t.root, "tree holds %d keys, size is %d", keys, t.size)
	}
	if v.leafDepth+1 != t.height {
		return violation(InvariantLeafDepth, t.root, "leaves at depth %d, height is %d", v.leafDepth, t.height)
	}

	chainKeys, chainLeaves, err := t.verifyChain(v.leaves)
	if err != nil {
		return err
	}
	if chainLeaves != v.leaves || chainKeys != keys {
		return violation(InvariantLeafChain, t.root,
			"chain visits %d leaves/%d keys, tree has %d leaves/%d keys", chainLeaves, chainKeys, v.leaves, keys)
	}
	return nil
}

type bound[K any] struct {
	key K
	set bool
}

type verifier[K cmp.Ordered, V any] struct {
	t         *Tree[K, V]
	leafDepth int
	leaves    int
	seen      map[nodeID]bool
}

// node checks the subtree at id, whose keys must lie in [lo, hi), and
// returns the number of keys under it.
func (v *verifier[K, V]) node(id nodeID, depth int, lo, hi bound[K]) (int, error) {
	t := v.t
	n := t.get(id)
	if n == nil {
		return 0, violation(InvariantStructure, id, "dangling node handle")
	}
	if v.seen[id] {
		return 0, violation(InvariantStructure, id, "node reachable twice")
	}
	v.seen[id] = true

	isRoot := id == t.root
	for i := 1; i < len(n.keys); i++ {
		switch {
		case n.keys[i-1] == n.keys[i]:
			return 0, violation(InvariantDuplicateKey, id, "key %v repeated at %d", n.keys[i], i)
		case n.keys[i-1] > n.keys[i]:
			return 0, violation(InvariantKeyOrder, id, "key %v precedes %v", n.keys[i-1], n.keys[i])
		}
	}

	switch {
	case len(n.keys) > t.maxKeys:
		return 0, violation(InvariantCapacity, id, "%d keys exceeds max %d", len(n.keys), t.maxKeys)
	case !isRoot && len(n.keys) < t.minKeys:
		return 0, violation(InvariantCapacity, id, "%d keys below min %d", len(n.keys), t.minKeys)
	case isRoot && !n.leaf && len(n.keys) == 0:
		return 0, violation(InvariantCapacity, id, "internal root has no keys")
	}

	if len(n.keys) > 0 {
		if lo.set && n.keys[0] < lo.key {
			return 0, violation(InvariantSeparator, id, "key %v below lower bound %v", n.keys[0], lo.key)
		}
		if last := n.keys[len(n.keys)-1]; hi.set && last >= hi.key {
			return 0, violation(InvariantSeparator, id, "key %v not below upper bound %v", last, hi.key)
		}
	}

	if n.leaf {
		if len(n.values) != len(n.keys) || len(n.children) != 0 {
			return 0, violation(InvariantStructure, id, "leaf has %d keys, %d values, %d children",
				len(n.keys), len(n.values), len(n.children))
		}
		if v.leafDepth == -1 {
			v.leafDepth = depth
		} else if v.leafDepth != depth {
			return 0, violation(InvariantLeafDepth, id, "leaf at depth %d, expected %d", depth, v.leafDepth)
		}
		v.leaves++
		return len(n.keys), nil
	}

	if len(n.children) != len(n.keys)+1 || len(n.values) != 0 {
		return 0, violation(InvariantStructure, id, "internal node has %d keys, %d children",
			len(n.keys), len(n.children))
	}

	total := 0
	for i, child := range n.children {
		childLo, childHi := lo, hi
		if i > 0 {
			childLo = bound[K]{key: n.keys[i-1], set: true}
		}
		if i < len(n.keys) {
			childHi = bound[K]{key: n.keys[i], set: true}
		}
		count, err := v.node(child, depth+1, childLo, childHi)
		if err != nil {
			return 0, err
		}
		if i > 0 {
			if lowest := t.minKey(child); lowest != n.keys[i-1] {
				return 0, violation(InvariantSeparator, id, "separator %v does not equal right subtree minimum %v",
					n.keys[i-1], lowest)
			}
		}
		total += count
	}
	return total, nil
}

// verifyChain follows next links from the leftmost leaf. It gives up after
// maxLeaves steps so a cyclic chain cannot loop forever.
func (t *Tree[K, V]) verifyChain(maxLeaves int) (keys, leaves int, err error) {
	first := t.leftmostLeaf(t.root)
	last := t.rightmostLeaf(t.root)
	if p := t.nodes[first].prev; p != nilNode {
		return 0, 0, violation(InvariantLeafChain, first, "leftmost leaf has prev %d", p)
	}

	var prevKey K
	havePrev := false
	prevID := nilNode
	for id := first; id != nilNode; {
		n := t.get(id)
		if n == nil || !n.leaf {
			return 0, 0, violation(InvariantLeafChain, prevID, "next link %d is not a leaf", id)
		}
		if n.prev != prevID {
			return 0, 0, violation(InvariantLeafChain, id, "prev is %d, expected %d", n.prev, prevID)
		}
		leaves++
		if leaves > maxLeaves {
			return 0, 0, violation(InvariantLeafChain, id, "chain longer than %d leaves", maxLeaves)
		}
		for _, k := range n.keys {
			if havePrev {
				switch {
				case k == prevKey:
					return 0, 0, violation(InvariantDuplicateKey, id, "key %v appears twice in chain", k)
				case k < prevKey:
					return 0, 0, violation(InvariantLeafChain, id, "key %v follows %v", k, prevKey)
				}
			}
			prevKey, havePrev = k, true
			keys++
		}
		if n.next == nilNode && id != last {
			return 0, 0, violation(InvariantLeafChain, id, "chain ends before rightmost leaf %d", last)
		}
		prevID, id = id, n.next
	}
	return keys, leaves, nil
}
