package bptree

import (
	"cmp"
	"errors"
)

// NoNode is the handle reported in a NodeView for an absent chain link.
const NoNode = int(nilNode)

// NodeView is a read-only snapshot of one node, handed to a WalkFunc. The
// slices are copies; changing them does not affect the tree.
type NodeView[K cmp.Ordered] struct {
	ID       int
	Leaf     bool
	Depth    int
	Keys     []K
	Children []int // internal nodes only
	Prev     int   // leaves only, NoNode when absent
	Next     int   // leaves only, NoNode when absent
}

// WalkFunc is called once per node. Returning ErrStopWalk ends the walk
// early without error; any other error ends it and is returned by Walk.
type WalkFunc[K cmp.Ordered] func(view NodeView[K]) error

// Walk visits every node depth-first in pre-order: a node, then its children
// left to right.
func (t *Tree[K, V]) Walk(fn WalkFunc[K]) error {
	if err := t.usable(); err != nil {
		return err
	}

	type item struct {
		id    nodeID
		depth int
	}
	stack := []item{{id: t.root}}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n := t.nodes[top.id]

		view := NodeView[K]{
			ID:    int(top.id),
			Leaf:  n.leaf,
			Depth: top.depth,
			Keys:  append([]K(nil), n.keys...),
			Prev:  NoNode,
			Next:  NoNode,
		}
		if n.leaf {
			view.Prev, view.Next = int(n.prev), int(n.next)
		} else {
			view.Children = make([]int, len(n.children))
			for i, c := range n.children {
				view.Children[i] = int(c)
			}
			for i := len(n.children) - 1; i >= 0; i-- {
				stack = append(stack, item{id: n.children[i], depth: top.depth + 1})
			}
		}

		if err := fn(view); err != nil {
			if errors.Is(err, ErrStopWalk) {
				return nil
			}
			return err
		}
	}
	return nil
}
