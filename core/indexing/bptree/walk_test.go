package bptree_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/sushant-115/bptreeindex/core/indexing/bptree"
)

func TestWalk_VisitsEveryNode(t *testing.T) {
	tree := newTestTree(t, 3)
	for k := 0; k < 64; k++ {
		require.NoError(t, tree.Insert(k, valueFor(k)))
	}
	stats := tree.Stats()

	var nodes, leaves int
	maxDepth := 0
	require.NoError(t, tree.Walk(func(v bptree.NodeView[int]) error {
		nodes++
		if v.Leaf {
			leaves++
			require.Empty(t, v.Children)
			require.Equal(t, tree.Height()-1, v.Depth)
		} else {
			require.Len(t, v.Children, len(v.Keys)+1)
		}
		maxDepth = max(maxDepth, v.Depth)
		return nil
	}))
	require.Equal(t, stats.Nodes, nodes)
	require.Equal(t, stats.Leaves, leaves)
	require.Equal(t, tree.Height()-1, maxDepth)
}

func TestWalk_ViewsAreCopies(t *testing.T) {
	tree := newTestTree(t, 4)
	for _, k := range []int{1, 2, 3} {
		require.NoError(t, tree.Insert(k, valueFor(k)))
	}
	require.NoError(t, tree.Walk(func(v bptree.NodeView[int]) error {
		v.Keys[0] = 100
		return nil
	}))
	require.Equal(t, []int{1, 2, 3}, tree.Keys())
	require.NoError(t, tree.Verify())
}

func TestWalk_StopAndError(t *testing.T) {
	tree := newTestTree(t, 3)
	for k := 0; k < 20; k++ {
		require.NoError(t, tree.Insert(k, valueFor(k)))
	}

	visited := 0
	require.NoError(t, tree.Walk(func(bptree.NodeView[int]) error {
		visited++
		if visited == 3 {
			return bptree.ErrStopWalk
		}
		return nil
	}))
	require.Equal(t, 3, visited)

	boom := errors.New("boom")
	err := tree.Walk(func(v bptree.NodeView[int]) error {
		if v.Leaf {
			return boom
		}
		return nil
	})
	require.ErrorIs(t, err, boom)
}
