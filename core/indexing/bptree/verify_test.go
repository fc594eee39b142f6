package bptree

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

// corruptible builds the order-4 tree with root [10 20] over the leaves
// [5 6 7] [10 12 17] [20 30] and returns it with the root and leaf nodes.
func corruptible(t *testing.T) (*Tree[int, string], *node[int, string], []*node[int, string]) {
	t.Helper()
	tree, err := New[int, string](4)
	require.NoError(t, err)
	for _, k := range []int{10, 20, 5, 6, 12, 30, 7, 17} {
		require.NoError(t, tree.Insert(k, "v"))
	}
	require.NoError(t, tree.Verify())

	root := tree.nodes[tree.root]
	require.Len(t, root.children, 3)
	leaves := make([]*node[int, string], 0, 3)
	for _, c := range root.children {
		leaves = append(leaves, tree.nodes[c])
	}
	return tree, root, leaves
}

func TestVerify_DetectsCorruption(t *testing.T) {
	tests := []struct {
		name    string
		corrupt func(tree *Tree[int, string], root *node[int, string], leaves []*node[int, string])
		want    Invariant
	}{
		{
			name: "keys out of order",
			corrupt: func(_ *Tree[int, string], _ *node[int, string], leaves []*node[int, string]) {
				leaves[1].keys[0], leaves[1].keys[1] = leaves[1].keys[1], leaves[1].keys[0]
			},
			want: InvariantKeyOrder,
		},
		{
			name: "duplicate key in leaf",
			corrupt: func(_ *Tree[int, string], _ *node[int, string], leaves []*node[int, string]) {
				leaves[1].keys[1] = leaves[1].keys[0]
			},
			want: InvariantDuplicateKey,
		},
		{
			name: "separator below right subtree minimum",
			corrupt: func(_ *Tree[int, string], root *node[int, string], _ []*node[int, string]) {
				root.keys[0] = 9
			},
			want: InvariantSeparator,
		},
		{
			name: "leaf key outside parent bounds",
			corrupt: func(_ *Tree[int, string], _ *node[int, string], leaves []*node[int, string]) {
				leaves[0].keys[2] = 11
			},
			want: InvariantSeparator,
		},
		{
			name: "empty non-root leaf",
			corrupt: func(_ *Tree[int, string], _ *node[int, string], leaves []*node[int, string]) {
				leaves[2].keys = leaves[2].keys[:0]
				leaves[2].values = leaves[2].values[:0]
			},
			want: InvariantCapacity,
		},
		{
			name: "overfull leaf",
			corrupt: func(_ *Tree[int, string], _ *node[int, string], leaves []*node[int, string]) {
				leaves[1].keys = append(leaves[1].keys, 18)
				leaves[1].values = append(leaves[1].values, "v")
			},
			want: InvariantCapacity,
		},
		{
			name: "broken prev link",
			corrupt: func(_ *Tree[int, string], _ *node[int, string], leaves []*node[int, string]) {
				leaves[1].prev = nilNode
			},
			want: InvariantLeafChain,
		},
		{
			name: "chain cycle",
			corrupt: func(_ *Tree[int, string], root *node[int, string], leaves []*node[int, string]) {
				leaves[2].next = root.children[0]
			},
			want: InvariantLeafChain,
		},
		{
			name: "chain skips a leaf",
			corrupt: func(_ *Tree[int, string], root *node[int, string], leaves []*node[int, string]) {
				leaves[0].next = root.children[2]
				leaves[2].prev = root.children[0]
			},
			want: InvariantLeafChain,
		},
		{
			name: "height disagrees with leaf depth",
			corrupt: func(tree *Tree[int, string], _ *node[int, string], _ []*node[int, string]) {
				tree.height = 3
			},
			want: InvariantLeafDepth,
		},
		{
			name: "dangling child handle",
			corrupt: func(_ *Tree[int, string], root *node[int, string], _ []*node[int, string]) {
				root.children[1] = 99
			},
			want: InvariantStructure,
		},
		{
			name: "child reachable twice",
			corrupt: func(_ *Tree[int, string], root *node[int, string], _ []*node[int, string]) {
				root.children[2] = root.children[1]
			},
			want: InvariantStructure,
		},
		{
			name: "size disagrees with contents",
			corrupt: func(tree *Tree[int, string], _ *node[int, string], _ []*node[int, string]) {
				tree.size = 7
			},
			want: InvariantStructure,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree, root, leaves := corruptible(t)
			tt.corrupt(tree, root, leaves)

			var err error
			require.NotPanics(t, func() { err = tree.Verify() })
			require.ErrorIs(t, err, ErrInvariantViolation)

			var ie *InvariantError
			require.True(t, errors.As(err, &ie))
			require.Equal(t, tt.want, ie.Invariant, ie.Error())
		})
	}
}

func TestVerify_UnequalLeafDepth(t *testing.T) {
	tree, root, _ := corruptible(t)

	// Replace the middle leaf [10 12 17] with an internal node over two
	// leaves, so those leaves sit a level deeper than their cousins.
	lower := tree.alloc(true)
	tree.nodes[lower].keys = append(tree.nodes[lower].keys, 10)
	tree.nodes[lower].values = append(tree.nodes[lower].values, "v")
	upper := tree.alloc(true)
	tree.nodes[upper].keys = append(tree.nodes[upper].keys, 12, 17)
	tree.nodes[upper].values = append(tree.nodes[upper].values, "v", "v")
	wrapper := tree.alloc(false)
	tree.nodes[wrapper].keys = append(tree.nodes[wrapper].keys, 12)
	tree.nodes[wrapper].children = append(tree.nodes[wrapper].children, lower, upper)
	root.children[1] = wrapper

	err := tree.Verify()
	require.ErrorIs(t, err, ErrInvariantViolation)
	var ie *InvariantError
	require.True(t, errors.As(err, &ie))
	require.Equal(t, InvariantLeafDepth, ie.Invariant)
}

func TestVerify_ReleasedRoot(t *testing.T) {
	tree, _, _ := corruptible(t)
	tree.nodes[tree.root] = nil

	var err error
	require.NotPanics(t, func() { err = tree.Verify() })
	var ie *InvariantError
	require.True(t, errors.As(err, &ie))
	require.Equal(t, InvariantStructure, ie.Invariant)
}
