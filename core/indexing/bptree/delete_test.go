package bptree_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/sushant-115/bptreeindex/core/indexing/bptree"
)

// --- Test Helpers ---

// eventRecorder collects the structural events a tree reports.
type eventRecorder struct {
	events []bptree.Event
}

func (r *eventRecorder) hook(e bptree.Event) { r.events = append(r.events, e) }

func (r *eventRecorder) reset() { r.events = nil }

func (r *eventRecorder) kinds() []bptree.EventKind {
	kinds := make([]bptree.EventKind, 0, len(r.events))
	for _, e := range r.events {
		kinds = append(kinds, e.Kind)
	}
	return kinds
}

func (r *eventRecorder) count(kind bptree.EventKind, leaf bool) int {
	n := 0
	for _, e := range r.events {
		if e.Kind == kind && e.Leaf == leaf {
			n++
		}
	}
	return n
}

// scenarioTree builds the order-4 tree with root [10 20] over the leaves
// [5 6 7] [10 12 17] [20 30].
func scenarioTree(t *testing.T, rec *eventRecorder) *bptree.Tree[int, string] {
	t.Helper()
	tree := newTestTree(t, 4, bptree.WithEventHook(rec.hook))
	for _, k := range []int{10, 20, 5, 6, 12, 30, 7, 17} {
		require.NoError(t, tree.Insert(k, valueFor(k)))
	}
	rec.reset()
	return tree
}

func rootKeys(t *testing.T, tree *bptree.Tree[int, string]) []int {
	t.Helper()
	var keys []int
	require.NoError(t, tree.Walk(func(v bptree.NodeView[int]) error {
		keys = v.Keys
		return bptree.ErrStopWalk
	}))
	return keys
}

func mustDelete(t *testing.T, tree *bptree.Tree[int, string], keys ...int) {
	t.Helper()
	for _, k := range keys {
		deleted, err := tree.Delete(k)
		require.NoError(t, err)
		require.True(t, deleted, "delete %d", k)
		require.NoError(t, tree.Verify(), "after deleting %d", k)
	}
}

// --- Test Cases ---

// TestDelete_FirstKeyRepairsSeparator removes a leaf's first key, which is
// also the separator in the root.
func TestDelete_FirstKeyRepairsSeparator(t *testing.T) {
	rec := &eventRecorder{}
	tree := scenarioTree(t, rec)

	mustDelete(t, tree, 10)
	require.Equal(t, []int{12, 20}, rootKeys(t, tree))
	require.Empty(t, rec.events, "no rebalancing expected")

	_, found, err := tree.Search(10)
	require.NoError(t, err)
	require.False(t, found)
	v, found, err := tree.Search(12)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, valueFor(12), v)
}

func TestDelete_BorrowFromLeftLeaf(t *testing.T) {
	rec := &eventRecorder{}
	tree := scenarioTree(t, rec)

	mustDelete(t, tree, 20)
	require.Equal(t, []int{10, 30}, rootKeys(t, tree))

	mustDelete(t, tree, 30)
	require.Equal(t, []bptree.EventKind{bptree.EventBorrowLeft}, rec.kinds())
	require.True(t, rec.events[0].Leaf)
	require.Equal(t, []int{10, 17}, rootKeys(t, tree))
	require.Equal(t, []int{5, 6, 7, 10, 12, 17}, chainKeys(t, tree))
}

func TestDelete_BorrowFromRightLeaf(t *testing.T) {
	rec := &eventRecorder{}
	tree := scenarioTree(t, rec)

	mustDelete(t, tree, 5, 6, 7)
	require.Equal(t, []bptree.EventKind{bptree.EventBorrowRight}, rec.kinds())
	require.Equal(t, []int{12, 20}, rootKeys(t, tree))
	require.Equal(t, []int{10, 12, 17, 20, 30}, chainKeys(t, tree))
}

func TestDelete_MergeWithLeftLeaf(t *testing.T) {
	rec := &eventRecorder{}
	tree := scenarioTree(t, rec)

	mustDelete(t, tree, 12, 17, 20, 30)
	require.Equal(t, []bptree.EventKind{bptree.EventMerge}, rec.kinds())
	require.Equal(t, []int{10}, rootKeys(t, tree))
	require.Equal(t, []int{5, 6, 7, 10}, chainKeys(t, tree))
	require.Equal(t, []int{5, 6, 7, 10}, structuralKeys(t, tree))
}

func TestDelete_MergeWithRightLeaf(t *testing.T) {
	rec := &eventRecorder{}
	tree := scenarioTree(t, rec)

	mustDelete(t, tree, 12, 17, 6, 7, 5)
	require.Equal(t, []bptree.EventKind{bptree.EventMerge}, rec.kinds())
	require.Equal(t, []int{20}, rootKeys(t, tree))
	require.Equal(t, []int{10, 20, 30}, chainKeys(t, tree))
}

// TestDelete_RootCollapse empties a two-level tree until the root has a
// single child and must be replaced by it.
func TestDelete_RootCollapse(t *testing.T) {
	rec := &eventRecorder{}
	tree := scenarioTree(t, rec)

	mustDelete(t, tree, 12, 17, 20, 30, 5, 6)
	require.Equal(t, 2, tree.Height())

	mustDelete(t, tree, 7)
	require.Equal(t, 1, tree.Height())
	require.Contains(t, rec.kinds(), bptree.EventRootCollapse)
	require.Equal(t, []int{10}, chainKeys(t, tree))
	require.Equal(t, 1, tree.Stats().Nodes)

	mustDelete(t, tree, 10)
	require.Equal(t, 0, tree.Len())
	require.Equal(t, 1, tree.Height())
}

// TestDelete_InternalRebalancing drives an order-3 tree through ascending
// and descending deletions, which underflow internal nodes as well as
// leaves.
func TestDelete_InternalRebalancing(t *testing.T) {
	for _, tc := range []struct {
		name  string
		order func(n int) []int
	}{
		{name: "ascending", order: func(n int) []int {
			keys := make([]int, n)
			for i := range keys {
				keys[i] = i
			}
			return keys
		}},
		{name: "descending", order: func(n int) []int {
			keys := make([]int, n)
			for i := range keys {
				keys[i] = n - 1 - i
			}
			return keys
		}},
		{name: "middle-out", order: func(n int) []int {
			keys := make([]int, 0, n)
			for lo, hi := n/2-1, n/2; lo >= 0 || hi < n; lo, hi = lo-1, hi+1 {
				if hi < n {
					keys = append(keys, hi)
				}
				if lo >= 0 {
					keys = append(keys, lo)
				}
			}
			return keys
		}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			rec := &eventRecorder{}
			tree := newTestTree(t, 3, bptree.WithEventHook(rec.hook))
			const n = 256
			for k := 0; k < n; k++ {
				require.NoError(t, tree.Insert(k, valueFor(k)))
			}
			require.GreaterOrEqual(t, tree.Height(), 5)
			rec.reset()

			remaining := n
			for _, k := range tc.order(n) {
				deleted, err := tree.Delete(k)
				require.NoError(t, err)
				require.True(t, deleted, "delete %d", k)
				require.NoError(t, tree.Verify(), "after deleting %d", k)
				remaining--
				require.Equal(t, remaining, tree.Len())
			}

			require.Equal(t, 1, tree.Height())
			require.Equal(t, 1, tree.Stats().Nodes)
			require.Positive(t, rec.count(bptree.EventMerge, false), "internal merges")
			require.Positive(t, rec.count(bptree.EventRootCollapse, false), "root collapses")
		})
	}
}
