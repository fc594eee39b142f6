package bptree_test

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIterator_ForwardAndBackward(t *testing.T) {
	tree := newTestTree(t, 3)
	for k := 0; k < 50; k += 5 {
		require.NoError(t, tree.Insert(k, valueFor(k)))
	}

	it := tree.NewIterator()
	require.False(t, it.Valid())

	var forward []int
	for ok := it.First(); ok; ok = it.Next() {
		forward = append(forward, it.Key())
		require.Equal(t, valueFor(it.Key()), it.Value())
	}
	require.Equal(t, []int{0, 5, 10, 15, 20, 25, 30, 35, 40, 45}, forward)
	require.False(t, it.Valid())
	require.False(t, it.Next())

	var backward []int
	for ok := it.Last(); ok; ok = it.Prev() {
		backward = append(backward, it.Key())
	}
	require.Equal(t, []int{45, 40, 35, 30, 25, 20, 15, 10, 5, 0}, backward)
}

func TestIterator_Seek(t *testing.T) {
	tree := newTestTree(t, 4)
	for k := 10; k <= 100; k += 10 {
		require.NoError(t, tree.Insert(k, valueFor(k)))
	}

	tests := []struct {
		seek  int
		want  int
		valid bool
	}{
		{seek: 0, want: 10, valid: true},
		{seek: 10, want: 10, valid: true},
		{seek: 11, want: 20, valid: true},
		{seek: 59, want: 60, valid: true},
		{seek: 100, want: 100, valid: true},
		{seek: 101, valid: false},
	}
	for _, tt := range tests {
		it := tree.NewIterator()
		require.Equal(t, tt.valid, it.Seek(tt.seek), "seek %d", tt.seek)
		if tt.valid {
			require.Equal(t, tt.want, it.Key(), "seek %d", tt.seek)
		}
	}

	// Seeking then stepping back crosses into the previous leaf.
	it := tree.NewIterator()
	require.True(t, it.Seek(41))
	require.Equal(t, 50, it.Key())
	require.True(t, it.Prev())
	require.Equal(t, 40, it.Key())
}

func TestAscendRange(t *testing.T) {
	tree := newTestTree(t, 5)
	for k := 0; k < 100; k++ {
		require.NoError(t, tree.Insert(k, valueFor(k)))
	}

	var got []int
	tree.AscendRange(20, 30, func(k int, _ string) bool {
		got = append(got, k)
		return true
	})
	require.Equal(t, []int{20, 21, 22, 23, 24, 25, 26, 27, 28, 29}, got)

	got = got[:0]
	tree.AscendRange(95, 1000, func(k int, _ string) bool {
		got = append(got, k)
		return true
	})
	require.Equal(t, []int{95, 96, 97, 98, 99}, got)

	got = got[:0]
	tree.AscendRange(50, 50, func(k int, _ string) bool {
		got = append(got, k)
		return true
	})
	require.Empty(t, got)

	// Early stop.
	got = got[:0]
	tree.AscendGreaterOrEqual(90, func(k int, _ string) bool {
		got = append(got, k)
		return len(got) < 3
	})
	require.Equal(t, []int{90, 91, 92}, got)
}

func TestDescend(t *testing.T) {
	tree := newTestTree(t, 3)
	for _, k := range []int{7, 3, 9, 1, 5} {
		require.NoError(t, tree.Insert(k, valueFor(k)))
	}

	var got []int
	tree.Descend(func(k int, _ string) bool {
		got = append(got, k)
		return k > 3
	})
	require.Equal(t, []int{9, 7, 5, 3}, got)
}

func TestMinMax(t *testing.T) {
	tree := newTestTree(t, 4)
	for _, k := range []int{42, -7, 13, 99, 0} {
		require.NoError(t, tree.Insert(k, valueFor(k)))
	}

	k, v, ok := tree.Min()
	require.True(t, ok)
	require.Equal(t, -7, k)
	require.Equal(t, valueFor(-7), v)

	k, _, ok = tree.Max()
	require.True(t, ok)
	require.Equal(t, 99, k)

	_, err := tree.Delete(-7)
	require.NoError(t, err)
	k, _, _ = tree.Min()
	require.Equal(t, 0, k)
}
