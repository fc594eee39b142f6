package dotexport

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/sushant-115/bptreeindex/core/indexing/bptree"
)

func scenarioTree(t *testing.T) *bptree.Tree[int, string] {
	t.Helper()
	tree, err := bptree.New[int, string](4)
	require.NoError(t, err)
	for _, k := range []int{10, 20, 5, 6, 12, 30, 7, 17} {
		require.NoError(t, tree.Insert(k, "v"))
	}
	return tree
}

func TestWrite_Shape(t *testing.T) {
	tree := scenarioTree(t)

	var views []bptree.NodeView[int]
	require.NoError(t, tree.Walk(func(v bptree.NodeView[int]) error {
		views = append(views, v)
		return nil
	}))
	root, l1, l2, l3 := views[0], views[1], views[2], views[3]

	var buf bytes.Buffer
	require.NoError(t, Write[int](&buf, tree))
	out := buf.String()

	require.True(t, strings.HasPrefix(out, "digraph BPTree {\n  node [shape=record];\n"))
	require.True(t, strings.HasSuffix(out, "}\n"))

	lines := func(format string, args ...any) string {
		return "  " + fmt.Sprintf(format, args...) + "\n"
	}
	require.Contains(t, out, lines(`node%d [label="<f0> | 10 |<f1> | 20 |<f2>"];`, root.ID))
	require.Contains(t, out, lines(`node%d [label="5 | 6 | 7", shape=box, style=filled, color=lightgray];`, l1.ID))
	require.Contains(t, out, lines(`node%d [label="20 | 30", shape=box, style=filled, color=lightgray];`, l3.ID))
	require.Contains(t, out, lines(`node%d:f0 -> node%d;`, root.ID, l1.ID))
	require.Contains(t, out, lines(`node%d:f2 -> node%d;`, root.ID, l3.ID))
	require.Contains(t, out, lines(`{ rank=same; node%d; node%d; node%d; }`, l1.ID, l2.ID, l3.ID))
	require.Contains(t, out, lines(`node%d -> node%d [style=dashed, color=blue];`, l1.ID, l2.ID))
	require.Contains(t, out, lines(`node%d -> node%d [style=dashed, color=blue];`, l2.ID, l3.ID))
	require.Equal(t, 2, strings.Count(out, "style=dashed"))
}

func TestWrite_EmptyTree(t *testing.T) {
	tree, err := bptree.New[string, int](3)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Write[string](&buf, tree))
	require.Contains(t, buf.String(), `[label="", shape=box`)
	require.NotContains(t, buf.String(), "->")
}

func TestWrite_EscapesRecordCharacters(t *testing.T) {
	tree, err := bptree.New[string, int](3)
	require.NoError(t, err)
	require.NoError(t, tree.Insert(`a|b`, 1))
	require.NoError(t, tree.Insert(`"q"`, 2))

	var buf bytes.Buffer
	require.NoError(t, Write[string](&buf, tree))
	require.Contains(t, buf.String(), `\"q\" | a\|b`)
}

func TestWrite_WalkError(t *testing.T) {
	boom := errors.New("boom")
	walker := WalkerFunc[int](func(fn bptree.WalkFunc[int]) error { return boom })

	err := Write[int](&bytes.Buffer{}, walker)
	require.ErrorIs(t, err, boom)
}
