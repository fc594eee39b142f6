// Package dotexport renders a B+ tree as a Graphviz digraph.
//
// Internal nodes become record shapes with one port per child, leaves become
// filled boxes kept on one rank, and the leaf chain is drawn as dashed blue
// edges.
package dotexport

import (
	"bufio"
	"cmp"
	"fmt"
	"io"
	"strings"

	"github.com/sushant-115/bptreeindex/core/indexing/bptree"
)

// Walker is anything that can present its nodes to a bptree.WalkFunc.
// *bptree.Tree satisfies it.
type Walker[K cmp.Ordered] interface {
	Walk(fn bptree.WalkFunc[K]) error
}

// WalkerFunc adapts a function to Walker, e.g. to walk under a lock.
type WalkerFunc[K cmp.Ordered] func(fn bptree.WalkFunc[K]) error

func (f WalkerFunc[K]) Walk(fn bptree.WalkFunc[K]) error { return f(fn) }

var labelEscaper = strings.NewReplacer(
	`\`, `\\`,
	`"`, `\"`,
	`{`, `\{`,
	`}`, `\}`,
	`|`, `\|`,
	`<`, `\<`,
	`>`, `\>`,
)

// Write renders tree to w in DOT format.
func Write[K cmp.Ordered](w io.Writer, tree Walker[K]) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "digraph BPTree {")
	fmt.Fprintln(bw, "  node [shape=record];")

	var leaves []bptree.NodeView[K]
	err := tree.Walk(func(v bptree.NodeView[K]) error {
		if v.Leaf {
			leaves = append(leaves, v)
			writeLeaf(bw, v)
			return nil
		}
		writeInternal(bw, v)
		return nil
	})
	if err != nil {
		return fmt.Errorf("dotexport: walk failed: %w", err)
	}

	if len(leaves) > 0 {
		fmt.Fprint(bw, "  { rank=same; ")
		for _, leaf := range leaves {
			fmt.Fprintf(bw, "node%d; ", leaf.ID)
		}
		fmt.Fprintln(bw, "}")
	}
	for _, leaf := range leaves {
		if leaf.Next != bptree.NoNode {
			fmt.Fprintf(bw, "  node%d -> node%d [style=dashed, color=blue];\n", leaf.ID, leaf.Next)
		}
	}

	fmt.Fprintln(bw, "}")
	return bw.Flush()
}

func writeLeaf[K cmp.Ordered](w io.Writer, v bptree.NodeView[K]) {
	labels := make([]string, len(v.Keys))
	for i, k := range v.Keys {
		labels[i] = label(k)
	}
	fmt.Fprintf(w, "  node%d [label=\"%s\", shape=box, style=filled, color=lightgray];\n",
		v.ID, strings.Join(labels, " | "))
}

func writeInternal[K cmp.Ordered](w io.Writer, v bptree.NodeView[K]) {
	var b strings.Builder
	for i, k := range v.Keys {
		fmt.Fprintf(&b, "<f%d> | %s |", i, label(k))
	}
	fmt.Fprintf(&b, "<f%d>", len(v.Keys))
	fmt.Fprintf(w, "  node%d [label=\"%s\"];\n", v.ID, b.String())

	for i, child := range v.Children {
		fmt.Fprintf(w, "  node%d:f%d -> node%d;\n", v.ID, i, child)
	}
}

func label[K cmp.Ordered](k K) string {
	return labelEscaper.Replace(fmt.Sprint(k))
}
