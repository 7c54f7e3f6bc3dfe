package randtree

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRenderDotGraph(t *testing.T) {
	tree := New[int, string]()
	for _, k := range []int{4, 2, 6} {
		tree.Insert(k, "")
	}
	graph := &bytes.Buffer{}
	require.NoError(t, tree.RenderDotGraph(graph, nil))
	require.Equal(t, `digraph G {
n1 [label="4 desc:2"];
n2 [label="2 desc:0"];
n1 -> n2 [label="l"];
n3 [label="6 desc:0"];
n1 -> n3 [label="r"];
}
`, graph.String())
}

func TestRenderDotGraphEmpty(t *testing.T) {
	graph := &bytes.Buffer{}
	require.NoError(t, New[int, int]().RenderDotGraph(graph, nil))
	require.Equal(t, "digraph G {\n}\n", graph.String())
}

func TestTreePrint(t *testing.T) {
	tree := New[int, string]()
	for _, k := range []int{4, 2, 1, 3, 6} {
		tree.Insert(k, fmt.Sprintf("v%d", k))
	}
	out := tree.TreePrint(func(k int, v string) string {
		return fmt.Sprintf("%d=%s", k, v)
	}).String()
	t.Logf("tree:\n%s", out)

	require.Contains(t, out, "4=v4 (4 below)")
	require.Contains(t, out, "L 2=v2 (2 below)")
	require.Contains(t, out, "L 1=v1 (0 below)")
	require.Contains(t, out, "R 3=v3 (0 below)")
	require.Contains(t, out, "R 6=v6 (0 below)")

	require.Contains(t, New[int, int]().TreePrint(nil).String(), "(empty)")
}
