package randtree

import (
	"fmt"
	"io"
)

type nodeID int

// debugTraverse visits every node depth-first, handing onNode the node, its
// id, its parent's id (0 for the root) and the edge direction from the parent.
func debugTraverse[K, V any](root *node[K, V], onNode func(n *node[K, V], self, parent nodeID, direction string) error) error {
	if root == nil {
		return nil
	}

	type frame struct {
		n         *node[K, V]
		parent    nodeID
		direction string
	}
	var next nodeID
	stack := []frame{{n: root}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		next++
		self := next
		if err := onNode(f.n, self, f.parent, f.direction); err != nil {
			return err
		}

		// right first so the left branch is visited first
		if f.n.right != nil {
			stack = append(stack, frame{n: f.n.right, parent: self, direction: "r"})
		}
		if f.n.left != nil {
			stack = append(stack, frame{n: f.n.left, parent: self, direction: "l"})
		}
	}
	return nil
}

// RenderDotGraph writes the tree as a Graphviz digraph. label formats an
// entry; nil prints the key.
func (t *Tree[K, V]) RenderDotGraph(writer io.Writer, label func(K, V) string) error {
	if label == nil {
		label = keyLabel[K, V]
	}
	_, err := fmt.Fprintln(writer, "digraph G {")
	if err != nil {
		return err
	}
	finishGraph := func() error {
		_, err := fmt.Fprintln(writer, "}")
		return err
	}
	if t.root == nil {
		return finishGraph()
	}

	err = debugTraverse(t.root, func(n *node[K, V], self, parent nodeID, direction string) error {
		nodeName := fmt.Sprintf("n%d", self)
		_, err := fmt.Fprintf(writer, "%s [label=\"%s desc:%d\"];\n", nodeName, label(n.key, n.value), n.descendants)
		if err != nil {
			return err
		}
		if parent != 0 {
			_, err = fmt.Fprintf(writer, "n%d -> %s [label=\"%s\"];\n", parent, nodeName, direction)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	return finishGraph()
}

func keyLabel[K, V any](k K, _ V) string {
	return fmt.Sprintf("%v", k)
}
