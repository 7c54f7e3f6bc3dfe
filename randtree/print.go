package randtree

import (
	"fmt"

	"github.com/xlab/treeprint"
)

// TreePrint renders the tree as an indented text tree, one branch per node,
// each child prefixed with the side it hangs from. label formats an entry;
// nil prints the key.
func (t *Tree[K, V]) TreePrint(label func(K, V) string) treeprint.Tree {
	if label == nil {
		label = keyLabel[K, V]
	}
	if t.root == nil {
		return treeprint.NewWithRoot("(empty)")
	}

	display := func(side string, n *node[K, V]) string {
		return fmt.Sprintf("%s%s (%d below)", side, label(n.key, n.value), n.descendants)
	}

	type frame struct {
		n      *node[K, V]
		branch treeprint.Tree
	}
	root := treeprint.NewWithRoot(display("", t.root))
	stack := []frame{{n: t.root, branch: root}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if f.n.left != nil {
			stack = append(stack, frame{n: f.n.left, branch: f.branch.AddBranch(display("L ", f.n.left))})
		}
		if f.n.right != nil {
			stack = append(stack, frame{n: f.n.right, branch: f.branch.AddBranch(display("R ", f.n.right))})
		}
	}
	return root
}
