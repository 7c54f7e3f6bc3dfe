package randtree

import "fmt"

type node[K, V any] struct {
	key   K
	value V
	left  *node[K, V]
	right *node[K, V]

	// descendants is the number of nodes strictly below this one.
	// It is only meaningful while stale is false.
	descendants int
	stale       bool
}

func newNode[K, V any](key K, value V) *node[K, V] {
	return &node[K, V]{key: key, value: value}
}

// size returns the number of nodes in the subtree rooted at n. A nil node is
// an empty subtree.
func (n *node[K, V]) size() int {
	if n == nil {
		return 0
	}
	if n.stale {
		panic(fmt.Sprintf("randtree: size of node %v read while stale", n.key))
	}
	return n.descendants + 1
}

// updateSize recomputes descendants from the children, whose sizes must
// already be known.
func (n *node[K, V]) updateSize() {
	n.descendants = n.left.size() + n.right.size()
	n.stale = false
}

// recount recomputes every stale size in the subtree rooted at n, children
// before parents. Subtrees whose root is not stale are never entered, so each
// stale node is recomputed exactly once.
func recount[K, V any](n *node[K, V]) {
	if n == nil || !n.stale {
		return
	}
	stack := []*node[K, V]{n}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		pending := false
		if top.left != nil && top.left.stale {
			stack = append(stack, top.left)
			pending = true
		}
		if top.right != nil && top.right.stale {
			stack = append(stack, top.right)
			pending = true
		}
		if pending {
			continue
		}
		top.updateSize()
		stack = stack[:len(stack)-1]
	}
}
