package randtree

import (
	"fmt"

	"github.com/cosmos/randtree-bench/rng"
)

// Random returns an entry chosen uniformly at random, or false if the tree is
// empty.
//
// At each node an index is drawn from [0, 1+descendants): 0 selects the node
// itself, the next left-subtree-size indices descend left and the rest descend
// right. Each subtree's share of the range equals its size, so every entry is
// equally likely.
// O(depth)
func (t *Tree[K, V]) Random(src rng.Source) (K, V, bool) {
	n := t.root
	if n == nil {
		var (
			k K
			v V
		)
		return k, v, false
	}
	for {
		left, right := n.left.size(), n.right.size()
		if n.stale || n.descendants != left+right {
			panic(fmt.Sprintf("randtree: node %v caches %d descendants, children hold %d",
				n.key, n.descendants, left+right))
		}

		i := src.IntN(n.descendants + 1)
		switch {
		case i < 0 || i > n.descendants:
			panic(fmt.Sprintf("randtree: drew index %d outside [0, %d]", i, n.descendants))
		case i == 0:
			return n.key, n.value, true
		case i <= left:
			n = n.left
		default:
			n = n.right
		}
	}
}
