package randtree

import "fmt"

// Verify checks the tree's structural invariants: keys are strictly ordered
// left to right, and every node's cached size equals an independent count of
// the nodes below it. It returns an error describing the first violation.
// O(n)
func (t *Tree[K, V]) Verify() error {
	if t.root == nil {
		return nil
	}

	type frame struct {
		n      *node[K, V]
		lo, hi *node[K, V]
	}
	var order []*node[K, V]
	queue := []frame{{n: t.root}}
	for len(queue) > 0 {
		f := queue[0]
		queue = queue[1:]
		if f.lo != nil && t.compare(f.n.key, f.lo.key) <= 0 {
			return fmt.Errorf("key %v is not greater than ancestor %v", f.n.key, f.lo.key)
		}
		if f.hi != nil && t.compare(f.n.key, f.hi.key) >= 0 {
			return fmt.Errorf("key %v is not less than ancestor %v", f.n.key, f.hi.key)
		}
		if f.n.stale {
			return fmt.Errorf("node %v has a stale size", f.n.key)
		}
		order = append(order, f.n)
		if f.n.left != nil {
			queue = append(queue, frame{n: f.n.left, lo: f.lo, hi: f.n})
		}
		if f.n.right != nil {
			queue = append(queue, frame{n: f.n.right, lo: f.n, hi: f.hi})
		}
	}

	// children come after their parent in level order, so walking it backwards
	// counts every subtree before the node that owns it.
	counted := make(map[*node[K, V]]int, len(order))
	for i := len(order) - 1; i >= 0; i-- {
		n := order[i]
		below := 0
		if n.left != nil {
			below += counted[n.left] + 1
		}
		if n.right != nil {
			below += counted[n.right] + 1
		}
		if below != n.descendants {
			return fmt.Errorf("node %v caches %d descendants, counted %d", n.key, n.descendants, below)
		}
		counted[n] = below
	}
	return nil
}
