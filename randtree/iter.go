package randtree

import "iter"

// The iterators below are breadth-first. Remove depends on that: feeding a
// branch back in level order reinserts entries in almost the order they were
// originally inserted, where a depth-first order would pile them down one side.

// All returns the entries in breadth-first order without modifying the tree.
// Each call starts a fresh traversal.
func (t *Tree[K, V]) All() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		if t.root == nil {
			return
		}
		queue := []*node[K, V]{t.root}
		for len(queue) > 0 {
			n := queue[0]
			queue[0] = nil
			queue = queue[1:]
			if n.left != nil {
				queue = append(queue, n.left)
			}
			if n.right != nil {
				queue = append(queue, n.right)
			}
			if !yield(n.key, n.value) {
				return
			}
		}
	}
}

// Keys returns the keys in breadth-first order.
func (t *Tree[K, V]) Keys() iter.Seq[K] {
	return func(yield func(K) bool) {
		for k := range t.All() {
			if !yield(k) {
				return
			}
		}
	}
}

// Drain empties the tree and returns its former entries in breadth-first
// order, handing ownership of each one to the caller. The sequence can be
// ranged over once; entries not reached before an early stop are dropped.
func (t *Tree[K, V]) Drain() iter.Seq2[K, V] {
	root := t.root
	t.root = nil
	return drain(root)
}

func drain[K, V any](root *node[K, V]) iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		if root == nil {
			return
		}
		queue := []*node[K, V]{root}
		root = nil
		for len(queue) > 0 {
			n := queue[0]
			queue[0] = nil
			queue = queue[1:]
			if n.left != nil {
				queue = append(queue, n.left)
			}
			if n.right != nil {
				queue = append(queue, n.right)
			}
			n.left, n.right = nil, nil
			if !yield(n.key, n.value) {
				return
			}
		}
	}
}

// Height returns the number of levels in the tree; 0 when empty.
// O(n)
func (t *Tree[K, V]) Height() int {
	if t.root == nil {
		return 0
	}
	height := 0
	level := []*node[K, V]{t.root}
	for len(level) > 0 {
		height++
		var next []*node[K, V]
		for _, n := range level {
			if n.left != nil {
				next = append(next, n.left)
			}
			if n.right != nil {
				next = append(next, n.right)
			}
		}
		level = next
	}
	return height
}
