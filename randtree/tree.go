// Package randtree implements an unbalanced binary search tree whose nodes
// cache the size of their subtrees, so that a uniformly random entry can be
// selected with a single walk from the root.
//
// The tree never rotates. Depth, and with it the cost of every operation, is
// logarithmic only in expectation under a reasonably random insertion order;
// sorted input degrades the tree to a chain. Every descent and traversal uses
// an explicit loop, stack or queue, so a degenerate tree costs time but never
// call-stack depth.
//
// A Tree is not safe for concurrent use. Reads may be interleaved with other
// reads; any mutation requires exclusive access.
package randtree

import (
	"cmp"
	"fmt"
)

// Tree is an ordered map from unique keys to values.
type Tree[K, V any] struct {
	root    *node[K, V]
	compare func(a, b K) int
}

// New returns an empty tree ordered by cmp.Compare.
func New[K cmp.Ordered, V any]() *Tree[K, V] {
	return NewFunc[K, V](cmp.Compare[K])
}

// NewFunc returns an empty tree ordered by compare, which must return a
// negative number when a < b, a positive number when a > b and zero when
// they are equal.
func NewFunc[K, V any](compare func(a, b K) int) *Tree[K, V] {
	if compare == nil {
		panic("randtree: nil compare func")
	}
	return &Tree[K, V]{compare: compare}
}

// Len returns the number of entries in the tree.
// O(1)
func (t *Tree[K, V]) Len() int {
	return t.root.size()
}

// Insert sets the value for key. If key was already present its value is
// replaced and the previous value is returned with replaced == true.
// O(depth)
func (t *Tree[K, V]) Insert(key K, value V) (old V, replaced bool) {
	if n := t.find(key); n != nil {
		old, n.value = n.value, value
		return old, true
	}
	t.insertNew(key, value)
	return old, false
}

// insertNew links a fresh leaf for a key known to be absent, counting it on
// every node of the descent path.
func (t *Tree[K, V]) insertNew(key K, value V) {
	link := &t.root
	for *link != nil {
		n := *link
		n.descendants++
		switch c := t.compare(key, n.key); {
		case c < 0:
			link = &n.left
		case c > 0:
			link = &n.right
		default:
			panic(fmt.Sprintf("randtree: key %v already present", key))
		}
	}
	*link = newNode(key, value)
}

// Get returns the value stored for key.
// O(depth)
func (t *Tree[K, V]) Get(key K) (V, bool) {
	n := t.find(key)
	if n == nil {
		var zero V
		return zero, false
	}
	return n.value, true
}

// GetPtr returns a pointer to the value stored for key, or nil if key is
// absent. The pointer must not be retained across a Remove, which rebuilds
// part of the tree.
// O(depth)
func (t *Tree[K, V]) GetPtr(key K) *V {
	n := t.find(key)
	if n == nil {
		return nil
	}
	return &n.value
}

// Has reports whether key is present.
// O(depth)
func (t *Tree[K, V]) Has(key K) bool {
	return t.find(key) != nil
}

func (t *Tree[K, V]) find(key K) *node[K, V] {
	n := t.root
	for n != nil {
		switch c := t.compare(key, n.key); {
		case c < 0:
			n = n.left
		case c > 0:
			n = n.right
		default:
			return n
		}
	}
	return nil
}

// Remove deletes key and returns its value.
//
// The whole branch rooted at key is cut from the tree, and every other entry
// of that branch is inserted again in breadth-first order. Reinserting in
// roughly the order the entries already had keeps the branch's shape close to
// what it was; nothing bounds the resulting depth.
// O(size of the branch × depth)
func (t *Tree[K, V]) Remove(key K) (V, bool) {
	branch := t.takeBranch(key)
	if branch == nil {
		var zero V
		return zero, false
	}

	var (
		removed V
		first   = true
	)
	for k, v := range drain(branch) {
		if first {
			removed, first = v, false
			continue
		}
		t.insertNew(k, v)
	}
	return removed, true
}

// takeBranch detaches the subtree rooted at key and returns it, or nil if key
// is absent. Sizes along the descent path are marked stale on the way down
// and recounted once the branch is gone.
func (t *Tree[K, V]) takeBranch(key K) *node[K, V] {
	link := &t.root
	for *link != nil {
		n := *link
		c := t.compare(key, n.key)
		if c == 0 {
			break
		}
		n.stale = true
		if c < 0 {
			link = &n.left
		} else {
			link = &n.right
		}
	}
	branch := *link
	*link = nil
	recount(t.root)
	return branch
}
