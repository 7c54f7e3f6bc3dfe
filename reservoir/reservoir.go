// Package reservoir selects one element uniformly at random from a sequence
// whose length is not known in advance, in a single pass and constant space.
//
// For the n-th element seen, the held candidate is replaced with probability
// 1/n. After the pass every element has been kept with probability 1/N.
package reservoir

import (
	"iter"

	"github.com/cosmos/randtree-bench/rng"
)

// PickOne returns one element of seq chosen uniformly at random, or false if
// seq is empty. seq is consumed to the end.
// O(n)
func PickOne[T any](seq iter.Seq[T], src rng.Source) (T, bool) {
	p := NewPicker[T](src)
	for item := range seq {
		p.Add(item)
	}
	return p.Value()
}

// PickOne2 is PickOne over a sequence of pairs, such as the entries of a map
// or tree.
// O(n)
func PickOne2[K, V any](seq iter.Seq2[K, V], src rng.Source) (K, V, bool) {
	var (
		key   K
		value V
		count int
	)
	for k, v := range seq {
		count++
		if src.IntN(count) == 0 {
			key, value = k, v
		}
	}
	return key, value, count > 0
}

// Picker holds the running sample for elements pushed one at a time.
type Picker[T any] struct {
	src   rng.Source
	value T
	count int
}

// NewPicker returns an empty Picker drawing from src.
func NewPicker[T any](src rng.Source) *Picker[T] {
	return &Picker[T]{src: src}
}

// Add offers item to the sample.
func (p *Picker[T]) Add(item T) {
	p.count++
	if p.src.IntN(p.count) == 0 {
		p.value = item
	}
}

// Value returns the current sample, or false if nothing has been added.
func (p *Picker[T]) Value() (T, bool) {
	return p.value, p.count > 0
}

// Count returns the number of elements added since creation or the last Reset.
func (p *Picker[T]) Count() int {
	return p.count
}

// Reset discards the sample.
func (p *Picker[T]) Reset() {
	var zero T
	p.value = zero
	p.count = 0
}
