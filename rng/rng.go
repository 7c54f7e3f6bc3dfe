// Package rng defines the randomness capability injected into tree selection
// and reservoir sampling.
package rng

import "math/rand/v2"

// Source draws a uniform integer in [0, n). It must panic if n <= 0.
// *rand.Rand from math/rand/v2 satisfies Source.
type Source interface {
	IntN(n int) int
}

// New returns a PCG-backed generator. Equal seeds produce equal sequences.
func New(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed))
}

var _ Source = (*rand.Rand)(nil)
