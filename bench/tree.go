package bench

import (
	"bytes"
	"fmt"
	"slices"

	"github.com/rs/zerolog"

	"github.com/cosmos/randtree-bench/bench/metrics"
	"github.com/cosmos/randtree-bench/randtree"
	"github.com/cosmos/randtree-bench/rng"
)

type StoreTree = randtree.Tree[[]byte, []byte]

// MultiTree keeps one randtree per store key and implements Tree.
type MultiTree struct {
	logger  zerolog.Logger
	trees   map[string]*StoreTree
	version int64
	src     rng.Source
	samples int
	metrics *metrics.Metrics
}

type MultiTreeOptions struct {
	Logger zerolog.Logger
	// StoreNames are created up front; stores seen later are created on first update.
	StoreNames []string
	// Source drives the random picks drawn at every commit.
	Source rng.Source
	// Samples is the number of random picks drawn per store at every commit.
	Samples int
	Metrics *metrics.Metrics
}

func NewMultiTree(opts MultiTreeOptions) *MultiTree {
	m := &MultiTree{
		logger:  opts.Logger,
		trees:   make(map[string]*StoreTree),
		src:     opts.Source,
		samples: opts.Samples,
		metrics: opts.Metrics,
	}
	if m.src == nil {
		m.src = rng.New(0)
	}
	if m.metrics == nil {
		m.metrics = metrics.New(nil)
	}
	for _, name := range opts.StoreNames {
		m.trees[name] = randtree.NewFunc[[]byte, []byte](bytes.Compare)
	}
	return m
}

func (m *MultiTree) Version() int64 {
	return m.version
}

func (m *MultiTree) GetTree(storeKey string) (*StoreTree, error) {
	tree, ok := m.trees[storeKey]
	if !ok {
		return nil, fmt.Errorf("tree with key %s not found", storeKey)
	}
	return tree, nil
}

// StoreNames returns the store keys in sorted order.
func (m *MultiTree) StoreNames() []string {
	names := make([]string, 0, len(m.trees))
	for name := range m.trees {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func (m *MultiTree) ApplyUpdate(storeKey string, key, value []byte, delete bool) error {
	tree, ok := m.trees[storeKey]
	if !ok {
		tree = randtree.NewFunc[[]byte, []byte](bytes.Compare)
		m.trees[storeKey] = tree
	}
	if delete {
		if _, ok := tree.Remove(key); !ok {
			return fmt.Errorf("failed to remove key %x from store %s; version %d", key, storeKey, m.version+1)
		}
		m.metrics.Updates.WithLabelValues(storeKey, "delete").Inc()
		return nil
	}
	tree.Insert(key, value)
	m.metrics.Updates.WithLabelValues(storeKey, "set").Inc()
	return nil
}

// Commit closes the current version. Every store is verified, sampled with
// random picks that must resolve to present keys, and published to metrics.
func (m *MultiTree) Commit() error {
	m.version++
	for _, name := range m.StoreNames() {
		tree := m.trees[name]
		if err := tree.Verify(); err != nil {
			return fmt.Errorf("store %s failed verification at version %d: %w", name, m.version, err)
		}

		for i := 0; i < m.samples && tree.Len() > 0; i++ {
			key, _, ok := tree.Random(m.src)
			if !ok {
				return fmt.Errorf("store %s: random pick failed on %d entries", name, tree.Len())
			}
			if !tree.Has(key) {
				return fmt.Errorf("store %s: random pick returned absent key %x", name, key)
			}
			m.metrics.RandomPicks.WithLabelValues(name).Inc()
		}

		size, height := tree.Len(), tree.Height()
		m.metrics.TreeSize.WithLabelValues(name).Set(float64(size))
		m.metrics.TreeHeight.WithLabelValues(name).Set(float64(height))
		m.logger.Debug().
			Str("store", name).
			Int64("version", m.version).
			Int("size", size).
			Int("height", height).
			Msg("committed store")
	}
	m.metrics.Commits.Inc()
	return nil
}

var _ Tree = (*MultiTree)(nil)
