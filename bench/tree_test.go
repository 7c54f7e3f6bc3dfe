package bench

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/cosmos/randtree-bench/bench/metrics"
)

func TestMultiTreeApplyAndCommit(t *testing.T) {
	m := metrics.New(nil)
	tree := NewMultiTree(MultiTreeOptions{
		Logger:     zerolog.Nop(),
		StoreNames: []string{"bank"},
		Samples:    5,
		Metrics:    m,
	})
	require.Equal(t, int64(0), tree.Version())

	require.NoError(t, tree.ApplyUpdate("bank", []byte("alice"), []byte("10"), false))
	require.NoError(t, tree.ApplyUpdate("bank", []byte("bob"), []byte("20"), false))
	require.NoError(t, tree.ApplyUpdate("bank", []byte("alice"), []byte("15"), false))
	require.NoError(t, tree.ApplyUpdate("gov", []byte("prop"), []byte("1"), false))
	require.NoError(t, tree.Commit())
	require.Equal(t, int64(1), tree.Version())
	require.Equal(t, []string{"bank", "gov"}, tree.StoreNames())

	bank, err := tree.GetTree("bank")
	require.NoError(t, err)
	require.Equal(t, 2, bank.Len())
	v, ok := bank.Get([]byte("alice"))
	require.True(t, ok)
	require.Equal(t, []byte("15"), v)

	require.NoError(t, tree.ApplyUpdate("bank", []byte("bob"), nil, true))
	require.NoError(t, tree.Commit())
	require.Equal(t, 1, bank.Len())

	require.Equal(t, float64(3), testutil.ToFloat64(m.Updates.WithLabelValues("bank", "set")))
	require.Equal(t, float64(1), testutil.ToFloat64(m.Updates.WithLabelValues("bank", "delete")))
	require.Equal(t, float64(10), testutil.ToFloat64(m.RandomPicks.WithLabelValues("bank")))
	require.Equal(t, float64(1), testutil.ToFloat64(m.TreeSize.WithLabelValues("bank")))
	require.Equal(t, float64(2), testutil.ToFloat64(m.Commits))
}

func TestMultiTreeErrors(t *testing.T) {
	tree := NewMultiTree(MultiTreeOptions{Logger: zerolog.Nop()})
	_, err := tree.GetTree("bank")
	require.ErrorContains(t, err, "tree with key bank not found")

	err = tree.ApplyUpdate("bank", []byte{0xab}, nil, true)
	require.ErrorContains(t, err, "failed to remove key ab from store bank; version 1")
}

func TestMultiTreeEmptyStoreCommits(t *testing.T) {
	tree := NewMultiTree(MultiTreeOptions{Logger: zerolog.Nop(), StoreNames: []string{"empty"}, Samples: 10})
	require.NoError(t, tree.Commit())
	empty, err := tree.GetTree("empty")
	require.NoError(t, err)
	require.Zero(t, empty.Len())
}
