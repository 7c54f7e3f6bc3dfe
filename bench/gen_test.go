package bench

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"math/rand/v2"
	"os"
	"testing"

	storev1beta1 "cosmossdk.io/api/cosmos/store/v1beta1"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protodelim"
)

func testStores() []StoreParams {
	return []StoreParams{
		{
			StoreKey:         "a",
			KeyMean:          8,
			KeyStdDev:        1,
			ValueMean:        16,
			ValueStdDev:      4,
			InitialSize:      200,
			FinalSize:        400,
			ChangePerVersion: 50,
			DeleteFraction:   0.2,
		},
		{
			StoreKey:         "b",
			ValueMean:        8,
			ValueStdDev:      2,
			InitialSize:      100,
			FinalSize:        100,
			ChangePerVersion: 40,
			DeleteFraction:   0.5,
			SequentialKeys:   true,
		},
	}
}

func generate(t *testing.T, seed uint64, versions int64) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, GenerateChangesets(TreeParams{
		StoreParams: testStores(),
		Versions:    versions,
		Profile:     "test",
		Seed:        seed,
	}, dir, zerolog.Nop()))
	return dir
}

func readChangeset(t *testing.T, dir string, version int64) []*storev1beta1.StoreKVPair {
	t.Helper()
	f, err := os.Open(changesetDir(dir).versionFile(version))
	require.NoError(t, err)
	defer f.Close()
	reader := bufio.NewReader(f)

	var pairs []*storev1beta1.StoreKVPair
	for {
		var pair storev1beta1.StoreKVPair
		err := protodelim.UnmarshalFrom(reader, &pair)
		if errors.Is(err, io.EOF) {
			return pairs
		}
		require.NoError(t, err)
		pairs = append(pairs, &pair)
	}
}

func TestGenerateChangesets(t *testing.T) {
	const versions = 5
	dir := generate(t, 2, versions)

	info, err := changesetDir(dir).loadInfo()
	require.NoError(t, err)
	require.Equal(t, "test", info.Profile)
	require.Equal(t, uint64(2), info.Seed)
	require.Len(t, info.Ops, versions)
	require.Equal(t, int64(versions), info.Versions)
	require.Equal(t, []string{"a", "b"}, info.StoreNames)
	require.Equal(t, testStores(), info.StoreParams)

	live := map[string]map[string]struct{}{"a": {}, "b": {}}
	var lastSequential []byte
	for v := int64(1); v <= versions; v++ {
		pairs := readChangeset(t, dir, v)
		require.NotEmpty(t, pairs)
		want, ok := info.expectedOps(v)
		require.True(t, ok)
		require.Len(t, pairs, want)
		for _, p := range pairs {
			keys, ok := live[p.StoreKey]
			require.True(t, ok, "unexpected store %s", p.StoreKey)
			_, exists := keys[string(p.Key)]
			switch {
			case p.Delete:
				require.True(t, exists, "delete of missing key %x; version %d", p.Key, v)
				require.Nil(t, p.Value)
				delete(keys, string(p.Key))
			default:
				require.NotEmpty(t, p.Value)
				if !exists && p.StoreKey == "b" {
					require.Len(t, p.Key, 8)
					require.Positive(t, bytes.Compare(p.Key, lastSequential))
					lastSequential = p.Key
				}
				keys[string(p.Key)] = struct{}{}
			}
		}
		if v == 1 {
			require.Len(t, pairs, 300)
		}
	}
	require.Len(t, live["a"], 400)
	require.Len(t, live["b"], 100)
}

func TestGenerateChangesetsDeterminism(t *testing.T) {
	a, b, c := generate(t, 7, 3), generate(t, 7, 3), generate(t, 8, 3)
	for v := int64(1); v <= 3; v++ {
		bzA, err := os.ReadFile(changesetDir(a).versionFile(v))
		require.NoError(t, err)
		bzB, err := os.ReadFile(changesetDir(b).versionFile(v))
		require.NoError(t, err)
		bzC, err := os.ReadFile(changesetDir(c).versionFile(v))
		require.NoError(t, err)
		require.Equal(t, bzA, bzB)
		require.NotEqual(t, bzA, bzC)
	}
}

func TestGenerateChangesetsInvalid(t *testing.T) {
	dir := t.TempDir()
	src := rand.NewPCG(0, 0)

	err := GenerateChangesets(TreeParams{StoreParams: testStores(), Versions: 0, RandSource: src}, dir, zerolog.Nop())
	require.Error(t, err)

	err = GenerateChangesets(TreeParams{Versions: 1, RandSource: src}, dir, zerolog.Nop())
	require.Error(t, err)

	bad := testStores()
	bad[0].FinalSize = 1
	err = GenerateChangesets(TreeParams{StoreParams: bad, Versions: 2, RandSource: src}, dir, zerolog.Nop())
	require.ErrorContains(t, err, "final size")

	dup := append(testStores(), testStores()[0])
	err = GenerateChangesets(TreeParams{StoreParams: dup, Versions: 2, RandSource: src}, dir, zerolog.Nop())
	require.ErrorContains(t, err, "duplicate store key")
}

func TestGenerateChangesetsExplicitSource(t *testing.T) {
	// an explicit source wins over the seed, which is still recorded
	a, b := t.TempDir(), t.TempDir()
	for _, dir := range []string{a, b} {
		require.NoError(t, GenerateChangesets(TreeParams{
			StoreParams: testStores(),
			Versions:    2,
			Seed:        uint64(len(dir)),
			RandSource:  rand.NewPCG(5, 5),
		}, dir, zerolog.Nop()))
	}
	bzA, err := os.ReadFile(changesetDir(a).versionFile(2))
	require.NoError(t, err)
	bzB, err := os.ReadFile(changesetDir(b).versionFile(2))
	require.NoError(t, err)
	require.Equal(t, bzA, bzB)
}

func TestLoadInfoRejectsInconsistentFiles(t *testing.T) {
	dir := changesetDir(t.TempDir())
	_, err := dir.loadInfo()
	require.ErrorContains(t, err, "error reading info file")

	require.NoError(t, dir.saveInfo(changesetInfo{Versions: 0}))
	_, err = dir.loadInfo()
	require.ErrorContains(t, err, "records no versions")

	require.NoError(t, dir.saveInfo(changesetInfo{Versions: 3, Ops: []int{1, 2}}))
	_, err = dir.loadInfo()
	require.ErrorContains(t, err, "records 3 versions but op counts for 2")

	require.NoError(t, os.WriteFile(dir.infoFile(), []byte("{"), 0o644))
	_, err = dir.loadInfo()
	require.ErrorContains(t, err, "error decoding info file")

	// files without op counts still load
	require.NoError(t, dir.saveInfo(changesetInfo{Versions: 2}))
	info, err := dir.loadInfo()
	require.NoError(t, err)
	_, ok := info.expectedOps(1)
	require.False(t, ok)
}

func TestStorePlan(t *testing.T) {
	st := newStoreState(testStores()[0], 5)
	require.Equal(t, opPlan{opCreate: 200}, st.plan(1))
	// 200 keys of growth over 4 versions, plus one create per delete
	for v := int64(2); v <= 5; v++ {
		require.Equal(t, opPlan{opCreate: 60, opUpdate: 40, opDelete: 10}, st.plan(v))
	}

	// fractional growth carries over between versions
	frac := newStoreState(StoreParams{StoreKey: "f", InitialSize: 0, FinalSize: 3}, 3)
	require.Equal(t, 1, frac.plan(2)[opCreate])
	require.Equal(t, 2, frac.plan(3)[opCreate])
}

func TestOpMixDealsEveryOperation(t *testing.T) {
	mix := newOpMix()
	mix.add("a", opPlan{opCreate: 3, opDelete: 2})
	mix.add("b", opPlan{opUpdate: 4})
	mix.add("c", opPlan{})

	rng := rand.New(rand.NewPCG(3, 3))
	dealt := map[string]map[opType]int{}
	for {
		b, ok := mix.next(rng)
		if !ok {
			break
		}
		if dealt[b.store] == nil {
			dealt[b.store] = map[opType]int{}
		}
		dealt[b.store][b.op]++
	}
	require.Equal(t, map[string]map[opType]int{
		"a": {opCreate: 3, opDelete: 2},
		"b": {opUpdate: 4},
	}, dealt)
	require.Zero(t, mix.total)
	require.Zero(t, mix.buckets.Len())
}

func TestOpMixWeightsByRemaining(t *testing.T) {
	// with 1 op in one bucket and 99 in another, the lone op should land
	// anywhere in the sequence rather than half the time at the front
	rng := rand.New(rand.NewPCG(4, 4))
	first := 0
	const rounds = 2_000
	for r := 0; r < rounds; r++ {
		mix := newOpMix()
		mix.add("small", opPlan{opCreate: 1})
		mix.add("big", opPlan{opCreate: 99})
		b, ok := mix.next(rng)
		require.True(t, ok)
		if b.store == "small" {
			first++
		}
	}
	require.InDelta(t, 0.01, float64(first)/rounds, 0.01)
}

func TestGenOpFallsBackToCreate(t *testing.T) {
	st := newStoreState(testStores()[0], 2)
	rng := rand.New(rand.NewPCG(1, 1))
	var buf bytes.Buffer

	require.NoError(t, genOp(&buf, st, opDelete, rng))
	require.Equal(t, 1, st.existingKeys.Len())
	require.NoError(t, genOp(&buf, st, opUpdate, rng))
	require.Equal(t, 1, st.existingKeys.Len())
	require.NoError(t, genOp(&buf, st, opDelete, rng))
	require.Equal(t, 0, st.existingKeys.Len())
	require.Error(t, genOp(&buf, st, opType(9), rng))
}

func TestProfiles(t *testing.T) {
	for _, name := range []string{"small", "uniform", "sequential"} {
		stores, ok := Profile(name, 100)
		require.True(t, ok, name)
		require.NotEmpty(t, stores)
		for _, s := range stores {
			require.GreaterOrEqual(t, s.FinalSize, s.InitialSize)
			require.Positive(t, s.ChangePerVersion)
		}
	}
	_, ok := Profile("osmo", 100)
	require.False(t, ok)

	stores, ok := Profile("small", 0)
	require.True(t, ok)
	require.Zero(t, stores[0].ChangePerVersion)
	err := GenerateChangesets(TreeParams{StoreParams: stores, Versions: 0}, t.TempDir(), zerolog.Nop())
	require.ErrorContains(t, err, "versions must be at least 1")
}
