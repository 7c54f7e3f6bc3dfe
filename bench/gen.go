package bench

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"time"

	storev1beta1 "cosmossdk.io/api/cosmos/store/v1beta1"
	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"
	"github.com/tidwall/btree"
	"google.golang.org/protobuf/encoding/protodelim"
)

// StoreParams describes the changesets generated for one store.
type StoreParams struct {
	StoreKey    string `json:"store_key"`
	KeyMean     int    `json:"key_mean"`
	KeyStdDev   int    `json:"key_std_dev"`
	ValueMean   int    `json:"value_mean"`
	ValueStdDev int    `json:"value_std_dev"`
	InitialSize int    `json:"initial_size"`
	FinalSize   int    `json:"final_size"`
	// ChangePerVersion is the number of updates plus deletes after version 1.
	ChangePerVersion int     `json:"change_per_version"`
	DeleteFraction   float64 `json:"delete_fraction"`
	// SequentialKeys replaces random keys with 8-byte big-endian counters.
	SequentialKeys bool `json:"sequential_keys,omitempty"`
}

type TreeParams struct {
	StoreParams []StoreParams
	Versions    int64
	// Profile names the generator profile, recorded in changeset_info.json.
	Profile string
	// Seed seeds the generator when RandSource is nil and is recorded either way.
	Seed       uint64
	RandSource rand.Source
}

// GenerateChangesets writes one length-delimited StoreKVPair file per version
// into outDir, followed by changeset_info.json.
func GenerateChangesets(params TreeParams, outDir string, logger zerolog.Logger) error {
	if params.Versions < 1 {
		return fmt.Errorf("versions must be at least 1; got %d", params.Versions)
	}
	if len(params.StoreParams) == 0 {
		return fmt.Errorf("must provide at least one store")
	}

	err := os.MkdirAll(outDir, 0o755)
	if err != nil {
		return err
	}
	dir := changesetDir(outDir)

	states := map[string]*storeState{}
	var storeNames []string
	for _, sp := range params.StoreParams {
		if sp.FinalSize < sp.InitialSize {
			return fmt.Errorf("store %s: final size must be greater than initial size", sp.StoreKey)
		}
		if _, ok := states[sp.StoreKey]; ok {
			return fmt.Errorf("duplicate store key %s", sp.StoreKey)
		}
		states[sp.StoreKey] = newStoreState(sp, params.Versions)
		storeNames = append(storeNames, sp.StoreKey)
	}

	src := params.RandSource
	if src == nil {
		src = rand.NewPCG(params.Seed, params.Seed)
	}
	rng := rand.New(src)
	ops := make([]int, 0, params.Versions)
	for version := int64(1); version <= params.Versions; version++ {
		since := time.Now()
		mix := newOpMix()
		for _, state := range states {
			mix.add(state.params.StoreKey, state.plan(version))
		}

		filename := dir.versionFile(version)
		out, err := os.Create(filename)
		if err != nil {
			return fmt.Errorf("error creating changeset file for version %d: %w", version, err)
		}
		count, err := mix.write(out, rng, states)
		if err != nil {
			_ = out.Close()
			return fmt.Errorf("error generating changeset for version %d: %w", version, err)
		}
		if err := out.Close(); err != nil {
			return fmt.Errorf("error closing changeset file for version %d: %w", version, err)
		}
		ops = append(ops, count)

		logger.Info().
			Int64("version", version).
			Str("ops", humanize.Comma(int64(count))).
			Dur("took", time.Since(since)).
			Str("file", filename).
			Msg("wrote changeset")
	}

	return dir.saveInfo(changesetInfo{
		Profile:     params.Profile,
		Seed:        params.Seed,
		Versions:    params.Versions,
		StoreNames:  storeNames,
		StoreParams: params.StoreParams,
		Ops:         ops,
	})
}

type storeState struct {
	params       StoreParams
	existingKeys *btree.BTreeG[[]byte]
	// growth is the number of keys each version after the first adds on net;
	// carry holds the fractional remainder between versions.
	growth       float64
	carry        float64
	nextSequence uint64
}

func newStoreState(p StoreParams, versions int64) *storeState {
	st := &storeState{
		params: p,
		existingKeys: btree.NewBTreeG(func(a, b []byte) bool {
			return bytes.Compare(a, b) < 0
		}),
	}
	if versions > 1 {
		st.growth = float64(p.FinalSize-p.InitialSize) / float64(versions-1)
	}
	return st
}

type opType int

const (
	opCreate opType = iota
	opUpdate
	opDelete
	numOpTypes
)

func (o opType) String() string {
	switch o {
	case opCreate:
		return "create"
	case opUpdate:
		return "update"
	case opDelete:
		return "delete"
	default:
		return fmt.Sprintf("opType(%d)", int(o))
	}
}

// ErrNoKeys is returned when an update or delete is generated for a store
// that currently holds no keys.
var ErrNoKeys = errors.New("no keys")

func genOp(w io.Writer, st *storeState, op opType, rng *rand.Rand) error {
	switch op {
	case opCreate:
		return st.genCreate(w, rng)
	case opUpdate, opDelete:
		key, err := st.pickExisting(rng)
		if errors.Is(err, ErrNoKeys) {
			return st.genCreate(w, rng)
		}
		if err != nil {
			return err
		}
		if op == opDelete {
			st.existingKeys.Delete(key)
			return st.writeKVStorePair(w, key, nil, true)
		}
		return st.writeKVStorePair(w, key, st.genValue(rng), false)
	default:
		return fmt.Errorf("unknown operation type: %d", op)
	}
}

// opPlan counts the operations of each type one store performs in a version.
type opPlan [numOpTypes]int

// plan returns the operations for version. Version 1 only creates. Later
// versions spend ChangePerVersion on updates and deletes, and create enough
// keys to replace the deletes and grow toward FinalSize.
func (st *storeState) plan(version int64) opPlan {
	var p opPlan
	if version == 1 {
		p[opCreate] = st.params.InitialSize
		return p
	}
	p[opDelete] = int(st.params.DeleteFraction * float64(st.params.ChangePerVersion))
	p[opUpdate] = st.params.ChangePerVersion - p[opDelete]

	st.carry += st.growth
	whole := int(st.carry)
	st.carry -= float64(whole)
	p[opCreate] = whole + p[opDelete]
	return p
}

type opBucket struct {
	store string
	op    opType
	left  int
}

// opMix deals out one version's operations in random order. Each draw is
// weighted by how many operations of each kind are left, so a small store's
// updates are spread across the whole file rather than bunched at the end.
type opMix struct {
	buckets *btree.BTreeG[*opBucket]
	total   int
}

func newOpMix() *opMix {
	return &opMix{
		buckets: btree.NewBTreeG(func(a, b *opBucket) bool {
			if a.store != b.store {
				return a.store < b.store
			}
			return a.op < b.op
		}),
	}
}

func (m *opMix) add(store string, p opPlan) {
	for op, n := range p {
		if n > 0 {
			m.buckets.Set(&opBucket{store: store, op: opType(op), left: n})
			m.total += n
		}
	}
}

// next removes and returns one pending operation, or false once all are dealt.
func (m *opMix) next(rng *rand.Rand) (*opBucket, bool) {
	if m.total == 0 {
		return nil, false
	}
	r := rng.IntN(m.total)
	var picked *opBucket
	m.buckets.Scan(func(b *opBucket) bool {
		if r < b.left {
			picked = b
			return false
		}
		r -= b.left
		return true
	})
	picked.left--
	m.total--
	if picked.left == 0 {
		m.buckets.Delete(picked)
	}
	return picked, true
}

func (m *opMix) write(w io.Writer, rng *rand.Rand, states map[string]*storeState) (int, error) {
	count := 0
	for {
		b, ok := m.next(rng)
		if !ok {
			return count, nil
		}
		st, ok := states[b.store]
		if !ok {
			return count, fmt.Errorf("logic error: store state for %s not found", b.store)
		}
		if err := genOp(w, st, b.op, rng); err != nil {
			return count, fmt.Errorf("error generating %s for store %s: %w", b.op, b.store, err)
		}
		count++
	}
}

func (st *storeState) genCreate(w io.Writer, rng *rand.Rand) error {
	key := st.genKey(rng)
	for st.has(key) {
		key = st.genKey(rng)
	}
	st.existingKeys.Set(key)
	return st.writeKVStorePair(w, key, st.genValue(rng), false)
}

// pickExisting returns a uniformly chosen present key.
func (st *storeState) pickExisting(rng *rand.Rand) ([]byte, error) {
	n := st.existingKeys.Len()
	if n == 0 {
		return nil, ErrNoKeys
	}
	key, ok := st.existingKeys.GetAt(rng.IntN(n))
	if !ok {
		return nil, fmt.Errorf("logic error: no key at index of %d", n)
	}
	return key, nil
}

func (st *storeState) writeKVStorePair(w io.Writer, key, value []byte, delete bool) error {
	_, err := protodelim.MarshalTo(w, &storev1beta1.StoreKVPair{
		StoreKey: st.params.StoreKey,
		Key:      key,
		Value:    value,
		Delete:   delete,
	})
	return err
}

func (st *storeState) genKey(rng *rand.Rand) []byte {
	if st.params.SequentialKeys {
		st.nextSequence++
		return binary.BigEndian.AppendUint64(nil, st.nextSequence)
	}
	return genBytes(rng, st.params.KeyMean, st.params.KeyStdDev)
}

func (st *storeState) genValue(rng *rand.Rand) []byte {
	return genBytes(rng, st.params.ValueMean, st.params.ValueStdDev)
}

func (st *storeState) has(key []byte) bool {
	_, ok := st.existingKeys.Get(key)
	return ok
}

func genBytes(rng *rand.Rand, mean, stdDev int) []byte {
	length := int(rng.NormFloat64()*float64(stdDev) + float64(mean))
	// the normal distribution is a poor fit when the std dev is skewed by
	// upper outliers, so mean - std dev can go negative. rather than clamping
	// at 1, which piles lengths up at the bottom, draw again closer to the mean.
	if length < 1 {
		length = int(rng.NormFloat64()*float64(mean/3) + float64(mean))
		if length < 1 {
			length = 1
		}
	}
	b := make([]byte, length)
	for i := 0; i < length; i++ {
		b[i] = byte(rng.IntN(256))
	}
	return b
}
