package bench

import (
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/cosmos/randtree-bench/randtree"
	"github.com/cosmos/randtree-bench/reservoir"
	"github.com/cosmos/randtree-bench/rng"
)

type KeyTree = randtree.Tree[int, struct{}]

// PickFunc draws one key from tree.
type PickFunc func(tree *KeyTree, src rng.Source) (int, bool)

type Strategy struct {
	Name string
	Pick PickFunc
}

// Strategies are the two ways of picking a uniformly random entry: the
// tree's weighted descent and a reservoir sample over its traversal.
var Strategies = []Strategy{
	{
		Name: "tree",
		Pick: func(tree *KeyTree, src rng.Source) (int, bool) {
			k, _, ok := tree.Random(src)
			return k, ok
		},
	},
	{
		Name: "reservoir",
		Pick: func(tree *KeyTree, src rng.Source) (int, bool) {
			k, _, ok := reservoir.PickOne2(tree.All(), src)
			return k, ok
		},
	},
}

type UniformityParams struct {
	Keys   int
	Trials int
	Seed   uint64
	// BirthdayDays and BirthdayDraws size the collision experiment, run
	// BirthdayRounds times per strategy. Zero rounds skips it.
	BirthdayDays   int
	BirthdayDraws  int
	BirthdayRounds int
	Logger         zerolog.Logger
}

type StrategyReport struct {
	Name      string        `json:"name"`
	ChiSquare float64       `json:"chi_square"`
	Uniform   bool          `json:"uniform"`
	MinCount  int           `json:"min_count"`
	MaxCount  int           `json:"max_count"`
	Duration  time.Duration `json:"duration"`
	// Collisions is the fraction of birthday rounds with a repeated key.
	Collisions float64 `json:"collisions"`
}

type UniformityReport struct {
	Keys             int              `json:"keys"`
	Trials           int              `json:"trials"`
	Height           int              `json:"height"`
	DegreesOfFreedom int              `json:"degrees_of_freedom"`
	CriticalValue    float64          `json:"critical_value"`
	BirthdayExpected float64          `json:"birthday_expected"`
	Strategies       []StrategyReport `json:"strategies"`
}

// BuildKeyTree inserts 0..n-1 in an order shuffled by src.
func BuildKeyTree(n int, src *rand.Rand) *KeyTree {
	tree := randtree.New[int, struct{}]()
	for _, k := range src.Perm(n) {
		tree.Insert(k, struct{}{})
	}
	return tree
}

// Uniformity tallies params.Trials picks from every strategy over the same
// tree and tests each tally against the uniform distribution.
func Uniformity(params UniformityParams) (UniformityReport, error) {
	if params.Keys < 2 {
		return UniformityReport{}, fmt.Errorf("need at least 2 keys; got %d", params.Keys)
	}
	if params.Trials < params.Keys {
		return UniformityReport{}, fmt.Errorf("need at least as many trials as keys; got %d < %d", params.Trials, params.Keys)
	}

	src := rng.New(params.Seed)
	tree := BuildKeyTree(params.Keys, src)
	df := params.Keys - 1
	report := UniformityReport{
		Keys:             params.Keys,
		Trials:           params.Trials,
		Height:           tree.Height(),
		DegreesOfFreedom: df,
		CriticalValue:    ChiSquareCritical(df),
	}
	if params.BirthdayRounds > 0 {
		report.BirthdayExpected = BirthdayProbability(params.BirthdayDays, params.BirthdayDraws)
	}

	for _, s := range Strategies {
		counts := make([]int, params.Keys)
		since := time.Now()
		for i := 0; i < params.Trials; i++ {
			k, ok := s.Pick(tree, src)
			if !ok {
				return report, fmt.Errorf("strategy %s returned nothing from %d keys", s.Name, tree.Len())
			}
			counts[k]++
		}
		sr := StrategyReport{
			Name:      s.Name,
			ChiSquare: ChiSquare(counts, params.Trials),
			Duration:  time.Since(since),
			MinCount:  counts[0],
			MaxCount:  counts[0],
		}
		for _, c := range counts {
			sr.MinCount = min(sr.MinCount, c)
			sr.MaxCount = max(sr.MaxCount, c)
		}
		sr.Uniform = sr.ChiSquare < report.CriticalValue

		if params.BirthdayRounds > 0 {
			days := BuildKeyTree(params.BirthdayDays, src)
			sr.Collisions = BirthdayCollisions(days, src, params.BirthdayDraws, params.BirthdayRounds, s.Pick)
		}

		params.Logger.Info().
			Str("strategy", sr.Name).
			Float64("chi_square", sr.ChiSquare).
			Float64("critical", report.CriticalValue).
			Bool("uniform", sr.Uniform).
			Int("min", sr.MinCount).
			Int("max", sr.MaxCount).
			Float64("collisions", sr.Collisions).
			Str("picks_per_sec", humanize.Comma(int64(float64(params.Trials)/sr.Duration.Seconds()))).
			Msg("strategy done")
		report.Strategies = append(report.Strategies, sr)
	}
	return report, nil
}

// ChiSquare is Pearson's statistic for counts against an even split of trials.
func ChiSquare(counts []int, trials int) float64 {
	expected := float64(trials) / float64(len(counts))
	var sum float64
	for _, c := range counts {
		d := float64(c) - expected
		sum += d * d / expected
	}
	return sum
}

// ChiSquareCritical approximates the 0.999 quantile of the chi-square
// distribution with df degrees of freedom (Wilson–Hilferty).
func ChiSquareCritical(df int) float64 {
	const z = 3.090232 // standard normal 0.999 quantile
	k := float64(df)
	h := 2 / (9 * k)
	return k * math.Pow(1-h+z*math.Sqrt(h), 3)
}

// BirthdayCollisions returns the fraction of rounds in which draws picks from
// tree contained at least one repeated key.
func BirthdayCollisions(tree *KeyTree, src rng.Source, draws, rounds int, pick PickFunc) float64 {
	if rounds <= 0 {
		return 0
	}
	hits := 0
	seen := make(map[int]struct{}, draws)
	for r := 0; r < rounds; r++ {
		clear(seen)
		for i := 0; i < draws; i++ {
			k, ok := pick(tree, src)
			if !ok {
				break
			}
			if _, dup := seen[k]; dup {
				hits++
				break
			}
			seen[k] = struct{}{}
		}
	}
	return float64(hits) / float64(rounds)
}

// BirthdayProbability is the exact chance that draws uniform picks from days
// values contain a repeat.
func BirthdayProbability(days, draws int) float64 {
	distinct := 1.0
	for i := 0; i < draws; i++ {
		distinct *= float64(days-i) / float64(days)
	}
	return 1 - distinct
}

func UniformityCommand(ctx *Context) *cobra.Command {
	params := UniformityParams{
		BirthdayDays:  365,
		BirthdayDraws: 27,
	}
	cmd := &cobra.Command{
		Use:   "uniformity",
		Short: "Compares the tree's random pick against reservoir sampling.",
		RunE: func(cmd *cobra.Command, args []string) error {
			params.Logger = ctx.Log
			report, err := Uniformity(params)
			if err != nil {
				return err
			}
			ctx.Log.Info().
				Int("keys", report.Keys).
				Str("trials", humanize.Comma(int64(report.Trials))).
				Int("height", report.Height).
				Int("df", report.DegreesOfFreedom).
				Float64("birthday_expected", report.BirthdayExpected).
				Msg("uniformity run complete")
			for _, s := range report.Strategies {
				if !s.Uniform {
					return fmt.Errorf("strategy %s is not uniform: chi-square %.2f >= %.2f",
						s.Name, s.ChiSquare, report.CriticalValue)
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&params.Keys, "keys", 1_000, "Number of keys in the tree.")
	cmd.Flags().IntVar(&params.Trials, "trials", 100_000, "Picks per strategy.")
	cmd.Flags().Uint64Var(&params.Seed, "seed", 1234, "Seed for tree construction and picks.")
	cmd.Flags().IntVar(&params.BirthdayRounds, "birthday-rounds", 1_000, "Rounds of the birthday experiment per strategy; 0 skips it.")
	return cmd
}
