package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cosmos/randtree-bench/bench"
)

func genCommand(ctx *bench.Context) *cobra.Command {
	var (
		versions int64
		profile  string
		seed     uint64
	)
	cmd := &cobra.Command{
		Use:   "gen [out-dir]",
		Short: "Generate changesets for randtree-bench",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if versions < 1 {
				return fmt.Errorf("versions must be at least 1; got %d", versions)
			}
			stores, ok := bench.Profile(profile, versions)
			if !ok {
				return fmt.Errorf("unknown generator profile: %s", profile)
			}

			outDir := args[0]
			ctx.Log.Info().Str("profile", profile).Int64("versions", versions).Str("out_dir", outDir).Msg("generating changesets")
			return bench.GenerateChangesets(bench.TreeParams{
				StoreParams: stores,
				Versions:    versions,
				Profile:     profile,
				Seed:        seed,
			}, outDir, ctx.Log)
		},
	}
	cmd.Flags().Int64Var(&versions, "versions", 100, "number of versions to generate")
	cmd.Flags().StringVar(&profile, "profile", "small", "data generation profile to use (small|uniform|sequential)")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "seed for the generator")
	return cmd
}
