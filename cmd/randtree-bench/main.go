package main

import (
	"context"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/cosmos/randtree-bench/bench"
)

func main() {
	ctx := &bench.Context{
		Context:  context.Background(),
		Registry: prometheus.NewRegistry(),
	}
	root := bench.RootCommand(ctx)
	root.AddCommand(
		genCommand(ctx),
		bench.RunCommand(ctx, bench.RunConfig{TreeLoader: bench.LoadMultiTree}),
		bench.PlanCommand(ctx, bench.RunConfig{TreeLoader: bench.LoadMultiTree}),
		bench.UniformityCommand(ctx),
		renderCommand(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err.Error())
		os.Exit(1)
	}
}
