package bench

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"runtime"
	"time"

	storev1beta1 "cosmossdk.io/api/cosmos/store/v1beta1"
	"github.com/dustin/go-humanize"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"google.golang.org/protobuf/encoding/protodelim"

	"github.com/cosmos/randtree-bench/bench/metrics"
	"github.com/cosmos/randtree-bench/rng"
)

// Tree is the harness's view of a multi-store tree structure.
type Tree interface {
	// Version should return the last committed version. If no version has been committed, it should return 0.
	Version() int64
	// ApplyUpdate should apply a single set or delete to the tree.
	ApplyUpdate(storeKey string, key, value []byte, delete bool) error
	// Commit should close the current version.
	Commit() error
}

type LoaderParams struct {
	Logger     zerolog.Logger
	StoreNames []string
	Seed       uint64
	Samples    int
	Metrics    *metrics.Metrics
}

type TreeLoader func(params LoaderParams) (Tree, error)

type RunConfig struct {
	TreeLoader TreeLoader
}

// LoadMultiTree is the default TreeLoader.
func LoadMultiTree(params LoaderParams) (Tree, error) {
	return NewMultiTree(MultiTreeOptions{
		Logger:     params.Logger,
		StoreNames: params.StoreNames,
		Source:     rng.New(params.Seed),
		Samples:    params.Samples,
		Metrics:    params.Metrics,
	}), nil
}

func RunCommand(ctx *Context, cfg RunConfig) *cobra.Command {
	var (
		changesetDirFlag string
		targetVersion    int64
		samples          int
		seed             uint64
		metricsAddr      string
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Replays changesets into the tree implementation.",
	}
	cmd.Flags().StringVar(&changesetDirFlag, "changeset-dir", "", "Directory containing the changeset files.")
	cmd.Flags().Int64Var(&targetVersion, "versions", 0, "Number of versions to apply. If this is empty or 0, all versions in the changeset-dir will be applied.")
	cmd.Flags().IntVar(&samples, "samples", 100, "Random picks drawn per store at every commit.")
	cmd.Flags().Uint64Var(&seed, "seed", 1234, "Seed for the random picks.")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "If set, serve Prometheus metrics on this address while running.")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		if changesetDirFlag == "" {
			return fmt.Errorf("changeset-dir is required")
		}

		info, err := changesetDir(changesetDirFlag).loadInfo()
		if err != nil {
			return fmt.Errorf("error reading changeset info file: %w", err)
		}

		if targetVersion <= 0 {
			targetVersion = info.Versions
		}

		m := metrics.New(ctx.Registry)
		if metricsAddr != "" {
			shutdown := serveMetrics(ctx, metricsAddr)
			defer shutdown()
		}

		tree, err := cfg.TreeLoader(LoaderParams{
			Logger:     ctx.Log,
			StoreNames: info.StoreNames,
			Seed:       seed,
			Samples:    samples,
			Metrics:    m,
		})
		if err != nil {
			return fmt.Errorf("error loading tree: %w", err)
		}

		return Run(tree, changesetDirFlag, RunParams{
			TargetVersion: targetVersion,
			Logger:        ctx.Log,
			Metrics:       m,
		})
	}
	return cmd
}

func serveMetrics(ctx *Context, addr string) func() {
	srv := &http.Server{
		Addr:              addr,
		Handler:           promhttp.HandlerFor(ctx.Registry, promhttp.HandlerOpts{}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		err := srv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			ctx.Log.Error().Err(err).Str("addr", addr).Msg("metrics server failed")
		}
	}()
	ctx.Log.Info().Str("addr", addr).Msg("serving metrics")
	return func() {
		shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}
}

type RunParams struct {
	TargetVersion int64
	Logger        zerolog.Logger
	Metrics       *metrics.Metrics
}

// Run applies versions tree.Version()+1 through params.TargetVersion from
// dir. Each version's entry count is checked against changeset_info.json
// before it is committed.
func Run(tree Tree, dir string, params RunParams) error {
	if params.Metrics == nil {
		params.Metrics = metrics.New(nil)
	}
	info, err := changesetDir(dir).loadInfo()
	if err != nil {
		return err
	}
	version := tree.Version()
	target := params.TargetVersion
	if target > info.Versions {
		return fmt.Errorf("target version %d is past the %d versions in %s", target, info.Versions, dir)
	}
	params.Logger.Info().
		Int64("start_version", version).
		Int64("target_version", target).
		Str("profile", info.Profile).
		Uint64("seed", info.Seed).
		Msg("starting run")
	for version < target {
		version++
		err := applyVersion(params, tree, info, changesetDir(dir), version)
		if err != nil {
			return fmt.Errorf("error applying version %d: %w", version, err)
		}
	}
	return nil
}

func applyVersion(params RunParams, tree Tree, info changesetInfo, dir changesetDir, version int64) error {
	logger := params.Logger
	dataFilename := dir.versionFile(version)
	dataFile, err := os.Open(dataFilename)
	if err != nil {
		return fmt.Errorf("error opening changeset file for version %d: %w", version, err)
	}
	defer func() {
		_ = dataFile.Close()
	}()
	reader := bufio.NewReader(dataFile)

	logger.Debug().Int64("version", version).Str("file", dataFilename).Msg("applying changeset")
	i := 0
	startTime := time.Now()
	for {
		if i%10_000 == 0 && i > 0 {
			logger.Debug().Int64("version", version).Int("count", i).Msg("applied changes")
		}
		var storeKVPair storev1beta1.StoreKVPair
		err := protodelim.UnmarshalFrom(reader, &storeKVPair)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return fmt.Errorf("error at entry %d reading changeset: %w", i, err)
		}

		err = tree.ApplyUpdate(storeKVPair.StoreKey, storeKVPair.Key, storeKVPair.Value, storeKVPair.Delete)
		if err != nil {
			return fmt.Errorf("error at entry %d applying update: %w", i, err)
		}

		i++
	}

	if want, ok := info.expectedOps(version); ok && want != i {
		return fmt.Errorf("read %d entries, changeset info records %d", i, want)
	}

	err = tree.Commit()
	if err != nil {
		return fmt.Errorf("error committing version %d: %w", version, err)
	}

	duration := time.Since(startTime)
	params.Metrics.CommitDuration.Observe(duration.Seconds())
	opsPerSec := float64(i) / duration.Seconds()
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	logger.Info().
		Int64("version", version).
		Str("count", humanize.Comma(int64(i))).
		Dur("duration", duration).
		Str("ops_per_sec", humanize.Comma(int64(opsPerSec))).
		Str("mem_allocs", humanize.Bytes(memStats.Alloc)).
		Str("mem_sys", humanize.Bytes(memStats.Sys)).
		Str("mem_num_gc", humanize.Comma(int64(memStats.NumGC))).
		Msg("committed version")

	return nil
}
