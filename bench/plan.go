package bench

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/cosmos/randtree-bench/bench/metrics"
)

// Plan is a batch of replay runs read from a JSON file.
type Plan struct {
	ChangesetDir string    `json:"changeset_dir"`
	Versions     int64     `json:"versions"`
	Runs         []RunPlan `json:"runs"`
}

// RunPlan is one replay. Empty ChangesetDir and Versions fall back to the
// plan's values.
type RunPlan struct {
	RunName      string `json:"name"`
	ChangesetDir string `json:"changeset_dir"`
	Versions     int64  `json:"versions"`
	Samples      int    `json:"samples"`
	Seed         uint64 `json:"seed"`
}

type RunResult struct {
	RunName string `json:"name"`
	// Profile and Seed identify the replayed changesets.
	Profile  string        `json:"profile,omitempty"`
	Seed     uint64        `json:"seed"`
	Version  int64         `json:"version"`
	Duration time.Duration `json:"duration"`
	Error    string        `json:"error,omitempty"`
}

func readPlan(planFile string) (Plan, error) {
	bz, err := os.ReadFile(planFile)
	if err != nil {
		return Plan{}, fmt.Errorf("error reading plan file: %w", err)
	}
	var plan Plan
	if err := json.Unmarshal(bz, &plan); err != nil {
		return Plan{}, fmt.Errorf("error unmarshaling plan file: %w", err)
	}
	for i := range plan.Runs {
		run := &plan.Runs[i]
		if run.RunName == "" {
			run.RunName = fmt.Sprintf("run-%d", i)
		}
		if run.ChangesetDir == "" {
			run.ChangesetDir = plan.ChangesetDir
		}
		if run.Versions == 0 {
			run.Versions = plan.Versions
		}
	}
	return plan, nil
}

// RunPlanFile executes every run in planFile, logging each to its own jsonl
// file in resultDir, and writes results.json there. A failed run is recorded
// and does not stop the others.
func RunPlanFile(logger zerolog.Logger, cfg RunConfig, planFile, resultDir string, dryRun bool) ([]RunResult, error) {
	plan, err := readPlan(planFile)
	if err != nil {
		return nil, err
	}
	logger.Info().Str("result_dir", resultDir).Int("runs", len(plan.Runs)).Msg("executing plan")
	if dryRun {
		for _, run := range plan.Runs {
			logger.Info().Interface("run_plan", run).Msg("dry run, not executing")
		}
		return nil, nil
	}

	if err := os.MkdirAll(resultDir, 0o755); err != nil {
		return nil, fmt.Errorf("error creating result dir: %w", err)
	}

	results := make([]RunResult, 0, len(plan.Runs))
	for _, run := range plan.Runs {
		res := runOne(logger, cfg, run, resultDir)
		if res.Error != "" {
			logger.Error().Str("run", run.RunName).Str("error", res.Error).Msg("run failed")
		} else {
			logger.Info().Str("run", run.RunName).Int64("version", res.Version).Dur("duration", res.Duration).Msg("run done")
		}
		results = append(results, res)
	}

	bz, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return results, fmt.Errorf("error marshaling results: %w", err)
	}
	return results, os.WriteFile(filepath.Join(resultDir, "results.json"), bz, 0o644)
}

func runOne(logger zerolog.Logger, cfg RunConfig, run RunPlan, resultDir string) RunResult {
	res := RunResult{RunName: run.RunName}
	logger.Info().Interface("run_plan", run).Msg("starting run")

	logFile, err := os.Create(filepath.Join(resultDir, fmt.Sprintf("%s.jsonl", run.RunName)))
	if err != nil {
		res.Error = err.Error()
		return res
	}
	defer func() {
		_ = logFile.Close()
	}()
	runLogger := zerolog.New(logFile).With().Timestamp().Str("run", run.RunName).Logger()

	err = func() error {
		info, err := changesetDir(run.ChangesetDir).loadInfo()
		if err != nil {
			return err
		}
		res.Profile, res.Seed = info.Profile, info.Seed
		target := run.Versions
		if target <= 0 {
			target = info.Versions
		}
		m := metrics.New(nil)
		tree, err := cfg.TreeLoader(LoaderParams{
			Logger:     runLogger,
			StoreNames: info.StoreNames,
			Seed:       run.Seed,
			Samples:    run.Samples,
			Metrics:    m,
		})
		if err != nil {
			return fmt.Errorf("error loading tree: %w", err)
		}
		start := time.Now()
		err = Run(tree, run.ChangesetDir, RunParams{TargetVersion: target, Logger: runLogger, Metrics: m})
		res.Duration = time.Since(start)
		res.Version = tree.Version()
		return err
	}()
	if err != nil {
		res.Error = err.Error()
	}
	return res
}

func PlanCommand(ctx *Context, cfg RunConfig) *cobra.Command {
	var (
		dryRun    bool
		resultDir string
	)
	cmd := &cobra.Command{
		Use:   "plan [plan-file]",
		Short: "Executes every run listed in a JSON plan file.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			planFile := args[0]
			if resultDir == "" {
				resultDir = filepath.Join(filepath.Dir(planFile), time.Now().Format("20060102_150405"))
			}
			results, err := RunPlanFile(ctx.Log, cfg, planFile, resultDir, dryRun)
			if err != nil {
				return err
			}
			for _, res := range results {
				if res.Error != "" {
					return fmt.Errorf("run %s failed: %s", res.RunName, res.Error)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "If true, the plan will be printed but not executed.")
	cmd.Flags().StringVar(&resultDir, "result-dir", "", "Directory for per-run logs and results.json. Defaults to a timestamped directory next to the plan file.")
	return cmd
}
