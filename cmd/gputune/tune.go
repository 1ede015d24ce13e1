package main

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jamesainslie/gputune/pkg/gputune/accel"
	"github.com/jamesainslie/gputune/pkg/gputune/config"
	"github.com/jamesainslie/gputune/pkg/gputune/history"
	"github.com/jamesainslie/gputune/pkg/gputune/logging"
	"github.com/jamesainslie/gputune/pkg/gputune/output"
	"github.com/jamesainslie/gputune/pkg/gputune/record"
	"github.com/jamesainslie/gputune/pkg/gputune/trainconf"
	"github.com/jamesainslie/gputune/pkg/gputune/tuner"
)

// tuneOptions controls a single tuning run.
type tuneOptions struct {
	OutputPath string
	EnvFile    string
	Dirs       []string
	Files      []string
	DryRun     bool
	NoPatch    bool
}

// tuneDeps are the side-effecting collaborators of a run.
type tuneDeps struct {
	Detector *accel.Detector
	Env      tuner.Env
}

// runTune is the root command: detect, classify, apply, persist and patch.
func runTune(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	opts := tuneOptions{
		OutputPath: cfg.Output.Path,
		EnvFile:    cfg.Output.EnvFile,
		Dirs:       cfg.Training.Dirs,
		Files:      cfg.Training.Files,
		DryRun:     viper.GetBool("dry_run"),
		NoPatch:    viper.GetBool("no_patch"),
	}

	deps := tuneDeps{
		Detector: accel.NewDetector(),
		Env:      tuner.OSEnv{},
	}

	report, err := tune(cmd.Context(), deps, opts)
	if err != nil {
		return err
	}

	if cfg.History.Enabled {
		recordHistory(cfg.History, report, time.Now().UTC())
	}

	return printReport(report)
}

// tune performs one run and returns its report. Missing training configs are
// skipped; output write failures and unparsable configs abort the run.
func tune(ctx context.Context, deps tuneDeps, opts tuneOptions) (*output.Report, error) {
	logger := logging.Get("tune")

	ap := deps.Detector.Detect(ctx)
	tp := tuner.Classify(ap)
	logger.Info("selected tuning profile", "tier", tp.Tier, "batch_size", tp.BatchSize, "num_workers", tp.NumWorkers)

	report := &output.Report{
		Accelerator: ap,
		Tuning:      tp,
		DryRun:      opts.DryRun,
	}

	if !opts.DryRun {
		if err := tuner.Apply(deps.Env, tp); err != nil {
			return nil, fmt.Errorf("applying environment flags: %w", err)
		}

		path := opts.OutputPath
		if path == "" {
			path = record.DefaultPath
		}
		rec := record.New(ap, tp, tuner.Snapshot(deps.Env))
		if err := record.Persist(path, rec); err != nil {
			return nil, err
		}
		report.OutputPath = path
		logger.Info("wrote tuning record", "path", path)

		if opts.EnvFile != "" {
			if err := record.WriteEnvFile(opts.EnvFile, tp); err != nil {
				return nil, err
			}
			report.EnvFile = opts.EnvFile
		}
	}

	if opts.NoPatch {
		return report, nil
	}

	results, err := trainconf.Patch(trainconf.Options{
		Dirs:      opts.Dirs,
		Files:     opts.Files,
		BatchSize: tp.BatchSize,
		MemoryGB:  ap.MemoryGB,
		DryRun:    opts.DryRun,
	})
	if err != nil {
		return nil, err
	}
	report.Configs = results

	return report, nil
}

// recordHistory appends the run to the history store and prunes old runs.
// History is auxiliary: failures are logged, never returned.
func recordHistory(cfg config.HistoryConfig, report *output.Report, now time.Time) {
	logger := logging.Get("history")

	store, err := history.Open(cfg.Path)
	if err != nil {
		logger.Warn("history unavailable", "path", cfg.Path, "err", err)
		printVerbose("history unavailable: %v", err)
		return
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("closing history store", "err", err)
		}
	}()

	if err := appendRun(store, report, now, cfg.RetentionDays); err != nil {
		logger.Warn("recording run", "err", err)
		printVerbose("failed to record run: %v", err)
	}
}

// appendRun stores the report as a Run and drops runs past the retention window.
func appendRun(store *history.Store, report *output.Report, now time.Time, retentionDays int) error {
	run := &history.Run{
		Timestamp:  now,
		GPUName:    report.Accelerator.Name,
		MemoryGB:   report.Accelerator.MemoryGB,
		Tier:       report.Tuning.Tier,
		BatchSize:  report.Tuning.BatchSize,
		NumWorkers: report.Tuning.NumWorkers,
		OutputPath: report.OutputPath,
		Patched:    report.Patched(),
		DryRun:     report.DryRun,
	}
	if err := store.Append(run); err != nil {
		return err
	}

	if retentionDays > 0 {
		cutoff := now.AddDate(0, 0, -retentionDays)
		n, err := store.Prune(cutoff)
		if err != nil {
			return fmt.Errorf("pruning history: %w", err)
		}
		if n > 0 {
			printVerbose("pruned %d old runs", n)
		}
	}
	return nil
}

// printReport renders the report in the selected format to stdout.
func printReport(report *output.Report) error {
	format := getFormat()
	if format == "pretty" && getQuiet() {
		return nil
	}

	formatter, err := output.Get(format)
	if err != nil {
		return fmt.Errorf("%w (available: %v)", err, output.Available())
	}

	var buf bytes.Buffer
	if err := formatter.Format(&buf, report); err != nil {
		return fmt.Errorf("formatting output: %w", err)
	}
	fmt.Print(buf.String())
	return nil
}
