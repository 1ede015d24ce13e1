package main

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jamesainslie/gputune/pkg/gputune/config"
	"github.com/jamesainslie/gputune/pkg/gputune/history"
	"github.com/jamesainslie/gputune/pkg/gputune/output"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View previous tuning runs",
	Long: `View the runs gputune has applied on this machine, newest first.

Each run records the detected GPU, the chosen batch size and worker count,
and which training configs were patched.`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

var historyShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Show details of a specific run",
	Long:  `Display a single run by its ID or an unambiguous ID prefix.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var historyCleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove runs older than the retention period",
	Args:  cobra.NoArgs,
	RunE:  runHistoryClean,
}

var (
	historyLimit int
)

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "l", 20, "maximum number of runs to show")

	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyCleanCmd)
	rootCmd.AddCommand(historyCmd)
}

// openHistory opens the configured history store.
func openHistory() (*history.Store, *config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}

	store, err := history.Open(cfg.History.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open history: %w", err)
	}
	return store, cfg, nil
}

// runHistory lists recent runs.
func runHistory(cmd *cobra.Command, args []string) error {
	store, _, err := openHistory()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	runs, err := store.List(historyLimit)
	if err != nil {
		return fmt.Errorf("failed to list history: %w", err)
	}

	var buf bytes.Buffer
	output.FormatHistory(&buf, runs, time.Now())
	fmt.Print(buf.String())

	if len(runs) > 0 {
		printInfo("\nUse 'gputune history show <id>' for details on a specific run.")
	}
	return nil
}

// runHistoryShow displays a single run.
func runHistoryShow(cmd *cobra.Command, args []string) error {
	store, _, err := openHistory()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	run, err := findRun(store, args[0])
	if err != nil {
		return err
	}

	fmt.Print(formatRun(run, time.Now()))
	return nil
}

// findRun resolves an exact ID or a unique ID prefix.
func findRun(store *history.Store, id string) (*history.Run, error) {
	run, err := store.Get(id)
	if err == nil {
		return run, nil
	}
	if !errors.Is(err, history.ErrNotFound) {
		return nil, err
	}

	runs, err := store.List(0)
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}

	var match *history.Run
	for i := range runs {
		if !strings.HasPrefix(runs[i].ID, id) {
			continue
		}
		if match != nil {
			return nil, fmt.Errorf("ambiguous run ID prefix %q", id)
		}
		match = &runs[i]
	}
	if match == nil {
		return nil, fmt.Errorf("%w: %s", history.ErrNotFound, id)
	}
	return match, nil
}

func formatRun(run *history.Run, now time.Time) string {
	var sb strings.Builder
	gpu := run.GPUName
	if gpu == "" {
		gpu = "(none)"
	}

	sb.WriteString("Run Details\n")
	sb.WriteString(strings.Repeat("=", 60) + "\n")
	fmt.Fprintf(&sb, "ID:          %s\n", run.ID)
	fmt.Fprintf(&sb, "Timestamp:   %s (%s)\n", run.Timestamp.Format("2006-01-02 15:04:05 MST"),
		humanize.RelTime(run.Timestamp, now, "ago", "from now"))
	fmt.Fprintf(&sb, "GPU:         %s\n", gpu)
	fmt.Fprintf(&sb, "Memory:      %d GB\n", run.MemoryGB)
	fmt.Fprintf(&sb, "Tier:        %s\n", run.Tier)
	fmt.Fprintf(&sb, "Batch size:  %d\n", run.BatchSize)
	fmt.Fprintf(&sb, "Workers:     %d\n", run.NumWorkers)
	if run.OutputPath != "" {
		fmt.Fprintf(&sb, "Record:      %s\n", run.OutputPath)
	}
	if len(run.Patched) > 0 {
		fmt.Fprintf(&sb, "Patched:     %s\n", strings.Join(run.Patched, ", "))
	}
	if run.DryRun {
		sb.WriteString("Dry run:     yes\n")
	}
	return sb.String()
}

// runHistoryClean removes runs past the retention period.
func runHistoryClean(cmd *cobra.Command, args []string) error {
	store, cfg, err := openHistory()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	retentionDays := cfg.History.RetentionDays
	if retentionDays <= 0 {
		retentionDays = config.DefaultRetentionDays
	}

	printInfo("Removing runs older than %d days...", retentionDays)

	n, err := store.Prune(time.Now().UTC().AddDate(0, 0, -retentionDays))
	if err != nil {
		return fmt.Errorf("failed to clean history: %w", err)
	}

	printInfo("Removed %d %s.", n, pluralRuns(n))
	return nil
}

func pluralRuns(n int) string {
	if n == 1 {
		return "run"
	}
	return "runs"
}
