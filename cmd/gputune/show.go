package main

import (
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/gputune/pkg/gputune/record"
)

var showCmd = &cobra.Command{
	Use:   "show [path]",
	Short: "Show the saved tuning record",
	Long: `Read back gpu_optimization_config.json (or the configured output path)
and print it. With --env the environment flags are printed as shell exports.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runShow,
}

var showEnv bool

func init() {
	showCmd.Flags().BoolVar(&showEnv, "env", false, "print environment flags as export lines")
	rootCmd.AddCommand(showCmd)
}

// runShow prints a persisted record.
func runShow(cmd *cobra.Command, args []string) error {
	path := ""
	if len(args) == 1 {
		path = args[0]
	} else {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		path = cfg.Output.Path
	}

	rec, err := record.Read(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			printInfo("No tuning record at %s.", path)
			printInfo("Run 'gputune' to create one.")
			return nil
		}
		return err
	}

	if showEnv {
		for _, k := range sortedKeys(rec.Environment) {
			fmt.Printf("export %s=%s\n", k, rec.Environment[k])
		}
		return nil
	}

	fmt.Print(formatRecord(path, rec))
	return nil
}

// formatRecord renders a record as aligned key/value lines.
func formatRecord(path string, rec *record.Record) string {
	var sb strings.Builder
	name := rec.Name()
	if name == "" {
		name = "(none)"
	}

	fmt.Fprintf(&sb, "Record:       %s\n", path)
	fmt.Fprintf(&sb, "GPU:          %s\n", name)
	fmt.Fprintf(&sb, "Memory:       %d GB\n", rec.GPUMemory)
	fmt.Fprintf(&sb, "Batch size:   %d\n", rec.BatchSize)
	fmt.Fprintf(&sb, "Workers:      %d\n", rec.NumWorkers)

	if len(rec.Optimizations) > 0 {
		sb.WriteString("\nOptimizations:\n")
		for _, k := range sortedKeys(rec.Optimizations) {
			fmt.Fprintf(&sb, "  %-20s %v\n", k, rec.Optimizations[k])
		}
	}
	if len(rec.Environment) > 0 {
		sb.WriteString("\nEnvironment:\n")
		for _, k := range sortedKeys(rec.Environment) {
			fmt.Fprintf(&sb, "  %s=%s\n", k, rec.Environment[k])
		}
	}
	return sb.String()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
