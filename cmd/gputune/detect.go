package main

import (
	"github.com/spf13/cobra"

	"github.com/jamesainslie/gputune/pkg/gputune/accel"
	"github.com/jamesainslie/gputune/pkg/gputune/output"
	"github.com/jamesainslie/gputune/pkg/gputune/tuner"
)

var detectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Print the detected GPU and derived tuning",
	Long: `Detect the local GPU and print the tuning profile gputune would apply.

Nothing is written: the environment, the tuning record and the training
configs are left as they are.`,
	Args: cobra.NoArgs,
	RunE: runDetect,
}

func init() {
	rootCmd.AddCommand(detectCmd)
}

// runDetect prints the profile without side effects.
func runDetect(cmd *cobra.Command, args []string) error {
	return printReport(detectReport(cmd, accel.NewDetector()))
}

func detectReport(cmd *cobra.Command, d *accel.Detector) *output.Report {
	ap := d.Detect(cmd.Context())
	return &output.Report{
		Accelerator: ap,
		Tuning:      tuner.Classify(ap),
	}
}
