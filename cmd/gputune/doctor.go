package main

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jamesainslie/gputune/pkg/gputune/accel"
	"github.com/jamesainslie/gputune/pkg/gputune/host"
	"github.com/jamesainslie/gputune/pkg/gputune/output"
	"github.com/jamesainslie/gputune/pkg/gputune/tuner"
)

// pythonCandidates are the interpreters tried for the pitch backend check.
var pythonCandidates = []string{"python3", "python"}

// pitchImportScript prints the installed parselmouth version.
const pitchImportScript = "import parselmouth; print(parselmouth.__version__)"

// stubVersionSuffix marks the placeholder package shipped when the real
// library could not be installed.
const stubVersionSuffix = "-mock"

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check optional GPU and audio capabilities",
	Long: `Report which optional pieces of the training stack are usable on this
machine: the GPU query tool, device nodes, TensorRT and the parselmouth
pitch backend used by some F0 methods. Also checks that the tuned worker
count fits the host CPU.`,
	Args: cobra.NoArgs,
	RunE: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

// check is one line of the doctor report.
type check struct {
	name   string
	ok     bool
	detail string
}

// runDoctor prints the capability checks.
func runDoctor(cmd *cobra.Command, args []string) error {
	d := accel.NewDetector()
	checks := runChecks(d, accel.DeviceNodes())

	res, err := host.Detect()
	if err != nil {
		printVerbose("host detection incomplete: %v", err)
	}
	tp := tuner.Classify(d.Detect(cmd.Context()))
	checks = append(checks, hostChecks(res, tp)...)
	checks = append(checks, pitchBackendCheck(cmd.Context(), execOutput, exec.LookPath))

	fmt.Print(formatChecks(checks))
	return nil
}

func hostChecks(res host.Resources, tp tuner.Profile) []check {
	detail := fmt.Sprintf("%d CPUs", res.CPUCores)
	if res.TotalRAM > 0 {
		detail += ", " + humanize.IBytes(res.TotalRAM) + " RAM"
	}
	checks := []check{{name: "host", ok: true, detail: detail}}

	if warning := res.WorkerWarning(tp.NumWorkers); warning != "" {
		checks = append(checks, check{name: "workers", detail: warning})
	} else {
		checks = append(checks, check{name: "workers", ok: true,
			detail: fmt.Sprintf("num_workers=%d for tier %s", tp.NumWorkers, tp.Tier)})
	}
	return checks
}

func runChecks(d *accel.Detector, nodes []accel.DeviceNode) []check {
	var checks []check

	if path, err := d.QueryToolPath(); err == nil {
		checks = append(checks, check{name: "nvidia-smi", ok: true, detail: path})
	} else {
		checks = append(checks, check{name: "nvidia-smi", detail: "not found on PATH"})
	}

	var readable, denied []string
	for _, n := range nodes {
		if n.Readable {
			readable = append(readable, n.Path)
		} else {
			denied = append(denied, n.Path)
		}
	}
	switch {
	case len(denied) > 0:
		checks = append(checks, check{name: "device nodes", detail: "no access to " + strings.Join(denied, ", ")})
	case len(readable) > 0:
		checks = append(checks, check{name: "device nodes", ok: true, detail: strings.Join(readable, ", ")})
	default:
		checks = append(checks, check{name: "device nodes", detail: "none"})
	}

	if d.TensorRTAvailable() {
		checks = append(checks, check{name: "tensorrt", ok: true, detail: "runtime found"})
	} else {
		checks = append(checks, check{name: "tensorrt", detail: "runtime not found"})
	}

	return checks
}

// pitchBackendCheck imports parselmouth in the training interpreter.
func pitchBackendCheck(ctx context.Context, run accel.Runner, lookPath func(string) (string, error)) check {
	const name = "parselmouth"

	python := ""
	for _, candidate := range pythonCandidates {
		if path, err := lookPath(candidate); err == nil {
			python = path
			break
		}
	}
	if python == "" {
		return check{name: name, detail: "no python interpreter on PATH"}
	}

	out, err := run(ctx, python, "-c", pitchImportScript)
	if err != nil {
		return check{name: name, detail: "not installed; parselmouth-based F0 methods will fail"}
	}

	version := strings.TrimSpace(string(out))
	if strings.HasSuffix(version, stubVersionSuffix) {
		return check{name: name, detail: "placeholder " + version + " installed; parselmouth-based F0 methods will fail"}
	}
	return check{name: name, ok: true, detail: version}
}

func execOutput(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

func formatChecks(checks []check) string {
	var sb strings.Builder
	for _, c := range checks {
		mark := output.WarningStyle.Render("✗")
		if c.ok {
			mark = output.SuccessStyle.Render("✓")
		}
		fmt.Fprintf(&sb, "%s %-13s %s\n", mark, c.name, output.MutedStyle.Render(c.detail))
	}
	return sb.String()
}
