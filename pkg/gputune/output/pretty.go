package output

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/jamesainslie/gputune/pkg/gputune/trainconf"
)

// PrettyFormatter formats the report with colors using lipgloss.
type PrettyFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *PrettyFormatter) Format(w *bytes.Buffer, r *Report) error {
	w.WriteString(f.formatHeader(r))
	w.WriteString("\n")
	w.WriteString(f.formatTuning(r))

	if len(r.Accelerator.Capabilities) > 0 {
		w.WriteString("\n")
		w.WriteString(f.formatCapabilities(r))
	}

	if len(r.Configs) > 0 {
		w.WriteString("\n")
		w.WriteString(f.formatConfigs(r))
	}

	if r.OutputPath != "" || r.EnvFile != "" {
		w.WriteString("\n")
		w.WriteString(f.formatFiles(r))
	}

	return nil
}

func (f *PrettyFormatter) formatHeader(r *Report) string {
	var lines []string

	if r.Accelerator.Available() {
		lines = append(lines, fmt.Sprintf("%s %s", LabelStyle.Render("GPU:"), ValueStyle.Render(r.Accelerator.Name)))
		lines = append(lines, fmt.Sprintf("%s %s", LabelStyle.Render("Memory:"),
			ValueStyle.Render(formatMemory(r.Accelerator.MemoryGB))))
	} else {
		lines = append(lines, WarningStyle.Render("No GPU detected, using CPU defaults"))
	}

	lines = append(lines, fmt.Sprintf("%s %s", LabelStyle.Render("Tier:"), ValueStyle.Render(r.Tuning.Tier)))

	if r.DryRun {
		lines = append(lines, WarningStyle.Bold(true).Render("Dry run: no files were modified"))
	}

	return HeaderBox.Render(strings.Join(lines, "\n"))
}

func (f *PrettyFormatter) formatTuning(r *Report) string {
	var sb strings.Builder
	sb.WriteString(TitleStyle.Render("Settings"))
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "  %s %s\n", LabelStyle.Render("batch size: "), NumberStyle.Render(fmt.Sprint(r.Tuning.BatchSize)))
	fmt.Fprintf(&sb, "  %s %s\n", LabelStyle.Render("num workers:"), NumberStyle.Render(fmt.Sprint(r.Tuning.NumWorkers)))

	for _, k := range sortedKeys(r.Tuning.Flags) {
		fmt.Fprintf(&sb, "  %s=%s\n", LabelStyle.Render(k), ValueStyle.Render(r.Tuning.Flags[k]))
	}
	return sb.String()
}

func (f *PrettyFormatter) formatCapabilities(r *Report) string {
	var sb strings.Builder
	sb.WriteString(TitleStyle.Render("Capabilities"))
	sb.WriteString("\n")

	for _, k := range sortedKeys(r.Accelerator.Capabilities) {
		v := r.Accelerator.Capabilities[k]
		var value string
		switch b := v.(type) {
		case bool:
			if b {
				value = SuccessStyle.Render("yes")
			} else {
				value = MutedStyle.Render("no")
			}
		default:
			value = ValueStyle.Render(fmt.Sprint(v))
		}
		fmt.Fprintf(&sb, "  %s %s\n", LabelStyle.Render(k+":"), value)
	}
	return sb.String()
}

func (f *PrettyFormatter) formatConfigs(r *Report) string {
	var sb strings.Builder
	sb.WriteString(TitleStyle.Render("Training configs"))
	sb.WriteString("\n")

	for _, c := range r.Configs {
		var status string
		switch c.Status {
		case trainconf.StatusPatched:
			status = SuccessStyle.Render("patched")
		case trainconf.StatusUnchanged:
			status = WarningStyle.Render("no train section")
		default:
			status = MutedStyle.Render("not found")
		}
		fmt.Fprintf(&sb, "  %-10s %s\n", c.Name, status)
		if c.Diff != "" {
			for _, line := range strings.Split(strings.TrimRight(c.Diff, "\n"), "\n") {
				sb.WriteString("    ")
				sb.WriteString(styleDiffLine(line))
				sb.WriteString("\n")
			}
		}
	}
	return sb.String()
}

func (f *PrettyFormatter) formatFiles(r *Report) string {
	var sb strings.Builder
	if r.OutputPath != "" {
		fmt.Fprintf(&sb, "%s %s\n", LabelStyle.Render("Saved:"), ValueStyle.Render(r.OutputPath))
	}
	if r.EnvFile != "" {
		fmt.Fprintf(&sb, "%s %s\n", LabelStyle.Render("Env file:"), ValueStyle.Render(r.EnvFile))
	}
	return sb.String()
}

func styleDiffLine(line string) string {
	switch {
	case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"), strings.HasPrefix(line, "@@"):
		return MutedStyle.Render(line)
	case strings.HasPrefix(line, "+"):
		return SuccessStyle.Render(line)
	case strings.HasPrefix(line, "-"):
		return WarningStyle.Render(line)
	default:
		return line
	}
}

// formatMemory renders whole GiB as a human-readable size.
func formatMemory(gb int) string {
	if gb <= 0 {
		return "unknown"
	}
	return humanize.IBytes(uint64(gb) << 30)
}

func init() {
	Register("pretty", func() Formatter {
		return &PrettyFormatter{}
	})
}

// Ensure PrettyFormatter implements Formatter.
var _ Formatter = (*PrettyFormatter)(nil)
