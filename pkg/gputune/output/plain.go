package output

import (
	"bytes"
	"fmt"
)

// PlainFormatter prints KEY=VALUE lines without styling, for scripts and logs.
type PlainFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *PlainFormatter) Format(w *bytes.Buffer, r *Report) error {
	name := r.Accelerator.Name
	if name == "" {
		name = "none"
	}
	fmt.Fprintf(w, "gpu_name=%s\n", name)
	fmt.Fprintf(w, "gpu_memory=%d\n", r.Accelerator.MemoryGB)
	fmt.Fprintf(w, "tier=%s\n", r.Tuning.Tier)
	fmt.Fprintf(w, "batch_size=%d\n", r.Tuning.BatchSize)
	fmt.Fprintf(w, "num_workers=%d\n", r.Tuning.NumWorkers)

	for _, k := range sortedKeys(r.Accelerator.Capabilities) {
		fmt.Fprintf(w, "optimization.%s=%v\n", k, r.Accelerator.Capabilities[k])
	}
	for _, k := range sortedKeys(r.Tuning.Flags) {
		fmt.Fprintf(w, "env.%s=%s\n", k, r.Tuning.Flags[k])
	}
	for _, c := range r.Configs {
		fmt.Fprintf(w, "config.%s=%s\n", c.Name, c.Status)
	}
	if r.OutputPath != "" {
		fmt.Fprintf(w, "output=%s\n", r.OutputPath)
	}
	return nil
}

func init() {
	Register("plain", func() Formatter {
		return &PlainFormatter{}
	})
}

// Ensure PlainFormatter implements Formatter.
var _ Formatter = (*PlainFormatter)(nil)
