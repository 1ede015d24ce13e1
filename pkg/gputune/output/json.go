package output

import (
	"bytes"
	"encoding/json"

	"github.com/jamesainslie/gputune/pkg/gputune/trainconf"
)

// structuredReport is shared by the json and yaml formatters.
type structuredReport struct {
	GPU     structuredGPU      `json:"gpu" yaml:"gpu"`
	Tuning  structuredTuning   `json:"tuning" yaml:"tuning"`
	Output  string             `json:"output,omitempty" yaml:"output,omitempty"`
	EnvFile string             `json:"env_file,omitempty" yaml:"env_file,omitempty"`
	Configs []trainconf.Result `json:"configs,omitempty" yaml:"configs,omitempty"`
	DryRun  bool               `json:"dry_run" yaml:"dry_run"`
}

type structuredGPU struct {
	Name          *string        `json:"name" yaml:"name"`
	MemoryGB      int            `json:"memory_gb" yaml:"memory_gb"`
	Optimizations map[string]any `json:"optimizations" yaml:"optimizations"`
}

type structuredTuning struct {
	Tier        string            `json:"tier" yaml:"tier"`
	BatchSize   int               `json:"batch_size" yaml:"batch_size"`
	NumWorkers  int               `json:"num_workers" yaml:"num_workers"`
	Environment map[string]string `json:"environment" yaml:"environment"`
}

func buildStructured(r *Report) structuredReport {
	gpu := structuredGPU{
		MemoryGB:      r.Accelerator.MemoryGB,
		Optimizations: r.Accelerator.Capabilities,
	}
	if r.Accelerator.Available() {
		name := r.Accelerator.Name
		gpu.Name = &name
	}
	if gpu.Optimizations == nil {
		gpu.Optimizations = map[string]any{}
	}

	return structuredReport{
		GPU: gpu,
		Tuning: structuredTuning{
			Tier:        r.Tuning.Tier,
			BatchSize:   r.Tuning.BatchSize,
			NumWorkers:  r.Tuning.NumWorkers,
			Environment: r.Tuning.Flags,
		},
		Output:  r.OutputPath,
		EnvFile: r.EnvFile,
		Configs: r.Configs,
		DryRun:  r.DryRun,
	}
}

// JSONFormatter formats the report as a single indented JSON object.
type JSONFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *JSONFormatter) Format(w *bytes.Buffer, r *Report) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(buildStructured(r))
}

func init() {
	Register("json", func() Formatter {
		return &JSONFormatter{}
	})
}

// Ensure JSONFormatter implements Formatter.
var _ Formatter = (*JSONFormatter)(nil)
