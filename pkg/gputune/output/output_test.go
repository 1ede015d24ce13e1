package output

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/jamesainslie/gputune/pkg/gputune/accel"
	"github.com/jamesainslie/gputune/pkg/gputune/history"
	"github.com/jamesainslie/gputune/pkg/gputune/trainconf"
	"github.com/jamesainslie/gputune/pkg/gputune/tuner"
)

func sampleReport() *Report {
	ap := accel.Profile{
		Name:     "NVIDIA GeForce RTX 4090",
		MemoryGB: 23,
		Capabilities: map[string]any{
			accel.CapComputeCapability: "8.9",
			accel.CapTensorRT:          false,
			accel.CapFlashAttention:    true,
		},
		ComputeMajor: 8,
		ComputeMinor: 9,
	}
	return &Report{
		Accelerator: ap,
		Tuning:      tuner.Classify(ap),
		OutputPath:  "gpu_optimization_config.json",
		Configs: []trainconf.Result{
			{Name: "32k.json", Path: "configs/32k.json", Status: trainconf.StatusPatched},
			{Name: "40k.json", Path: "configs/40k.json", Status: trainconf.StatusSkipped},
		},
	}
}

func TestRegistry_Available(t *testing.T) {
	assert.Equal(t, []string{"json", "plain", "pretty", "yaml"}, Available())
}

func TestRegistry_GetUnknown(t *testing.T) {
	_, err := Get("xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown formatter")
}

func TestRegistry_GetReturnsFreshInstance(t *testing.T) {
	r := NewRegistry()
	calls := 0
	r.Register("x", func() Formatter {
		calls++
		return &PlainFormatter{}
	})

	_, err := r.Get("x")
	require.NoError(t, err)
	_, err = r.Get("x")
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestReport_Patched(t *testing.T) {
	assert.Equal(t, []string{"32k.json"}, sampleReport().Patched())
	assert.Empty(t, (&Report{}).Patched())
}

func TestJSONFormatter_Format(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&JSONFormatter{}).Format(&buf, sampleReport()))

	var parsed map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &parsed))

	gpu := parsed["gpu"].(map[string]any)
	assert.Equal(t, "NVIDIA GeForce RTX 4090", gpu["name"])
	assert.Equal(t, float64(23), gpu["memory_gb"])

	tuning := parsed["tuning"].(map[string]any)
	assert.Equal(t, "RTX 40", tuning["tier"])
	assert.Equal(t, float64(32), tuning["batch_size"])
	assert.Equal(t, float64(8), tuning["num_workers"])

	configs := parsed["configs"].([]any)
	require.Len(t, configs, 2)
	assert.Equal(t, "patched", configs[0].(map[string]any)["status"])
	assert.Equal(t, false, parsed["dry_run"])
}

func TestJSONFormatter_NoAcceleratorHasNullName(t *testing.T) {
	r := &Report{Tuning: tuner.Classify(accel.Profile{})}

	var buf bytes.Buffer
	require.NoError(t, (&JSONFormatter{}).Format(&buf, r))

	var parsed map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &parsed))

	gpu := parsed["gpu"].(map[string]any)
	assert.Nil(t, gpu["name"])
	assert.Equal(t, map[string]any{}, gpu["optimizations"])
	assert.NotContains(t, parsed, "configs")
}

func TestYAMLFormatter_Format(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&YAMLFormatter{}).Format(&buf, sampleReport()))

	var parsed map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &parsed))

	tuning := parsed["tuning"].(map[string]any)
	assert.Equal(t, 32, tuning["batch_size"])
	env := tuning["environment"].(map[string]any)
	assert.Equal(t, "8.9", env[tuner.EnvArchList])
}

func TestPlainFormatter_Format(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&PlainFormatter{}).Format(&buf, sampleReport()))

	out := buf.String()
	assert.Contains(t, out, "gpu_name=NVIDIA GeForce RTX 4090\n")
	assert.Contains(t, out, "batch_size=32\n")
	assert.Contains(t, out, "env.TORCH_CUDA_ARCH_LIST=8.9\n")
	assert.Contains(t, out, "optimization.flash_attention=true\n")
	assert.Contains(t, out, "config.40k.json=skipped\n")
}

func TestPlainFormatter_NoAccelerator(t *testing.T) {
	var buf bytes.Buffer
	r := &Report{Tuning: tuner.Classify(accel.Profile{})}
	require.NoError(t, (&PlainFormatter{}).Format(&buf, r))

	assert.Contains(t, buf.String(), "gpu_name=none\n")
	assert.Contains(t, buf.String(), "batch_size=8\n")
}

func TestPrettyFormatter_Format(t *testing.T) {
	var buf bytes.Buffer
	r := sampleReport()
	r.DryRun = true
	require.NoError(t, (&PrettyFormatter{}).Format(&buf, r))

	out := buf.String()
	assert.Contains(t, out, "NVIDIA GeForce RTX 4090")
	assert.Contains(t, out, "23 GiB")
	assert.Contains(t, out, "Dry run")
	assert.Contains(t, out, "Training configs")
	assert.Contains(t, out, "not found")
	assert.Contains(t, out, "gpu_optimization_config.json")
}

func TestPrettyFormatter_NoAccelerator(t *testing.T) {
	var buf bytes.Buffer
	r := &Report{Tuning: tuner.Classify(accel.Profile{})}
	require.NoError(t, (&PrettyFormatter{}).Format(&buf, r))

	assert.Contains(t, buf.String(), "No GPU detected")
	assert.NotContains(t, buf.String(), "Capabilities")
}

func TestFormatMemory(t *testing.T) {
	assert.Equal(t, "unknown", formatMemory(0))
	assert.Equal(t, "80 GiB", formatMemory(80))
}

func TestFormatHistory(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	runs := []history.Run{
		{
			ID:         "0123456789abcdef",
			Timestamp:  now.Add(-2 * time.Hour),
			GPUName:    "NVIDIA A100-SXM4-80GB",
			BatchSize:  64,
			NumWorkers: 12,
			Patched:    []string{"32k.json", "48k.json"},
		},
		{
			ID:         "short",
			Timestamp:  now.Add(-48 * time.Hour),
			BatchSize:  8,
			NumWorkers: 4,
			DryRun:     true,
		},
	}

	var buf bytes.Buffer
	FormatHistory(&buf, runs, now)
	out := buf.String()

	assert.Contains(t, out, "01234567 ")
	assert.NotContains(t, out, "0123456789")
	assert.Contains(t, out, "2 hours ago")
	assert.Contains(t, out, "32k.json,48k.json")
	assert.Contains(t, out, "cpu")
	assert.Contains(t, out, "(dry run)")
}

func TestFormatHistory_Empty(t *testing.T) {
	var buf bytes.Buffer
	FormatHistory(&buf, nil, time.Now())
	assert.Contains(t, buf.String(), "No tuning runs recorded")
}
