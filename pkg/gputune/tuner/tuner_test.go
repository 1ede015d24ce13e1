package tuner

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/gputune/pkg/gputune/accel"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		profile     accel.Profile
		wantTier    string
		wantBatch   int
		wantWorkers int
	}{
		{"h100 large", accel.Profile{Name: "NVIDIA H100 80GB HBM3", MemoryGB: 79}, "H100/H800", 128, 16},
		{"h100 ignores memory", accel.Profile{Name: "NVIDIA H100 PCIe", MemoryGB: 8}, "H100/H800", 128, 16},
		{"h800", accel.Profile{Name: "NVIDIA H800", MemoryGB: 79}, "H100/H800", 128, 16},
		{"a100 80gb", accel.Profile{Name: "NVIDIA A100-SXM4-80GB", MemoryGB: 79}, "A100/A6000", 64, 12},
		{"a100 at threshold", accel.Profile{Name: "NVIDIA A100-PCIE-40GB", MemoryGB: 40}, "A100/A6000", 64, 12},
		{"a100 below threshold", accel.Profile{Name: "NVIDIA A100-PCIE-40GB", MemoryGB: 39}, "A100/A6000", 32, 12},
		{"a6000", accel.Profile{Name: "NVIDIA RTX A6000", MemoryGB: 47}, "A100/A6000", 64, 12},
		{"rtx 4090", accel.Profile{Name: "NVIDIA GeForce RTX 4090", MemoryGB: 23}, "RTX 40", 32, 8},
		{"rtx 4080", accel.Profile{Name: "NVIDIA GeForce RTX 4080", MemoryGB: 15}, "RTX 40", 32, 8},
		{"rtx 3090", accel.Profile{Name: "NVIDIA GeForce RTX 3090", MemoryGB: 24}, "RTX 30", 16, 6},
		{"rtx 3080", accel.Profile{Name: "NVIDIA GeForce RTX 3080", MemoryGB: 10}, "RTX 30", 16, 6},
		{"v100", accel.Profile{Name: "Tesla V100-SXM2-32GB", MemoryGB: 32}, "V100", 16, 4},
		{"unknown device", accel.Profile{Name: "GenericGPU", MemoryGB: 12}, "generic", 8, 4},
		{"no accelerator", accel.Profile{}, "generic", 8, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := Classify(tt.profile)

			assert.Equal(t, tt.wantTier, got.Tier)
			assert.Equal(t, tt.wantBatch, got.BatchSize)
			assert.Equal(t, tt.wantWorkers, got.NumWorkers)
		})
	}
}

func TestClassify_PriorityOrder(t *testing.T) {
	t.Parallel()

	// A name carrying patterns of several tiers resolves to the earliest rule.
	got := Classify(accel.Profile{Name: "H100 A100 4090 V100", MemoryGB: 1})
	assert.Equal(t, "H100/H800", got.Tier)

	got = Classify(accel.Profile{Name: "A6000 3090", MemoryGB: 48})
	assert.Equal(t, "A100/A6000", got.Tier)
}

func TestClassify_AlwaysPositive(t *testing.T) {
	t.Parallel()

	names := []string{"", "GenericGPU", "H100", "A100", "4090", "3080", "V100", "Radeon"}
	for _, name := range names {
		for _, mem := range []int{0, 1, 24, 39, 40, 80, 1 << 20} {
			got := Classify(accel.Profile{Name: name, MemoryGB: mem})
			assert.Positive(t, got.BatchSize, "name=%q mem=%d", name, mem)
			assert.Positive(t, got.NumWorkers, "name=%q mem=%d", name, mem)
		}
	}
}

func TestClassify_Flags(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		device string
		want   map[string]string
		absent []string
	}{
		{
			name:   "h100",
			device: "NVIDIA H100",
			want: map[string]string{
				EnvLaunchBlocking:    "0",
				EnvCUDNNBenchmark:    "1",
				EnvArchList:          "9.0",
				EnvAllocConf:         "max_split_size_mb:512",
				EnvDeviceConnections: "1",
			},
		},
		{
			name:   "a100",
			device: "NVIDIA A100",
			want: map[string]string{
				EnvArchList:          "8.0;8.6",
				EnvAllocConf:         "max_split_size_mb:512",
				EnvDeviceConnections: "1",
			},
		},
		{
			name:   "rtx 40",
			device: "RTX 4090",
			want: map[string]string{
				EnvArchList:          "8.9",
				EnvCUDNNV8APIEnabled: "1",
				EnvAllocConf:         "max_split_size_mb:256",
			},
			absent: []string{EnvDeviceConnections},
		},
		{
			name:   "rtx 30",
			device: "RTX 3080",
			want: map[string]string{
				EnvArchList:  "8.6",
				EnvAllocConf: "max_split_size_mb:128",
			},
			absent: []string{EnvDeviceConnections, EnvCUDNNV8APIEnabled},
		},
		{
			name:   "v100",
			device: "Tesla V100",
			want:   map[string]string{EnvArchList: "7.0"},
			absent: []string{EnvAllocConf},
		},
		{
			name:   "generic",
			device: "",
			want: map[string]string{
				EnvLaunchBlocking: "0",
				EnvCUDNNBenchmark: "1",
			},
			absent: []string{EnvArchList, EnvAllocConf, EnvDeviceConnections},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			flags := Classify(accel.Profile{Name: tt.device, MemoryGB: 48}).Flags
			for k, v := range tt.want {
				assert.Equal(t, v, flags[k], k)
			}
			for _, k := range tt.absent {
				assert.NotContains(t, flags, k)
			}
		})
	}
}

func TestClassify_FlagsAreIndependent(t *testing.T) {
	t.Parallel()

	a := Classify(accel.Profile{Name: "NVIDIA H100"})
	a.Flags[EnvLaunchBlocking] = "1"

	b := Classify(accel.Profile{Name: "NVIDIA H100"})
	assert.Equal(t, "0", b.Flags[EnvLaunchBlocking])
}

func TestApply(t *testing.T) {
	t.Parallel()

	env := MapEnv{"HOME": "/root"}
	p := Classify(accel.Profile{Name: "NVIDIA A100", MemoryGB: 80})

	require.NoError(t, Apply(env, p))
	first := env.Environ()

	require.NoError(t, Apply(env, p))
	assert.Equal(t, first, env.Environ(), "Apply must be idempotent")

	assert.Equal(t, "8.0;8.6", env[EnvArchList])
	assert.Equal(t, "/root", env["HOME"])
}

type failingEnv struct{ MapEnv }

func (failingEnv) Setenv(string, string) error { return errors.New("read-only") }

func TestApply_Error(t *testing.T) {
	t.Parallel()

	err := Apply(failingEnv{MapEnv{}}, Classify(accel.Profile{}))
	assert.ErrorContains(t, err, "read-only")
}

func TestApply_OSEnv(t *testing.T) {
	t.Setenv(EnvArchList, "")
	t.Setenv(EnvLaunchBlocking, "")
	t.Setenv(EnvCUDNNBenchmark, "")
	t.Setenv(EnvAllocConf, "")
	t.Setenv(EnvDeviceConnections, "")

	var env OSEnv
	require.NoError(t, Apply(env, Classify(accel.Profile{Name: "H800"})))

	snap := Snapshot(env)
	assert.Equal(t, "9.0", snap[EnvArchList])
	assert.Equal(t, "1", snap[EnvDeviceConnections])
}

func TestSnapshot(t *testing.T) {
	t.Parallel()

	env := MapEnv{
		"CUDA_VISIBLE_DEVICES":    "0",
		"TORCH_HOME":              "/models",
		"PYTORCH_CUDA_ALLOC_CONF": "max_split_size_mb:128",
		"CUDNN_BENCHMARK":         "1",
		"PATH":                    "/usr/bin",
		"cuda_lower":              "x",
	}

	got := Snapshot(env)

	assert.Equal(t, map[string]string{
		"CUDA_VISIBLE_DEVICES":    "0",
		"TORCH_HOME":              "/models",
		"PYTORCH_CUDA_ALLOC_CONF": "max_split_size_mb:128",
	}, got)
}
