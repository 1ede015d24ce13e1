package accel

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeRunner(out string, err error) Runner {
	return func(_ context.Context, name string, args ...string) ([]byte, error) {
		if name != querySMI {
			return nil, errors.New("unexpected command " + name)
		}
		return []byte(out), err
	}
}

func noLookPath(string) (string, error) {
	return "", errors.New("not found")
}

func TestDetector_Detect(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		out        string
		err        error
		wantName   string
		wantMemory int
		wantFlash  bool
		wantCap    string
	}{
		{
			name:       "h100",
			out:        "NVIDIA H100 80GB HBM3, 81559, 9.0\n",
			wantName:   "NVIDIA H100 80GB HBM3",
			wantMemory: 79,
			wantFlash:  true,
			wantCap:    "9.0",
		},
		{
			name:       "multiple devices uses first",
			out:        "NVIDIA GeForce RTX 3090, 24576, 8.6\nNVIDIA GeForce RTX 3080, 10240, 8.6\n",
			wantName:   "NVIDIA GeForce RTX 3090",
			wantMemory: 24,
			wantFlash:  true,
			wantCap:    "8.6",
		},
		{
			name:       "older device without flash attention",
			out:        "Tesla V100-SXM2-16GB, 16384, 7.0",
			wantName:   "Tesla V100-SXM2-16GB",
			wantMemory: 16,
			wantFlash:  false,
			wantCap:    "7.0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			d := NewDetector(
				WithRunner(fakeRunner(tt.out, tt.err)),
				WithLookPath(noLookPath),
				WithLibDirs(),
			)
			p := d.Detect(context.Background())

			require.True(t, p.Available())
			assert.Equal(t, tt.wantName, p.Name)
			assert.Equal(t, tt.wantMemory, p.MemoryGB)
			assert.Equal(t, tt.wantCap, p.Capabilities[CapComputeCapability])
			assert.Equal(t, tt.wantFlash, p.Capabilities[CapFlashAttention])
			assert.Equal(t, false, p.Capabilities[CapTensorRT])
		})
	}
}

func TestDetector_Detect_NoAccelerator(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		out  string
		err  error
	}{
		{name: "command missing", err: errors.New(`exec: "nvidia-smi": executable file not found in $PATH`)},
		{name: "empty output", out: "\n"},
		{name: "garbled output", out: "No devices were found"},
		{name: "bad memory", out: "GPU, lots, 8.0"},
		{name: "bad compute capability", out: "GPU, 1024, x.y"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			d := NewDetector(WithRunner(fakeRunner(tt.out, tt.err)), WithLookPath(noLookPath))
			p := d.Detect(context.Background())

			assert.False(t, p.Available())
			assert.Equal(t, 0, p.MemoryGB)
			assert.Empty(t, p.Capabilities)
		})
	}
}

// legacyDriverRunner behaves like nvidia-smi before R510, which exits
// non-zero when asked for compute_cap.
func legacyDriverRunner(out string) Runner {
	return func(_ context.Context, name string, args ...string) ([]byte, error) {
		for _, arg := range args {
			if strings.Contains(arg, "compute_cap") {
				return nil, errors.New(`Field "compute_cap" is not a valid field to query.`)
			}
		}
		return []byte(out), nil
	}
}

func TestDetector_Detect_LegacyDriver(t *testing.T) {
	t.Parallel()

	d := NewDetector(
		WithRunner(legacyDriverRunner("Tesla V100-SXM2-32GB, 32768\n")),
		WithLookPath(noLookPath),
		WithLibDirs(),
	)
	p := d.Detect(context.Background())

	require.True(t, p.Available())
	assert.Equal(t, "Tesla V100-SXM2-32GB", p.Name)
	assert.Equal(t, 32, p.MemoryGB)
	assert.Equal(t, "unknown", p.Capabilities[CapComputeCapability])
	assert.Equal(t, false, p.Capabilities[CapFlashAttention])
	assert.Zero(t, p.ComputeMajor)
}

func TestParseQuery_WithoutComputeCap(t *testing.T) {
	t.Parallel()

	p, err := parseQuery("NVIDIA A100-PCIE-40GB, 40960\n", false)
	require.NoError(t, err)
	assert.Equal(t, "NVIDIA A100-PCIE-40GB", p.Name)
	assert.Equal(t, 40, p.MemoryGB)

	_, err = parseQuery("NVIDIA A100-PCIE-40GB, 40960\n", true)
	assert.Error(t, err)
}

func TestDetector_TensorRTAvailable(t *testing.T) {
	t.Parallel()

	t.Run("trtexec on PATH", func(t *testing.T) {
		t.Parallel()
		d := NewDetector(WithLookPath(func(name string) (string, error) {
			if name == "trtexec" {
				return "/usr/bin/trtexec", nil
			}
			return "", errors.New("not found")
		}), WithLibDirs())
		assert.True(t, d.TensorRTAvailable())
	})

	t.Run("library in search dir", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "libnvinfer.so.10"), nil, 0o644))

		d := NewDetector(WithLookPath(noLookPath), WithLibDirs(t.TempDir(), dir))
		assert.True(t, d.TensorRTAvailable())
	})

	t.Run("failed check reports false", func(t *testing.T) {
		t.Parallel()
		d := NewDetector(WithLookPath(noLookPath), WithLibDirs(filepath.Join(t.TempDir(), "missing")))
		assert.False(t, d.TensorRTAvailable())
	})
}

func TestParseComputeCap(t *testing.T) {
	t.Parallel()

	major, minor, err := parseComputeCap("8.9")
	require.NoError(t, err)
	assert.Equal(t, 8, major)
	assert.Equal(t, 9, minor)

	major, minor, err = parseComputeCap("7")
	require.NoError(t, err)
	assert.Equal(t, 7, major)
	assert.Equal(t, 0, minor)

	_, _, err = parseComputeCap("")
	assert.Error(t, err)
}

func TestLibSearchDirs(t *testing.T) {
	t.Setenv("LD_LIBRARY_PATH", "/opt/trt/lib"+string(os.PathListSeparator))

	dirs := libSearchDirs()
	require.NotEmpty(t, dirs)
	assert.Equal(t, "/opt/trt/lib", dirs[0])
	assert.Equal(t, len(defaultLibDirs)+1, len(dirs))
}
