package accel

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jamesainslie/gputune/pkg/gputune/logging"
)

var logger = logging.Get("accel")

// querySMI is the binary used to query the driver.
const querySMI = "nvidia-smi"

var queryArgs = []string{
	"--query-gpu=name,memory.total,compute_cap",
	"--format=csv,noheader,nounits",
}

// fallbackQueryArgs omit compute_cap, which drivers before R510 reject.
var fallbackQueryArgs = []string{
	"--query-gpu=name,memory.total",
	"--format=csv,noheader,nounits",
}

// unknownComputeCapability is recorded when the driver cannot report it.
const unknownComputeCapability = "unknown"

// flashAttentionMinMajor is the lowest compute major version with flash attention kernels.
const flashAttentionMinMajor = 8

// defaultLibDirs are searched for the TensorRT runtime library.
var defaultLibDirs = []string{
	"/usr/lib/x86_64-linux-gnu",
	"/usr/lib/aarch64-linux-gnu",
	"/usr/local/cuda/lib64",
	"/usr/local/lib",
	"/usr/lib",
}

// ErrNoDevice is returned by the query parser when the driver lists no devices.
var ErrNoDevice = errors.New("no accelerator device listed")

// Runner executes a command and returns its standard output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// Detector queries the accelerator. The zero value is not usable; use NewDetector.
type Detector struct {
	run      Runner
	lookPath func(string) (string, error)
	libDirs  []string
}

// Option configures a Detector.
type Option func(*Detector)

// WithRunner replaces the command runner, mainly for tests.
func WithRunner(r Runner) Option {
	return func(d *Detector) { d.run = r }
}

// WithLookPath replaces the PATH lookup used by capability checks.
func WithLookPath(fn func(string) (string, error)) Option {
	return func(d *Detector) { d.lookPath = fn }
}

// WithLibDirs replaces the directories searched for shared libraries.
func WithLibDirs(dirs ...string) Option {
	return func(d *Detector) { d.libDirs = dirs }
}

// NewDetector creates a detector that shells out to nvidia-smi.
func NewDetector(opts ...Option) *Detector {
	d := &Detector{
		run:      execRunner,
		lookPath: exec.LookPath,
		libDirs:  libSearchDirs(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Detect returns the profile of the first accelerator.
// It never fails: query errors are logged and reported as "no accelerator".
func Detect(ctx context.Context) Profile {
	return NewDetector().Detect(ctx)
}

// Detect returns the profile of the first accelerator.
func (d *Detector) Detect(ctx context.Context) Profile {
	withCap := true
	out, err := d.run(ctx, querySMI, queryArgs...)
	if err != nil {
		logger.Debug("query failed, retrying without compute capability", "err", err)
		withCap = false
		out, err = d.run(ctx, querySMI, fallbackQueryArgs...)
	}
	if err != nil {
		logger.Warn("no GPU detected, using CPU mode", "err", err)
		return Profile{}
	}

	profile, err := parseQuery(string(out), withCap)
	if err != nil {
		logger.Warn("no GPU detected, using CPU mode", "err", err)
		return Profile{}
	}

	profile.Capabilities = d.detectCapabilities(profile)
	logger.Info("GPU detected", "name", profile.Name, "memory_gb", profile.MemoryGB,
		"compute_capability", profile.Capabilities[CapComputeCapability])

	return profile
}

// QueryToolPath returns the resolved path of the driver query tool, or an error.
func (d *Detector) QueryToolPath() (string, error) {
	return d.lookPath(querySMI)
}

// TensorRTAvailable reports whether the TensorRT runtime can be found.
// Check failures count as "not available".
func (d *Detector) TensorRTAvailable() bool {
	if _, err := d.lookPath("trtexec"); err == nil {
		return true
	}
	for _, dir := range d.libDirs {
		matches, err := filepath.Glob(filepath.Join(dir, "libnvinfer.so*"))
		if err != nil {
			logger.Debug("tensorrt check failed", "dir", dir, "err", err)
			continue
		}
		if len(matches) > 0 {
			return true
		}
	}
	return false
}

func (d *Detector) detectCapabilities(p Profile) map[string]any {
	capability := unknownComputeCapability
	if p.ComputeMajor > 0 {
		capability = fmt.Sprintf("%d.%d", p.ComputeMajor, p.ComputeMinor)
	}
	caps := map[string]any{
		CapComputeCapability: capability,
		CapTensorRT:          d.TensorRTAvailable(),
		CapFlashAttention:    p.ComputeMajor >= flashAttentionMinMajor,
	}
	return caps
}

// parseQuery parses the first CSV line of the nvidia-smi query.
// Memory is reported in MiB. Without withCap the line has no compute_cap
// column and the compute version is left at zero.
func parseQuery(out string, withCap bool) (Profile, error) {
	var line string
	for _, l := range strings.Split(out, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			line = l
			break
		}
	}
	if line == "" {
		return Profile{}, ErrNoDevice
	}

	want := 2
	if withCap {
		want = 3
	}
	fields := strings.Split(line, ",")
	if len(fields) < want {
		return Profile{}, fmt.Errorf("unexpected query output %q", line)
	}
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}

	name := fields[0]
	if name == "" {
		return Profile{}, ErrNoDevice
	}

	memMiB, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return Profile{}, fmt.Errorf("parsing memory %q: %w", fields[1], err)
	}

	p := Profile{
		Name:     name,
		MemoryGB: int(memMiB * 1024 * 1024 / (1 << 30)),
	}
	if withCap {
		p.ComputeMajor, p.ComputeMinor, err = parseComputeCap(fields[2])
		if err != nil {
			return Profile{}, err
		}
	}
	return p, nil
}

func parseComputeCap(s string) (int, int, error) {
	majorStr, minorStr, ok := strings.Cut(s, ".")
	if !ok {
		minorStr = "0"
	}
	major, err := strconv.Atoi(majorStr)
	if err != nil {
		return 0, 0, fmt.Errorf("parsing compute capability %q: %w", s, err)
	}
	minor, err := strconv.Atoi(minorStr)
	if err != nil {
		return 0, 0, fmt.Errorf("parsing compute capability %q: %w", s, err)
	}
	return major, minor, nil
}

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// libSearchDirs returns LD_LIBRARY_PATH entries followed by the defaults.
func libSearchDirs() []string {
	var dirs []string
	for _, dir := range filepath.SplitList(os.Getenv("LD_LIBRARY_PATH")) {
		if dir != "" {
			dirs = append(dirs, dir)
		}
	}
	return append(dirs, defaultLibDirs...)
}
