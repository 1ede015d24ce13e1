// Package accel detects the compute accelerator available to training jobs.
// Detection goes through nvidia-smi so that gputune runs on hosts without
// CUDA headers or cgo; a missing or failing query means "no accelerator".
package accel

// Capability keys recorded in Profile.Capabilities.
const (
	CapComputeCapability = "compute_capability"
	CapTensorRT          = "tensorrt"
	CapFlashAttention    = "flash_attention"
)

// Profile describes the accelerator found on this machine.
// It is built once per run and not modified afterwards.
type Profile struct {
	// Name is the device name reported by the driver, e.g. "NVIDIA A100-SXM4-80GB".
	// Empty when no accelerator is present.
	Name string

	// MemoryGB is total device memory in whole GiB (rounded down).
	MemoryGB int

	// Capabilities holds check results keyed by the Cap* constants.
	// Values are bools or strings. Empty when no accelerator is present.
	Capabilities map[string]any

	// ComputeMajor and ComputeMinor are the parsed compute capability.
	// Both are zero when the driver cannot report it.
	ComputeMajor int
	ComputeMinor int
}

// Available reports whether an accelerator was detected.
func (p Profile) Available() bool {
	return p.Name != ""
}
