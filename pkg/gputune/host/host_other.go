//go:build !linux && !darwin

package host

import "runtime"

// Detect returns the CPU count. Memory is reported as unknown.
func Detect() (Resources, error) {
	return Resources{CPUCores: runtime.NumCPU()}, nil
}
