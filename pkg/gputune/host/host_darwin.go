//go:build darwin

package host

import (
	"fmt"
	"runtime"

	"golang.org/x/sys/unix"
)

// Detect returns CPU and memory figures. Available memory is not exposed by
// sysctl, so it is left at zero.
func Detect() (Resources, error) {
	res := Resources{CPUCores: runtime.NumCPU()}

	memsize, err := unix.SysctlUint64("hw.memsize")
	if err != nil {
		return res, fmt.Errorf("sysctl hw.memsize: %w", err)
	}
	res.TotalRAM = memsize

	return res, nil
}
