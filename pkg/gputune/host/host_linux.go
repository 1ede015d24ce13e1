//go:build linux

package host

import (
	"fmt"
	"runtime"

	"golang.org/x/sys/unix"
)

// Detect returns CPU and memory figures from sysinfo(2).
func Detect() (Resources, error) {
	res := Resources{CPUCores: runtime.NumCPU()}

	var info unix.Sysinfo_t
	if err := unix.Sysinfo(&info); err != nil {
		return res, fmt.Errorf("sysinfo: %w", err)
	}

	unit := uint64(info.Unit)
	if unit == 0 {
		unit = 1
	}
	res.TotalRAM = uint64(info.Totalram) * unit
	res.AvailableRAM = (uint64(info.Freeram) + uint64(info.Bufferram)) * unit

	return res, nil
}
