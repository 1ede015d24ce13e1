//go:build unix

package accel

import (
	"path/filepath"

	"golang.org/x/sys/unix"
)

// DeviceNode is a driver device file and whether this process may open it.
type DeviceNode struct {
	Path     string
	Readable bool
}

// DeviceNodes lists /dev/nvidia[0-9]* and reports read/write access to each.
// A present but inaccessible node usually means the user is missing from the
// video group or the container was started without the device.
func DeviceNodes() []DeviceNode {
	return deviceNodes("/dev")
}

func deviceNodes(devDir string) []DeviceNode {
	matches, err := filepath.Glob(filepath.Join(devDir, "nvidia[0-9]*"))
	if err != nil {
		return nil
	}

	nodes := make([]DeviceNode, 0, len(matches))
	for _, path := range matches {
		nodes = append(nodes, DeviceNode{
			Path:     path,
			Readable: unix.Access(path, unix.R_OK|unix.W_OK) == nil,
		})
	}
	return nodes
}
