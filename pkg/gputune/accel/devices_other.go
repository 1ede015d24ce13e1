//go:build !unix

package accel

// DeviceNode is a driver device file and whether this process may open it.
type DeviceNode struct {
	Path     string
	Readable bool
}

// DeviceNodes returns nil on platforms without /dev device files.
func DeviceNodes() []DeviceNode {
	return nil
}
