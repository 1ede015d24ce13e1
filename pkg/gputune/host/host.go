// Package host reports CPU and memory of the machine running training, so
// the data-loader worker count can be checked against what the host offers.
package host

import "fmt"

// Resources describes the host.
type Resources struct {
	// CPUCores is the number of logical CPUs usable by this process.
	CPUCores int

	// TotalRAM is physical memory in bytes. Zero when unknown.
	TotalRAM uint64

	// AvailableRAM is memory in bytes not in use. Zero when unknown.
	AvailableRAM uint64
}

// WorkerWarning returns a message when numWorkers exceeds the CPU count,
// which makes data-loader workers contend for cores. It returns "" otherwise.
func (r Resources) WorkerWarning(numWorkers int) string {
	if r.CPUCores <= 0 || numWorkers <= r.CPUCores {
		return ""
	}
	return fmt.Sprintf("num_workers=%d exceeds %d CPU cores", numWorkers, r.CPUCores)
}
