// Package tuner maps a detected accelerator onto training parameters:
// data-loader batch size, worker count and CUDA/PyTorch environment flags.
// The mapping is a fixed, ordered rule table; nothing is computed by formula.
package tuner

// Environment keys written by Apply.
const (
	EnvLaunchBlocking    = "CUDA_LAUNCH_BLOCKING"
	EnvCUDNNBenchmark    = "CUDNN_BENCHMARK"
	EnvArchList          = "TORCH_CUDA_ARCH_LIST"
	EnvAllocConf         = "PYTORCH_CUDA_ALLOC_CONF"
	EnvDeviceConnections = "CUDA_DEVICE_MAX_CONNECTIONS"
	EnvCUDNNV8APIEnabled = "TORCH_CUDNN_V8_API_ENABLED"
)

// Profile is the tuning derived for one accelerator.
type Profile struct {
	// Tier is the label of the rule that matched, e.g. "H100/H800".
	Tier string

	// BatchSize is the per-step training batch size. Always positive.
	BatchSize int

	// NumWorkers is the data-loader worker count. Always positive.
	NumWorkers int

	// Flags are environment variables to export before training.
	Flags map[string]string
}

// commonFlags are set for every tier, including the generic fallback.
var commonFlags = map[string]string{
	EnvLaunchBlocking: "0",
	EnvCUDNNBenchmark: "1",
}

func allocSplit(mb string) string {
	return "max_split_size_mb:" + mb
}
