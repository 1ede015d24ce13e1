package tuner

import (
	"maps"
	"strings"

	"github.com/jamesainslie/gputune/pkg/gputune/accel"
)

// largeMemoryGB is the memory threshold above which the A100/A6000 tier
// gets the larger batch size.
const largeMemoryGB = 40

// rule is one row of the decision table. Rules are checked top to bottom
// and the first rule with a pattern contained in the device name wins.
type rule struct {
	tier     string
	patterns []string

	batchSize int
	// smallBatchSize applies when memory is below largeMemoryGB. Zero means
	// the tier does not branch on memory.
	smallBatchSize int
	numWorkers     int

	flags map[string]string
}

// rules is ordered from the most specific hardware family to the oldest.
// The A100/A6000 tier sets CUDA_DEVICE_MAX_CONNECTIONS=1 as H100/H800 does;
// earlier releases limited that flag to H100/H800.
var rules = []rule{
	{
		tier:       "H100/H800",
		patterns:   []string{"H100", "H800"},
		batchSize:  128,
		numWorkers: 16,
		flags: map[string]string{
			EnvArchList:          "9.0",
			EnvAllocConf:         allocSplit("512"),
			EnvDeviceConnections: "1",
		},
	},
	{
		tier:           "A100/A6000",
		patterns:       []string{"A100", "A6000"},
		batchSize:      64,
		smallBatchSize: 32,
		numWorkers:     12,
		flags: map[string]string{
			EnvArchList:          "8.0;8.6",
			EnvAllocConf:         allocSplit("512"),
			EnvDeviceConnections: "1",
		},
	},
	{
		tier:       "RTX 40",
		patterns:   []string{"4090", "4080"},
		batchSize:  32,
		numWorkers: 8,
		flags: map[string]string{
			EnvArchList:          "8.9",
			EnvCUDNNV8APIEnabled: "1",
			EnvAllocConf:         allocSplit("256"),
		},
	},
	{
		tier:       "RTX 30",
		patterns:   []string{"3090", "3080"},
		batchSize:  16,
		numWorkers: 6,
		flags: map[string]string{
			EnvArchList:  "8.6",
			EnvAllocConf: allocSplit("128"),
		},
	},
	{
		tier:       "V100",
		patterns:   []string{"V100"},
		batchSize:  16,
		numWorkers: 4,
		flags: map[string]string{
			EnvArchList: "7.0",
		},
	},
}

// fallback applies to unknown devices and to hosts without an accelerator.
var fallback = rule{
	tier:       "generic",
	batchSize:  8,
	numWorkers: 4,
}

// Classify returns the tuning profile for the given accelerator.
// It is total: every profile, including one with no device, yields a result.
func Classify(p accel.Profile) Profile {
	r := match(p.Name)

	batch := r.batchSize
	if r.smallBatchSize > 0 && p.MemoryGB < largeMemoryGB {
		batch = r.smallBatchSize
	}

	flags := make(map[string]string, len(commonFlags)+len(r.flags))
	maps.Copy(flags, commonFlags)
	maps.Copy(flags, r.flags)

	return Profile{
		Tier:       r.tier,
		BatchSize:  batch,
		NumWorkers: r.numWorkers,
		Flags:      flags,
	}
}

func match(name string) rule {
	if name == "" {
		return fallback
	}
	for _, r := range rules {
		for _, pattern := range r.patterns {
			if strings.Contains(name, pattern) {
				return r
			}
		}
	}
	return fallback
}
