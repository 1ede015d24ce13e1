// Package record persists the outcome of a tuning run as
// gpu_optimization_config.json, the file training launch scripts read.
package record

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"github.com/jamesainslie/gputune/pkg/gputune/accel"
	"github.com/jamesainslie/gputune/pkg/gputune/atomicfile"
	"github.com/jamesainslie/gputune/pkg/gputune/tuner"
)

// DefaultPath is the output file name, relative to the working directory.
const DefaultPath = "gpu_optimization_config.json"

// Record is the on-disk document.
type Record struct {
	GPUName       *string           `json:"gpu_name"`
	GPUMemory     int               `json:"gpu_memory"`
	BatchSize     int               `json:"batch_size"`
	NumWorkers    int               `json:"num_workers"`
	Optimizations map[string]any    `json:"optimizations"`
	Environment   map[string]string `json:"environment"`
}

// New combines both profiles with an environment snapshot.
func New(ap accel.Profile, tp tuner.Profile, env map[string]string) *Record {
	r := &Record{
		GPUMemory:     ap.MemoryGB,
		BatchSize:     tp.BatchSize,
		NumWorkers:    tp.NumWorkers,
		Optimizations: ap.Capabilities,
		Environment:   env,
	}
	if ap.Available() {
		name := ap.Name
		r.GPUName = &name
	}
	if r.Optimizations == nil {
		r.Optimizations = map[string]any{}
	}
	if r.Environment == nil {
		r.Environment = map[string]string{}
	}
	return r
}

// Name returns the GPU name, or "" when no accelerator was recorded.
func (r *Record) Name() string {
	if r.GPUName == nil {
		return ""
	}
	return *r.GPUName
}

// Persist writes the record to path, replacing any previous content.
func Persist(path string, r *Record) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}
	data = append(data, '\n')

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	if err := atomicfile.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write record: %w", err)
	}

	return nil
}

// Read loads a record written by Persist.
func Read(path string) (*Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read record: %w", err)
	}

	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to parse record %s: %w", path, err)
	}

	return &r, nil
}

// WriteEnvFile exports the tuning flags as a dotenv file that launch scripts
// can source before starting training.
func WriteEnvFile(path string, p tuner.Profile) error {
	if err := godotenv.Write(p.Flags, path); err != nil {
		return fmt.Errorf("failed to write env file: %w", err)
	}
	return nil
}

// ReadEnvFile reads a dotenv file written by WriteEnvFile.
func ReadEnvFile(path string) (map[string]string, error) {
	env, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read env file: %w", err)
	}
	return env, nil
}
