// Package config provides configuration management for gputune.
package config

import (
	"github.com/jamesainslie/gputune/pkg/gputune/record"
	"github.com/jamesainslie/gputune/pkg/gputune/trainconf"
)

// Default configuration values for gputune.
const (
	// DefaultOutputPath is where the tuning record is written.
	DefaultOutputPath = record.DefaultPath

	// DefaultRetentionDays is how long run history is kept.
	DefaultRetentionDays = 90

	// DefaultLogLevel is the file log level.
	DefaultLogLevel = "info"

	// EnvPrefix is the prefix for environment overrides, e.g. GPUTUNE_OUTPUT_PATH.
	EnvPrefix = "GPUTUNE"
)

// DefaultTrainingDirs returns the candidate training config directories.
func DefaultTrainingDirs() []string {
	return append([]string(nil), trainconf.DefaultDirs...)
}

// DefaultTrainingFiles returns the training config file names.
func DefaultTrainingFiles() []string {
	return append([]string(nil), trainconf.DefaultFiles...)
}
