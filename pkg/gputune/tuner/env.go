package tuner

import (
	"fmt"
	"os"
	"sort"
	"strings"
)

// Env is a writable set of environment variables.
type Env interface {
	Setenv(key, value string) error
	Environ() []string
}

// OSEnv is the process environment.
type OSEnv struct{}

// Setenv sets a process environment variable.
func (OSEnv) Setenv(key, value string) error {
	return os.Setenv(key, value)
}

// Environ returns the process environment as KEY=VALUE pairs.
func (OSEnv) Environ() []string {
	return os.Environ()
}

// MapEnv is an in-memory Env.
type MapEnv map[string]string

// Setenv stores the value.
func (m MapEnv) Setenv(key, value string) error {
	m[key] = value
	return nil
}

// Environ returns the stored pairs in key order.
func (m MapEnv) Environ() []string {
	out := make([]string, 0, len(m))
	for k, v := range m {
		out = append(out, k+"="+v)
	}
	sort.Strings(out)
	return out
}

// Apply writes the profile flags into env. Applying the same profile twice
// leaves env unchanged.
func Apply(env Env, p Profile) error {
	keys := make([]string, 0, len(p.Flags))
	for k := range p.Flags {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if err := env.Setenv(k, p.Flags[k]); err != nil {
			return fmt.Errorf("setting %s: %w", k, err)
		}
	}
	return nil
}

// SnapshotPrefixes are the variable prefixes captured by Snapshot.
var SnapshotPrefixes = []string{"CUDA", "TORCH", "PYTORCH"}

// Snapshot returns the variables in env whose names start with one of
// SnapshotPrefixes.
func Snapshot(env Env) map[string]string {
	out := make(map[string]string)
	for _, kv := range env.Environ() {
		key, value, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		for _, prefix := range SnapshotPrefixes {
			if strings.HasPrefix(key, prefix) {
				out[key] = value
				break
			}
		}
	}
	return out
}
