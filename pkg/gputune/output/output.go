// Package output renders tuning reports in several formats (pretty, plain,
// json, yaml). Formatters are looked up by name from a registry so the CLI
// can expose them through --format.
//
// Basic usage:
//
//	formatter, err := output.Get("pretty")
//	if err != nil {
//	    return err
//	}
//	var buf bytes.Buffer
//	if err := formatter.Format(&buf, report); err != nil {
//	    return err
//	}
//	fmt.Print(buf.String())
package output

import (
	"bytes"
	"fmt"
	"sort"
	"sync"

	"github.com/jamesainslie/gputune/pkg/gputune/accel"
	"github.com/jamesainslie/gputune/pkg/gputune/trainconf"
	"github.com/jamesainslie/gputune/pkg/gputune/tuner"
)

// Report is the outcome of a detect or tune run.
type Report struct {
	// Accelerator is the detected device.
	Accelerator accel.Profile

	// Tuning is the derived profile.
	Tuning tuner.Profile

	// OutputPath is where the record was written. Empty for detect-only runs.
	OutputPath string

	// EnvFile is where the dotenv export was written, if enabled.
	EnvFile string

	// Configs lists what happened to each training config file.
	Configs []trainconf.Result

	// DryRun is set when no file was modified.
	DryRun bool
}

// Patched returns the names of the configs that were (or would be) patched.
func (r *Report) Patched() []string {
	var names []string
	for _, c := range r.Configs {
		if c.Status == trainconf.StatusPatched {
			names = append(names, c.Name)
		}
	}
	return names
}

// Formatter renders a report.
type Formatter interface {
	Format(w *bytes.Buffer, r *Report) error
}

// FormatterFactory creates a new Formatter instance.
type FormatterFactory func() Formatter

// Registry manages formatter registration and lookup.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]FormatterFactory
}

// NewRegistry creates a new formatter registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]FormatterFactory),
	}
}

// Register adds a formatter factory, replacing any with the same name.
func (r *Registry) Register(name string, factory FormatterFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// Get returns a new formatter instance by name.
func (r *Registry) Get(name string) (Formatter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown formatter: %s", name)
	}
	return factory(), nil
}

// Available returns a sorted list of all registered formatter names.
func (r *Registry) Available() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry is the global formatter registry.
var DefaultRegistry = NewRegistry()

// Register adds a formatter factory to the default registry.
func Register(name string, factory FormatterFactory) {
	DefaultRegistry.Register(name, factory)
}

// Get returns a new formatter instance from the default registry.
func Get(name string) (Formatter, error) {
	return DefaultRegistry.Get(name)
}

// Available returns all formatter names from the default registry.
func Available() []string {
	return DefaultRegistry.Available()
}

// sortedKeys returns map keys in order so output is stable.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
