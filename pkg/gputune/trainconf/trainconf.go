// Package trainconf rewrites the batch size and related settings in the
// RVC training configuration files (configs/32k.json and friends).
package trainconf

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/jamesainslie/gputune/pkg/gputune/atomicfile"
	"github.com/jamesainslie/gputune/pkg/gputune/logging"
)

var logger = logging.Get("trainconf")

// Thresholds and values applied to the train section.
const (
	// HalfPrecisionMinMemoryGB is the device memory at which fp16_run is enabled.
	HalfPrecisionMinMemoryGB = 24

	// LearningRateMinBatch is the batch size at which LearningRate is written.
	LearningRateMinBatch = 32

	// LearningRate is the rate used for large batches.
	LearningRate = 0.0002
)

// Keys in the training config document.
const (
	keyTrain        = "train"
	keyBatchSize    = "batch_size"
	keyFP16         = "fp16_run"
	keyLearningRate = "learning_rate"
)

// DefaultDirs are the candidate config directories, in order of preference.
var DefaultDirs = []string{"configs", "configs_v2"}

// DefaultFiles are the sample-rate variants shipped with the toolkit.
var DefaultFiles = []string{"32k.json", "40k.json", "48k.json"}

// Status describes what happened to one file.
type Status string

const (
	// StatusPatched means the train section was updated (or would be, in dry-run).
	StatusPatched Status = "patched"
	// StatusUnchanged means the file exists but has no train section.
	StatusUnchanged Status = "unchanged"
	// StatusSkipped means the file does not exist.
	StatusSkipped Status = "skipped"
)

// Options controls Patch.
type Options struct {
	// Dirs are candidate directories; the first one that exists is used.
	// Defaults to DefaultDirs.
	Dirs []string

	// Files are the file names looked up in the chosen directory.
	// Defaults to DefaultFiles.
	Files []string

	// BatchSize is written to train.batch_size.
	BatchSize int

	// MemoryGB is the device memory used for the fp16 decision.
	MemoryGB int

	// DryRun computes diffs without writing.
	DryRun bool
}

// Result is the outcome for a single file.
type Result struct {
	Name   string `json:"name" yaml:"name"`
	Path   string `json:"path" yaml:"path"`
	Status Status `json:"status" yaml:"status"`

	// Diff is a unified diff of the change, set only in dry-run mode.
	Diff string `json:"diff,omitempty" yaml:"diff,omitempty"`
}

// Patch applies the batch size to every configured file that exists.
// Missing files are skipped. A file that cannot be parsed aborts the run.
func Patch(opts Options) ([]Result, error) {
	dirs := opts.Dirs
	if len(dirs) == 0 {
		dirs = DefaultDirs
	}
	files := opts.Files
	if len(files) == 0 {
		files = DefaultFiles
	}

	dir := ResolveDir(dirs)
	logger.Debug("using config directory", "dir", dir)

	results := make([]Result, 0, len(files))
	for _, name := range files {
		path := filepath.Join(dir, name)
		res, err := patchFile(path, opts)
		if err != nil {
			return results, err
		}
		res.Name = name
		results = append(results, res)
	}

	return results, nil
}

// ResolveDir returns the first directory in dirs that exists. When none
// exists the last candidate is returned, and every file in it will be skipped.
func ResolveDir(dirs []string) string {
	for _, dir := range dirs {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return dir
		}
	}
	if len(dirs) == 0 {
		return "."
	}
	return dirs[len(dirs)-1]
}

func patchFile(path string, opts Options) (Result, error) {
	res := Result{Path: path}

	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		logger.Debug("training config not found, skipping", "path", path)
		res.Status = StatusSkipped
		return res, nil
	}
	if err != nil {
		return res, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	original, err := os.ReadFile(path)
	if err != nil {
		return res, fmt.Errorf("failed to read %s: %w", path, err)
	}

	updated, changed, err := PatchDocument(original, opts.BatchSize, opts.MemoryGB)
	if err != nil {
		return res, fmt.Errorf("failed to patch %s: %w", path, err)
	}
	if !changed {
		logger.Warn("training config has no train section", "path", path)
		res.Status = StatusUnchanged
		return res, nil
	}
	res.Status = StatusPatched

	if opts.DryRun {
		res.Diff = unifiedDiff(path, string(original), string(updated))
		return res, nil
	}

	if err := atomicfile.WriteFile(path, updated, info.Mode().Perm()); err != nil {
		return res, err
	}
	logger.Info("patched training config", "path", path, "batch_size", opts.BatchSize)

	return res, nil
}

// PatchDocument applies the tuning to a training config document and returns
// the re-encoded document. changed is false when there is no train object,
// in which case the input is returned as is. Unknown fields and key order are
// preserved. data must hold exactly one JSON object.
func PatchDocument(data []byte, batchSize, memoryGB int) ([]byte, bool, error) {
	doc, err := decodeDocument(data)
	if err != nil {
		return nil, false, fmt.Errorf("parsing json: %w", err)
	}

	v, _ := doc.Get(keyTrain)
	train, ok := v.(*object)
	if !ok {
		return data, false, nil
	}

	train.Set(keyBatchSize, batchSize)
	if memoryGB >= HalfPrecisionMinMemoryGB {
		train.Set(keyFP16, true)
	}
	if batchSize >= LearningRateMinBatch {
		train.Set(keyLearningRate, LearningRate)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, false, fmt.Errorf("encoding json: %w", err)
	}

	return buf.Bytes(), true, nil
}

func unifiedDiff(path, oldContent, newContent string) string {
	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(oldContent),
		B:        difflib.SplitLines(newContent),
		FromFile: path,
		ToFile:   path + " (patched)",
		Context:  3,
	}

	result, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		return fmt.Sprintf("(diff error: %v)", err)
	}
	return result
}
