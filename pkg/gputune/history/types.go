// Package history keeps a local log of tuning runs so users can see what
// was applied to their training configs and when.
package history

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"time"
)

// keyPrefix namespaces run entries in the store.
var keyPrefix = []byte("run\x00")

// Run is one applied tuning run.
type Run struct {
	ID         string
	Timestamp  time.Time
	GPUName    string
	MemoryGB   int
	Tier       string
	BatchSize  int
	NumWorkers int
	OutputPath string
	Patched    []string
	DryRun     bool
}

// Encode serializes the run using gob.
func (r *Run) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(r); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode deserializes a run encoded with Encode.
func (r *Run) Decode(data []byte) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(r)
}

// makeKey orders runs by time: prefix + big-endian unix nanos + id.
func makeKey(ts time.Time, id string) []byte {
	key := make([]byte, 0, len(keyPrefix)+8+len(id))
	key = append(key, keyPrefix...)
	key = binary.BigEndian.AppendUint64(key, uint64(ts.UnixNano()))
	return append(key, id...)
}
