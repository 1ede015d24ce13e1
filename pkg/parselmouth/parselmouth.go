// Package parselmouth stands in for the Praat-backed pitch analysis library
// on hosts where it is not installed. Importing it logs a warning once; every
// constructor and analysis call fails with ErrNotInstalled so callers can fall
// back to another F0 method. The gputune binary does not link this package;
// its doctor command checks the Python package instead.
package parselmouth

import (
	"errors"

	"github.com/charmbracelet/log"
)

// Version identifies the stub build.
const Version = "0.0.0-mock"

// ErrNotInstalled is returned by every operation in this package.
var ErrNotInstalled = errors.New("parselmouth is not installed: cannot use parselmouth-based F0 methods")

func init() {
	log.Warn("Parselmouth is not available. Some F0 methods will not work.")
}

// Sound is an audio buffer. It can never be constructed.
type Sound struct{}

// Pitch is the result of a pitch analysis.
type Pitch struct{}

// NewSound always fails.
func NewSound(samples []float64, sampleRate float64) (*Sound, error) {
	return nil, ErrNotInstalled
}

// ToPitch always fails, including on a nil receiver.
func (s *Sound) ToPitch(timeStep, floor, ceiling float64) (*Pitch, error) {
	return nil, ErrNotInstalled
}

// Available reports whether a working pitch backend is linked in.
func Available() bool {
	return false
}
