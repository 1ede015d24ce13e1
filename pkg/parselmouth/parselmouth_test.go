package parselmouth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersion(t *testing.T) {
	assert.Equal(t, "0.0.0-mock", Version)
}

func TestNewSound_AlwaysFails(t *testing.T) {
	tests := []struct {
		name       string
		samples    []float64
		sampleRate float64
	}{
		{name: "no args", samples: nil, sampleRate: 0},
		{name: "valid audio", samples: []float64{0, 0.5, -0.5}, sampleRate: 16000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewSound(tt.samples, tt.sampleRate)
			require.ErrorIs(t, err, ErrNotInstalled)
			assert.Nil(t, s)
		})
	}
}

func TestToPitch_AlwaysFails(t *testing.T) {
	var s *Sound
	p, err := s.ToPitch(0.01, 75, 600)
	require.ErrorIs(t, err, ErrNotInstalled)
	assert.Nil(t, p)

	p, err = (&Sound{}).ToPitch(0, 0, 0)
	require.ErrorIs(t, err, ErrNotInstalled)
	assert.Nil(t, p)
}

func TestAvailable(t *testing.T) {
	assert.False(t, Available())
}

func TestErrNotInstalledMessage(t *testing.T) {
	assert.Contains(t, ErrNotInstalled.Error(), "parselmouth-based F0 methods")
}
