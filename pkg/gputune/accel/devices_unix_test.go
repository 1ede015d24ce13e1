//go:build unix

package accel

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeviceNodes(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	for _, name := range []string{"nvidia0", "nvidia1", "nvidiactl", "null"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o600))
	}

	nodes := deviceNodes(dir)

	require.Len(t, nodes, 2)
	assert.Equal(t, filepath.Join(dir, "nvidia0"), nodes[0].Path)
	assert.True(t, nodes[0].Readable)
	assert.Equal(t, filepath.Join(dir, "nvidia1"), nodes[1].Path)
}

func TestDeviceNodes_Empty(t *testing.T) {
	t.Parallel()

	assert.Empty(t, deviceNodes(t.TempDir()))
}
