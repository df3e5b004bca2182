package os_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	tmos "github.com/plasmacash/plasma/libs/os"
)

func TestEnsureDir(t *testing.T) {
	tmp := t.TempDir()

	// Should be possible to create a new directory.
	err := tmos.EnsureDir(filepath.Join(tmp, "dir"), 0755)
	require.NoError(t, err)
	require.DirExists(t, filepath.Join(tmp, "dir"))

	// Should succeed on existing directory.
	err = tmos.EnsureDir(filepath.Join(tmp, "dir"), 0755)
	require.NoError(t, err)

	// Should create missing parents.
	err = tmos.EnsureDir(filepath.Join(tmp, "a", "b"), 0755)
	require.NoError(t, err)
	require.DirExists(t, filepath.Join(tmp, "a", "b"))
}

func TestFileExists(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "file")
	require.False(t, tmos.FileExists(path))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0600))
	require.True(t, tmos.FileExists(path))
}
