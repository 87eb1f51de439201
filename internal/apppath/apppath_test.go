package apppath

import (
	"path/filepath"
	"testing"

	"github.com/adrg/xdg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// reloadXDGBaseDirs forces xdg's package-level base directories to be
// recomputed from the environment, since they're normally resolved
// once at process startup.
func reloadXDGBaseDirs(t *testing.T) {
	t.Helper()
	require.NoError(t, xdg.Reload())
}

func TestLibraryDBPathIsRootedUnderDataHome(t *testing.T) {
	dataHome := t.TempDir()
	t.Setenv("XDG_DATA_HOME", dataHome)
	reloadXDGBaseDirs(t)

	path, err := LibraryDBPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dataHome, appName, "library.db"), path)
}

func TestPlaylistDirIsCreated(t *testing.T) {
	dataHome := t.TempDir()
	t.Setenv("XDG_DATA_HOME", dataHome)
	reloadXDGBaseDirs(t)

	dir, err := PlaylistDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dataHome, appName, "playlists"), dir)
	assert.DirExists(t, dir)
}
