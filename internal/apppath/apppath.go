// Package apppath resolves the on-disk locations the player's
// persistent state lives under (spec §6 Environment): the library
// index and the playlist directory, rooted under the user's XDG data
// directory rather than a hardcoded path.
package apppath

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

const appName = "musicplayer"

// LibraryDBPath returns the path to the bbolt-backed library index,
// creating its parent directory if it doesn't already exist.
func LibraryDBPath() (string, error) {
	path, err := xdg.DataFile(filepath.Join(appName, "library.db"))
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	return path, nil
}

// PlaylistDir returns the directory `.playlist` files are stored
// under, creating it if it doesn't already exist.
func PlaylistDir() (string, error) {
	dir := filepath.Join(xdg.DataHome, appName, "playlists")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}
