package library

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drgolem/musicplayer/pkg/tagreader"
)

type fakeReader struct {
	byPath map[string]tagreader.RawSong
}

func (f fakeReader) Read(path string) (tagreader.RawSong, error) {
	song, ok := f.byPath[path]
	if !ok {
		return tagreader.RawSong{}, assertNotFoundErr
	}
	return song, nil
}

var assertNotFoundErr = errTagNotFound{}

type errTagNotFound struct{}

func (errTagNotFound) Error() string { return "no tag for path" }

func newTestStore(t *testing.T, reader tagreader.Reader) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "library.db")
	store, err := Open(dbPath, reader)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func waitForIdleOrNeedsUpdate(t *testing.T, s *Store) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if s.State() != StateBusy {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("timed out waiting for library to leave Busy state")
}

func TestOpenCreatesBuckets(t *testing.T) {
	store := newTestStore(t, fakeReader{byPath: map[string]tagreader.RawSong{}})
	assert.Equal(t, StateIdle, store.State())
	assert.Empty(t, store.ListRoots())
}

func TestAddRootIndexesScannableFiles(t *testing.T) {
	root := t.TempDir()
	songPath := filepath.Join(root, "track.mp3")
	writeEmptyFile(t, songPath)
	writeEmptyFile(t, filepath.Join(root, "notes.txt"))

	reader := fakeReader{byPath: map[string]tagreader.RawSong{
		songPath: {Title: "Track One", Artist: "Artist", Album: "Album", TrackNumber: 1, DiscNumber: 1},
	}}
	store := newTestStore(t, reader)

	store.AddRoot(root)
	waitForIdleOrNeedsUpdate(t, store)

	require.Equal(t, StateNeedsUpdate, store.State())
	store.AckNeedsUpdate()
	assert.Equal(t, StateIdle, store.State())

	ids, songs := store.ListSongs()
	require.Len(t, songs, 1)
	assert.Equal(t, songPath, ids[0])
	assert.Equal(t, "Track One", songs[0].Title)
	assert.Contains(t, store.ListRoots(), filepath.Clean(root))
}

func TestAddRootSkipsUnscannedExtensions(t *testing.T) {
	root := t.TempDir()
	writeEmptyFile(t, filepath.Join(root, "readme.txt"))

	store := newTestStore(t, fakeReader{byPath: map[string]tagreader.RawSong{}})
	store.AddRoot(root)
	waitForIdleOrNeedsUpdate(t, store)

	_, songs := store.ListSongs()
	assert.Empty(t, songs)
}

func TestRemoveRootDeletesItsSongs(t *testing.T) {
	root := t.TempDir()
	songPath := filepath.Join(root, "track.flac")
	writeEmptyFile(t, songPath)

	reader := fakeReader{byPath: map[string]tagreader.RawSong{
		songPath: {Title: "T", Artist: "A", Album: "Al"},
	}}
	store := newTestStore(t, reader)
	store.AddRoot(root)
	waitForIdleOrNeedsUpdate(t, store)
	store.AckNeedsUpdate()

	require.NoError(t, store.RemoveRoot(root))
	_, songs := store.ListSongs()
	assert.Empty(t, songs)
	assert.NotContains(t, store.ListRoots(), filepath.Clean(root))
}

func TestRemoveRootSparesSiblingWithSharedPrefix(t *testing.T) {
	parent := t.TempDir()
	root := filepath.Join(parent, "Rock")
	sibling := filepath.Join(parent, "RockClassics")
	require.NoError(t, os.Mkdir(root, 0o755))
	require.NoError(t, os.Mkdir(sibling, 0o755))

	songPath := filepath.Join(root, "track.flac")
	siblingSongPath := filepath.Join(sibling, "track.flac")
	writeEmptyFile(t, songPath)
	writeEmptyFile(t, siblingSongPath)

	reader := fakeReader{byPath: map[string]tagreader.RawSong{
		songPath:        {Title: "T", Artist: "A", Album: "Al"},
		siblingSongPath: {Title: "T2", Artist: "A", Album: "Al"},
	}}
	store := newTestStore(t, reader)
	store.AddRoot(root)
	waitForIdleOrNeedsUpdate(t, store)
	store.AckNeedsUpdate()
	store.AddRoot(sibling)
	waitForIdleOrNeedsUpdate(t, store)
	store.AckNeedsUpdate()

	require.NoError(t, store.RemoveRoot(root))
	_, songs := store.ListSongs()
	require.Len(t, songs, 1)
	assert.Equal(t, "T2", songs[0].Title)
	assert.Contains(t, store.ListRoots(), filepath.Clean(sibling))
	assert.NotContains(t, store.ListRoots(), filepath.Clean(root))
}

func TestSongsForArtistOrdersByAlbumDiscTrack(t *testing.T) {
	root := t.TempDir()
	p1 := filepath.Join(root, "a.mp3")
	p2 := filepath.Join(root, "b.mp3")
	writeEmptyFile(t, p1)
	writeEmptyFile(t, p2)

	reader := fakeReader{byPath: map[string]tagreader.RawSong{
		p1: {Title: "Second", Artist: "Artist", Album: "Album", TrackNumber: 2, DiscNumber: 1},
		p2: {Title: "First", Artist: "Artist", Album: "Album", TrackNumber: 1, DiscNumber: 1},
	}}
	store := newTestStore(t, reader)
	store.AddRoot(root)
	waitForIdleOrNeedsUpdate(t, store)

	songs := store.SongsForArtist("artist")
	require.Len(t, songs, 2)
	assert.Equal(t, "First", songs[0].Title)
	assert.Equal(t, "Second", songs[1].Title)
}

func writeEmptyFile(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte{}, 0o644))
}
