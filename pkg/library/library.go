// Package library is the Library Store (LS, spec §4.7): a persistent
// mapping from absolute file path to model.Song, backed by bbolt, with
// a set of scan roots and an Idle/Busy/NeedsUpdate state machine.
package library

import (
	"bytes"
	"encoding/gob"
	"io/fs"
	"log/slog"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"go.etcd.io/bbolt"

	"github.com/drgolem/musicplayer/pkg/apperr"
	"github.com/drgolem/musicplayer/pkg/model"
	"github.com/drgolem/musicplayer/pkg/tagreader"
)

var (
	bucketSongs = []byte("songs")
	bucketRoots = []byte("roots")
	bucketMeta  = []byte("meta")

	metaSchemaKey  = []byte("schema_version")
	schemaVersion1 = []byte{1}
)

// State is the Library Store's Idle/Busy/NeedsUpdate state machine
// (spec §4.7).
type State int32

const (
	StateIdle State = iota
	StateBusy
	StateNeedsUpdate
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateBusy:
		return "busy"
	case StateNeedsUpdate:
		return "needs_update"
	default:
		return "unknown"
	}
}

// Store is the persistent song index.
type Store struct {
	db *bbolt.DB
	tr tagreader.Reader

	mu    sync.RWMutex // guards roots
	roots map[string]struct{}

	state atomic.Int32 // State
}

// Open opens (creating if absent) the bbolt-backed store at dbPath.
func Open(dbPath string, tr tagreader.Reader) (*Store, error) {
	db, err := bbolt.Open(dbPath, 0o600, nil)
	if err != nil {
		return nil, apperr.IoError("library.Open", err)
	}

	s := &Store{db: db, tr: tr, roots: map[string]struct{}{}}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketSongs, bucketRoots, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		meta := tx.Bucket(bucketMeta)
		if meta.Get(metaSchemaKey) == nil {
			if err := meta.Put(metaSchemaKey, schemaVersion1); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, apperr.IoError("library.Open", err)
	}

	if err := s.loadRoots(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

func (s *Store) loadRoots() error {
	return s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketRoots)
		return b.ForEach(func(k, _ []byte) error {
			s.roots[string(k)] = struct{}{}
			return nil
		})
	})
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// State reports the current LS state.
func (s *Store) State() State { return State(s.state.Load()) }

// AckNeedsUpdate consumes a pending NeedsUpdate, returning it to Idle.
// Matches spec §4.7's "consumed by its readers" contract.
func (s *Store) AckNeedsUpdate() {
	s.state.CompareAndSwap(int32(StateNeedsUpdate), int32(StateIdle))
}

// AddRoot enumerates root for scannable files and indexes them on a
// background worker; it returns immediately. Callers observe Busy flip
// true then false via State().
func (s *Store) AddRoot(root string) {
	root = filepath.Clean(root)

	s.mu.Lock()
	if _, exists := s.roots[root]; exists {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	s.state.Store(int32(StateBusy))
	go s.scanRoot(root)
}

func (s *Store) scanRoot(root string) {
	changed := false
	defer func() {
		if changed {
			s.state.Store(int32(StateNeedsUpdate))
		} else {
			s.state.Store(int32(StateIdle))
		}
	}()

	paths := make(chan string, 64)
	go func() {
		defer close(paths)
		_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil || d == nil || d.IsDir() {
				return nil
			}
			if model.HasScanExtension(path) {
				paths <- path
			}
			return nil
		})
	}()

	workers := runtime.NumCPU()
	if workers < 1 {
		workers = 1
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range paths {
				if s.hasSong(path) {
					continue
				}
				raw, err := s.tr.Read(path)
				if err != nil {
					slog.Warn("tag read failed", "path", path, "error", err)
					continue
				}
				song := model.Song{
					Title:        raw.Title,
					Album:        raw.Album,
					Artist:       raw.Artist,
					AlbumArtist:  raw.AlbumArtist,
					TrackNumber:  raw.TrackNumber,
					DiscNumber:   raw.DiscNumber,
					Path:         path,
					DurationSecs: raw.DurationSecs,
					ReplayGain:   raw.ReplayGain,
				}
				song.Normalize()

				if err := s.putSong(song); err != nil {
					slog.Warn("library write failed", "path", path, "error", err)
					continue
				}
				mu.Lock()
				changed = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if err := s.putRoot(root); err != nil {
		slog.Warn("library root write failed", "root", root, "error", err)
		return
	}
	s.mu.Lock()
	s.roots[root] = struct{}{}
	s.mu.Unlock()
	changed = true
}

// RemoveRoot deletes every song whose path is root or lies under it
// (root followed by a path separator; a sibling directory that merely
// shares root's string prefix is kept) and removes root from the
// declared set.
func (s *Store) RemoveRoot(root string) error {
	root = filepath.Clean(root)

	s.mu.Lock()
	if _, exists := s.roots[root]; !exists {
		s.mu.Unlock()
		return nil
	}
	delete(s.roots, root)
	s.mu.Unlock()

	err := s.db.Update(func(tx *bbolt.Tx) error {
		songs := tx.Bucket(bucketSongs)
		c := songs.Cursor()
		var toDelete [][]byte
		for k, _ := c.First(); k != nil; k, _ = c.Next() {
			if key := string(k); key == root || strings.HasPrefix(key, root+string(filepath.Separator)) {
				toDelete = append(toDelete, append([]byte(nil), k...))
			}
		}
		for _, k := range toDelete {
			if err := songs.Delete(k); err != nil {
				return err
			}
		}
		return tx.Bucket(bucketRoots).Delete([]byte(root))
	})
	if err != nil {
		return apperr.IoError("library.RemoveRoot", err)
	}

	s.state.Store(int32(StateNeedsUpdate))
	return nil
}

// Sync adds roots present in declaredRoots but not yet tracked, and
// removes tracked roots no longer declared.
func (s *Store) Sync(declaredRoots []string) error {
	declared := make(map[string]struct{}, len(declaredRoots))
	for _, r := range declaredRoots {
		declared[filepath.Clean(r)] = struct{}{}
	}

	s.mu.RLock()
	current := make([]string, 0, len(s.roots))
	for r := range s.roots {
		current = append(current, r)
	}
	s.mu.RUnlock()

	for _, r := range current {
		if _, ok := declared[r]; !ok {
			if err := s.RemoveRoot(r); err != nil {
				return err
			}
		}
	}
	for r := range declared {
		s.mu.RLock()
		_, ok := s.roots[r]
		s.mu.RUnlock()
		if !ok {
			s.AddRoot(r)
		}
	}
	return nil
}

// ListRoots returns the currently declared scan roots.
func (s *Store) ListRoots() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	roots := make([]string, 0, len(s.roots))
	for r := range s.roots {
		roots = append(roots, r)
	}
	return roots
}

// ListSongs returns every indexed song keyed by path (the id), ordered
// per spec §4.7's artist/album/disc/track invariant.
func (s *Store) ListSongs() ([]string, []model.Song) {
	var ids []string
	var songs []model.Song

	_ = s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketSongs)
		return b.ForEach(func(k, v []byte) error {
			song, err := decodeSong(v)
			if err != nil {
				return nil
			}
			ids = append(ids, string(k))
			songs = append(songs, song)
			return nil
		})
	})

	sortByIDs(ids, songs)
	return ids, songs
}

// SongByID looks up one song by its path key.
func (s *Store) SongByID(id string) (model.Song, bool) {
	var song model.Song
	found := false
	_ = s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(bucketSongs).Get([]byte(id))
		if v == nil {
			return nil
		}
		if decoded, err := decodeSong(v); err == nil {
			song, found = decoded, true
		}
		return nil
	})
	return song, found
}

// SongsForArtist returns every song by artist, ordered per the
// album/disc/track invariant.
func (s *Store) SongsForArtist(artist string) []model.Song {
	_, all := s.ListSongs()
	var out []model.Song
	for _, song := range all {
		if strings.EqualFold(song.Artist, artist) {
			out = append(out, song)
		}
	}
	return out
}

// AlbumsForArtist returns the distinct album names by artist.
func (s *Store) AlbumsForArtist(artist string) []string {
	seen := map[string]struct{}{}
	var albums []string
	for _, song := range s.SongsForArtist(artist) {
		if _, ok := seen[song.Album]; !ok {
			seen[song.Album] = struct{}{}
			albums = append(albums, song.Album)
		}
	}
	return albums
}

// SongsForAlbum returns the songs on album by artist, ordered by disc
// then track.
func (s *Store) SongsForAlbum(album, artist string) []model.Song {
	var out []model.Song
	for _, song := range s.SongsForArtist(artist) {
		if strings.EqualFold(song.Album, album) {
			out = append(out, song)
		}
	}
	return out
}

func (s *Store) hasSong(path string) bool {
	found := false
	_ = s.db.View(func(tx *bbolt.Tx) error {
		found = tx.Bucket(bucketSongs).Get([]byte(path)) != nil
		return nil
	})
	return found
}

func (s *Store) putSong(song model.Song) error {
	data, err := encodeSong(song)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketSongs).Put([]byte(song.Path), data)
	})
}

func (s *Store) putRoot(root string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketRoots).Put([]byte(root), []byte{1})
	})
}

func encodeSong(song model.Song) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(song); err != nil {
		return nil, apperr.IoError("library.encodeSong", err)
	}
	return buf.Bytes(), nil
}

func decodeSong(data []byte) (model.Song, error) {
	var song model.Song
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&song); err != nil {
		return model.Song{}, apperr.CorruptData("library.decodeSong", err)
	}
	return song, nil
}

// sortByIDs orders songs (and their parallel id slice) per model.Less,
// the artist/album/disc/track ordering invariant.
func sortByIDs(ids []string, songs []model.Song) {
	type pair struct {
		id   string
		song model.Song
	}
	pairs := make([]pair, len(ids))
	for i := range ids {
		pairs[i] = pair{ids[i], songs[i]}
	}
	sort.Slice(pairs, func(i, j int) bool {
		return model.Less(pairs[i].song, pairs[j].song)
	})
	for i, p := range pairs {
		ids[i] = p.id
		songs[i] = p.song
	}
}
