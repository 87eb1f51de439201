// Package playlist is the Playlist Store (PLS, spec §6): named,
// ordered song lists persisted as individual `.playlist` files in the
// application data directory.
package playlist

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/drgolem/musicplayer/pkg/apperr"
	"github.com/drgolem/musicplayer/pkg/model"
)

var (
	errFieldsTooLong = errors.New("playlist: song fields exceed the 510-byte record width")
	errInvalidUTF8   = errors.New("playlist: invalid UTF-8 in record")
)

const (
	// textLen is the fixed byte width of the NUL-separated
	// name/album/artist/path block in a song record (spec §6).
	textLen = 510
	// songLen is textLen plus one track-number byte and one
	// disc-number byte. The header skip ambiguity noted in spec §9 is
	// resolved here as exactly one reserved zero byte after the name.
	songLen = textLen + 1 + 1
)

// Store manages `.playlist` files under dir.
type Store struct {
	dir string
}

// New returns a playlist store rooted at dir, creating it if absent.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, apperr.IoError("playlist.New", err)
	}
	return &Store{dir: dir}, nil
}

// Create makes a new empty playlist named name and saves it.
func (s *Store) Create(name string) (*model.Playlist, error) {
	pl := &model.Playlist{Name: name}
	if err := s.Save(pl); err != nil {
		return nil, err
	}
	return pl, nil
}

// Delete removes the on-disk file for the playlist named name.
func (s *Store) Delete(name string) error {
	err := os.Remove(s.pathFor(name))
	if err != nil {
		if os.IsNotExist(err) {
			return apperr.NotFound("playlist.Delete", err)
		}
		return apperr.IoError("playlist.Delete", err)
	}
	return nil
}

// List returns the display names of every playlist on disk.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, apperr.IoError("playlist.List", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".playlist" {
			continue
		}
		pl, err := s.loadFile(filepath.Join(s.dir, e.Name()))
		if err != nil {
			continue
		}
		names = append(names, pl.Name)
	}
	return names, nil
}

// Load reads the playlist named name from disk.
func (s *Store) Load(name string) (*model.Playlist, error) {
	return s.loadFile(s.pathFor(name))
}

func (s *Store) loadFile(path string) (*model.Playlist, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperr.NotFound("playlist.Load", err)
		}
		return nil, apperr.IoError("playlist.Load", err)
	}
	defer f.Close()
	return Decode(f)
}

// Save writes pl to its `.playlist` file, overwriting any prior
// contents.
func (s *Store) Save(pl *model.Playlist) error {
	data, err := Encode(pl)
	if err != nil {
		return err
	}
	if err := os.WriteFile(s.pathFor(pl.Name), data, 0o644); err != nil {
		return apperr.IoError("playlist.Save", err)
	}
	return nil
}

// AppendSong loads the playlist named name, appends song, and saves
// it back.
func (s *Store) AppendSong(name string, song model.Song) error {
	pl, err := s.Load(name)
	if err != nil {
		return err
	}
	pl.AppendSong(song)
	return s.Save(pl)
}

// RemoveSongAt loads the playlist named name, removes the song at
// index i, and either saves the result or deletes the file entirely
// if the playlist becomes empty (spec §3's delete-last-song path).
func (s *Store) RemoveSongAt(name string, i int) error {
	pl, err := s.Load(name)
	if err != nil {
		return err
	}
	empty, err := pl.RemoveSongAt(i)
	if err != nil {
		return err
	}
	if empty {
		return s.Delete(name)
	}
	return s.Save(pl)
}

// pathFor derives the `.playlist` file path for a playlist's display
// name: a filesystem-safe slug independent of the UTF-8 name stored in
// the file header.
func (s *Store) pathFor(name string) string {
	return filepath.Join(s.dir, slugify(name)+".playlist")
}

var slugUnsafe = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

func slugify(name string) string {
	slug := slugUnsafe.ReplaceAllString(strings.ToLower(name), "-")
	slug = strings.Trim(slug, "-")
	if slug == "" {
		slug = "playlist"
	}
	return slug
}

// Encode serializes pl to the on-disk byte layout from spec §6.
func Encode(pl *model.Playlist) ([]byte, error) {
	nameBytes := []byte(pl.Name)
	if len(nameBytes) > 0xFFFF {
		return nil, apperr.New(apperr.KindIoError, "playlist.Encode", io.ErrShortWrite)
	}

	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, uint16(len(nameBytes))); err != nil {
		return nil, apperr.IoError("playlist.Encode", err)
	}
	buf.Write(nameBytes)
	buf.WriteByte(0) // reserved separator

	for _, song := range pl.Songs {
		record, err := encodeSongRecord(song)
		if err != nil {
			return nil, err
		}
		buf.Write(record)
	}

	return buf.Bytes(), nil
}

func encodeSongRecord(song model.Song) ([]byte, error) {
	fields := strings.Join([]string{song.Title, song.Album, song.Artist, song.Path}, "\x00")
	fieldBytes := []byte(fields)
	if len(fieldBytes) > textLen {
		return nil, apperr.New(apperr.KindIoError, "playlist.encodeSongRecord",
			errFieldsTooLong)
	}

	record := make([]byte, songLen)
	copy(record, fieldBytes)
	record[textLen] = clampByte(song.TrackNumber)
	record[textLen+1] = clampByte(song.DiscNumber)
	return record, nil
}

func clampByte(n uint16) byte {
	if n > 255 {
		return 255
	}
	return byte(n)
}

// Decode parses the on-disk byte layout from spec §6. Reading stops at
// the first short song record.
func Decode(r io.Reader) (*model.Playlist, error) {
	var nameLen uint16
	if err := binary.Read(r, binary.LittleEndian, &nameLen); err != nil {
		return nil, apperr.CorruptData("playlist.Decode", err)
	}

	nameBytes := make([]byte, nameLen)
	if _, err := io.ReadFull(r, nameBytes); err != nil {
		return nil, apperr.CorruptData("playlist.Decode", err)
	}
	if !utf8.Valid(nameBytes) {
		return nil, apperr.CorruptData("playlist.Decode", errInvalidUTF8)
	}

	reserved := make([]byte, 1)
	if _, err := io.ReadFull(r, reserved); err != nil {
		return nil, apperr.CorruptData("playlist.Decode", err)
	}

	pl := &model.Playlist{Name: string(nameBytes)}

	record := make([]byte, songLen)
	for {
		n, err := io.ReadFull(r, record)
		if err == io.EOF {
			break
		}
		if err != nil || n < songLen {
			break // first short record: stop reading, per spec §6.
		}

		song, err := decodeSongRecord(record)
		if err != nil {
			return nil, err
		}
		pl.AppendSong(song)
	}

	return pl, nil
}

func decodeSongRecord(record []byte) (model.Song, error) {
	fields := bytes.SplitN(record[:textLen], []byte{0}, 5)
	get := func(i int) string {
		if i < len(fields) {
			return string(bytes.TrimRight(fields[i], "\x00"))
		}
		return ""
	}

	if !utf8.Valid(record[:textLen]) {
		return model.Song{}, apperr.CorruptData("playlist.decodeSongRecord", errInvalidUTF8)
	}

	song := model.Song{
		Title:       get(0),
		Album:       get(1),
		Artist:      get(2),
		Path:        get(3),
		TrackNumber: uint16(record[textLen]),
		DiscNumber:  uint16(record[textLen+1]),
	}
	song.Normalize()
	return song, nil
}

