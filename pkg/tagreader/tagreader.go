// Package tagreader is the Tag Reader (TR) external interface: it
// turns a file path into a RawSong record of metadata, or an error.
package tagreader

import (
	"os"

	"github.com/dhowden/tag"

	"github.com/drgolem/musicplayer/pkg/apperr"
	"github.com/drgolem/musicplayer/pkg/decode"
	"github.com/drgolem/musicplayer/pkg/model"
)

// RawSong is the Tag Reader's output record (spec §4.6), not yet
// assigned a library path key — pkg/library maps this into a
// model.Song.
type RawSong struct {
	Title        string
	Album        string
	Artist       string
	AlbumArtist  string
	TrackNumber  uint16
	DiscNumber   uint16
	DurationSecs float64
	ReplayGain   float32
}

// Reader reads metadata from a single file. The library depends on
// this interface, not the concrete implementation, so a streaming or
// remote source could substitute for it without changing LS.
type Reader interface {
	Read(path string) (RawSong, error)
}

// defaultReader is the dhowden/tag-backed implementation used in
// production.
type defaultReader struct{}

// New returns the default Tag Reader implementation.
func New() Reader { return defaultReader{} }

func (defaultReader) Read(path string) (RawSong, error) {
	f, err := os.Open(path)
	if err != nil {
		return RawSong{}, apperr.IoError("tagreader.Read", err)
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		return RawSong{}, apperr.CorruptData("tagreader.Read", err)
	}

	track, _ := m.Track()
	disc, _ := m.Disc()

	song := RawSong{
		Title:       m.Title(),
		Album:       m.Album(),
		Artist:      m.Artist(),
		AlbumArtist: m.AlbumArtist(),
		TrackNumber: normalizeNumber(track),
		DiscNumber:  normalizeNumber(disc),
		// dhowden/tag exposes no replay gain field; spec §4.6 defaults
		// to 0.0 (unknown/disabled) in its absence.
		ReplayGain: 0.0,
	}
	if song.Title == "" {
		song.Title = model.UnknownTitle
	}
	if song.Album == "" {
		song.Album = model.UnknownAlbum
	}
	if song.Artist == "" {
		song.Artist = model.UnknownArtist
	}
	if song.AlbumArtist == "" {
		song.AlbumArtist = song.Artist
	}
	song.DurationSecs = durationFromStreamHeader(path)

	return song, nil
}

// normalizeNumber applies the "n/m parses to n; non-numeric or absent
// parses to 1" rule from spec §4.6. dhowden/tag already does the "n/m"
// parsing for us and returns 0 when the field is absent or unparsable.
func normalizeNumber(n int) uint16 {
	if n < 1 {
		return 1
	}
	return uint16(n)
}

// durationFromStreamHeader opens path through the playback decoder
// chain to read its duration from stream headers, per spec §4.6. Best
// effort: codecs whose binding exposes no duration query (see
// decode.Decoder.TotalDuration) report 0.
func durationFromStreamHeader(path string) float64 {
	dec, err := decode.Open(path)
	if err != nil {
		return 0
	}
	defer dec.Close()
	return dec.TotalDuration().Seconds()
}
