// Package decode defines the Decoder Adapter interface (DEC, spec
// §4.3) and the factory that opens the right concrete adapter for a
// file's extension.
package decode

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/drgolem/musicplayer/pkg/apperr"
	"github.com/drgolem/musicplayer/pkg/decode/flac"
	"github.com/drgolem/musicplayer/pkg/decode/mp3"
	"github.com/drgolem/musicplayer/pkg/decode/ogg"
	"github.com/drgolem/musicplayer/pkg/decode/wav"
	"github.com/drgolem/musicplayer/pkg/pcmframe"
)

// Decoder wraps a single-file codec, producing interleaved float32 PCM
// packets. Exactly the "pluggable decoder interface" spec §1 treats as
// an external collaborator; this package supplies playback adapters
// for the codecs it can actually decode. The library's scan extension
// list (spec §4.7) is broader than PlaybackExtensions below: m4a files
// are indexed for metadata (the dhowden/tag reader understands MP4
// atoms) even though they cannot currently be played back, see
// PlaybackExtensions.
type Decoder interface {
	SampleRate() int
	Channels() int

	// TotalDuration is best-effort; it returns 0 when the underlying
	// codec binding exposes no duration and none could be inferred.
	TotalDuration() time.Duration

	// Elapsed is the decoder's internal position, derived from the
	// count of samples decoded (or sought past) so far.
	Elapsed() time.Duration

	// Seek is best-effort: codecs without native seek support fall
	// back to decode-and-discard. Seeking past TotalDuration clamps to
	// the end and the next NextPacket call returns io.EOF.
	Seek(seconds float64) (time.Duration, error)

	// NextPacket returns the next chunk of interleaved float32
	// samples, or io.EOF when the stream ends.
	NextPacket() (*pcmframe.Frame, error)

	Close() error
}

// Open dispatches to the decoder for fileName's extension and opens
// it. Supported extensions: .flac/.fla, .mp3, .wav, .ogg.
//
// M4A/AAC is deliberately not wired in: the only AAC codec in the pack
// (llehouerou/go-aac) ships its container/header layer only, and its
// own frame decode path is an explicit unfinished stub (see decode.go
// in that module) that returns no samples for real content. Depending
// on it would silently produce empty audio rather than a decode error,
// so .m4a is left unsupported until a complete AAC decoder is
// available.
func Open(fileName string) (Decoder, error) {
	ext := strings.ToLower(filepath.Ext(fileName))

	switch ext {
	case ".flac", ".fla":
		return flac.Open(fileName)
	case ".mp3":
		return mp3.Open(fileName)
	case ".wav":
		return wav.Open(fileName)
	case ".ogg":
		return ogg.Open(fileName)
	default:
		return nil, apperr.UnsupportedFormat("decode.Open", fmt.Errorf("unsupported extension %q", ext))
	}
}

// PlaybackExtensions lists the extensions Open can actually decode.
// This is narrower than the library's scan extension list (spec
// §4.7, model.ScanExtensions): m4a is scanned and tagged but not
// playable, see the Decoder doc comment.
func PlaybackExtensions() []string {
	return []string{".flac", ".fla", ".mp3", ".wav", ".ogg"}
}
