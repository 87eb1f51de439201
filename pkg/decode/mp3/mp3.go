// Package mp3 adapts the go-mpg123 binding into the decode.Decoder
// interface. Adapted from the teacher's pkg/decoders/mp3.
package mp3

import (
	"fmt"

	"github.com/drgolem/go-mpg123/mpg123"

	"github.com/drgolem/musicplayer/pkg/apperr"
	"github.com/drgolem/musicplayer/pkg/decode/bytedecoder"
)

type source struct {
	decoder  *mpg123.Decoder
	rate     int
	channels int
	encoding int
}

func (s *source) Open(fileName string) error {
	decoder, err := mpg123.NewDecoder("")
	if err != nil {
		return fmt.Errorf("mp3: create decoder: %w", err)
	}
	if err := decoder.Open(fileName); err != nil {
		decoder.Delete()
		return fmt.Errorf("mp3: open %s: %w", fileName, err)
	}

	rate, channels, encoding := decoder.GetFormat()
	s.decoder = decoder
	s.rate = rate
	s.channels = channels
	s.encoding = encoding
	return nil
}

func (s *source) Close() error {
	if s.decoder != nil {
		s.decoder.Close()
		s.decoder.Delete()
		s.decoder = nil
	}
	return nil
}

// GetFormat reports encoding as the bits-per-sample value, matching
// mpg123's convention of encoding constants equal to bit depth
// (MPG123_ENC_SIGNED_16 == 16, etc).
func (s *source) GetFormat() (int, int, int) { return s.rate, s.channels, s.encoding }

func (s *source) DecodeSamples(samples int, audio []byte) (int, error) {
	if s.decoder == nil {
		return 0, fmt.Errorf("mp3: decoder not initialized")
	}
	return s.decoder.DecodeSamples(samples, audio)
}

// Open opens fileName as an MP3 stream.
func Open(fileName string) (*bytedecoder.Wrapper, error) {
	w, err := bytedecoder.Open(&source{}, fileName)
	if err != nil {
		return nil, apperr.UnsupportedFormat("mp3.Open", err)
	}
	return w, nil
}
