// Package flac adapts the go-flac binding into the decode.Decoder
// interface. Adapted from the teacher's pkg/decoders/flac.
package flac

import (
	"fmt"

	goflac "github.com/drgolem/go-flac/flac"

	"github.com/drgolem/musicplayer/pkg/apperr"
	"github.com/drgolem/musicplayer/pkg/decode/bytedecoder"
)

// source wraps goflac.FlacDecoder to satisfy bytedecoder.ByteSource.
// Re-Open recreates the underlying decoder handle since goflac's
// decoder is tied to a single Open/Close lifecycle.
type source struct {
	decoder  *goflac.FlacDecoder
	rate     int
	channels int
	bps      int
}

func (s *source) Open(fileName string) error {
	decoder, err := goflac.NewFlacFrameDecoder(16)
	if err != nil {
		return fmt.Errorf("flac: create decoder: %w", err)
	}
	if err := decoder.Open(fileName); err != nil {
		decoder.Delete()
		return fmt.Errorf("flac: open %s: %w", fileName, err)
	}

	rate, channels, bps := decoder.GetFormat()
	s.decoder = decoder
	s.rate = rate
	s.channels = channels
	s.bps = bps
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

func (s *source) GetFormat() (int, int, int) { return s.rate, s.channels, s.bps }

// TotalSamples forwards goflac's STREAMINFO-derived sample count,
// populated during Open's metadata pass, so bytedecoder.Wrapper can
// report duration without decoding the stream.
func (s *source) TotalSamples() int64 {
	if s.decoder == nil {
		return 0
	}
	return s.decoder.TotalSamples()
}

func (s *source) DecodeSamples(samples int, audio []byte) (int, error) {
	if s.decoder == nil {
		return 0, fmt.Errorf("flac: decoder not initialized")
	}
	return s.decoder.DecodeSamples(samples, audio)
}

// Open opens fileName as a FLAC stream.
func Open(fileName string) (*bytedecoder.Wrapper, error) {
	w, err := bytedecoder.Open(&source{}, fileName)
	if err != nil {
		return nil, apperr.UnsupportedFormat("flac.Open", err)
	}
	return w, nil
}
