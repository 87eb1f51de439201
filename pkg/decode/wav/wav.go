// Package wav adapts the go-wav reader into the decode.Decoder
// interface. Adapted from the teacher's pkg/decoders/wav.
package wav

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/youpy/go-wav"

	"github.com/drgolem/musicplayer/pkg/apperr"
	"github.com/drgolem/musicplayer/pkg/decode/bytedecoder"
)

// source wraps go-wav, which decodes one sample frame at a time, into
// the samples-into-a-buffer shape bytedecoder.Wrapper expects.
type source struct {
	file         *os.File
	reader       *wav.Reader
	rate         int
	channels     int
	bps          int
	totalSamples int64
}

func (s *source) Open(fileName string) error {
	file, err := os.Open(fileName)
	if err != nil {
		return fmt.Errorf("wav: open %s: %w", fileName, err)
	}

	reader := wav.NewReader(file)
	format, err := reader.Format()
	if err != nil {
		file.Close()
		return fmt.Errorf("wav: read format: %w", err)
	}
	if format.AudioFormat != wav.AudioFormatPCM {
		file.Close()
		return fmt.Errorf("wav: unsupported format %d (only PCM supported)", format.AudioFormat)
	}

	s.file = file
	s.reader = reader
	s.rate = int(format.SampleRate)
	s.channels = int(format.NumChannels)
	s.bps = int(format.BitsPerSample)

	// go-wav's Reader parses the data chunk size internally but doesn't
	// expose it, so walk the RIFF chunks ourselves to read it straight
	// from the header rather than decoding the whole file for a count.
	if total, err := dataChunkSampleCount(fileName, s.channels, s.bps); err == nil {
		s.totalSamples = total
	}
	return nil
}

// dataChunkSampleCount walks a WAV file's RIFF chunk structure to find
// the "data" chunk's declared byte size, the standard way to learn a
// WAV's duration without decoding it.
func dataChunkSampleCount(fileName string, channels, bitsPerSample int) (int64, error) {
	f, err := os.Open(fileName)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	var riffHeader [12]byte
	if _, err := io.ReadFull(f, riffHeader[:]); err != nil {
		return 0, err
	}
	if string(riffHeader[0:4]) != "RIFF" || string(riffHeader[8:12]) != "WAVE" {
		return 0, fmt.Errorf("wav: not a RIFF/WAVE file")
	}

	bytesPerFrame := channels * (bitsPerSample / 8)
	if bytesPerFrame == 0 {
		return 0, fmt.Errorf("wav: invalid format for duration")
	}

	for {
		var chunkHeader [8]byte
		if _, err := io.ReadFull(f, chunkHeader[:]); err != nil {
			return 0, fmt.Errorf("wav: data chunk not found: %w", err)
		}
		id := string(chunkHeader[0:4])
		size := binary.LittleEndian.Uint32(chunkHeader[4:8])
		if id == "data" {
			return int64(size) / int64(bytesPerFrame), nil
		}
		if size%2 != 0 {
			size++ // chunks are word-aligned
		}
		if _, err := f.Seek(int64(size), io.SeekCurrent); err != nil {
			return 0, err
		}
	}
}

func (s *source) Close() error {
	if s.file != nil {
		err := s.file.Close()
		s.file = nil
		return err
	}
	return nil
}

func (s *source) GetFormat() (int, int, int) { return s.rate, s.channels, s.bps }

// TotalSamples reports the per-channel frame count derived from the
// data chunk size read during Open.
func (s *source) TotalSamples() int64 { return s.totalSamples }

func (s *source) DecodeSamples(samples int, audio []byte) (int, error) {
	if s.reader == nil {
		return 0, fmt.Errorf("wav: decoder not initialized")
	}

	bytesPerSample := s.bps / 8
	totalSamples := 0

	for i := 0; i < samples; i++ {
		samplesData, err := s.reader.ReadSamples(1)
		if err != nil {
			return totalSamples, err
		}
		if len(samplesData) == 0 {
			return totalSamples, nil
		}

		for ch := 0; ch < s.channels; ch++ {
			if ch >= len(samplesData[0].Values) {
				break
			}
			value := samplesData[0].Values[ch]
			offset := (totalSamples*s.channels + ch) * bytesPerSample
			if offset+bytesPerSample > len(audio) {
				return totalSamples, nil
			}

			switch s.bps {
			case 8:
				audio[offset] = byte(value)
			case 16:
				audio[offset] = byte(value & 0xFF)
				audio[offset+1] = byte((value >> 8) & 0xFF)
			case 24:
				audio[offset] = byte(value & 0xFF)
				audio[offset+1] = byte((value >> 8) & 0xFF)
				audio[offset+2] = byte((value >> 16) & 0xFF)
			case 32:
				audio[offset] = byte(value & 0xFF)
				audio[offset+1] = byte((value >> 8) & 0xFF)
				audio[offset+2] = byte((value >> 16) & 0xFF)
				audio[offset+3] = byte((value >> 24) & 0xFF)
			default:
				return totalSamples, fmt.Errorf("wav: unsupported bits per sample: %d", s.bps)
			}
		}
		totalSamples++
	}

	return totalSamples, nil
}

// Open opens fileName as a PCM WAV stream.
func Open(fileName string) (*bytedecoder.Wrapper, error) {
	w, err := bytedecoder.Open(&source{}, fileName)
	if err != nil {
		return nil, apperr.UnsupportedFormat("wav.Open", err)
	}
	return w, nil
}
