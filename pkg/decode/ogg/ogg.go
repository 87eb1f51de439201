// Package ogg implements decode.Decoder directly on top of
// jfreymuth/oggvorbis, which already produces interleaved float32
// samples, so no bytesamples conversion step is needed. This
// dependency is carried in the teacher's go.mod but was never
// exercised by the teacher's own code; wiring it in here fulfills the
// domain-stack goal of exercising the full pack, not just the parts
// the teacher's CLI happened to use.
package ogg

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/jfreymuth/oggvorbis"

	"github.com/drgolem/musicplayer/pkg/apperr"
	"github.com/drgolem/musicplayer/pkg/pcmframe"
)

const samplesPerPacket = 4096

type decoder struct {
	file     *os.File
	reader   *oggvorbis.Reader
	fileName string

	rate      int
	channels  int
	decoded   uint64
	length    int64 // total samples per channel, 0 if unknown
}

// Open opens fileName as an Ogg Vorbis stream.
func Open(fileName string) (*decoder, error) {
	file, err := os.Open(fileName)
	if err != nil {
		return nil, apperr.UnsupportedFormat("ogg.Open", err)
	}

	reader, err := oggvorbis.NewReader(file)
	if err != nil {
		file.Close()
		return nil, apperr.UnsupportedFormat("ogg.Open", fmt.Errorf("decode %s: %w", fileName, err))
	}

	return &decoder{
		file:     file,
		reader:   reader,
		fileName: fileName,
		rate:     reader.SampleRate(),
		channels: reader.Channels(),
		length:   reader.Length(),
	}, nil
}

func (d *decoder) SampleRate() int { return d.rate }
func (d *decoder) Channels() int   { return d.channels }

func (d *decoder) TotalDuration() time.Duration {
	if d.length <= 0 || d.rate == 0 {
		return 0
	}
	return time.Duration(float64(d.length) / float64(d.rate) * float64(time.Second))
}

func (d *decoder) Elapsed() time.Duration {
	if d.rate == 0 {
		return 0
	}
	return time.Duration(float64(d.decoded) / float64(d.rate) * float64(time.Second))
}

func (d *decoder) NextPacket() (*pcmframe.Frame, error) {
	buf := make([]float32, samplesPerPacket*d.channels)
	n, err := d.reader.Read(buf)
	if n == 0 {
		if err == nil {
			err = io.EOF
		}
		return nil, err
	}

	d.decoded += uint64(n / d.channels)
	frame := &pcmframe.Frame{
		Format:  pcmframe.Format{SampleRate: uint32(d.rate), Channels: uint8(d.channels)},
		Samples: buf[:n],
	}
	if err != nil && err != io.EOF {
		return frame, err
	}
	return frame, nil
}

// Seek uses oggvorbis's native sample-accurate seek (SetPosition); if
// that fails it falls back to reopening and decode-and-discard. The
// target is clamped to the stream length when the length is known.
func (d *decoder) Seek(seconds float64) (time.Duration, error) {
	if seconds < 0 {
		seconds = 0
	}
	target := int64(seconds * float64(d.rate))
	if d.length > 0 && target > d.length {
		target = d.length
	}

	if err := d.reader.SetPosition(target); err == nil {
		d.decoded = uint64(target)
		return d.Elapsed(), nil
	}

	// fall back: reopen and discard toward target
	if err := d.file.Close(); err != nil {
		return d.Elapsed(), err
	}
	file, err := os.Open(d.fileName)
	if err != nil {
		return 0, err
	}
	reader, err := oggvorbis.NewReader(file)
	if err != nil {
		file.Close()
		return 0, err
	}
	d.file = file
	d.reader = reader
	d.decoded = 0

	discard := make([]float32, samplesPerPacket*d.channels)
	for int64(d.decoded) < target {
		n, err := d.reader.Read(discard)
		if n > 0 {
			d.decoded += uint64(n / d.channels)
		}
		if err != nil || n == 0 {
			break
		}
	}
	return d.Elapsed(), nil
}

func (d *decoder) Close() error {
	return d.file.Close()
}
