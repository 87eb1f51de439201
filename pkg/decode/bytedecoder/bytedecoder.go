// Package bytedecoder adapts the byte-buffer codec bindings the
// teacher wraps (FLAC, MP3, WAV: all expose Open/Close/GetFormat plus
// a DecodeSamples(n int, buf []byte) style call) into the
// decode.Decoder interface, which works in float32 packets.
//
// Seek is implemented generically as decode-and-discard because none
// of the wrapped bindings expose native seek; this matches spec
// §4.3's "seek is best-effort" contract.
package bytedecoder

import (
	"io"
	"time"

	"github.com/drgolem/musicplayer/pkg/decode/internal/bytesamples"
	"github.com/drgolem/musicplayer/pkg/pcmframe"
)

// ByteSource is the common shape of the FLAC/MP3/WAV codec bindings.
type ByteSource interface {
	Open(fileName string) error
	Close() error
	GetFormat() (rate, channels, bitsPerSample int)
	DecodeSamples(samples int, audio []byte) (int, error)
}

// totalSamplesSource is an optional capability: a ByteSource that can
// report a codec's declared total sample count from its stream headers
// (FLAC's STREAMINFO, WAV's data chunk size) without decoding the file.
// Bindings that can't (MP3, via go-mpg123) simply don't implement it,
// and TotalDuration falls back to unknown.
type totalSamplesSource interface {
	TotalSamples() int64
}

// samplesPerPacket is the number of per-channel frames decoded per
// NextPacket call; matches the teacher's 4K-sample decode chunk size.
const samplesPerPacket = 4096

// Wrapper turns a ByteSource into a decode.Decoder.
type Wrapper struct {
	src      ByteSource
	fileName string

	rate          int
	channels      int
	bitsPerSample int

	samplesDecoded uint64 // per-channel frame count decoded (or sought past) so far
}

// Open constructs a Wrapper by opening src against fileName and
// reading back its negotiated format.
func Open(src ByteSource, fileName string) (*Wrapper, error) {
	if err := src.Open(fileName); err != nil {
		return nil, err
	}
	rate, channels, bps := src.GetFormat()
	return &Wrapper{
		src:           src,
		fileName:      fileName,
		rate:          rate,
		channels:      channels,
		bitsPerSample: bps,
	}, nil
}

func (w *Wrapper) SampleRate() int { return w.rate }
func (w *Wrapper) Channels() int   { return w.channels }

func (w *Wrapper) Elapsed() time.Duration {
	if w.rate == 0 {
		return 0
	}
	return time.Duration(float64(w.samplesDecoded) / float64(w.rate) * float64(time.Second))
}

// TotalDuration reads the codec's declared sample count straight from
// its stream headers (via totalSamplesSource) when the wrapped source
// supports it, and derives 0 ("unknown", per spec §4.3) otherwise.
func (w *Wrapper) TotalDuration() time.Duration {
	ts, ok := w.src.(totalSamplesSource)
	if !ok || w.rate == 0 {
		return 0
	}
	total := ts.TotalSamples()
	if total <= 0 {
		return 0
	}
	return time.Duration(float64(total) / float64(w.rate) * float64(time.Second))
}

func (w *Wrapper) NextPacket() (*pcmframe.Frame, error) {
	bytesPerFrame := w.channels * (w.bitsPerSample / 8)
	buf := make([]byte, samplesPerPacket*bytesPerFrame)

	n, err := w.src.DecodeSamples(samplesPerPacket, buf)
	if n == 0 {
		if err == nil {
			err = io.EOF
		}
		return nil, err
	}

	w.samplesDecoded += uint64(n)
	samples := bytesamples.ToFloat32(buf[:n*bytesPerFrame], w.bitsPerSample)

	frame := &pcmframe.Frame{
		Format:  pcmframe.Format{SampleRate: uint32(w.rate), Channels: uint8(w.channels)},
		Samples: samples,
	}
	if err != nil && err != io.EOF {
		return frame, err
	}
	return frame, nil
}

// Seek reopens the underlying source and decodes-and-discards up to
// the target sample position. Seeking past the end of stream clamps:
// the loop stops at EOF and Elapsed reports wherever decoding actually
// reached, so the caller's next NextPacket call observes io.EOF
// immediately and can transition to Finished.
func (w *Wrapper) Seek(seconds float64) (time.Duration, error) {
	if seconds < 0 {
		seconds = 0
	}
	target := uint64(seconds * float64(w.rate))

	if err := w.src.Close(); err != nil {
		return w.Elapsed(), err
	}
	if err := w.src.Open(w.fileName); err != nil {
		return 0, err
	}
	w.samplesDecoded = 0

	bytesPerFrame := w.channels * (w.bitsPerSample / 8)
	discard := make([]byte, samplesPerPacket*bytesPerFrame)

	for w.samplesDecoded < target {
		n, err := w.src.DecodeSamples(samplesPerPacket, discard)
		if n > 0 {
			w.samplesDecoded += uint64(n)
		}
		if err != nil || n == 0 {
			break
		}
	}
	return w.Elapsed(), nil
}

func (w *Wrapper) Close() error { return w.src.Close() }
