// Package audiodevice is the Audio Output Driver (AOD, spec §4.4): it
// opens a named PortAudio output device and runs a realtime callback
// that pops samples from a ring buffer, applies volume, and writes
// silence on underrun.
package audiodevice

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"github.com/drgolem/go-portaudio/portaudio"

	"github.com/drgolem/musicplayer/pkg/apperr"
	"github.com/drgolem/musicplayer/pkg/ringbuffer"
)

// Device describes one enumerated output device.
type Device struct {
	Index             int
	Name              string
	MaxOutputChannels int
	DefaultSampleRate float64
}

// ListDevices enumerates the host's PortAudio output devices.
func ListDevices() ([]Device, error) {
	count, err := portaudio.GetDeviceCount()
	if err != nil {
		return nil, apperr.DeviceError("audiodevice.ListDevices", err)
	}

	devices := make([]Device, 0, count)
	for i := 0; i < count; i++ {
		info, err := portaudio.GetDeviceInfo(i)
		if err != nil || info.MaxOutputChannels <= 0 {
			continue
		}
		devices = append(devices, Device{
			Index:             i,
			Name:              info.Name,
			MaxOutputChannels: info.MaxOutputChannels,
			DefaultSampleRate: info.DefaultSampleRate,
		})
	}
	return devices, nil
}

// DefaultDevice returns the host's default output device.
func DefaultDevice() (Device, error) {
	idx, err := portaudio.GetDefaultOutputDevice()
	if err != nil {
		return Device{}, apperr.DeviceError("audiodevice.DefaultDevice", err)
	}
	info, err := portaudio.GetDeviceInfo(idx)
	if err != nil {
		return Device{}, apperr.DeviceError("audiodevice.DefaultDevice", err)
	}
	return Device{
		Index:             idx,
		Name:              info.Name,
		MaxOutputChannels: info.MaxOutputChannels,
		DefaultSampleRate: info.DefaultSampleRate,
	}, nil
}

// Output drives one open PortAudio output stream, pulling samples from
// rb in its realtime callback. Callers own rb's producer side; Output
// only ever pops.
type Output struct {
	rb *ringbuffer.RingBuffer

	mu              sync.Mutex // guards stream during SetSampleRate
	stream          *portaudio.PaStream
	deviceIndex     int
	channels        int
	sampleRate      int
	framesPerBuffer int
	scratch         []float32

	masterVolume atomic.Uint32 // math.Float32bits, default 1.0
	trackGain    atomic.Uint32 // math.Float32bits, default 1.0

	playedSamples atomic.Uint64
	underruns     atomic.Uint64
	lastErr       atomic.Pointer[error]
}

// Open opens deviceIndex at sampleRate with the given channel count and
// starts the realtime callback immediately.
func Open(rb *ringbuffer.RingBuffer, deviceIndex, sampleRate, channels, framesPerBuffer int) (*Output, error) {
	o := &Output{
		rb:              rb,
		deviceIndex:     deviceIndex,
		sampleRate:      sampleRate,
		channels:        channels,
		framesPerBuffer: framesPerBuffer,
		scratch:         make([]float32, framesPerBuffer*channels),
	}
	o.masterVolume.Store(math.Float32bits(1.0))
	o.trackGain.Store(math.Float32bits(1.0))

	if err := o.openStream(); err != nil {
		return nil, err
	}
	return o, nil
}

func (o *Output) openStream() error {
	stream := &portaudio.PaStream{
		OutputParameters: &portaudio.PaStreamParameters{
			DeviceIndex:  o.deviceIndex,
			ChannelCount: o.channels,
			SampleFormat: portaudio.SampleFmtFloat32,
		},
		SampleRate: float64(o.sampleRate),
	}

	if err := stream.OpenCallback(o.framesPerBuffer, o.audioCallback); err != nil {
		return apperr.DeviceError("audiodevice.Open", fmt.Errorf("open stream: %w", err))
	}
	if err := stream.StartStream(); err != nil {
		return apperr.DeviceError("audiodevice.Open", fmt.Errorf("start stream: %w", err))
	}

	o.stream = stream
	return nil
}

// SetSampleRate reconfigures the stream in place by closing and
// reopening it at the new rate. In-flight samples already in rb are
// preserved; nothing is dropped beyond what a fresh stream naturally
// discards from its own internal PortAudio buffering.
func (o *Output) SetSampleRate(rate int) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if rate == o.sampleRate {
		return nil
	}

	if o.stream != nil {
		_ = o.stream.StopStream()
		_ = o.stream.CloseCallback()
		o.stream = nil
	}
	o.sampleRate = rate
	return o.openStream()
}

// SetVolume sets the master and per-track gain multipliers applied in
// the realtime callback.
func (o *Output) SetVolume(master, trackGain float32) {
	o.masterVolume.Store(math.Float32bits(master))
	o.trackGain.Store(math.Float32bits(trackGain))
}

// Err returns the most recent device-level error observed by the
// callback (e.g. a device disappearing), or nil. APC polls this on
// each pump per spec §4.4's "surface as Error on next APC pump".
func (o *Output) Err() error {
	if p := o.lastErr.Load(); p != nil {
		return *p
	}
	return nil
}

// MasterVolume returns the currently configured master volume
// multiplier, so callers that only want to change per-track gain (e.g.
// on Load) can read it back instead of clobbering it with an assumed
// default.
func (o *Output) MasterVolume() float32 {
	return math.Float32frombits(o.masterVolume.Load())
}

// PlayedSamples returns the count of per-channel frames written to the
// device so far (not counting underrun-filled silence).
func (o *Output) PlayedSamples() uint64 { return o.playedSamples.Load() }

// Underruns returns the count of callback invocations that found rb
// empty and wrote only silence, plus those PortAudio flagged with an
// output underflow. A callback that pads only part of its buffer is not
// counted.
func (o *Output) Underruns() uint64 { return o.underruns.Load() }

func (o *Output) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.stream == nil {
		return nil
	}
	if err := o.stream.StopStream(); err != nil {
		return apperr.DeviceError("audiodevice.Close", err)
	}
	if err := o.stream.CloseCallback(); err != nil {
		return apperr.DeviceError("audiodevice.Close", err)
	}
	o.stream = nil
	return nil
}

// audioCallback runs on PortAudio's realtime thread, not a goroutine:
// it must not allocate, block, or perform I/O. It pops interleaved
// float32 samples from rb, applies master_volume*track_gain, and pads
// with silence on underrun, per spec §4.4 steps 1-3. Its scratch buffer
// is allocated in Open for framesPerBuffer frames and only grows if a
// callback is handed more frames than that.
func (o *Output) audioCallback(
	_, output []byte,
	frameCount uint,
	_ *portaudio.StreamCallbackTimeInfo,
	statusFlags portaudio.StreamCallbackFlags,
) portaudio.StreamCallbackResult {
	n := int(frameCount) * o.channels
	if cap(o.scratch) < n {
		o.scratch = make([]float32, n)
	}
	scratch := o.scratch[:n]

	got := o.rb.Pop(scratch)
	vol := math.Float32frombits(o.masterVolume.Load()) * math.Float32frombits(o.trackGain.Load())

	off := 0
	for i := 0; i < got; i++ {
		bits := math.Float32bits(scratch[i] * vol)
		binary.LittleEndian.PutUint32(output[off:off+4], bits)
		off += 4
	}
	if got < n {
		clear(output[off : n*4])
		if got == 0 {
			o.underruns.Add(1)
		}
	}
	o.playedSamples.Add(uint64(got / o.channels))

	if statusFlags&portaudio.OutputUnderflow != 0 {
		o.underruns.Add(1)
	}
	return portaudio.Continue
}
