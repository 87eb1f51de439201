// Package pipeline is the Audio Pipeline Controller (APC, spec §4.5):
// the single owner of one active decoder, sample-rate converter, ring
// buffer, and audio output device. It runs a decode loop on its own
// goroutine, serviced by a bounded command channel, and exposes
// atomic state/elapsed/duration snapshots for the UI thread.
package pipeline

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/drgolem/musicplayer/pkg/apperr"
	"github.com/drgolem/musicplayer/pkg/audiodevice"
	"github.com/drgolem/musicplayer/pkg/decode"
	"github.com/drgolem/musicplayer/pkg/model"
	"github.com/drgolem/musicplayer/pkg/resampler"
	"github.com/drgolem/musicplayer/pkg/ringbuffer"
	"github.com/drgolem/musicplayer/pkg/types"
)

// commandQueueCapacity matches spec §5's "bounded command channel
// (capacity ≈ 5)".
const commandQueueCapacity = 5

// commandSendTimeout bounds how long a caller's command can block on a
// full queue, per spec §5's "Push on full is allowed to block
// briefly".
const commandSendTimeout = 2 * time.Second

type cmdKind int

const (
	cmdLoad cmdKind = iota
	cmdRestore
	cmdPlay
	cmdPause
	cmdSeek
	cmdSetDevice
	cmdStop
)

type command struct {
	kind        cmdKind
	song        model.Song
	elapsedSecs float64
	seconds     float64
	deviceIndex int
	reply       chan error
}

// Config configures a new Pipeline.
type Config struct {
	DeviceIndex     int
	SampleRate      int // initial AOD sample rate
	Channels        int
	FramesPerBuffer int
	RingCapacity    uint64 // samples; rounded up to a power of 2
}

// DefaultConfig mirrors the teacher's audioplayer.DefaultConfig
// defaults, adapted to float32 samples.
func DefaultConfig() Config {
	return Config{
		DeviceIndex:     0,
		SampleRate:      44100,
		Channels:        2,
		FramesPerBuffer: 512,
		RingCapacity:    64 * 1024,
	}
}

// outputDevice is the subset of *audiodevice.Output the pipeline
// drives. Depending on the interface rather than the concrete type
// lets tests substitute a fake in place of a real PortAudio stream.
type outputDevice interface {
	SetSampleRate(rate int) error
	SetVolume(master, trackGain float32)
	Err() error
	PlayedSamples() uint64
	MasterVolume() float32
	Close() error
}

// outputOpener opens a new outputDevice, mirroring audiodevice.Open's
// signature. Tests override this to avoid touching real hardware.
type outputOpener func(rb *ringbuffer.RingBuffer, deviceIndex, sampleRate, channels, framesPerBuffer int) (outputDevice, error)

func openRealOutput(rb *ringbuffer.RingBuffer, deviceIndex, sampleRate, channels, framesPerBuffer int) (outputDevice, error) {
	return audiodevice.Open(rb, deviceIndex, sampleRate, channels, framesPerBuffer)
}

// Pipeline is the APC. All decoder/resampler state is touched only
// from the single run() goroutine that New starts — both command handling and
// packet pumping happen serialized on that goroutine, so none of it
// needs its own lock.
type Pipeline struct {
	cmds     chan command
	quit     chan struct{}
	stopOnce sync.Once

	rb  *ringbuffer.RingBuffer
	out outputDevice

	deviceIndex     int
	outputRate      int
	outputChannels  int
	framesPerBuffer int

	dec    decode.Decoder
	resamp *resampler.Resampler

	openDecoder func(path string) (decode.Decoder, error)
	openOutput  outputOpener

	snapMu sync.RWMutex
	snap   types.PlaybackStatus

	lastErr atomic.Pointer[error]
}

// New opens the initial audio device and starts the decode-loop
// goroutine. State begins Stopped.
func New(cfg Config) (*Pipeline, error) {
	rb := ringbuffer.New(cfg.RingCapacity)
	out, err := openRealOutput(rb, cfg.DeviceIndex, cfg.SampleRate, cfg.Channels, cfg.FramesPerBuffer)
	if err != nil {
		return nil, err
	}

	p := newPipeline(cfg, rb, out, decode.Open, openRealOutput)
	go p.run()
	return p, nil
}

// newPipeline builds a Pipeline around an already-open output device,
// with the decoder and device-reopen factories left injectable for
// tests. State begins Stopped. The caller starts run() itself.
func newPipeline(cfg Config, rb *ringbuffer.RingBuffer, out outputDevice, openDecoder func(string) (decode.Decoder, error), openOutput outputOpener) *Pipeline {
	p := &Pipeline{
		cmds:            make(chan command, commandQueueCapacity),
		quit:            make(chan struct{}),
		rb:              rb,
		out:             out,
		deviceIndex:     cfg.DeviceIndex,
		outputRate:      cfg.SampleRate,
		outputChannels:  cfg.Channels,
		framesPerBuffer: cfg.FramesPerBuffer,
		openDecoder:     openDecoder,
		openOutput:      openOutput,
	}
	p.snap.State = types.StateStopped
	return p
}

// Load opens song.Path, installs song.ReplayGain as the per-track
// gain, and transitions to Playing (spec §4.5's Load command). Elapsed
// resets to zero.
func (p *Pipeline) Load(song model.Song) error {
	return p.send(command{kind: cmdLoad, song: song})
}

// Restore is Load followed by a seek to elapsedSeconds, landing in
// Paused rather than Playing — used to resume a queue position across
// restarts without audibly starting playback.
func (p *Pipeline) Restore(song model.Song, elapsedSeconds float64) error {
	return p.send(command{kind: cmdRestore, song: song, elapsedSecs: elapsedSeconds})
}

// Play resumes a paused decoder.
func (p *Pipeline) Play() error { return p.send(command{kind: cmdPlay}) }

// Pause halts the decode loop's packet pushes; AOD naturally underruns
// to silence.
func (p *Pipeline) Pause() error { return p.send(command{kind: cmdPause}) }

// Seek seeks the active decoder and flushes the ring buffer.
func (p *Pipeline) Seek(seconds float64) error {
	return p.send(command{kind: cmdSeek, seconds: seconds})
}

// SetDevice reopens the audio output device at deviceIndex; the ring
// buffer (and whatever it holds) is preserved.
func (p *Pipeline) SetDevice(deviceIndex int) error {
	return p.send(command{kind: cmdSetDevice, deviceIndex: deviceIndex})
}

// Stop drops the active decoder and flushes the ring buffer.
func (p *Pipeline) Stop() {
	_ = p.send(command{kind: cmdStop})
}

// SetVolume sets master/track gain multipliers applied in the AOD
// callback. Unlike the other commands this bypasses the decode-loop
// goroutine entirely: it touches only the AOD's atomics, which are
// already safe for concurrent use from any thread.
func (p *Pipeline) SetVolume(master, trackGain float32) {
	p.out.SetVolume(master, trackGain)
}

// State returns the current APC state.
func (p *Pipeline) State() types.PlayerState {
	p.snapMu.RLock()
	defer p.snapMu.RUnlock()
	return p.snap.State
}

// GetPlaybackStatus implements types.PlaybackMonitor.
func (p *Pipeline) GetPlaybackStatus() types.PlaybackStatus {
	p.snapMu.RLock()
	defer p.snapMu.RUnlock()
	snap := p.snap
	snap.BufferedSamples = p.rb.AvailableRead()
	snap.PlayedSamples = p.out.PlayedSamples()
	return snap
}

// Err returns the most recent pipeline-observed error (decode or
// device), or nil.
func (p *Pipeline) Err() error {
	if e := p.lastErr.Load(); e != nil {
		return *e
	}
	return nil
}

// Close stops the decode-loop goroutine and releases the audio
// device. The Pipeline must not be used afterward.
func (p *Pipeline) Close() error {
	p.stopOnce.Do(func() { close(p.quit) })
	p.rb.Close()
	return p.out.Close()
}

// send enqueues cmd and waits for the decode-loop goroutine's reply,
// bounded by commandSendTimeout so a stuck pipeline cannot hang a
// caller forever.
func (p *Pipeline) send(cmd command) error {
	cmd.reply = make(chan error, 1)
	select {
	case p.cmds <- cmd:
	case <-time.After(commandSendTimeout):
		return apperr.DeviceError("pipeline.send", errors.New("command queue full"))
	case <-p.quit:
		return apperr.DeviceError("pipeline.send", errors.New("pipeline closed"))
	}

	select {
	case err := <-cmd.reply:
		return err
	case <-p.quit:
		return apperr.DeviceError("pipeline.send", errors.New("pipeline closed"))
	}
}

// run is the decode loop: spec §5's "single logical worker" that
// services commands and, while Playing, pumps decoded packets into the
// ring buffer with a zero-timeout poll of its command channel between
// packets.
func (p *Pipeline) run() {
	for {
		select {
		case <-p.quit:
			return
		case cmd := <-p.cmds:
			cmd.reply <- p.handle(cmd)
			continue
		default:
		}

		if p.State() != types.StatePlaying {
			select {
			case <-p.quit:
				return
			case cmd := <-p.cmds:
				cmd.reply <- p.handle(cmd)
			}
			continue
		}

		p.checkDeviceHealth()
		p.pump()
	}
}

func (p *Pipeline) handle(cmd command) error {
	switch cmd.kind {
	case cmdLoad:
		return p.doLoad(cmd.song, types.StatePlaying, 0)
	case cmdRestore:
		return p.doLoad(cmd.song, types.StatePaused, cmd.elapsedSecs)
	case cmdPlay:
		return p.doPlay()
	case cmdPause:
		return p.doPause()
	case cmdSeek:
		return p.doSeek(cmd.seconds)
	case cmdSetDevice:
		return p.doSetDevice(cmd.deviceIndex)
	case cmdStop:
		return p.doStop()
	default:
		return nil
	}
}

func (p *Pipeline) doLoad(song model.Song, targetState types.PlayerState, seekSeconds float64) error {
	p.closeDecoderLocked()

	dec, err := p.openDecoder(song.Path)
	if err != nil {
		p.setState(types.StateStopped)
		return err
	}

	elapsed := time.Duration(0)
	if seekSeconds > 0 {
		elapsed, err = dec.Seek(seekSeconds)
		if err != nil {
			dec.Close()
			p.setState(types.StateStopped)
			return err
		}
	}

	p.dec = dec
	p.configureRate(dec.SampleRate(), dec.Channels())

	trackGain := song.ReplayGain
	if trackGain <= 0 {
		trackGain = 1.0
	}
	p.out.SetVolume(p.out.MasterVolume(), trackGain)

	p.rb.Flush()

	p.snapMu.Lock()
	p.snap = types.PlaybackStatus{
		FileName:   song.Path,
		SampleRate: dec.SampleRate(),
		Channels:   dec.Channels(),
		State:      targetState,
		Elapsed:    elapsed,
		Duration:   dec.TotalDuration(),
	}
	p.snapMu.Unlock()

	return nil
}

func (p *Pipeline) doPlay() error {
	if p.dec == nil {
		return apperr.NotFound("pipeline.Play", errors.New("no track loaded"))
	}
	p.setState(types.StatePlaying)
	return nil
}

func (p *Pipeline) doPause() error {
	if p.dec == nil {
		return apperr.NotFound("pipeline.Pause", errors.New("no track loaded"))
	}
	p.setState(types.StatePaused)
	return nil
}

func (p *Pipeline) doSeek(seconds float64) error {
	if p.dec == nil {
		return apperr.NotFound("pipeline.Seek", errors.New("no track loaded"))
	}
	elapsed, err := p.dec.Seek(seconds)
	if err != nil {
		return apperr.IoError("pipeline.Seek", err)
	}
	p.rb.Flush()
	if p.resamp != nil {
		p.resamp.Reset(uint32(p.dec.SampleRate()), uint32(p.outputRate))
	}

	p.snapMu.Lock()
	p.snap.Elapsed = elapsed
	p.snapMu.Unlock()
	return nil
}

func (p *Pipeline) doSetDevice(deviceIndex int) error {
	if err := p.out.Close(); err != nil {
		slog.Warn("failed to close audio output before reopening", "error", err)
	}

	out, err := p.openOutput(p.rb, deviceIndex, p.outputRate, p.outputChannels, p.framesPerBuffer)
	if err != nil {
		return err
	}
	p.out = out
	p.deviceIndex = deviceIndex
	return nil
}

func (p *Pipeline) doStop() error {
	p.closeDecoderLocked()
	p.rb.Flush()
	p.setState(types.StateStopped)
	return nil
}

func (p *Pipeline) closeDecoderLocked() {
	if p.dec != nil {
		if err := p.dec.Close(); err != nil {
			slog.Warn("failed to close decoder", "error", err)
		}
		p.dec = nil
	}
	p.resamp = nil
}

// configureRate prefers reconfiguring the output device to the
// decoder's native rate (bit-perfect); if the device can't be
// reconfigured, it falls back to resampling the decoder's output to
// whatever rate the device is already running at (spec §4.5:
// "attempt AOD.set_sample_rate; on failure, reopen AOD at the new
// rate" — reopening at an arbitrary rate isn't always possible on real
// hardware, so SRC is the practical fallback here).
func (p *Pipeline) configureRate(decRate, channels int) {
	if decRate == p.outputRate {
		p.resamp = nil
		return
	}
	if err := p.out.SetSampleRate(decRate); err == nil {
		p.outputRate = decRate
		p.resamp = nil
		return
	}
	p.resamp = resampler.New(uint32(decRate), uint32(p.outputRate), channels)
}

func (p *Pipeline) pump() {
	frame, err := p.dec.NextPacket()
	if errors.Is(err, io.EOF) {
		p.setState(types.StateFinished)
		return
	}
	if err != nil {
		p.recordErr(apperr.IoError("pipeline.pump", err))
		p.closeDecoderLocked()
		p.setState(types.StateStopped)
		return
	}

	samples := frame.Samples
	if p.resamp != nil {
		samples = p.resamp.Process(samples)
	}
	if len(samples) > 0 {
		p.rb.Push(samples)
	}

	p.snapMu.Lock()
	p.snap.Elapsed = p.dec.Elapsed()
	p.snapMu.Unlock()
}

// checkDeviceHealth surfaces an AOD-reported device error to the next
// pump, per spec §4.4, and attempts to reopen the same device.
func (p *Pipeline) checkDeviceHealth() {
	err := p.out.Err()
	if err == nil {
		return
	}
	p.recordErr(err)
	if reopenErr := p.doSetDevice(p.deviceIndex); reopenErr != nil {
		slog.Warn("failed to reopen audio device after error", "error", reopenErr)
	}
}

func (p *Pipeline) setState(state types.PlayerState) {
	p.snapMu.Lock()
	p.snap.State = state
	p.snapMu.Unlock()
}

func (p *Pipeline) recordErr(err error) {
	p.lastErr.Store(&err)
}
