package audiodevice

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drgolem/go-portaudio/portaudio"
	"github.com/drgolem/musicplayer/pkg/ringbuffer"
)

func newTestOutput(channels int) *Output {
	o := &Output{
		rb:       ringbuffer.New(64),
		channels: channels,
	}
	o.masterVolume.Store(math.Float32bits(1.0))
	o.trackGain.Store(math.Float32bits(1.0))
	return o
}

func decodeFloat32LE(b []byte) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b))
}

func TestAudioCallbackAppliesVolume(t *testing.T) {
	o := newTestOutput(1)
	o.masterVolume.Store(math.Float32bits(0.5))
	o.trackGain.Store(math.Float32bits(0.5))
	require.True(t, o.rb.Push([]float32{1.0, 1.0}))

	output := make([]byte, 2*4)
	result := o.audioCallback(nil, output, 2, nil, 0)

	assert.Equal(t, portaudio.Continue, result)
	assert.InDelta(t, 0.25, decodeFloat32LE(output[0:4]), 1e-6)
	assert.InDelta(t, 0.25, decodeFloat32LE(output[4:8]), 1e-6)
	assert.EqualValues(t, 2, o.PlayedSamples())
}

func TestAudioCallbackPadsSilenceOnUnderrun(t *testing.T) {
	o := newTestOutput(1)
	output := make([]byte, 4*4)
	for i := range output {
		output[i] = 0xFF
	}

	o.audioCallback(nil, output, 4, nil, 0)

	for i := 0; i < 4; i++ {
		assert.Equal(t, float32(0), decodeFloat32LE(output[i*4:i*4+4]))
	}
	assert.EqualValues(t, 1, o.Underruns())
}

func TestAudioCallbackPartialUnderrunPadsRemainder(t *testing.T) {
	o := newTestOutput(1)
	require.True(t, o.rb.Push([]float32{2.0}))

	output := make([]byte, 3*4)
	o.audioCallback(nil, output, 3, nil, 0)

	assert.InDelta(t, 2.0, decodeFloat32LE(output[0:4]), 1e-6)
	assert.Equal(t, float32(0), decodeFloat32LE(output[4:8]))
	assert.Equal(t, float32(0), decodeFloat32LE(output[8:12]))
}

func TestSetVolumeUpdatesNextCallback(t *testing.T) {
	o := newTestOutput(1)
	o.SetVolume(2.0, 0.5)
	require.True(t, o.rb.Push([]float32{1.0}))

	output := make([]byte, 4)
	o.audioCallback(nil, output, 1, nil, 0)
	assert.InDelta(t, 1.0, decodeFloat32LE(output), 1e-6)
}
