package wav

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeMinimalWAV writes a canonical 44-byte-header PCM WAV file with
// numFrames silent frames at the given rate/channels/bitsPerSample.
func writeMinimalWAV(t *testing.T, path string, rate, channels, bitsPerSample, numFrames int) {
	t.Helper()

	bytesPerFrame := channels * (bitsPerSample / 8)
	dataSize := numFrames * bytesPerFrame
	byteRate := rate * bytesPerFrame

	buf := make([]byte, 44+dataSize)
	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(36+dataSize))
	copy(buf[8:12], "WAVE")
	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16)
	binary.LittleEndian.PutUint16(buf[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(buf[22:24], uint16(channels))
	binary.LittleEndian.PutUint32(buf[24:28], uint32(rate))
	binary.LittleEndian.PutUint32(buf[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(buf[32:34], uint16(bytesPerFrame))
	binary.LittleEndian.PutUint16(buf[34:36], uint16(bitsPerSample))
	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(dataSize))

	require.NoError(t, os.WriteFile(path, buf, 0o644))
}

func TestTotalSamplesDerivedFromDataChunkSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tone.wav")
	writeMinimalWAV(t, path, 44100, 2, 16, 44100*2) // 2 seconds

	s := &source{}
	require.NoError(t, s.Open(path))
	defer s.Close()

	assert.EqualValues(t, 44100*2, s.TotalSamples())
}

func TestDataChunkSampleCountSkipsLeadingChunks(t *testing.T) {
	rate, channels, bits := 8000, 1, 16
	numFrames := 4000

	bytesPerFrame := channels * (bits / 8)
	dataSize := numFrames * bytesPerFrame
	byteRate := rate * bytesPerFrame

	extra := []byte("LIST") // a chunk preceding "data", word-aligned, size 4
	extraBody := []byte{1, 2, 3, 4}

	var buf []byte
	buf = append(buf, []byte("RIFF")...)
	buf = append(buf, make([]byte, 4)...) // riff size placeholder
	buf = append(buf, []byte("WAVE")...)
	buf = append(buf, []byte("fmt ")...)
	sizeBuf := make([]byte, 4)
	binary.LittleEndian.PutUint32(sizeBuf, 16)
	buf = append(buf, sizeBuf...)

	fmtBody := make([]byte, 16)
	binary.LittleEndian.PutUint16(fmtBody[0:2], 1)
	binary.LittleEndian.PutUint16(fmtBody[2:4], uint16(channels))
	binary.LittleEndian.PutUint32(fmtBody[4:8], uint32(rate))
	binary.LittleEndian.PutUint32(fmtBody[8:12], uint32(byteRate))
	binary.LittleEndian.PutUint16(fmtBody[12:14], uint16(bytesPerFrame))
	binary.LittleEndian.PutUint16(fmtBody[14:16], uint16(bits))
	buf = append(buf, fmtBody...)

	buf = append(buf, extra...)
	extraSizeBuf := make([]byte, 4)
	binary.LittleEndian.PutUint32(extraSizeBuf, uint32(len(extraBody)))
	buf = append(buf, extraSizeBuf...)
	buf = append(buf, extraBody...)

	buf = append(buf, []byte("data")...)
	dataSizeBuf := make([]byte, 4)
	binary.LittleEndian.PutUint32(dataSizeBuf, uint32(dataSize))
	buf = append(buf, dataSizeBuf...)
	buf = append(buf, make([]byte, dataSize)...)

	binary.LittleEndian.PutUint32(buf[4:8], uint32(len(buf)-8))

	path := filepath.Join(t.TempDir(), "withchunks.wav")
	require.NoError(t, os.WriteFile(path, buf, 0o644))

	total, err := dataChunkSampleCount(path, channels, bits)
	require.NoError(t, err)
	assert.EqualValues(t, numFrames, total)
}
