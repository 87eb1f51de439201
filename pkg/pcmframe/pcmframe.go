// Package pcmframe defines the packet type produced by a Decoder
// Adapter (DEC, spec §4.3): a chunk of interleaved float32 PCM samples
// tagged with the format it was decoded at.
//
// Adapted from the teacher's audioframe package (binary AudioFrame
// header), changed from a byte payload to a float32 payload since the
// pipeline (DEC -> SRC -> RB) works in float samples end to end. The
// player is single-process, so Frame carries no wire encoding — it
// only ever moves in memory, from a Decoder to the Audio Pipeline
// Controller.
package pcmframe

// Format describes the PCM format a Frame's samples were decoded at.
type Format struct {
	SampleRate uint32
	Channels   uint8
}

// Frame is one decoded chunk of interleaved float32 PCM samples.
type Frame struct {
	Format  Format
	Samples []float32
}
