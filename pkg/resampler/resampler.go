// Package resampler implements the integer-ratio linear interpolator
// used to bridge a decoder's native sample rate and the output
// device's configured rate.
package resampler

// Resampler converts interleaved float32 frames from one sample rate
// to another using linear interpolation between adjacent input
// frames. State is carried across Process calls so a multi-packet
// stream resamples continuously across packet boundaries; call Flush
// once the input is exhausted to emit the final held frame.
type Resampler struct {
	from, to uint32 // reduced by gcd
	channels int

	current []float32
	next    []float32
	haveCur bool
	haveNxt bool

	pos uint64 // accumulator, in [0, to) whenever an output sample is interpolated
}

// New builds a Resampler for channels-interleaved audio converting
// fromRate to toRate.
func New(fromRate, toRate uint32, channels int) *Resampler {
	r := &Resampler{channels: channels}
	r.Reset(fromRate, toRate)
	return r
}

// Reset reconfigures the rates and clears all interpolation state, as
// required when the input is swapped for a new track.
func (r *Resampler) Reset(fromRate, toRate uint32) {
	g := gcd(fromRate, toRate)
	if g == 0 {
		g = 1
	}
	r.from = fromRate / g
	r.to = toRate / g
	r.current = nil
	r.next = nil
	r.haveCur = false
	r.haveNxt = false
	r.pos = 0
}

// PassThrough reports whether from and to rates are equal, in which
// case Process is a bit-identical copy.
func (r *Resampler) PassThrough() bool { return r.from == r.to }

// Process consumes as many complete input frames as needed from input
// (interleaved, channels samples per frame) and returns the
// interleaved output it can produce with the frames available so far.
// Frames left over after the last full input/output pair are held
// internally and consumed on the next call.
func (r *Resampler) Process(input []float32) []float32 {
	if r.channels == 0 || len(input) == 0 {
		return nil
	}

	if r.PassThrough() {
		out := make([]float32, len(input))
		copy(out, input)
		return out
	}

	i := 0 // frame cursor into input
	nextFrame := func() ([]float32, bool) {
		start := i * r.channels
		if start+r.channels > len(input) {
			return nil, false
		}
		i++
		return input[start : start+r.channels], true
	}

	for !r.haveCur {
		f, ok := nextFrame()
		if !ok {
			return nil
		}
		r.current = append(r.current[:0], f...)
		r.haveCur = true
	}
	for !r.haveNxt {
		f, ok := nextFrame()
		if !ok {
			return nil
		}
		r.next = append(r.next[:0], f...)
		r.haveNxt = true
	}

	// Finish an input advance that the previous call cut short when its
	// input ran out, so pos is back in [0, to) before interpolating.
	for r.pos >= uint64(r.to) {
		r.pos -= uint64(r.to)
		r.current = append(r.current[:0], r.next...)

		f, ok := nextFrame()
		if !ok {
			r.haveNxt = false
			return nil
		}
		r.next = append(r.next[:0], f...)
	}

	var out []float32
	for {
		frac := float32(r.pos) / float32(r.to)
		for ch := 0; ch < r.channels; ch++ {
			out = append(out, r.current[ch]+(r.next[ch]-r.current[ch])*frac)
		}

		r.pos += uint64(r.from)
		for r.pos >= uint64(r.to) {
			r.pos -= uint64(r.to)
			r.current = append(r.current[:0], r.next...)

			f, ok := nextFrame()
			if !ok {
				r.haveNxt = false
				return out
			}
			r.next = append(r.next[:0], f...)
		}
	}
}

// Flush returns the final held frame verbatim once the input has been
// fully consumed (Process returned after exhausting it), then clears
// state so a later Reset starts clean. Returns nil if there is no held
// frame to drain.
func (r *Resampler) Flush() []float32 {
	if r.PassThrough() || !r.haveCur {
		r.haveCur = false
		return nil
	}
	out := append([]float32(nil), r.current...)
	r.haveCur = false
	r.haveNxt = false
	return out
}

func gcd(a, b uint32) uint32 {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}
