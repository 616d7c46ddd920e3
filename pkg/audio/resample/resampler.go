// ABOUTME: Stateful linear resampler for converting PCM sample rates
// ABOUTME: Carries fractional position and boundary frames across calls
package resample

import (
	"fmt"

	"github.com/LiveTranslate/livetranslate-go/internal/audio"
)

// Resampler converts PCM16 byte streams between sample rates using linear
// interpolation. Internal state (fractional read position plus the frames
// spanning the last call boundary) is carried between Process calls, so
// feeding a stream in arbitrary frame-aligned pieces produces output
// identical to feeding it in one call. Reset only at stream start.
type Resampler struct {
	inputRate  int
	outputRate int
	channels   int
	ratio      float64

	// continuation state
	frac  float64 // fractional offset within the current frame, in [0, 1)
	idx   int     // whole-frame offset still to consume from carry+input
	carry []int16 // unconsumed tail frames from the previous call
}

// New creates a resampler. Rates and channel count must be positive.
func New(inputRate, outputRate, channels int) (*Resampler, error) {
	if inputRate <= 0 || outputRate <= 0 {
		return nil, fmt.Errorf("invalid sample rates: %d -> %d", inputRate, outputRate)
	}
	if channels <= 0 {
		return nil, fmt.Errorf("invalid channel count: %d", channels)
	}

	return &Resampler{
		inputRate:  inputRate,
		outputRate: outputRate,
		channels:   channels,
		ratio:      float64(inputRate) / float64(outputRate),
	}, nil
}

// Process converts pcm from the input rate to the output rate. Input must
// be little-endian PCM16, frame-aligned. When the rates are equal the input
// is returned unchanged and no state accumulates.
func (r *Resampler) Process(pcm []byte) []byte {
	if r.inputRate == r.outputRate {
		return pcm
	}
	if len(pcm) == 0 && len(r.carry) == 0 {
		return nil
	}

	in := audio.BytesToInt16(pcm)
	ext := r.carry
	if len(ext) == 0 {
		ext = in
	} else if len(in) > 0 {
		ext = append(ext, in...)
	}
	frames := len(ext) / r.channels

	var out []int16
	for r.idx+1 < frames {
		for ch := 0; ch < r.channels; ch++ {
			s1 := float64(ext[r.idx*r.channels+ch])
			s2 := float64(ext[(r.idx+1)*r.channels+ch])
			out = append(out, int16(s1*(1.0-r.frac)+s2*r.frac))
		}

		// Advance by one output step. Whole frames move to idx so frac
		// stays in [0, 1) and the accumulation sequence is identical no
		// matter how the stream was split across calls.
		r.frac += r.ratio
		for r.frac >= 1.0 {
			r.frac -= 1.0
			r.idx++
		}
	}

	// Retain the boundary frames the next call still needs
	skip := r.idx
	if skip > frames {
		skip = frames
	}
	r.carry = append([]int16(nil), ext[skip*r.channels:]...)
	r.idx -= skip

	return audio.Int16ToBytes(out)
}

// Reset discards continuation state. Call only when a fresh stream starts,
// never mid-stream.
func (r *Resampler) Reset() {
	r.frac = 0.0
	r.idx = 0
	r.carry = nil
}

// Ratio returns inputRate/outputRate.
func (r *Resampler) Ratio() float64 {
	return r.ratio
}

// OutputLen estimates the output byte count for an input byte count.
func (r *Resampler) OutputLen(inputBytes int) int {
	if r.inputRate == r.outputRate {
		return inputBytes
	}
	frameBytes := r.channels * audio.BytesPerSample
	inFrames := inputBytes / frameBytes
	return int(float64(inFrames)/r.ratio) * frameBytes
}
