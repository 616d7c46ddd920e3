// ABOUTME: WSOLA time-scale modification for pitch-preserving speed change
// ABOUTME: Overlap-adds similarity-aligned frames to shorten playback time
package tsm

import (
	"fmt"
	"math"

	"github.com/LiveTranslate/livetranslate-go/internal/audio"
)

// unityTolerance is the band around speed 1.0 where the transform is a
// no-op; the cost and artifact risk are not worth it that close to unity.
const unityTolerance = 0.01

// WSOLA compresses PCM16 audio in time without changing pitch using
// waveform-similarity overlap-add. Each Process call is self-contained:
// no state crosses batches, so the same instance may be reused freely.
type WSOLA struct {
	channels  int
	frame     int // analysis/synthesis window length in frames
	synthHop  int // synthesis hop, frame/2 for exact Hann overlap
	tolerance int // similarity search half-range in frames
	window    []float64
}

// New creates a WSOLA processor for interleaved PCM16 at the given rate.
func New(sampleRate, channels int) (*WSOLA, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate: %d", sampleRate)
	}
	if channels <= 0 {
		return nil, fmt.Errorf("invalid channel count: %d", channels)
	}

	// ~25ms window, even so the 50% hop lands on a frame boundary
	frame := sampleRate / 40
	if frame%2 != 0 {
		frame++
	}
	if frame < 64 {
		frame = 64
	}

	w := &WSOLA{
		channels:  channels,
		frame:     frame,
		synthHop:  frame / 2,
		tolerance: frame / 4,
		window:    hann(frame),
	}
	return w, nil
}

// Process returns pcm shortened by the given speed factor, preserving
// pitch. len(out) is approximately len(pcm)/speed. Speeds within 1% of
// unity return the input unchanged. Inputs too short to window are also
// returned unchanged. The caller decides what to do on error; the drain
// loop falls back to the untransformed input.
func (w *WSOLA) Process(pcm []byte, speed float64) ([]byte, error) {
	if math.Abs(speed-1.0) < unityTolerance {
		return pcm, nil
	}
	if speed <= 0 {
		return nil, fmt.Errorf("invalid speed factor: %f", speed)
	}

	frameBytes := w.channels * audio.BytesPerSample
	if len(pcm)%frameBytes != 0 {
		return nil, fmt.Errorf("pcm not frame-aligned: %d bytes", len(pcm))
	}

	in := audio.BytesToInt16(pcm)
	inFrames := len(in) / w.channels
	if inFrames < w.frame*2 {
		// Not enough signal to align windows; a batch this small is a
		// fraction of the catch-up backlog anyway.
		return pcm, nil
	}

	outFrames := int(float64(inFrames) / speed)
	if outFrames < w.frame {
		outFrames = w.frame
	}

	analysisHop := int(float64(w.synthHop)*speed + 0.5)

	acc := make([]float64, outFrames*w.channels)
	den := make([]float64, outFrames)

	prev := 0
	covered := 0
	for k := 0; ; k++ {
		s := k * w.synthHop
		if s+w.frame > outFrames {
			break
		}
		covered = s + w.frame

		// Ideal analysis position for this synthesis frame, then search
		// around it for the best waveform match against the natural
		// continuation of the previously chosen frame.
		a := k * analysisHop
		if k > 0 {
			a = w.bestOffset(in, inFrames, a, prev+w.synthHop)
		}
		if a+w.frame > inFrames {
			a = inFrames - w.frame
		}
		if a < 0 {
			a = 0
		}
		prev = a

		for n := 0; n < w.frame; n++ {
			wn := w.window[n]
			den[s+n] += wn
			for ch := 0; ch < w.channels; ch++ {
				acc[(s+n)*w.channels+ch] += wn * float64(in[(a+n)*w.channels+ch])
			}
		}
	}

	// Drop the uncovered tail rather than emitting silence there; the
	// shortfall is under one hop and the next batch follows immediately.
	outFrames = covered

	out := make([]int16, outFrames*w.channels)
	for i := 0; i < outFrames; i++ {
		d := den[i]
		if d < 1e-6 {
			continue
		}
		for ch := 0; ch < w.channels; ch++ {
			out[i*w.channels+ch] = audio.ClampInt16(int32(math.Round(acc[i*w.channels+ch] / d)))
		}
	}

	return audio.Int16ToBytes(out), nil
}

// bestOffset searches [ideal-tolerance, ideal+tolerance] for the start
// offset whose frame best correlates with the natural continuation at
// pred. Correlation is computed on the channel sum over half a window.
func (w *WSOLA) bestOffset(in []int16, inFrames, ideal, pred int) int {
	cmp := w.synthHop
	if pred < 0 || pred+cmp > inFrames {
		return ideal
	}

	lo := ideal - w.tolerance
	hi := ideal + w.tolerance
	if lo < 0 {
		lo = 0
	}
	if hi > inFrames-w.frame {
		hi = inFrames - w.frame
	}
	if lo > hi {
		return ideal
	}

	best := lo
	bestScore := math.Inf(-1)
	for cand := lo; cand <= hi; cand++ {
		var score float64
		for n := 0; n < cmp; n++ {
			score += w.channelSum(in, cand+n) * w.channelSum(in, pred+n)
		}
		if score > bestScore {
			bestScore = score
			best = cand
		}
	}
	return best
}

// channelSum collapses one interleaved frame to a single search value.
func (w *WSOLA) channelSum(in []int16, frame int) float64 {
	var sum float64
	for ch := 0; ch < w.channels; ch++ {
		sum += float64(in[frame*w.channels+ch])
	}
	return sum
}

// hann returns a periodic Hann window; adjacent windows at 50% overlap
// sum to exactly 1.
func hann(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 0.5 * (1.0 - math.Cos(2.0*math.Pi*float64(i)/float64(n)))
	}
	return w
}
