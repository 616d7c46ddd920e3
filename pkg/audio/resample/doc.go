// ABOUTME: Package documentation for resample
// ABOUTME: Describes the stream-continuous linear resampler
// Package resample converts PCM16 audio between sample rates.
//
// The resampler is stream-continuous: fractional position and boundary
// frames are carried between calls, so a long stream may be processed in
// pieces of any frame-aligned size without audible seams. The same
// instance must therefore never be shared between streams; call Reset
// when a new stream starts.
//
// Example:
//
//	r, err := resample.New(24000, 48000, 1)
//	out := r.Process(chunk) // repeat per chunk, state carries over
package resample
