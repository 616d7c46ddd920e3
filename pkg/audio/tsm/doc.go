// ABOUTME: Package documentation for tsm
// ABOUTME: Describes WSOLA time-scale modification
// Package tsm changes audio playback duration without changing pitch.
//
// The implementation is WSOLA (waveform-similarity overlap-add): the
// input is re-laid as overlapping Hann-windowed frames, each frame taken
// from the position near its ideal analysis point that best continues the
// previous one, so periodic waveforms stay phase-aligned across seams.
//
// Processing is batch-local; no state is carried between calls.
//
// Example:
//
//	w, err := tsm.New(24000, 1)
//	out, err := w.Process(pcm, 1.5) // play 1.5x faster, same pitch
package tsm
