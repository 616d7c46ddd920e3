// ABOUTME: Audio output package for playing audio
// ABOUTME: Provides Output interface with oto and malgo implementations
// Package output provides audio playback interfaces.
//
// Backends: oto (persistent player over a blocking pipe) and malgo
// (miniaudio callback with a ring buffer). Both block in Write until
// the device consumes the audio, which is what paces a caller writing
// faster than real time.
//
// Example:
//
//	out := output.NewOto()
//	err := out.Open(48000, 1)
//	err = out.Write(pcm)
package output
