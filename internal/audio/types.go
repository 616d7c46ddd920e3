// ABOUTME: Audio type definitions
// ABOUTME: Defines PCM formats and sample conversion helpers
package audio

import (
	"encoding/binary"
	"time"
)

// BytesPerSample is the width of one 16-bit PCM sample.
const BytesPerSample = 2

// Format describes a raw PCM16 stream.
type Format struct {
	SampleRate int
	Channels   int
}

// FrameBytes returns the byte width of one interleaved frame.
func (f Format) FrameBytes() int {
	return f.Channels * BytesPerSample
}

// BytesPerSecond returns the data rate of the format.
func (f Format) BytesPerSecond() int {
	return f.SampleRate * f.FrameBytes()
}

// Duration returns the play time of a PCM buffer in this format.
func (f Format) Duration(pcm []byte) time.Duration {
	if f.BytesPerSecond() == 0 {
		return 0
	}
	frames := len(pcm) / f.FrameBytes()
	return time.Duration(frames) * time.Second / time.Duration(f.SampleRate)
}

// BytesToInt16 converts little-endian PCM16 bytes to samples.
// Trailing odd bytes are ignored.
func BytesToInt16(pcm []byte) []int16 {
	samples := make([]int16, len(pcm)/BytesPerSample)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(pcm[i*BytesPerSample:]))
	}
	return samples
}

// Int16ToBytes converts samples to little-endian PCM16 bytes.
func Int16ToBytes(samples []int16) []byte {
	pcm := make([]byte, len(samples)*BytesPerSample)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(pcm[i*BytesPerSample:], uint16(s))
	}
	return pcm
}

// ClampInt16 saturates a wider value into the int16 range.
func ClampInt16(v int32) int16 {
	if v > 32767 {
		return 32767
	}
	if v < -32768 {
		return -32768
	}
	return int16(v)
}
