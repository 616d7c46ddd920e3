// ABOUTME: Audio output interface definition
// ABOUTME: Common interface for hardware playback backends
package output

import "errors"

var (
	// ErrDeviceUnavailable is returned by Open when the requested
	// device or format cannot be opened.
	ErrDeviceUnavailable = errors.New("audio device unavailable")

	// ErrDeviceWrite is returned by Write when the device disconnects
	// or enters an invalid state. The pipeline treats it as fatal.
	ErrDeviceWrite = errors.New("audio device write failed")

	// ErrNotOpen is returned by Write before a successful Open.
	ErrNotOpen = errors.New("output not initialized")
)

// Output represents a hardware audio output device. Write blocks until
// the device has consumed or buffered the audio; that backpressure is
// what paces the drain loop to real time.
type Output interface {
	// Open initializes the device for 16-bit PCM at the given format
	Open(sampleRate, channels int) error

	// Write outputs little-endian PCM16 bytes (blocks until written)
	Write(pcm []byte) error

	// Close releases output resources
	Close() error
}
