// ABOUTME: Decoder interface definition
// ABOUTME: Common interface for provider audio payload decoders
package decode

import (
	"fmt"

	"github.com/LiveTranslate/livetranslate-go/internal/audio"
)

// Decoder converts a provider audio payload to raw little-endian PCM16
// bytes at the provider's native rate.
type Decoder interface {
	// Decode converts one payload to PCM16 bytes
	Decode(data []byte) ([]byte, error)

	// Close releases decoder resources
	Close() error
}

// New creates a decoder for the given payload codec.
func New(codec string, format audio.Format) (Decoder, error) {
	switch codec {
	case "pcm", "pcm16":
		return NewPCM(), nil
	case "mp3":
		return NewMP3(format), nil
	case "opus":
		return NewOpus(format)
	default:
		return nil, fmt.Errorf("unsupported codec: %s", codec)
	}
}
