// ABOUTME: PCM audio decoder
// ABOUTME: Validates and passes through raw 16-bit PCM payloads
package decode

import (
	"fmt"

	"github.com/LiveTranslate/livetranslate-go/internal/audio"
)

// PCMDecoder passes raw PCM16 payloads through unchanged.
type PCMDecoder struct{}

// NewPCM creates a new PCM decoder
func NewPCM() Decoder {
	return &PCMDecoder{}
}

// Decode validates alignment and returns the payload as-is
func (d *PCMDecoder) Decode(data []byte) ([]byte, error) {
	if len(data)%audio.BytesPerSample != 0 {
		return nil, fmt.Errorf("pcm payload not sample-aligned: %d bytes", len(data))
	}
	return data, nil
}

// Close releases resources
func (d *PCMDecoder) Close() error {
	return nil
}
