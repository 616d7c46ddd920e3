// ABOUTME: Opus audio decoder
// ABOUTME: Decodes Opus frames to 16-bit PCM bytes
package decode

import (
	"fmt"

	"github.com/LiveTranslate/livetranslate-go/internal/audio"
	"github.com/hraban/opus"
)

// maxOpusFrameSamples is the largest frame Opus allows (120ms at 48kHz).
const maxOpusFrameSamples = 5760

// OpusDecoder decodes Opus frames.
type OpusDecoder struct {
	decoder *opus.Decoder
	format  audio.Format
}

// NewOpus creates a new Opus decoder for the given stream format
func NewOpus(format audio.Format) (Decoder, error) {
	dec, err := opus.NewDecoder(format.SampleRate, format.Channels)
	if err != nil {
		return nil, fmt.Errorf("failed to create opus decoder: %w", err)
	}

	return &OpusDecoder{
		decoder: dec,
		format:  format,
	}, nil
}

// Decode converts one Opus frame to PCM16 bytes
func (d *OpusDecoder) Decode(data []byte) ([]byte, error) {
	pcm16 := make([]int16, maxOpusFrameSamples*d.format.Channels)

	n, err := d.decoder.Decode(data, pcm16)
	if err != nil {
		return nil, fmt.Errorf("opus decode failed: %w", err)
	}

	return audio.Int16ToBytes(pcm16[:n*d.format.Channels]), nil
}

// Close releases decoder resources
func (d *OpusDecoder) Close() error {
	return nil
}
