// ABOUTME: MP3 audio decoder
// ABOUTME: Decodes MP3 payloads and conforms them to the target PCM format
package decode

import (
	"bytes"
	"fmt"
	"io"

	"github.com/hajimehoshi/go-mp3"

	"github.com/LiveTranslate/livetranslate-go/internal/audio"
	"github.com/LiveTranslate/livetranslate-go/pkg/audio/resample"
)

// MP3Decoder decodes self-contained MP3 payloads. go-mp3 always emits
// 16-bit stereo at the stream's own rate, so every payload is downmixed
// to the target channel count and resampled to the target rate before it
// reaches the pipeline.
type MP3Decoder struct {
	format  audio.Format
	rs      *resample.Resampler
	srcRate int
}

// NewMP3 creates an MP3 decoder producing PCM16 in the given format.
func NewMP3(format audio.Format) Decoder {
	return &MP3Decoder{format: format}
}

// Decode converts an MP3 payload to PCM16 bytes in the target format.
func (d *MP3Decoder) Decode(data []byte) ([]byte, error) {
	dec, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create mp3 decoder: %w", err)
	}

	raw, err := io.ReadAll(dec)
	if err != nil {
		return nil, fmt.Errorf("mp3 decode error: %w", err)
	}

	return d.conform(raw, dec.SampleRate())
}

// conform downmixes go-mp3's fixed stereo output to the target channel
// count and resamples from the stream rate to the target rate. Resampler
// state is carried across payloads of the same stream rate.
func (d *MP3Decoder) conform(raw []byte, srcRate int) ([]byte, error) {
	var pcm []byte
	switch d.format.Channels {
	case 2:
		pcm = raw
	case 1:
		pcm = downmixStereo(raw)
	default:
		return nil, fmt.Errorf("unsupported channel count %d for mp3 payloads", d.format.Channels)
	}

	if srcRate == d.format.SampleRate {
		return pcm, nil
	}
	if d.rs == nil || d.srcRate != srcRate {
		rs, err := resample.New(srcRate, d.format.SampleRate, d.format.Channels)
		if err != nil {
			return nil, fmt.Errorf("mp3 rate conversion: %w", err)
		}
		d.rs = rs
		d.srcRate = srcRate
	}
	return d.rs.Process(pcm), nil
}

// downmixStereo averages interleaved stereo PCM16 into mono.
func downmixStereo(pcm []byte) []byte {
	samples := audio.BytesToInt16(pcm)
	mono := make([]int16, len(samples)/2)
	for i := range mono {
		mono[i] = int16((int32(samples[2*i]) + int32(samples[2*i+1])) / 2)
	}
	return audio.Int16ToBytes(mono)
}

// Close releases decoder resources
func (d *MP3Decoder) Close() error {
	return nil
}
