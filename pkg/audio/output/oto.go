// ABOUTME: Oto-based audio output implementation
// ABOUTME: Streams PCM through a persistent player fed by a blocking pipe
package output

import (
	"fmt"
	"io"
	"log"

	"github.com/ebitengine/oto/v3"
)

// Oto output implementation using the oto library
type Oto struct {
	otoCtx     *oto.Context
	player     *oto.Player
	pipeReader *io.PipeReader
	pipeWriter *io.PipeWriter
	sampleRate int
	channels   int
	ready      bool
}

// NewOto creates a new Oto output
func NewOto() Output {
	return &Oto{}
}

// Open initializes the output device
func (o *Oto) Open(sampleRate, channels int) error {
	// oto allows one context per process; reuse when the format matches
	if o.otoCtx != nil && o.sampleRate == sampleRate && o.channels == channels {
		if o.ready {
			return nil
		}
		return o.startPlayer()
	}
	if o.otoCtx != nil {
		return fmt.Errorf("%w: oto cannot reopen with a different format (%dHz/%dch -> %dHz/%dch)",
			ErrDeviceUnavailable, o.sampleRate, o.channels, sampleRate, channels)
	}

	op := &oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: channels,
		Format:       oto.FormatSignedInt16LE,
	}

	ctx, readyChan, err := oto.NewContext(op)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}

	<-readyChan

	o.otoCtx = ctx
	o.sampleRate = sampleRate
	o.channels = channels

	if err := o.startPlayer(); err != nil {
		return err
	}

	log.Printf("Audio output initialized: %dHz, %d channels (oto)", sampleRate, channels)

	return nil
}

// startPlayer creates the pipe and the persistent player reading from it
func (o *Oto) startPlayer() error {
	o.pipeReader, o.pipeWriter = io.Pipe()
	o.player = o.otoCtx.NewPlayer(o.pipeReader)
	o.player.Play()
	o.ready = true
	return nil
}

// Write outputs PCM16 bytes. The pipe write blocks until the player has
// consumed the data, pacing the caller to playback speed.
func (o *Oto) Write(pcm []byte) error {
	if !o.ready {
		return ErrNotOpen
	}

	if _, err := o.pipeWriter.Write(pcm); err != nil {
		return fmt.Errorf("%w: %v", ErrDeviceWrite, err)
	}

	return nil
}

// Close releases output resources
func (o *Oto) Close() error {
	if o.pipeWriter != nil {
		o.pipeWriter.Close()
		o.pipeWriter = nil
	}
	if o.player != nil {
		o.player.Close()
		o.player = nil
	}
	if o.pipeReader != nil {
		o.pipeReader.Close()
		o.pipeReader = nil
	}
	if o.otoCtx != nil {
		o.otoCtx.Suspend()
	}
	o.ready = false
	return nil
}
