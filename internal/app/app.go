// ABOUTME: Main application orchestration
// ABOUTME: Wires the translation provider into the playback pipeline
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/LiveTranslate/livetranslate-go/internal/config"
	"github.com/LiveTranslate/livetranslate-go/internal/pipeline"
	"github.com/LiveTranslate/livetranslate-go/internal/provider"
	"github.com/LiveTranslate/livetranslate-go/pkg/audio/output"
	"github.com/LiveTranslate/livetranslate-go/pkg/audio/tsm"
)

// restartDelay spaces out pipeline rebuilds after a device fault so a
// flapping device does not spin the restart loop.
const restartDelay = 500 * time.Millisecond

// SinkFactory builds a fresh, unopened hardware sink. Called once at
// startup and again after every device fault.
type SinkFactory func() output.Output

// App connects a translation provider to the playback pipeline and keeps
// playback alive across audio device faults.
type App struct {
	cfg     config.Config
	prov    provider.Provider
	newSink SinkFactory
	log     *logrus.Logger

	pipe *pipeline.Pipeline
}

// New creates the orchestrator. The provider must be unconnected.
func New(cfg config.Config, prov provider.Provider, newSink SinkFactory, log *logrus.Logger) (*App, error) {
	if prov == nil {
		return nil, fmt.Errorf("nil provider")
	}
	if newSink == nil {
		return nil, fmt.Errorf("nil sink factory")
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &App{
		cfg:     cfg,
		prov:    prov,
		newSink: newSink,
		log:     log,
	}, nil
}

// Run connects the provider, starts playback, and blocks until the
// context is cancelled or the provider stream ends. Device faults are
// absorbed by rebuilding the pipeline with a fresh sink.
func (a *App) Run(ctx context.Context) error {
	if err := a.prov.Connect(ctx); err != nil {
		return fmt.Errorf("connect provider: %w", err)
	}
	defer a.prov.Close()

	if err := a.startPipeline(); err != nil {
		return err
	}
	// a.pipe is replaced on rebuild; stop whichever is current on exit.
	defer func() { a.pipe.Stop() }()

	for {
		select {
		case ev, ok := <-a.prov.Events():
			if !ok {
				a.log.Info("Provider stream ended")
				return nil
			}
			a.handleEvent(ev)

		case <-a.pipe.Done():
			err := a.pipe.Err()
			if err == nil {
				// Stopped externally, nothing to recover.
				return nil
			}
			a.log.WithError(err).Warn("Playback pipeline terminated, rebuilding with a fresh device")
			a.pipe.Stop()

			select {
			case <-time.After(restartDelay):
			case <-ctx.Done():
				return nil
			}
			if err := a.startPipeline(); err != nil {
				return fmt.Errorf("restart playback: %w", err)
			}

		case <-ctx.Done():
			a.log.Info("Shutting down")
			return nil
		}
	}
}

func (a *App) handleEvent(ev provider.Event) {
	switch ev.Type {
	case provider.EventAudio:
		a.pipe.PushChunk(ev.PCM)

	case provider.EventTranscript:
		if ev.Final {
			a.log.WithField("text", ev.Text).Info("Translation")
		} else {
			a.log.WithField("text", ev.Text).Debug("Translation delta")
		}

	case provider.EventSourceTranscript:
		a.log.WithField("text", ev.Text).Info("Source")

	case provider.EventError:
		a.log.WithError(ev.Err).Warn("Provider reported an error")
	}
}

// startPipeline builds and starts a pipeline over a freshly created sink.
// The provider's native rate overrides the configured input rate so the
// resampler always matches what the provider actually sends.
func (a *App) startPipeline() error {
	pb := a.cfg.Playback
	pb.NativeRate = a.prov.NativeRate()

	scaler, err := tsm.New(pb.NativeRate, pb.Channels)
	if err != nil {
		return fmt.Errorf("create time scaler: %w", err)
	}

	pipe, err := pipeline.New(pb, a.newSink(), scaler, a.log)
	if err != nil {
		return fmt.Errorf("create pipeline: %w", err)
	}
	if err := pipe.Start(); err != nil {
		return fmt.Errorf("start pipeline: %w", err)
	}
	a.pipe = pipe
	return nil
}

// Stats exposes the live pipeline counters.
func (a *App) Stats() pipeline.Stats {
	if a.pipe == nil {
		return pipeline.Stats{}
	}
	return a.pipe.Stats()
}
