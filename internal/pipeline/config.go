// ABOUTME: Pipeline tuning knobs with defaults and validation
// ABOUTME: Loaded from the YAML config file's playback section
package pipeline

import "fmt"

// Config holds the playback pipeline's tuning parameters.
type Config struct {
	// NativeRate is the sample rate of audio entering the pipeline, Hz.
	NativeRate int `yaml:"native_rate"`
	// SinkRate is the hardware output sample rate, Hz.
	SinkRate int `yaml:"sink_rate"`
	// Channels is the interleaved channel count of both sides.
	Channels int `yaml:"channels"`
	// ChunkDurationMs is the nominal duration of one producer chunk.
	ChunkDurationMs int `yaml:"chunk_duration_ms"`
	// QueueCapacity is the maximum number of buffered chunks.
	QueueCapacity int `yaml:"queue_capacity"`
	// QueueThreshold is the depth at which catch-up engages.
	QueueThreshold int `yaml:"queue_threshold"`
	// TargetCatchupSec is how quickly the backlog should clear, seconds.
	TargetCatchupSec float64 `yaml:"target_catchup_s"`
	// MaxSpeed caps the speed-up factor.
	MaxSpeed float64 `yaml:"max_speed"`
	// MaxBatchChunks bounds how many chunks one catch-up batch coalesces.
	MaxBatchChunks int `yaml:"max_batch_chunks"`
	// HysteresisMargin is how far below QueueThreshold the depth must
	// fall before catch-up disengages. Zero disables hysteresis.
	HysteresisMargin int `yaml:"hysteresis_margin"`
	// PushWaitMs bounds how long a push blocks on a full queue before
	// the chunk is dropped.
	PushWaitMs int `yaml:"push_wait_ms"`
}

// DefaultConfig returns the tuning used when the config file is silent.
func DefaultConfig() Config {
	return Config{
		NativeRate:       24000,
		SinkRate:         48000,
		Channels:         1,
		ChunkDurationMs:  100,
		QueueCapacity:    200,
		QueueThreshold:   20,
		TargetCatchupSec: 10,
		MaxSpeed:         2.0,
		MaxBatchChunks:   50,
		HysteresisMargin: 4,
		PushWaitMs:       2000,
	}
}

// ChunksPerSecond derives the producer's nominal chunk rate.
func (c Config) ChunksPerSecond() float64 {
	return 1000.0 / float64(c.ChunkDurationMs)
}

// Validate rejects configurations the drain loop cannot run with.
func (c Config) Validate() error {
	if c.NativeRate <= 0 {
		return fmt.Errorf("native_rate must be positive, got %d", c.NativeRate)
	}
	if c.SinkRate <= 0 {
		return fmt.Errorf("sink_rate must be positive, got %d", c.SinkRate)
	}
	if c.Channels <= 0 {
		return fmt.Errorf("channels must be positive, got %d", c.Channels)
	}
	if c.ChunkDurationMs <= 0 {
		return fmt.Errorf("chunk_duration_ms must be positive, got %d", c.ChunkDurationMs)
	}
	if c.QueueCapacity <= 0 {
		return fmt.Errorf("queue_capacity must be positive, got %d", c.QueueCapacity)
	}
	if c.QueueThreshold < 1 || c.QueueThreshold > c.QueueCapacity {
		return fmt.Errorf("queue_threshold must be in [1, queue_capacity], got %d", c.QueueThreshold)
	}
	if c.TargetCatchupSec <= 0 {
		return fmt.Errorf("target_catchup_s must be positive, got %v", c.TargetCatchupSec)
	}
	if c.MaxSpeed < 1.0 {
		return fmt.Errorf("max_speed must be at least 1.0, got %v", c.MaxSpeed)
	}
	if c.MaxBatchChunks < 1 {
		return fmt.Errorf("max_batch_chunks must be positive, got %d", c.MaxBatchChunks)
	}
	if c.HysteresisMargin < 0 || c.HysteresisMargin >= c.QueueThreshold {
		return fmt.Errorf("hysteresis_margin must be in [0, queue_threshold), got %d", c.HysteresisMargin)
	}
	if c.PushWaitMs < 0 {
		return fmt.Errorf("push_wait_ms must be non-negative, got %d", c.PushWaitMs)
	}
	return nil
}
