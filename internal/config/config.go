// ABOUTME: Application configuration: defaults, YAML file, env overrides
// ABOUTME: Validated once at startup; packages receive immutable snapshots
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/LiveTranslate/livetranslate-go/internal/pipeline"
)

type ProviderConfig struct {
	Name     string `yaml:"name"`
	APIKey   string `yaml:"api_key"`
	Model    string `yaml:"model"`
	Voice    string `yaml:"voice"`
	Endpoint string `yaml:"endpoint"`
	Language string `yaml:"language"`
	// Codec overrides the provider's default audio payload codec
	// (pcm16, mp3, or opus). Only doubao serves more than one.
	Codec string `yaml:"codec"`
}

type SinkConfig struct {
	Backend string `yaml:"backend"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

type Config struct {
	Provider ProviderConfig  `yaml:"provider"`
	Playback pipeline.Config `yaml:"playback"`
	Sink     SinkConfig      `yaml:"sink"`
	Log      LogConfig       `yaml:"log"`
}

func Default() Config {
	return Config{
		Provider: ProviderConfig{
			Name:     "openai",
			Language: "en",
		},
		Playback: pipeline.DefaultConfig(),
		Sink: SinkConfig{
			Backend: "oto",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads the YAML file at path (skipped when empty), applies
// LT_*-prefixed environment overrides, and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return cfg, fmt.Errorf("config file not found: %w", err)
			}
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks the configuration for contradictions. Load runs it,
// and callers that mutate a loaded config afterwards should re-run it.
func (c Config) Validate() error {
	return validate(c)
}

func applyEnvOverrides(cfg *Config) {
	overrideString(&cfg.Provider.Name, "LT_PROVIDER")
	overrideString(&cfg.Provider.APIKey, "LT_API_KEY")
	overrideString(&cfg.Provider.Model, "LT_MODEL")
	overrideString(&cfg.Provider.Voice, "LT_VOICE")
	overrideString(&cfg.Provider.Endpoint, "LT_ENDPOINT")
	overrideString(&cfg.Provider.Language, "LT_LANGUAGE")
	overrideString(&cfg.Provider.Codec, "LT_CODEC")
	overrideString(&cfg.Sink.Backend, "LT_SINK_BACKEND")
	overrideString(&cfg.Log.Level, "LT_LOG_LEVEL")
	overrideString(&cfg.Log.File, "LT_LOG_FILE")
	overrideInt(&cfg.Playback.NativeRate, "LT_PLAYBACK_NATIVE_RATE")
	overrideInt(&cfg.Playback.SinkRate, "LT_PLAYBACK_SINK_RATE")
	overrideInt(&cfg.Playback.Channels, "LT_PLAYBACK_CHANNELS")
	overrideInt(&cfg.Playback.ChunkDurationMs, "LT_PLAYBACK_CHUNK_DURATION_MS")
	overrideInt(&cfg.Playback.QueueCapacity, "LT_PLAYBACK_QUEUE_CAPACITY")
	overrideInt(&cfg.Playback.QueueThreshold, "LT_PLAYBACK_QUEUE_THRESHOLD")
	overrideFloat(&cfg.Playback.TargetCatchupSec, "LT_PLAYBACK_TARGET_CATCHUP_S")
	overrideFloat(&cfg.Playback.MaxSpeed, "LT_PLAYBACK_MAX_SPEED")
	overrideInt(&cfg.Playback.MaxBatchChunks, "LT_PLAYBACK_MAX_BATCH_CHUNKS")
	overrideInt(&cfg.Playback.HysteresisMargin, "LT_PLAYBACK_HYSTERESIS_MARGIN")
	overrideInt(&cfg.Playback.PushWaitMs, "LT_PLAYBACK_PUSH_WAIT_MS")
}

func validate(cfg Config) error {
	switch cfg.Provider.Name {
	case "openai", "qwen", "doubao":
	default:
		return fmt.Errorf("unknown provider %q (want openai, qwen, or doubao)", cfg.Provider.Name)
	}
	switch cfg.Provider.Codec {
	case "", "pcm", "pcm16", "mp3", "opus":
	default:
		return fmt.Errorf("unknown payload codec %q", cfg.Provider.Codec)
	}
	switch cfg.Sink.Backend {
	case "oto", "malgo":
	default:
		return fmt.Errorf("unknown sink backend %q (want oto or malgo)", cfg.Sink.Backend)
	}
	switch strings.ToLower(cfg.Log.Level) {
	case "trace", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("unknown log level %q", cfg.Log.Level)
	}
	if err := cfg.Playback.Validate(); err != nil {
		return fmt.Errorf("playback: %w", err)
	}
	return nil
}

func overrideString(target *string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok && strings.TrimSpace(value) != "" {
		*target = value
	}
}

func overrideInt(target *int, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			*target = parsed
		}
	}
}

func overrideFloat(target *float64, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			*target = parsed
		}
	}
}
