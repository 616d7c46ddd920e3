// ABOUTME: Entry point for the LiveTranslate playback client
// ABOUTME: Parses CLI flags, loads config, and runs the orchestrator
package main

import (
	"context"
	"flag"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/LiveTranslate/livetranslate-go/internal/app"
	"github.com/LiveTranslate/livetranslate-go/internal/config"
	"github.com/LiveTranslate/livetranslate-go/internal/provider"
	"github.com/LiveTranslate/livetranslate-go/internal/version"
	"github.com/LiveTranslate/livetranslate-go/pkg/audio/output"
)

var (
	configPath   = flag.String("config", "", "Path to YAML config file")
	providerName = flag.String("provider", "", "Translation provider: openai, qwen, or doubao")
	sinkBackend  = flag.String("sink", "", "Audio sink backend: oto or malgo")
	logFile      = flag.String("log-file", "", "Log file path (default: stderr only)")
	logLevel     = flag.String("log-level", "", "Log level: debug, info, warn, error")
)

func main() {
	flag.Parse()

	log := logrus.New()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Config error: %v", err)
	}

	// Flags win over file and environment.
	if *providerName != "" {
		cfg.Provider.Name = *providerName
	}
	if *sinkBackend != "" {
		cfg.Sink.Backend = *sinkBackend
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	if *logFile != "" {
		cfg.Log.File = *logFile
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Config error: %v", err)
	}

	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		log.Fatalf("Invalid log level %q: %v", cfg.Log.Level, err)
	}
	log.SetLevel(level)

	if cfg.Log.File != "" {
		f, err := os.OpenFile(cfg.Log.File, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o666)
		if err != nil {
			log.Fatalf("Error opening log file: %v", err)
		}
		defer func() { _ = f.Close() }()
		log.SetOutput(io.MultiWriter(os.Stderr, f))
	}

	log.WithFields(logrus.Fields{
		"version":  version.Version,
		"provider": cfg.Provider.Name,
		"sink":     cfg.Sink.Backend,
	}).Infof("Starting %s", version.Product)

	kind, err := provider.ParseKind(cfg.Provider.Name)
	if err != nil {
		log.Fatalf("Provider error: %v", err)
	}
	prov, err := provider.New(kind, provider.Options{
		APIKey:   cfg.Provider.APIKey,
		Model:    cfg.Provider.Model,
		Voice:    cfg.Provider.Voice,
		Endpoint: cfg.Provider.Endpoint,
		Language: cfg.Provider.Language,
		Codec:    cfg.Provider.Codec,
	}, log)
	if err != nil {
		log.Fatalf("Provider error: %v", err)
	}

	newSink := func() output.Output {
		if cfg.Sink.Backend == "malgo" {
			return output.NewMalgo()
		}
		return output.NewOto()
	}

	a, err := app.New(cfg, prov, newSink, log)
	if err != nil {
		log.Fatalf("Startup error: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := a.Run(ctx); err != nil {
		log.Fatalf("Fatal: %v", err)
	}

	stats := a.Stats()
	log.WithFields(logrus.Fields{
		"received": stats.Received,
		"played":   stats.Played,
		"dropped":  stats.Dropped,
	}).Info("Shutdown complete")
}
