// ABOUTME: Translation provider abstraction over realtime websocket APIs
// ABOUTME: Closed provider set: openai, qwen, doubao
package provider

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
)

// Kind identifies a supported translation provider.
type Kind string

const (
	KindOpenAI Kind = "openai"
	KindQwen   Kind = "qwen"
	KindDoubao Kind = "doubao"
)

// ParseKind validates a provider name from config.
func ParseKind(name string) (Kind, error) {
	switch Kind(name) {
	case KindOpenAI, KindQwen, KindDoubao:
		return Kind(name), nil
	default:
		return "", fmt.Errorf("unknown provider %q", name)
	}
}

// EventType discriminates provider events.
type EventType int

const (
	// EventAudio carries decoded PCM16 at the provider's native rate.
	EventAudio EventType = iota
	// EventTranscript carries translated text, possibly incremental.
	EventTranscript
	// EventSourceTranscript carries the recognized source-language text.
	EventSourceTranscript
	// EventError carries a server-reported or transport error.
	EventError
)

// Event is one item from the provider's output stream.
type Event struct {
	Type  EventType
	PCM   []byte
	Text  string
	Final bool
	Err   error
}

// Provider streams audio to a realtime translation API and emits
// translated audio and text. The Events channel closes when the session
// ends, whether by Close or by a transport failure.
type Provider interface {
	Connect(ctx context.Context) error
	SendAudio(pcm []byte) error
	Events() <-chan Event
	NativeRate() int
	Close() error
}

// Options carries user configuration applied on top of each provider's
// built-in defaults. Empty fields keep the defaults.
type Options struct {
	APIKey   string
	Model    string
	Voice    string
	Endpoint string
	Language string
	Codec    string
}

// New builds a provider of the given kind.
func New(kind Kind, opts Options, log *logrus.Logger) (Provider, error) {
	var s settings
	switch kind {
	case KindOpenAI:
		s = openaiSettings(opts)
	case KindQwen:
		s = qwenSettings(opts)
	case KindDoubao:
		s = doubaoSettings(opts)
	default:
		return nil, fmt.Errorf("unknown provider %q", kind)
	}
	return newSession(s, log)
}
