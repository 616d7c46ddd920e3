// ABOUTME: Shared websocket session engine for realtime translation APIs
// ABOUTME: Handles dialing, session configuration, and event routing
package provider

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/LiveTranslate/livetranslate-go/internal/audio"
	"github.com/LiveTranslate/livetranslate-go/internal/audio/decode"
	"github.com/LiveTranslate/livetranslate-go/internal/version"
)

// settings is a provider's resolved wire configuration.
type settings struct {
	kind       Kind
	endpoint   string
	model      string
	voice      string
	language   string
	codec      string
	nativeRate int
	headers    func(http.Header)
	session    func() map[string]any
}

// session speaks the OpenAI-realtime-style JSON protocol shared by the
// supported providers: session.update to configure, base64 PCM in
// input_audio_buffer.append, audio back in response.audio.delta events.
type session struct {
	settings settings
	log      *logrus.Entry

	mu        sync.RWMutex
	conn      *websocket.Conn
	connected bool
	cancel    context.CancelFunc

	// writeMu serializes writers; gorilla/websocket allows at most one
	// concurrent WriteJSON per connection.
	writeMu sync.Mutex

	dec    decode.Decoder
	events chan Event
}

func newSession(s settings, log *logrus.Logger) (*session, error) {
	if s.endpoint == "" {
		return nil, fmt.Errorf("provider %s: empty endpoint", s.kind)
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	dec, err := decode.New(s.codec, audio.Format{SampleRate: s.nativeRate, Channels: 1})
	if err != nil {
		return nil, fmt.Errorf("provider %s: %w", s.kind, err)
	}
	return &session{
		settings: s,
		log:      log.WithField("provider", s.kind),
		dec:      dec,
		events:   make(chan Event, 100),
	}, nil
}

func (s *session) NativeRate() int {
	return s.settings.nativeRate
}

func (s *session) Events() <-chan Event {
	return s.events
}

// Connect dials the provider and configures the translation session.
func (s *session) Connect(ctx context.Context) error {
	header := http.Header{}
	header.Set("User-Agent", version.UserAgent())
	if s.settings.headers != nil {
		s.settings.headers(header)
	}

	s.log.WithField("endpoint", s.settings.endpoint).Info("Connecting to provider")
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, s.settings.endpoint, header)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("dial %s: %w (status %s)", s.settings.kind, err, resp.Status)
		}
		return fmt.Errorf("dial %s: %w", s.settings.kind, err)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	s.mu.Lock()
	s.conn = conn
	s.connected = true
	s.cancel = cancel
	s.mu.Unlock()

	if err := s.sendJSON(map[string]any{
		"event_id": "event_" + connectID(),
		"type":     "session.update",
		"session":  s.settings.session(),
	}); err != nil {
		s.Close()
		return fmt.Errorf("configure session: %w", err)
	}

	go s.readLoop(runCtx)
	return nil
}

// SendAudio forwards one chunk of captured PCM16 to the provider.
func (s *session) SendAudio(pcm []byte) error {
	return s.sendJSON(map[string]any{
		"type":  "input_audio_buffer.append",
		"audio": base64.StdEncoding.EncodeToString(pcm),
	})
}

func (s *session) sendJSON(v any) error {
	s.mu.RLock()
	conn, connected := s.conn, s.connected
	s.mu.RUnlock()
	if !connected {
		return fmt.Errorf("not connected")
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return conn.WriteJSON(v)
}

// serverEvent is the superset of fields the providers send; only the
// ones matching the event type are populated.
type serverEvent struct {
	Type       string `json:"type"`
	Delta      string `json:"delta"`
	Text       string `json:"text"`
	Transcript string `json:"transcript"`
	Item       struct {
		Content []struct {
			Transcript string `json:"transcript"`
		} `json:"content"`
	} `json:"item"`
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (s *session) readLoop(ctx context.Context) {
	defer close(s.events)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		s.mu.RLock()
		conn := s.conn
		s.mu.RUnlock()

		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				s.log.WithError(err).Warn("Provider connection lost")
				s.emit(ctx, Event{Type: EventError, Err: fmt.Errorf("read: %w", err)})
			}
			return
		}
		if !s.handleEvent(ctx, data) {
			return
		}
	}
}

// handleEvent routes one JSON event. Returns false when the session
// should terminate.
func (s *session) handleEvent(ctx context.Context, data []byte) bool {
	var ev serverEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		s.log.WithError(err).Warn("Unparseable provider event")
		return true
	}

	switch ev.Type {
	case "session.created", "session.updated":
		s.log.Debug(ev.Type)

	case "response.audio.delta":
		if ev.Delta == "" {
			return true
		}
		payload, err := base64.StdEncoding.DecodeString(ev.Delta)
		if err != nil {
			s.log.WithError(err).Warn("Bad base64 in audio delta")
			return true
		}
		pcm, err := s.dec.Decode(payload)
		if err != nil {
			s.log.WithError(err).Warn("Failed to decode audio payload")
			return true
		}
		s.emit(ctx, Event{Type: EventAudio, PCM: pcm})

	case "response.audio_transcript.delta", "response.text.delta":
		if ev.Delta != "" {
			s.emit(ctx, Event{Type: EventTranscript, Text: ev.Delta})
		}

	case "response.audio_transcript.done":
		if ev.Transcript != "" {
			s.emit(ctx, Event{Type: EventTranscript, Text: ev.Transcript, Final: true})
		}

	case "response.text.done":
		if ev.Text != "" {
			s.emit(ctx, Event{Type: EventTranscript, Text: ev.Text, Final: true})
		}

	case "conversation.item.input_audio_transcription.completed":
		text := ev.Transcript
		if text == "" && len(ev.Item.Content) > 0 {
			text = ev.Item.Content[0].Transcript
		}
		if text != "" {
			s.emit(ctx, Event{Type: EventSourceTranscript, Text: text, Final: true})
		}

	case "input_audio_buffer.speech_started", "input_audio_buffer.speech_stopped":
		s.log.Debug(ev.Type)

	case "error":
		err := fmt.Errorf("%s: %s", ev.Error.Code, ev.Error.Message)
		s.log.WithError(err).Error("Provider error")
		s.emit(ctx, Event{Type: EventError, Err: err})
		code := strings.ToLower(ev.Error.Code)
		if strings.Contains(code, "connection") || strings.Contains(code, "unauthorized") {
			return false
		}

	default:
		s.log.WithField("type", ev.Type).Debug("Ignoring provider event")
	}
	return true
}

func (s *session) emit(ctx context.Context, ev Event) {
	select {
	case s.events <- ev:
	case <-ctx.Done():
	}
}

// Close tears down the connection. Idempotent; the events channel closes
// once the read loop exits.
func (s *session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.connected {
		return nil
	}
	s.connected = false
	s.cancel()
	err := s.conn.Close()
	if derr := s.dec.Close(); err == nil {
		err = derr
	}
	s.log.Info("Provider connection closed")
	return err
}

// connectID tags each websocket session for provider-side tracing.
func connectID() string {
	return uuid.NewString()
}
