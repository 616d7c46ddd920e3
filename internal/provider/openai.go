// ABOUTME: OpenAI Realtime API provider settings
// ABOUTME: 24 kHz PCM16 both directions, server VAD turn detection
package provider

import (
	"fmt"
	"net/http"
)

const (
	openaiDefaultModel = "gpt-realtime-2025-08-28"
	openaiDefaultVoice = "alloy"
	openaiRate         = 24000
)

func openaiSettings(opts Options) settings {
	model := opts.Model
	if model == "" {
		model = openaiDefaultModel
	}
	voice := opts.Voice
	if voice == "" {
		voice = openaiDefaultVoice
	}
	endpoint := opts.Endpoint
	if endpoint == "" {
		endpoint = fmt.Sprintf("wss://api.openai.com/v1/realtime?model=%s", model)
	}

	return settings{
		kind:       KindOpenAI,
		endpoint:   endpoint,
		model:      model,
		voice:      voice,
		language:   opts.Language,
		codec:      "pcm16",
		nativeRate: openaiRate,
		headers: func(h http.Header) {
			h.Set("Authorization", "Bearer "+opts.APIKey)
			h.Set("OpenAI-Beta", "realtime=v1")
		},
		session: func() map[string]any {
			return map[string]any{
				"modalities":          []string{"text", "audio"},
				"instructions":        translationInstructions(opts.Language),
				"voice":               voice,
				"input_audio_format":  "pcm16",
				"output_audio_format": "pcm16",
				"input_audio_transcription": map[string]any{
					"model": "whisper-1",
				},
				"turn_detection": map[string]any{
					"type":                "server_vad",
					"threshold":           0.5,
					"prefix_padding_ms":   300,
					"silence_duration_ms": 800,
				},
			}
		},
	}
}

// translationInstructions builds the interpreter system prompt for the
// target language.
func translationInstructions(language string) string {
	names := map[string]string{
		"zh": "Chinese",
		"en": "English",
		"ja": "Japanese",
		"ko": "Korean",
		"fr": "French",
		"de": "German",
		"es": "Spanish",
	}
	target := names[language]
	if target == "" {
		target = language
	}
	if target == "" {
		target = "English"
	}
	return fmt.Sprintf("You are a real-time interpreter. Translate the speech you hear into %s "+
		"and speak the translation naturally. Respond only with the translation, "+
		"no explanations or comments.", target)
}
