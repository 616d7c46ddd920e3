// ABOUTME: Doubao (ByteDance openspeech) translation provider settings
// ABOUTME: 16 kHz native rate, compressed TTS payloads, X-Api-* auth
package provider

import "net/http"

const (
	doubaoDefaultCodec = "mp3"
	doubaoRate         = 16000
	doubaoResourceID   = "volc.service_type.10053"
)

// Doubao performs speech-to-speech translation with a cloned voice, so
// there is no voice selection; audio comes back as compressed TTS
// payloads (mp3 by default, opus when configured).
func doubaoSettings(opts Options) settings {
	codec := opts.Codec
	if codec == "" {
		codec = doubaoDefaultCodec
	}
	endpoint := opts.Endpoint
	if endpoint == "" {
		endpoint = "wss://openspeech.bytedance.com/api/v4/ast/v2/translate"
	}
	language := opts.Language
	if language == "" {
		language = "en"
	}

	return settings{
		kind:       KindDoubao,
		endpoint:   endpoint,
		model:      opts.Model,
		language:   language,
		codec:      codec,
		nativeRate: doubaoRate,
		headers: func(h http.Header) {
			h.Set("X-Api-App-Key", opts.APIKey)
			h.Set("X-Api-Resource-Id", doubaoResourceID)
			h.Set("X-Api-Connect-Id", connectID())
		},
		session: func() map[string]any {
			return map[string]any{
				"modalities": []string{"text", "audio"},
				"translation": map[string]any{
					"language": language,
				},
				"input_audio_format":  "pcm16",
				"output_audio_format": codec,
				"turn_detection": map[string]any{
					"type": "server_vad",
				},
			}
		},
	}
}
