// ABOUTME: Qwen LiveTranslate realtime provider settings
// ABOUTME: DashScope endpoint, 16 kHz in, 24 kHz PCM16 out
package provider

import "net/http"

const (
	qwenDefaultModel = "qwen3-livetranslate-flash-realtime"
	qwenDefaultVoice = "cherry"
	qwenRate         = 24000
)

func qwenSettings(opts Options) settings {
	model := opts.Model
	if model == "" {
		model = qwenDefaultModel
	}
	voice := opts.Voice
	if voice == "" {
		voice = qwenDefaultVoice
	}
	endpoint := opts.Endpoint
	if endpoint == "" {
		endpoint = "wss://dashscope.aliyuncs.com/api-ws/v1/realtime?model=" + model
	}
	language := opts.Language
	if language == "" {
		language = "en"
	}

	return settings{
		kind:       KindQwen,
		endpoint:   endpoint,
		model:      model,
		voice:      voice,
		language:   language,
		codec:      "pcm16",
		nativeRate: qwenRate,
		headers: func(h http.Header) {
			h.Set("Authorization", "Bearer "+opts.APIKey)
		},
		session: func() map[string]any {
			return map[string]any{
				"modalities":         []string{"text", "audio"},
				"input_audio_format": "pcm16",
				"translation": map[string]any{
					"language": language,
				},
				"turn_detection": map[string]any{
					"type":                "server_vad",
					"threshold":           0.5,
					"prefix_padding_ms":   300,
					"silence_duration_ms": 800,
				},
				"voice":               voice,
				"output_audio_format": "pcm16",
			}
		},
	}
}
