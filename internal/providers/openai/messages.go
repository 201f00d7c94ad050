package openai

import (
	"encoding/json"
	"strings"

	"voicebar/internal/domain"
)

// Client -> server messages.

type sessionUpdateMessage struct {
	Type    string               `json:"type"`
	Session transcriptionSession `json:"session"`
}

type transcriptionSession struct {
	InputAudioFormat        string             `json:"input_audio_format"`
	InputAudioTranscription transcriptionModel `json:"input_audio_transcription"`
	TurnDetection           turnDetection      `json:"turn_detection"`
}

type transcriptionModel struct {
	Model    string `json:"model"`
	Prompt   string `json:"prompt,omitempty"`
	Language string `json:"language,omitempty"`
}

type turnDetection struct {
	Type              string  `json:"type"`
	Threshold         float64 `json:"threshold"`
	PrefixPaddingMs   int     `json:"prefix_padding_ms"`
	SilenceDurationMs int     `json:"silence_duration_ms"`
}

type appendMessage struct {
	Type  string `json:"type"`
	Audio string `json:"audio"`
}

type commitMessage struct {
	Type string `json:"type"`
}

func newSessionUpdate(cfg Config, vad VADOptions) sessionUpdateMessage {
	return sessionUpdateMessage{
		Type: "transcription_session.update",
		Session: transcriptionSession{
			InputAudioFormat: "pcm16",
			InputAudioTranscription: transcriptionModel{
				Model:    cfg.RealtimeModel,
				Prompt:   cfg.Prompt,
				Language: cfg.Language,
			},
			TurnDetection: turnDetection{
				Type:              "server_vad",
				Threshold:         vad.Threshold,
				PrefixPaddingMs:   int(vad.PrefixPadding.Milliseconds()),
				SilenceDurationMs: int(vad.SilenceDuration.Milliseconds()),
			},
		},
	}
}

// Server -> client messages. Every event type shares the item_id join key.

type serverEvent struct {
	Type           string `json:"type"`
	ItemID         string `json:"item_id"`
	PreviousItemID string `json:"previous_item_id"`
	Delta          string `json:"delta"`
	Transcript     string `json:"transcript"`
	Error          struct {
		Message string `json:"message"`
	} `json:"error"`
}

// parseServerEvent maps one inbound frame to a stream event. Frames that do
// not parse, or whose type is not part of the protocol surface, are dropped
// without failing the connection.
func parseServerEvent(payload []byte) (domain.StreamEvent, bool) {
	var raw serverEvent
	if err := json.Unmarshal(payload, &raw); err != nil {
		return domain.StreamEvent{}, false
	}

	switch raw.Type {
	case "input_audio_buffer.committed":
		return domain.StreamEvent{
			Kind:           domain.StreamEventCommitted,
			ItemID:         raw.ItemID,
			PreviousItemID: raw.PreviousItemID,
		}, true
	case "conversation.item.input_audio_transcription.delta":
		return domain.StreamEvent{
			Kind:   domain.StreamEventDelta,
			ItemID: raw.ItemID,
			Text:   raw.Delta,
		}, true
	case "conversation.item.input_audio_transcription.completed":
		return domain.StreamEvent{
			Kind:   domain.StreamEventCompleted,
			ItemID: raw.ItemID,
			Text:   raw.Transcript,
		}, true
	case "error":
		message := strings.TrimSpace(raw.Error.Message)
		if message == "" {
			message = "realtime service returned an unknown error"
		}
		return domain.StreamEvent{Kind: domain.StreamEventFailed, Message: message}, true
	default:
		return domain.StreamEvent{}, false
	}
}
