package voicews

import (
	"strings"

	"screenflow/internal/domain"
)

type startFrame struct {
	Type        string                  `json:"type"`
	AssistantID string                  `json:"assistantId,omitempty"`
	Assistant   *domain.AssistantConfig `json:"assistant,omitempty"`
}

type controlFrame struct {
	Type  string `json:"type"`
	Muted *bool  `json:"muted,omitempty"`
}

// serverFrame is the union of every JSON frame the service sends.
type serverFrame struct {
	Type           string `json:"type"`
	Status         string `json:"status"`
	Role           string `json:"role"`
	TranscriptType string `json:"transcriptType"`
	Transcript     string `json:"transcript"`
	Message        string `json:"message"`
}

func (f serverFrame) event() (domain.VoiceEvent, bool) {
	switch f.Type {
	case "call-start":
		return domain.VoiceEvent{Type: domain.VoiceEventCallStart}, true
	case "call-end":
		return domain.VoiceEvent{Type: domain.VoiceEventCallEnd}, true
	case "speech-start":
		return domain.VoiceEvent{Type: domain.VoiceEventSpeechStart}, true
	case "speech-end":
		return domain.VoiceEvent{Type: domain.VoiceEventSpeechEnd}, true
	case "speech-update":
		if f.Role != "" && f.Role != "assistant" {
			return domain.VoiceEvent{}, false
		}
		switch f.Status {
		case "started":
			return domain.VoiceEvent{Type: domain.VoiceEventSpeechStart}, true
		case "stopped":
			return domain.VoiceEvent{Type: domain.VoiceEventSpeechEnd}, true
		}
	case "transcript":
		text := strings.TrimSpace(f.Transcript)
		if text == "" {
			return domain.VoiceEvent{}, false
		}
		role := domain.SenderUser
		if f.Role == "assistant" {
			role = domain.SenderAssistant
		}
		return domain.VoiceEvent{
			Type:  domain.VoiceEventMessage,
			Role:  role,
			Text:  text,
			Final: f.TranscriptType == "final",
		}, true
	case "error":
		message := strings.TrimSpace(f.Message)
		if message == "" {
			message = "voice service returned an unknown error"
		}
		return domain.VoiceEvent{Type: domain.VoiceEventError, Err: message}, true
	}
	return domain.VoiceEvent{}, false
}
