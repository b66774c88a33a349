package ports

import (
	"context"
	"io"

	"screenflow/internal/domain"
)

// AudioConfig describes how the microphone should be captured.
type AudioConfig struct {
	SampleRate  int
	Channels    int
	InputFormat string
	InputDevice string
}

// AudioSession is a live capture session.
type AudioSession interface {
	io.ReadCloser
	Stop() error
}

// AudioCapture creates microphone capture sessions.
type AudioCapture interface {
	Start(ctx context.Context, cfg AudioConfig) (AudioSession, error)
}

// StreamingConfig describes provider-agnostic streaming settings.
type StreamingConfig struct {
	SampleRate     int
	Channels       int
	Encoding       string
	InterimResults bool
}

// StreamingSession is an active speech-to-text websocket session.
type StreamingSession interface {
	SendAudio(chunk []byte) error
	CloseSend() error
	Events() <-chan domain.TranscriptEvent
	Wait() error
	Close() error
}

// TranscriptionProvider starts streaming speech-to-text sessions.
type TranscriptionProvider interface {
	StartStreaming(ctx context.Context, cfg StreamingConfig) (StreamingSession, error)
}

// VoiceClient is the remote conversational assistant session. Events is
// created once with the client and stays open until Close.
type VoiceClient interface {
	Start(ctx context.Context, callID uint64, assistant domain.AssistantSpec) error
	Stop() error
	SetMuted(muted bool) error
	Events() <-chan domain.VoiceEvent
	Close() error
}

// EventSink emits controller state to the hosting surface.
type EventSink interface {
	StageChanged(stage domain.Stage)
	MessageAppended(message domain.Message)
	ProcessingChanged(processing bool)
	CallStateChanged(status domain.CallStatus)
	DictationChanged(status domain.DictationStatus)
	FlowClosed(stage domain.Stage)
	SessionError(code domain.ErrorCode, detail string)
}
