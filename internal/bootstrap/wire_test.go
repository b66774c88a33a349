package bootstrap

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"screenflow/internal/config"
	"screenflow/internal/domain"
	"screenflow/internal/voice"
)

func TestBuildSuccess(t *testing.T) {
	t.Setenv("SCREENFLOW_VOICE_API_KEY", "voice-key")
	t.Setenv("SCREENFLOW_VOICE_ASSISTANT_ID", "asst-1")
	t.Setenv("DEEPGRAM_API_KEY", "test-key")

	services, err := Build(noopEventSink{}, zap.NewNop())
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	if services.Controller == nil {
		t.Fatalf("expected controller")
	}
	defer services.Controller.Close()

	if got := services.Controller.Stage(); got != domain.StageInitial {
		t.Fatalf("expected initial stage, got %q", got)
	}
	if services.Config.Voice.AssistantID != "asst-1" {
		t.Fatalf("unexpected config: %+v", services.Config.Voice)
	}
}

func TestBuildWithoutVoiceKeyReportsConfigError(t *testing.T) {
	t.Setenv("SCREENFLOW_VOICE_API_KEY", "")
	t.Setenv("DEEPGRAM_API_KEY", "")
	t.Setenv("SCREENFLOW_LOG_DEBUG", "1")

	services, err := Build(noopEventSink{}, nil)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	if services.Logger == nil {
		t.Fatalf("expected a logger to be built")
	}
	controller := services.Controller
	defer controller.Close()

	if controller.DictationStatus().Supported {
		t.Fatalf("expected dictation to be unsupported without a key")
	}

	if err := controller.Begin(); err != nil {
		t.Fatalf("begin failed: %v", err)
	}
	if err := controller.Next(); err != nil {
		t.Fatalf("next failed: %v", err)
	}
	if err := controller.SetFile(domain.FileResume, "cv.pdf"); err != nil {
		t.Fatalf("set resume failed: %v", err)
	}
	if err := controller.ContinueToChat(); err != nil {
		t.Fatalf("continue failed: %v", err)
	}
	if err := controller.SwitchModality(domain.ModalityVoice); err != nil {
		t.Fatalf("switch failed: %v", err)
	}
	if err := controller.StartCall(context.Background()); !errors.Is(err, voice.ErrNotConfigured) {
		t.Fatalf("expected not configured, got %v", err)
	}
	if status := controller.CallStatus(); status.ErrorKind != domain.ErrorKindConfig {
		t.Fatalf("expected config error kind, got %+v", status)
	}
}

func TestAssistantSpec(t *testing.T) {
	t.Parallel()

	if spec := assistantSpec(config.VoiceConfig{AssistantID: "a", FirstMessage: "hi"}); spec.AssistantID != "a" || spec.Inline != nil {
		t.Fatalf("expected stored assistant to win, got %+v", spec)
	}
	if spec := assistantSpec(config.VoiceConfig{FirstMessage: "hi", SystemPrompt: "be kind"}); spec.Inline == nil || !spec.Valid() {
		t.Fatalf("expected inline assistant, got %+v", spec)
	}
	if spec := assistantSpec(config.VoiceConfig{}); spec.Valid() {
		t.Fatalf("expected empty assistant to be invalid")
	}
}

type noopEventSink struct{}

func (noopEventSink) StageChanged(_ domain.Stage)               {}
func (noopEventSink) MessageAppended(_ domain.Message)          {}
func (noopEventSink) ProcessingChanged(_ bool)                  {}
func (noopEventSink) CallStateChanged(_ domain.CallStatus)      {}
func (noopEventSink) DictationChanged(_ domain.DictationStatus) {}
func (noopEventSink) FlowClosed(_ domain.Stage)                 {}
func (noopEventSink) SessionError(_ domain.ErrorCode, _ string) {}
