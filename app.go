package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/wailsapp/wails/v2/pkg/runtime"
	"go.uber.org/zap"

	"screenflow/internal/bootstrap"
	"screenflow/internal/config"
	"screenflow/internal/domain"
	"screenflow/internal/uploads"
	"screenflow/internal/usecase"
)

const (
	eventStage      = "screenflow:stage"
	eventMessage    = "screenflow:message"
	eventProcessing = "screenflow:processing"
	eventCall       = "screenflow:call"
	eventDictation  = "screenflow:dictation"
	eventClosed     = "screenflow:closed"
	eventError      = "screenflow:error"
)

var errUnknownFileKind = errors.New("unknown document kind")

// App is the Wails application root.
type App struct {
	ctx context.Context
	log *zap.Logger

	controller *usecase.ScreeningController
	cfg        config.Config
	bootErr    error
}

func NewApp() *App {
	return &App{log: zap.NewNop()}
}

func (a *App) startup(ctx context.Context) {
	a.ctx = ctx

	services, err := bootstrap.Build(a, nil)
	if err != nil {
		a.bootErr = err
		a.SessionError(domain.ErrorCodeStartup, err.Error())
		return
	}

	a.cfg = services.Config
	a.log = services.Logger
	a.controller = services.Controller
	a.controller.Open()
}

func (a *App) shutdown(_ context.Context) {
	if a.controller != nil {
		a.controller.Close()
	}
	_ = a.log.Sync()
}

// GetSnapshot returns everything the frontend needs to render.
func (a *App) GetSnapshot() (domain.Snapshot, error) {
	if err := a.requireReady(); err != nil {
		return domain.Snapshot{Stage: domain.StageInitial}, err
	}
	return a.controller.Snapshot(), nil
}

func (a *App) Begin() error          { return a.step((*usecase.ScreeningController).Begin) }
func (a *App) Next() error           { return a.step((*usecase.ScreeningController).Next) }
func (a *App) Back() error           { return a.step((*usecase.ScreeningController).Back) }
func (a *App) ContinueToChat() error { return a.step((*usecase.ScreeningController).ContinueToChat) }
func (a *App) Finish() error         { return a.step((*usecase.ScreeningController).Finish) }
func (a *App) Submit() error         { return a.step((*usecase.ScreeningController).Submit) }
func (a *App) Cancel() error         { return a.step((*usecase.ScreeningController).Cancel) }
func (a *App) Exit() error           { return a.step((*usecase.ScreeningController).Exit) }

func (a *App) step(fn func(*usecase.ScreeningController) error) error {
	if err := a.requireReady(); err != nil {
		return err
	}
	return fn(a.controller)
}

// PickDocument opens a native file dialog and attaches the chosen document.
// An empty result means the dialog was dismissed.
func (a *App) PickDocument(kind string) (string, error) {
	if err := a.requireReady(); err != nil {
		return "", err
	}
	fileKind, err := parseFileKind(kind)
	if err != nil {
		return "", err
	}

	path, err := runtime.OpenFileDialog(a.ctx, runtime.OpenDialogOptions{
		Title: "Select a document",
		Filters: []runtime.FileFilter{{
			DisplayName: "Documents (*.pdf, *.doc, *.docx)",
			Pattern:     "*.pdf;*.doc;*.docx",
		}},
	})
	if err != nil || path == "" {
		return "", err
	}

	info, err := os.Stat(path)
	if err != nil {
		a.SessionError(domain.ErrorCodeValidation, err.Error())
		return "", err
	}
	name := filepath.Base(path)
	if err := a.controller.AttachFile(fileKind, name, info.Size()); err != nil {
		return "", err
	}
	return name, nil
}

// ClearDocument removes a previously attached document.
func (a *App) ClearDocument(kind string) error {
	if err := a.requireReady(); err != nil {
		return err
	}
	fileKind, err := parseFileKind(kind)
	if err != nil {
		return err
	}
	return a.controller.SetFile(fileKind, "")
}

func (a *App) AddLink(link string) error {
	if err := a.requireReady(); err != nil {
		return err
	}
	return a.controller.AddLink(link)
}

func (a *App) RemoveLink(link string) (bool, error) {
	if err := a.requireReady(); err != nil {
		return false, err
	}
	return a.controller.RemoveLink(link), nil
}

// OpenLink shows a portfolio link in the system browser.
func (a *App) OpenLink(link string) {
	if a.ctx == nil {
		return
	}
	runtime.BrowserOpenURL(a.ctx, link)
}

// SendMessage returns once the assistant reply has been appended.
func (a *App) SendMessage(text string) error {
	if err := a.requireReady(); err != nil {
		return err
	}
	return a.controller.SendMessage(text)
}

func (a *App) SwitchModality(modality string) error {
	if err := a.requireReady(); err != nil {
		return err
	}
	return a.controller.SwitchModality(domain.Modality(modality))
}

func (a *App) StartCall() (domain.CallStatus, error) {
	if err := a.requireReady(); err != nil {
		return domain.CallStatus{}, err
	}
	err := a.controller.StartCall(a.ctx)
	return a.controller.CallStatus(), err
}

func (a *App) StopCall() (domain.CallStatus, error) {
	if err := a.requireReady(); err != nil {
		return domain.CallStatus{}, err
	}
	err := a.controller.StopCall()
	return a.controller.CallStatus(), err
}

func (a *App) ToggleMute() (domain.CallStatus, error) {
	if err := a.requireReady(); err != nil {
		return domain.CallStatus{}, err
	}
	err := a.controller.ToggleMute()
	return a.controller.CallStatus(), err
}

func (a *App) StartDictation() (domain.DictationStatus, error) {
	if err := a.requireReady(); err != nil {
		return domain.DictationStatus{}, err
	}
	err := a.controller.StartDictation(a.ctx)
	return a.controller.DictationStatus(), err
}

// StopDictation returns the recognized text for the chat input.
func (a *App) StopDictation() (string, error) {
	if err := a.requireReady(); err != nil {
		return "", err
	}
	return a.controller.StopDictation()
}

// GetRuntimeInfo returns non-sensitive config for the UI.
func (a *App) GetRuntimeInfo() map[string]string {
	if a.bootErr != nil {
		return map[string]string{"error": a.bootErr.Error()}
	}

	voiceMode := "disabled"
	if a.cfg.Voice.VoiceConfigured() {
		voiceMode = "enabled"
	}
	return map[string]string{
		"voice":         voiceMode,
		"voiceBase":     a.cfg.Voice.APIBaseURL,
		"callTarget":    fmt.Sprintf("%ds", a.cfg.Voice.TargetSeconds),
		"dictation":     "Deepgram",
		"model":         a.cfg.Deepgram.Model,
		"language":      a.cfg.Deepgram.Language,
		"audioInput":    a.cfg.Audio.InputDevice,
		"completion":    a.cfg.Screening.Completion,
		"maxLinks":      strconv.Itoa(uploads.MaxLinks),
		"acceptedFiles": ".pdf, .doc, .docx",
	}
}

func (a *App) requireReady() error {
	if a.bootErr != nil {
		return a.bootErr
	}
	if a.controller == nil {
		return fmt.Errorf("application is not initialized")
	}
	return nil
}

// StageChanged emits stage transitions to the frontend.
func (a *App) StageChanged(stage domain.Stage) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventStage, map[string]string{"stage": string(stage)})
}

func (a *App) MessageAppended(message domain.Message) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventMessage, message)
}

func (a *App) ProcessingChanged(processing bool) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventProcessing, map[string]bool{"processing": processing})
}

func (a *App) CallStateChanged(status domain.CallStatus) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventCall, status)
}

func (a *App) DictationChanged(status domain.DictationStatus) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventDictation, status)
}

// FlowClosed tells the host the wizard has ended and should be dismissed.
func (a *App) FlowClosed(stage domain.Stage) {
	a.log.Info("screening flow closed", zap.String("stage", string(stage)))
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventClosed, map[string]string{
		"stage":   string(stage),
		"message": flowClosedMessage(stage),
	})
}

// SessionError emits backend errors to the UI.
func (a *App) SessionError(code domain.ErrorCode, detail string) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventError, map[string]string{
		"code":    string(code),
		"message": errorMessage(code, detail),
		"detail":  detail,
	})
}

func parseFileKind(kind string) (domain.FileKind, error) {
	switch domain.FileKind(kind) {
	case domain.FileResume, domain.FileCoverLetter:
		return domain.FileKind(kind), nil
	default:
		return "", fmt.Errorf("%w: %q", errUnknownFileKind, kind)
	}
}

func flowClosedMessage(stage domain.Stage) string {
	switch stage {
	case domain.StageSubmitted:
		return "Application submitted"
	case domain.StageCancelled:
		return "Screening cancelled"
	default:
		return ""
	}
}

func errorMessage(code domain.ErrorCode, detail string) string {
	switch code {
	case domain.ErrorCodeStartup:
		return "Startup failed"
	case domain.ErrorCodeValidation:
		if detail != "" {
			return detail
		}
		return "Invalid input"
	case domain.ErrorCodeVoiceConf:
		return "Voice calls are not configured"
	case domain.ErrorCodeVoice:
		return "Voice call error"
	case domain.ErrorCodeDictation:
		return "Speech recognition error"
	case domain.ErrorCodeAudio:
		return "Audio device issue"
	default:
		if detail == "" {
			return "Unknown error"
		}
		return detail
	}
}
