package usecase

import (
	"context"
	"errors"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"screenflow/internal/dictation"
	"screenflow/internal/domain"
	"screenflow/internal/logger"
	"screenflow/internal/ports"
	"screenflow/internal/stage"
	"screenflow/internal/transcript"
	"screenflow/internal/uploads"
	"screenflow/internal/voice"
)

var (
	// ErrNotInChat is returned by chat, call and dictation operations outside the Chat stage.
	ErrNotInChat = errors.New("the chat stage is not active")

	// ErrEmptyMessage is returned for a message that is blank after trimming.
	ErrEmptyMessage = errors.New("message is empty")

	// ErrProcessing is returned while a scripted reply is pending.
	ErrProcessing = errors.New("the assistant is still composing a reply")

	// ErrConversationDone is returned by SendMessage once the closing message was sent.
	ErrConversationDone = errors.New("the screening conversation is already complete")

	// ErrWrongModality is returned when typed input is used in voice mode or a call in text mode.
	ErrWrongModality = errors.New("operation is not available in the current chat mode")

	// ErrModalityLocked is returned by SwitchModality while a call is connecting, active or ending.
	ErrModalityLocked = errors.New("cannot switch chat mode while a voice call is in progress")

	// ErrUnknownModality is returned for a modality other than text or voice.
	ErrUnknownModality = errors.New("unknown chat mode")

	// ErrSessionReset is returned by SendMessage when a reset abandoned the pending reply.
	ErrSessionReset = errors.New("session was reset")
)

const (
	maxThinkDelay   = 2 * time.Second
	defaultThinkMin = 1000 * time.Millisecond
	defaultThinkMax = 1500 * time.Millisecond
)

var defaultCompletionRule = FixedThreshold(3)

// Config controls the scripted chat and the components the controller owns.
type Config struct {
	Script     Script
	Completion CompletionRule
	ThinkMin   time.Duration
	ThinkMax   time.Duration

	Voice              voice.Config
	Dictation          dictation.Config
	DictationSupported bool
}

// ScreeningController orchestrates one screening session: the stage machine,
// uploads, transcript, scripted chat, dictation and the voice call.
type ScreeningController struct {
	uploads    *uploads.Registry
	transcript *transcript.Store
	voice      *voice.Manager
	dictation  *dictation.Recorder
	events     ports.EventSink
	cfg        Config
	log        *zap.Logger

	// callMu serializes modality switches with call starts. Taken before mu.
	callMu sync.Mutex

	mu         sync.Mutex
	stage      domain.Stage
	processing bool
	ready      bool
	modality   domain.Modality

	// sessionCtx is cancelled by Reset to abandon in-flight thinking delays.
	sessionCtx    context.Context
	cancelSession context.CancelFunc
	gen           uint64
}

// NewScreeningController builds a controller in the Initial stage. voiceClient
// may be nil when the voice service is not configured; microphone and
// transcriber may be nil when dictation is unavailable.
func NewScreeningController(
	voiceClient ports.VoiceClient,
	microphone ports.AudioCapture,
	transcriber ports.TranscriptionProvider,
	events ports.EventSink,
	cfg Config,
	log *zap.Logger,
) *ScreeningController {
	if cfg.Script.Len() == 0 {
		cfg.Script = NewScript(nil, "")
	}
	if cfg.Completion == nil {
		cfg.Completion = defaultCompletionRule
	}
	cfg.ThinkMin, cfg.ThinkMax = clampThink(cfg.ThinkMin, cfg.ThinkMax)
	if events == nil {
		events = nopSink{}
	}
	log = logger.OrNop(log)

	c := &ScreeningController{
		uploads:    uploads.NewRegistry(),
		transcript: transcript.NewStore(),
		events:     events,
		cfg:        cfg,
		log:        log.Named("screening"),
		stage:      domain.StageInitial,
		modality:   domain.ModalityText,
	}
	c.sessionCtx, c.cancelSession = context.WithCancel(context.Background())

	c.voice = voice.NewManager(voiceClient, cfg.Voice, voice.Hooks{
		StatusChanged: events.CallStateChanged,
		Message:       c.voiceMessage,
		CallEnded:     c.voiceCallEnded,
	}, log)
	c.dictation = dictation.NewRecorder(
		microphone,
		transcriber,
		cfg.DictationSupported,
		cfg.Dictation,
		events.DictationChanged,
		log,
	)
	return c
}

// Stage returns the active stage.
func (c *ScreeningController) Stage() domain.Stage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stage
}

// Open starts a fresh session in the Initial stage.
func (c *ScreeningController) Open() {
	c.Reset()
	c.log.Info("screening session opened")
}

func (c *ScreeningController) Begin() error  { return c.apply(domain.ActionBegin) }
func (c *ScreeningController) Next() error   { return c.apply(domain.ActionNext) }
func (c *ScreeningController) Back() error   { return c.apply(domain.ActionBack) }
func (c *ScreeningController) Finish() error { return c.apply(domain.ActionFinish) }
func (c *ScreeningController) Submit() error { return c.apply(domain.ActionSubmit) }
func (c *ScreeningController) Cancel() error { return c.apply(domain.ActionCancel) }

// Exit backs out of the flow before Completion.
func (c *ScreeningController) Exit() error { return c.apply(domain.ActionExit) }

// ContinueToChat leaves Upload; a resume must be present.
func (c *ScreeningController) ContinueToChat() error { return c.apply(domain.ActionContinue) }

func (c *ScreeningController) apply(action domain.Action) error {
	c.mu.Lock()
	from := c.stage
	guards := stage.Guards{
		HasResume:            c.uploads.HasResume(),
		ConversationComplete: c.ready,
	}
	next, err := stage.Transition(from, action, guards)
	if err != nil {
		c.mu.Unlock()
		c.log.Debug("transition rejected", zap.String("stage", string(from)), zap.String("action", string(action)), zap.Error(err))
		return err
	}
	c.stage = next
	var opening *domain.Message
	if next == domain.StageChat && c.transcript.Len() == 0 {
		message := c.transcript.Append(domain.SenderAssistant, c.cfg.Script.Opening())
		opening = &message
	}
	c.mu.Unlock()

	c.log.Debug("stage changed", zap.String("from", string(from)), zap.String("to", string(next)))

	if from == domain.StageChat {
		c.leaveChat()
	}
	if next.Terminal() {
		c.events.FlowClosed(next)
		c.Reset()
		return nil
	}

	c.events.StageChanged(next)
	if opening != nil {
		c.events.MessageAppended(*opening)
	}
	return nil
}

// leaveChat releases the chat-only resources.
func (c *ScreeningController) leaveChat() {
	c.voice.Reset()
	c.dictation.Close()

	c.mu.Lock()
	c.modality = domain.ModalityText
	c.mu.Unlock()
}

// SetFile stores or clears (empty name) a document reference.
func (c *ScreeningController) SetFile(kind domain.FileKind, name string) error {
	if err := c.uploads.SetFile(kind, name); err != nil {
		c.reportValidation(err)
		return err
	}
	return nil
}

// AttachFile validates a picked document and stores its name.
func (c *ScreeningController) AttachFile(kind domain.FileKind, name string, size int64) error {
	if err := uploads.CheckFile(name, size); err != nil {
		c.reportValidation(err)
		return err
	}
	return c.SetFile(kind, name)
}

func (c *ScreeningController) AddLink(link string) error {
	if err := c.uploads.AddLink(link); err != nil {
		c.reportValidation(err)
		return err
	}
	return nil
}

// RemoveLink reports whether a link was removed.
func (c *ScreeningController) RemoveLink(link string) bool {
	return c.uploads.RemoveLink(link)
}

func (c *ScreeningController) reportValidation(err error) {
	c.log.Debug("validation failed", zap.Error(err))
	c.events.SessionError(domain.ErrorCodeValidation, err.Error())
}

// SendMessage appends the user's message, waits a short thinking delay and
// appends the assistant's scripted reply. Only one exchange runs at a time
// and only Reset abandons a pending reply.
func (c *ScreeningController) SendMessage(text string) error {
	text = strings.TrimSpace(text)

	c.mu.Lock()
	switch {
	case c.stage != domain.StageChat:
		c.mu.Unlock()
		return ErrNotInChat
	case c.modality != domain.ModalityText:
		c.mu.Unlock()
		return ErrWrongModality
	case text == "":
		c.mu.Unlock()
		return ErrEmptyMessage
	case c.processing:
		c.mu.Unlock()
		return ErrProcessing
	case c.ready:
		c.mu.Unlock()
		return ErrConversationDone
	}
	userMessage := c.transcript.Append(domain.SenderUser, text)
	c.processing = true
	gen := c.gen
	sessionCtx := c.sessionCtx
	c.mu.Unlock()

	c.events.MessageAppended(userMessage)
	c.events.ProcessingChanged(true)
	c.log.Debug("user message", zap.String("text", logger.TruncateForLog(text, 80)))

	timer := time.NewTimer(c.thinkDelay())
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-sessionCtx.Done():
		return ErrSessionReset
	}

	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		return ErrSessionReset
	}
	reply, done := c.nextReplyLocked()
	message := c.transcript.Append(domain.SenderAssistant, reply)
	if done {
		c.ready = true
	}
	c.processing = false
	c.mu.Unlock()

	c.events.MessageAppended(message)
	c.events.ProcessingChanged(false)
	if done {
		c.log.Info("screening conversation complete", zap.Int("messages", c.transcript.Len()))
	}
	return nil
}

// nextReplyLocked picks the assistant reply for the current transcript.
func (c *ScreeningController) nextReplyLocked() (string, bool) {
	n := c.transcript.Len()
	if c.cfg.Completion(n + 1) {
		return ClosingMessage, true
	}
	return c.cfg.Script.At(CursorFor(n)), false
}

func (c *ScreeningController) thinkDelay() time.Duration {
	spread := c.cfg.ThinkMax - c.cfg.ThinkMin
	if spread <= 0 {
		return c.cfg.ThinkMin
	}
	return c.cfg.ThinkMin + time.Duration(rand.Int64N(int64(spread)+1))
}

// clampThink keeps the thinking delay non-zero and under two seconds.
func clampThink(minDelay, maxDelay time.Duration) (time.Duration, time.Duration) {
	if minDelay <= 0 && maxDelay <= 0 {
		return defaultThinkMin, defaultThinkMax
	}
	if minDelay <= 0 {
		minDelay = time.Millisecond
	}
	if maxDelay < minDelay {
		maxDelay = minDelay
	}
	if maxDelay >= maxThinkDelay {
		maxDelay = maxThinkDelay - time.Millisecond
	}
	if minDelay > maxDelay {
		minDelay = maxDelay
	}
	return minDelay, maxDelay
}

// ReadyToAdvance gates the "proceed" control on the chat stage.
func (c *ScreeningController) ReadyToAdvance() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ready
}

// IsProcessing reports whether a scripted reply is pending.
func (c *ScreeningController) IsProcessing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.processing
}

// SwitchModality changes between typed chat and live voice. It is refused
// while a call is connecting, active or ending.
func (c *ScreeningController) SwitchModality(m domain.Modality) error {
	if m != domain.ModalityText && m != domain.ModalityVoice {
		return ErrUnknownModality
	}

	c.callMu.Lock()
	defer c.callMu.Unlock()
	if c.voice.Status().State.Busy() {
		return ErrModalityLocked
	}

	c.mu.Lock()
	if c.stage != domain.StageChat {
		c.mu.Unlock()
		return ErrNotInChat
	}
	if c.processing {
		c.mu.Unlock()
		return ErrProcessing
	}
	changed := c.modality != m
	c.modality = m
	c.mu.Unlock()

	if changed && m == domain.ModalityVoice {
		c.dictation.Close()
	}
	return nil
}

// Modality returns the active chat mode.
func (c *ScreeningController) Modality() domain.Modality {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.modality
}

// StartCall begins a live voice call. Configuration and transport problems
// are also reported through the event sink.
func (c *ScreeningController) StartCall(ctx context.Context) error {
	c.callMu.Lock()
	defer c.callMu.Unlock()

	c.mu.Lock()
	switch {
	case c.stage != domain.StageChat:
		c.mu.Unlock()
		return ErrNotInChat
	case c.modality != domain.ModalityVoice:
		c.mu.Unlock()
		return ErrWrongModality
	}
	c.mu.Unlock()

	err := c.voice.StartCall(ctx)
	switch {
	case err == nil, errors.Is(err, voice.ErrCallInProgress):
		return err
	case errors.Is(err, voice.ErrNotConfigured), errors.Is(err, voice.ErrNoAssistant):
		c.events.SessionError(domain.ErrorCodeVoiceConf, err.Error())
	default:
		c.events.SessionError(domain.ErrorCodeVoice, err.Error())
	}
	return err
}

// StopCall hangs up an active call. It is a no-op otherwise.
func (c *ScreeningController) StopCall() error {
	if err := c.voice.StopCall(); err != nil {
		c.events.SessionError(domain.ErrorCodeVoice, err.Error())
		return err
	}
	return nil
}

func (c *ScreeningController) ToggleMute() error {
	return c.voice.ToggleMute()
}

func (c *ScreeningController) CallStatus() domain.CallStatus {
	return c.voice.Status()
}

func (c *ScreeningController) voiceMessage(sender domain.Sender, text string) {
	c.mu.Lock()
	if c.stage != domain.StageChat || strings.TrimSpace(text) == "" {
		c.mu.Unlock()
		return
	}
	message := c.transcript.Append(sender, text)
	c.mu.Unlock()

	c.events.MessageAppended(message)
}

func (c *ScreeningController) voiceCallEnded() {
	c.mu.Lock()
	if c.stage != domain.StageChat || c.ready || !c.cfg.Completion(c.transcript.Len()) {
		c.mu.Unlock()
		return
	}
	c.ready = true
	c.mu.Unlock()

	c.log.Info("voice screening complete", zap.Int("messages", c.transcript.Len()))
}

// StartDictation begins voice-to-text capture for the typed chat input.
func (c *ScreeningController) StartDictation(ctx context.Context) error {
	c.mu.Lock()
	switch {
	case c.stage != domain.StageChat:
		c.mu.Unlock()
		return ErrNotInChat
	case c.modality != domain.ModalityText:
		c.mu.Unlock()
		return ErrWrongModality
	case c.processing:
		c.mu.Unlock()
		return ErrProcessing
	}
	c.mu.Unlock()

	if err := c.dictation.Start(ctx); err != nil {
		c.events.SessionError(domain.ErrorCodeDictation, err.Error())
		return err
	}
	return nil
}

// StopDictation ends capture and returns the text for the input box.
func (c *ScreeningController) StopDictation() (string, error) {
	text, err := c.dictation.Stop()
	if err != nil && !errors.Is(err, dictation.ErrNotListening) {
		c.events.SessionError(domain.ErrorCodeDictation, err.Error())
	}
	return text, err
}

func (c *ScreeningController) DictationStatus() domain.DictationStatus {
	return c.dictation.Status()
}

// Snapshot returns everything needed to render the active stage.
func (c *ScreeningController) Snapshot() domain.Snapshot {
	call := c.voice.Status()
	dictationStatus := c.dictation.Status()

	c.mu.Lock()
	defer c.mu.Unlock()
	return domain.Snapshot{
		Stage:          c.stage,
		Uploads:        c.uploads.Snapshot(),
		Transcript:     c.transcript.Messages(),
		IsProcessing:   c.processing,
		ReadyToAdvance: c.ready,
		Modality:       c.modality,
		Call:           call,
		Dictation:      dictationStatus,
	}
}

// Reset destroys the session: any call is hung up, pending replies are
// abandoned and every field returns to its initial value.
func (c *ScreeningController) Reset() {
	c.voice.Reset()
	c.dictation.Close()

	c.mu.Lock()
	c.cancelSession()
	c.sessionCtx, c.cancelSession = context.WithCancel(context.Background())
	c.gen++
	c.stage = domain.StageInitial
	c.processing = false
	c.ready = false
	c.modality = domain.ModalityText
	c.uploads.Reset()
	c.transcript.Reset()
	c.mu.Unlock()

	c.log.Debug("session reset")
	c.events.ProcessingChanged(false)
	c.events.StageChanged(domain.StageInitial)
}

// Close resets the session and releases the voice client.
func (c *ScreeningController) Close() {
	c.Reset()
	c.voice.Close()
	c.mu.Lock()
	c.cancelSession()
	c.mu.Unlock()
}

type nopSink struct{}

func (nopSink) StageChanged(domain.Stage)               {}
func (nopSink) MessageAppended(domain.Message)          {}
func (nopSink) ProcessingChanged(bool)                  {}
func (nopSink) CallStateChanged(domain.CallStatus)      {}
func (nopSink) DictationChanged(domain.DictationStatus) {}
func (nopSink) FlowClosed(domain.Stage)                 {}
func (nopSink) SessionError(domain.ErrorCode, string)   {}
