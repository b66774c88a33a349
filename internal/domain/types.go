package domain

import "time"

// Stage is one screen of the screening wizard.
type Stage string

const (
	StageInitial    Stage = "initial"
	StageGuidance   Stage = "guidance"
	StageUpload     Stage = "upload"
	StageChat       Stage = "chat"
	StageCompletion Stage = "completion"
	StageCancelled  Stage = "cancelled"
	StageSubmitted  Stage = "submitted"
)

// Terminal reports whether the stage only signals the host to close the flow.
func (s Stage) Terminal() bool {
	return s == StageCancelled || s == StageSubmitted
}

// Action is a user intent applied to the stage machine.
type Action string

const (
	ActionBegin    Action = "begin"
	ActionNext     Action = "next"
	ActionContinue Action = "continue"
	ActionFinish   Action = "finish"
	ActionSubmit   Action = "submit"
	ActionCancel   Action = "cancel"
	ActionBack     Action = "back"
	ActionExit     Action = "exit"
)

// Sender identifies who authored a transcript message.
type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

// Message is one immutable transcript entry.
type Message struct {
	ID        string    `json:"id"`
	Sender    Sender    `json:"sender"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// FileKind names the single-slot document uploads.
type FileKind string

const (
	FileResume      FileKind = "resume"
	FileCoverLetter FileKind = "coverLetter"
)

// Uploads is a snapshot of the upload registry.
type Uploads struct {
	Resume      string   `json:"resume,omitempty"`
	CoverLetter string   `json:"coverLetter,omitempty"`
	Links       []string `json:"links"`
}

// Modality is the active chat input mode.
type Modality string

const (
	ModalityText  Modality = "text"
	ModalityVoice Modality = "voice"
)

// CallState models the remote voice call lifecycle.
type CallState string

const (
	CallStateIdle       CallState = "idle"
	CallStateConnecting CallState = "connecting"
	CallStateActive     CallState = "active"
	CallStateEnding     CallState = "ending"
	CallStateError      CallState = "error"
)

// Busy reports whether a call is in flight and modality switching must be refused.
func (s CallState) Busy() bool {
	return s == CallStateConnecting || s == CallStateActive || s == CallStateEnding
}

// ErrorKind separates configuration problems from transport failures.
type ErrorKind string

const (
	ErrorKindNone    ErrorKind = ""
	ErrorKindConfig  ErrorKind = "config"
	ErrorKindRuntime ErrorKind = "runtime"
)

// CallStatus is the observable state of the voice session manager.
type CallStatus struct {
	State             CallState `json:"state"`
	Muted             bool      `json:"muted"`
	AssistantSpeaking bool      `json:"assistantSpeaking"`
	ElapsedSeconds    int       `json:"elapsedSeconds"`
	TargetSeconds     int       `json:"targetSeconds"`
	ErrorKind         ErrorKind `json:"errorKind,omitempty"`
	Error             string    `json:"error,omitempty"`
}

// VoiceEventType enumerates notifications from the remote voice service.
type VoiceEventType string

const (
	VoiceEventCallStart   VoiceEventType = "call-start"
	VoiceEventCallEnd     VoiceEventType = "call-end"
	VoiceEventSpeechStart VoiceEventType = "speech-start"
	VoiceEventSpeechEnd   VoiceEventType = "speech-end"
	VoiceEventMessage     VoiceEventType = "message"
	VoiceEventError       VoiceEventType = "error"
)

// VoiceEvent is a normalized notification from the remote voice service.
type VoiceEvent struct {
	// CallID is the id the call was started with.
	CallID uint64
	Type   VoiceEventType
	Role   Sender
	Text   string
	Final  bool
	Err    string
}

// AssistantSpec identifies the remote assistant, either by reference or inline.
type AssistantSpec struct {
	AssistantID string           `json:"assistantId,omitempty"`
	Inline      *AssistantConfig `json:"assistant,omitempty"`
}

// Valid reports whether a usable assistant identity was supplied.
func (s AssistantSpec) Valid() bool {
	if s.AssistantID != "" {
		return true
	}
	return s.Inline != nil && s.Inline.FirstMessage != ""
}

// AssistantConfig is an inline assistant definition.
type AssistantConfig struct {
	Name         string `json:"name,omitempty"`
	FirstMessage string `json:"firstMessage"`
	SystemPrompt string `json:"systemPrompt,omitempty"`
	Model        string `json:"model,omitempty"`
	Voice        string `json:"voice,omitempty"`
}

// TranscriptKind identifies whether a stream event is partial or final text.
type TranscriptKind string

const (
	TranscriptKindPartial TranscriptKind = "partial"
	TranscriptKindFinal   TranscriptKind = "final"
)

// TranscriptEvent represents incremental speech-to-text output.
type TranscriptEvent struct {
	Kind          TranscriptKind `json:"kind"`
	Text          string         `json:"text"`
	IsSpeechFinal bool           `json:"isSpeechFinal"`
}

// DictationStatus is the state of the voice-to-text convenience control.
type DictationStatus struct {
	Supported bool   `json:"supported"`
	Listening bool   `json:"listening"`
	Text      string `json:"text,omitempty"`
	Error     string `json:"error,omitempty"`
}

// ErrorCode identifies errors reported to the host surface.
type ErrorCode string

const (
	ErrorCodeStartup    ErrorCode = "startup"
	ErrorCodeValidation ErrorCode = "validation"
	ErrorCodeVoiceConf  ErrorCode = "voice_config"
	ErrorCodeVoice      ErrorCode = "voice"
	ErrorCodeDictation  ErrorCode = "dictation"
	ErrorCodeAudio      ErrorCode = "audio"
)

// Snapshot is everything a host needs to render the active stage.
type Snapshot struct {
	Stage          Stage           `json:"stage"`
	Uploads        Uploads         `json:"uploads"`
	Transcript     []Message       `json:"transcript"`
	IsProcessing   bool            `json:"isProcessing"`
	ReadyToAdvance bool            `json:"readyToAdvance"`
	Modality       Modality        `json:"modality"`
	Call           CallStatus      `json:"call"`
	Dictation      DictationStatus `json:"dictation"`
}
