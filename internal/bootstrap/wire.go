package bootstrap

import (
	"go.uber.org/zap"

	"screenflow/internal/audio"
	"screenflow/internal/config"
	"screenflow/internal/dictation"
	"screenflow/internal/domain"
	"screenflow/internal/logger"
	"screenflow/internal/ports"
	"screenflow/internal/providers/deepgram"
	"screenflow/internal/providers/voicews"
	"screenflow/internal/usecase"
	"screenflow/internal/voice"
)

// Services is the assembled runtime graph.
type Services struct {
	Controller *usecase.ScreeningController
	Config     config.Config
	Logger     *zap.Logger
}

// Build wires all backend dependencies for the current runtime. A nil log is
// replaced by one built from the SCREENFLOW_LOG_* settings.
func Build(eventSink ports.EventSink, log *zap.Logger) (Services, error) {
	cfg, err := config.Load()
	if err != nil {
		return Services{}, err
	}
	if log == nil {
		log, err = logger.New(cfg.Log.JSON, cfg.Log.Debug)
		if err != nil {
			return Services{}, err
		}
	}

	audioCfg := ports.AudioConfig{
		SampleRate:  cfg.Audio.SampleRate,
		Channels:    cfg.Audio.Channels,
		InputFormat: cfg.Audio.InputFormat,
		InputDevice: cfg.Audio.InputDevice,
	}
	microphone := audio.NewMicrophone(cfg.Audio.RecorderCommand)
	transcriber := deepgram.NewProvider(deepgram.Config{
		APIKey:      cfg.Deepgram.APIKey,
		APIBaseURL:  cfg.Deepgram.APIBaseURL,
		Model:       cfg.Deepgram.Model,
		Language:    cfg.Deepgram.Language,
		SmartFormat: cfg.Deepgram.SmartFormat,
	})

	var voiceClient ports.VoiceClient
	if cfg.Voice.VoiceConfigured() {
		voiceClient = voicews.NewClient(voicews.Config{
			APIKey:     cfg.Voice.APIKey,
			APIBaseURL: cfg.Voice.APIBaseURL,
			Microphone: microphone,
			Audio:      audioCfg,
			ChunkSize:  cfg.Audio.ChunkSize,
		}, log)
	} else {
		log.Info("voice service key not set; live calls are disabled")
	}

	dictationSupported := transcriber.Configured() && microphone.Available()
	if !dictationSupported {
		log.Info("dictation unavailable",
			zap.Bool("deepgramKey", transcriber.Configured()),
			zap.String("recorder", cfg.Audio.RecorderCommand),
		)
	}

	script := usecase.NewScript(nil, "")
	completion := usecase.FixedThreshold(3)
	if cfg.Screening.Completion == config.CompletionScript {
		completion = usecase.AfterScript(script)
	}

	controller := usecase.NewScreeningController(
		voiceClient,
		microphone,
		transcriber,
		eventSink,
		usecase.Config{
			Script:     script,
			Completion: completion,
			ThinkMin:   cfg.Screening.ThinkMin,
			ThinkMax:   cfg.Screening.ThinkMax,
			Voice: voice.Config{
				Assistant:     assistantSpec(cfg.Voice),
				TargetSeconds: cfg.Voice.TargetSeconds,
			},
			Dictation: dictation.Config{
				Audio: audioCfg,
				Streaming: ports.StreamingConfig{
					SampleRate:     cfg.Audio.SampleRate,
					Channels:       cfg.Audio.Channels,
					Encoding:       "linear16",
					InterimResults: true,
				},
				ChunkSize: cfg.Audio.ChunkSize,
			},
			DictationSupported: dictationSupported,
		},
		log,
	)

	return Services{Controller: controller, Config: cfg, Logger: log}, nil
}

// assistantSpec prefers a stored assistant; otherwise an inline one is used
// when a first message was configured.
func assistantSpec(cfg config.VoiceConfig) domain.AssistantSpec {
	if cfg.AssistantID != "" {
		return domain.AssistantSpec{AssistantID: cfg.AssistantID}
	}
	if cfg.FirstMessage == "" {
		return domain.AssistantSpec{}
	}
	return domain.AssistantSpec{Inline: &domain.AssistantConfig{
		Name:         "Screening Assistant",
		FirstMessage: cfg.FirstMessage,
		SystemPrompt: cfg.SystemPrompt,
	}}
}
