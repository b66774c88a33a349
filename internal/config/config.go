package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	CompletionThreshold = "threshold"
	CompletionScript    = "script"
)

// Config stores runtime configuration for the screening app.
type Config struct {
	Voice     VoiceConfig
	Deepgram  DeepgramConfig
	Audio     AudioConfig
	Screening ScreeningConfig
	Log       LogConfig
}

type VoiceConfig struct {
	APIKey        string
	APIBaseURL    string
	AssistantID   string
	FirstMessage  string
	SystemPrompt  string
	TargetSeconds int
}

type DeepgramConfig struct {
	APIKey      string
	APIBaseURL  string
	Model       string
	Language    string
	SmartFormat bool
}

type AudioConfig struct {
	RecorderCommand string
	InputFormat     string
	InputDevice     string
	SampleRate      int
	Channels        int
	ChunkSize       int
}

// ScreeningConfig controls the scripted text chat.
type ScreeningConfig struct {
	ThinkMin   time.Duration
	ThinkMax   time.Duration
	Completion string
}

type LogConfig struct {
	JSON  bool
	Debug bool
}

// Load resolves configuration from environment variables and sensible defaults.
func Load() (Config, error) {
	cfg := Config{
		Voice: VoiceConfig{
			APIKey:        strings.TrimSpace(os.Getenv("SCREENFLOW_VOICE_API_KEY")),
			APIBaseURL:    envOrDefault("SCREENFLOW_VOICE_API_BASE", "https://api.vapi.ai"),
			AssistantID:   strings.TrimSpace(os.Getenv("SCREENFLOW_VOICE_ASSISTANT_ID")),
			FirstMessage:  strings.TrimSpace(os.Getenv("SCREENFLOW_VOICE_FIRST_MESSAGE")),
			SystemPrompt:  strings.TrimSpace(os.Getenv("SCREENFLOW_VOICE_SYSTEM_PROMPT")),
			TargetSeconds: envOrDefaultInt("SCREENFLOW_VOICE_TARGET_SECONDS", 300),
		},
		Deepgram: DeepgramConfig{
			APIKey:      strings.TrimSpace(os.Getenv("DEEPGRAM_API_KEY")),
			APIBaseURL:  envOrDefault("DEEPGRAM_API_BASE", "https://api.deepgram.com/v1"),
			Model:       envOrDefault("DEEPGRAM_MODEL", "nova-2"),
			Language:    envOrDefault("DEEPGRAM_LANGUAGE", "en-US"),
			SmartFormat: envOrDefaultBool("DEEPGRAM_SMART_FORMAT", true),
		},
		Audio: AudioConfig{
			RecorderCommand: envOrDefault("SCREENFLOW_FFMPEG_COMMAND", "ffmpeg"),
			InputFormat:     envOrDefault("SCREENFLOW_AUDIO_INPUT_FORMAT", "pulse"),
			InputDevice:     envOrDefault("SCREENFLOW_AUDIO_INPUT_DEVICE", "default"),
			SampleRate:      envOrDefaultInt("SCREENFLOW_SAMPLE_RATE", 16000),
			Channels:        envOrDefaultInt("SCREENFLOW_CHANNELS", 1),
			ChunkSize:       envOrDefaultInt("SCREENFLOW_AUDIO_CHUNK_SIZE", 4096),
		},
		Screening: ScreeningConfig{
			ThinkMin:   time.Duration(envOrDefaultInt("SCREENFLOW_THINK_MIN_MS", 1000)) * time.Millisecond,
			ThinkMax:   time.Duration(envOrDefaultInt("SCREENFLOW_THINK_MAX_MS", 1500)) * time.Millisecond,
			Completion: strings.ToLower(envOrDefault("SCREENFLOW_COMPLETION", CompletionThreshold)),
		},
		Log: LogConfig{
			JSON:  envOrDefaultBool("SCREENFLOW_LOG_JSON", false),
			Debug: envOrDefaultBool("SCREENFLOW_LOG_DEBUG", false),
		},
	}

	if cfg.Voice.TargetSeconds <= 0 {
		cfg.Voice.TargetSeconds = 300
	}
	if cfg.Audio.SampleRate <= 0 {
		cfg.Audio.SampleRate = 16000
	}
	if cfg.Audio.Channels <= 0 {
		cfg.Audio.Channels = 1
	}
	if cfg.Audio.ChunkSize < 256 {
		cfg.Audio.ChunkSize = 4096
	}
	if cfg.Screening.ThinkMin <= 0 {
		cfg.Screening.ThinkMin = 1000 * time.Millisecond
	}
	if cfg.Screening.ThinkMax < cfg.Screening.ThinkMin {
		cfg.Screening.ThinkMax = cfg.Screening.ThinkMin
	}
	// Replies must land in under two seconds.
	if cfg.Screening.ThinkMax >= 2*time.Second {
		cfg.Screening.ThinkMax = 1999 * time.Millisecond
	}
	if cfg.Screening.ThinkMin > cfg.Screening.ThinkMax {
		cfg.Screening.ThinkMin = cfg.Screening.ThinkMax
	}
	if cfg.Screening.Completion != CompletionScript {
		cfg.Screening.Completion = CompletionThreshold
	}

	return cfg, nil
}

// VoiceConfigured reports whether a live call can be attempted at all.
func (c VoiceConfig) VoiceConfigured() bool {
	return c.APIKey != ""
}

func envOrDefault(key string, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func envOrDefaultInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func envOrDefaultBool(key string, fallback bool) bool {
	value := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	switch value {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}
