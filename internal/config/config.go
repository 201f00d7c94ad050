package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config stores runtime configuration for the dictation backend.
type Config struct {
	OpenAI  OpenAIConfig
	Audio   AudioConfig
	Session SessionConfig
	Metrics MetricsConfig
}

type OpenAIConfig struct {
	APIKey        string
	APIBaseURL    string
	RealtimeModel string
	BatchModel    string
	Prompt        string
	Language      string
}

type AudioConfig struct {
	RecorderCommand string
	InputFormat     string
	InputDevice     string
	SampleRate      int
	Channels        int
	ChunkSize       int
}

type SessionConfig struct {
	CompletionWait time.Duration
	VADThreshold   float64
	VADPadding     time.Duration
	VADSilence     time.Duration
}

type MetricsConfig struct {
	ListenAddr string
}

// Load resolves configuration from environment variables and sensible defaults.
func Load() (Config, error) {
	cfg := Config{
		OpenAI: OpenAIConfig{
			APIKey:        strings.TrimSpace(os.Getenv("OPENAI_API_KEY")),
			APIBaseURL:    envOrDefault("OPENAI_API_BASE", "https://api.openai.com/v1"),
			RealtimeModel: envOrDefault("VOICEBAR_REALTIME_MODEL", "gpt-4o-transcribe"),
			BatchModel:    envOrDefault("VOICEBAR_BATCH_MODEL", "whisper-1"),
			Prompt:        strings.TrimSpace(os.Getenv("VOICEBAR_PROMPT")),
			Language:      strings.TrimSpace(os.Getenv("VOICEBAR_LANGUAGE")),
		},
		Audio: AudioConfig{
			RecorderCommand: envOrDefault("VOICEBAR_FFMPEG_COMMAND", "ffmpeg"),
			InputFormat:     envOrDefault("VOICEBAR_AUDIO_INPUT_FORMAT", "pulse"),
			InputDevice:     envOrDefault("VOICEBAR_AUDIO_INPUT_DEVICE", "default"),
			SampleRate:      envOrDefaultInt("VOICEBAR_SAMPLE_RATE", 48000),
			Channels:        envOrDefaultInt("VOICEBAR_CHANNELS", 1),
			ChunkSize:       envOrDefaultInt("VOICEBAR_AUDIO_CHUNK_SIZE", 4096),
		},
		Session: SessionConfig{
			CompletionWait: time.Duration(envOrDefaultInt("VOICEBAR_COMPLETION_WAIT_MS", 3000)) * time.Millisecond,
			VADThreshold:   envOrDefaultFloat("VOICEBAR_VAD_THRESHOLD", 0.5),
			VADPadding:     time.Duration(envOrDefaultInt("VOICEBAR_VAD_PADDING_MS", 300)) * time.Millisecond,
			VADSilence:     time.Duration(envOrDefaultInt("VOICEBAR_VAD_SILENCE_MS", 500)) * time.Millisecond,
		},
		Metrics: MetricsConfig{
			ListenAddr: strings.TrimSpace(os.Getenv("VOICEBAR_METRICS_ADDR")),
		},
	}

	if cfg.Audio.SampleRate <= 0 {
		cfg.Audio.SampleRate = 48000
	}
	if cfg.Audio.Channels <= 0 {
		cfg.Audio.Channels = 1
	}
	if cfg.Audio.ChunkSize < 256 {
		cfg.Audio.ChunkSize = 4096
	}
	if cfg.Session.CompletionWait < 0 {
		cfg.Session.CompletionWait = 3 * time.Second
	}
	if cfg.Session.VADThreshold <= 0 || cfg.Session.VADThreshold > 1 {
		cfg.Session.VADThreshold = 0.5
	}

	return cfg, nil
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

func envOrDefaultFloat(key string, fallback float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}
