package bootstrap

import (
	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"

	"voicebar/internal/audio"
	"voicebar/internal/config"
	"voicebar/internal/metrics"
	"voicebar/internal/ports"
	"voicebar/internal/providers/openai"
	"voicebar/internal/usecase"
)

// Services is the assembled runtime graph.
type Services struct {
	Controller *usecase.SessionController
	Config     config.Config
}

// Build wires all backend dependencies for the current runtime.
func Build(eventSink ports.EventSink, logger *log.Logger, registry prometheus.Registerer) (Services, error) {
	cfg, err := config.Load()
	if err != nil {
		return Services{}, err
	}
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	m := metrics.New(registry)

	openaiCfg := openai.Config{
		APIKey:        cfg.OpenAI.APIKey,
		APIBaseURL:    cfg.OpenAI.APIBaseURL,
		RealtimeModel: cfg.OpenAI.RealtimeModel,
		BatchModel:    cfg.OpenAI.BatchModel,
		Prompt:        cfg.OpenAI.Prompt,
		Language:      cfg.OpenAI.Language,
	}

	engine := audio.NewEngine(
		audio.NewFFmpegCapture(cfg.Audio.RecorderCommand, logger.With("component", "capture")),
		ports.AudioConfig{
			SampleRate:  cfg.Audio.SampleRate,
			Channels:    cfg.Audio.Channels,
			InputFormat: cfg.Audio.InputFormat,
			InputDevice: cfg.Audio.InputDevice,
		},
		cfg.Audio.ChunkSize,
		logger.With("component", "engine"),
		m,
	)

	stream := openai.NewRealtimeClient(
		openaiCfg,
		openai.VADOptions{
			Threshold:       cfg.Session.VADThreshold,
			PrefixPadding:   cfg.Session.VADPadding,
			SilenceDuration: cfg.Session.VADSilence,
		},
		logger.With("component", "realtime"),
		m,
	)

	controller := usecase.NewSessionController(
		engine,
		stream,
		openai.NewBatchTranscriber(openaiCfg, logger.With("component", "batch")),
		eventSink,
		logger.With("component", "controller"),
		m,
		usecase.Config{CompletionWait: cfg.Session.CompletionWait},
	)

	return Services{Controller: controller, Config: cfg}, nil
}
