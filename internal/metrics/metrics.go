package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains the Prometheus collectors for the dictation backend.
type Metrics struct {
	AudioChunks  prometheus.Counter
	AudioBytes   prometheus.Counter
	InputLevel   prometheus.Gauge
	StreamEvents *prometheus.CounterVec
	StreamSends  prometheus.Counter
	Sessions     *prometheus.CounterVec
}

// New creates and registers all collectors against the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		AudioChunks: factory.NewCounter(prometheus.CounterOpts{
			Name: "voicebar_audio_chunks_total",
			Help: "Streaming audio chunks emitted by the capture engine",
		}),
		AudioBytes: factory.NewCounter(prometheus.CounterOpts{
			Name: "voicebar_audio_bytes_total",
			Help: "Bytes of resampled PCM emitted for streaming",
		}),
		InputLevel: factory.NewGauge(prometheus.GaugeOpts{
			Name: "voicebar_input_level",
			Help: "Most recent microphone input level in [0,1]",
		}),
		StreamEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "voicebar_stream_events_total",
			Help: "Inbound realtime transcription events by kind",
		}, []string{"kind"}),
		StreamSends: factory.NewCounter(prometheus.CounterOpts{
			Name: "voicebar_stream_sends_total",
			Help: "Audio append messages handed to the realtime connection",
		}),
		Sessions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "voicebar_sessions_total",
			Help: "Completed dictation sessions by outcome",
		}, []string{"outcome"}),
	}
}
