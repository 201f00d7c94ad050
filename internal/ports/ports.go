package ports

import (
	"context"
	"io"
	"time"

	"voicebar/internal/domain"
)

// AudioConfig describes how the microphone should be captured. SampleRate and
// Channels are the native device values; the engine downsamples separately.
type AudioConfig struct {
	SampleRate  int
	Channels    int
	InputFormat string
	InputDevice string
}

// AudioSession is a live capture session delivering raw s16le PCM.
type AudioSession interface {
	io.ReadCloser
	Stop() error
}

// AudioCapture creates microphone capture sessions.
type AudioCapture interface {
	Start(ctx context.Context, cfg AudioConfig) (AudioSession, error)
}

// ChunkFunc receives one streaming PCM chunk. The chunk is owned by the
// callee; the engine never touches it again after the call.
type ChunkFunc func(chunk []byte)

// CaptureEngine owns the microphone tap. It emits low-rate streaming chunks
// through the registered callback while retaining the native-rate audio for a
// fallback WAV export.
type CaptureEngine interface {
	StartCapture(ctx context.Context, onChunk ChunkFunc) error
	StopCapture() (string, error)
	DiscardCapture()
	CurrentInputLevel() float64
}

// StreamHandler receives inbound realtime events, one at a time, in arrival
// order. It must not block for long: delivery is single-threaded.
type StreamHandler func(event domain.StreamEvent)

// RealtimeStream manages one realtime transcription connection.
type RealtimeStream interface {
	Connect(ctx context.Context, handler StreamHandler) error
	SendAudioChunk(chunk []byte)
	Finalize()
	WaitForCompletion(timeout time.Duration) bool
	Disconnect()
	State() domain.ConnectionState
}

// BatchTranscriber transcribes a finished recording in a single opaque call.
type BatchTranscriber interface {
	Transcribe(ctx context.Context, audioPath string) (string, error)
}

// EventSink emits backend state/events to the shell.
type EventSink interface {
	SessionStateChanged(state domain.SessionState, reason domain.SessionStateReason)
	PartialTranscript(text string)
	FinalTranscript(text string, source domain.TranscriptSource)
	SessionError(code domain.ErrorCode, detail string)
}
