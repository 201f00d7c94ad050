package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"voicebar/internal/metrics"
	"voicebar/internal/ports"
)

var (
	ErrAlreadyRecording = errors.New("capture session already active")
	ErrNotRecording     = errors.New("no capture session active")
)

// Engine owns the microphone tap. Each device buffer is metered, appended to
// a native-rate retained buffer, and resampled to the streaming rate for the
// chunk callback. The retained buffer becomes a WAV file on stop so a failed
// or lagging stream never loses captured audio.
type Engine struct {
	capture   ports.AudioCapture
	cfg       ports.AudioConfig
	chunkSize int
	logger    *log.Logger
	metrics   *metrics.Metrics

	mu      sync.Mutex
	current *activeCapture
}

// activeCapture holds everything belonging to one tap session. The tap
// goroutine only ever touches its own state, so a stale tap from a torn-down
// session cannot leak samples into the next one.
type activeCapture struct {
	session ports.AudioSession
	cancel  context.CancelFunc
	done    chan struct{}
	state   *captureState
}

type captureState struct {
	mu       sync.Mutex
	retained []int16
	level    float64
	chunks   uint64
}

func NewEngine(capture ports.AudioCapture, cfg ports.AudioConfig, chunkSize int, logger *log.Logger, m *metrics.Metrics) *Engine {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 48000
	}
	if cfg.Channels <= 0 {
		cfg.Channels = 1
	}
	if chunkSize < 256 {
		chunkSize = 4096
	}
	// Reads must cover whole interleaved frames.
	frameBytes := 2 * cfg.Channels
	chunkSize -= chunkSize % frameBytes

	return &Engine{
		capture:   capture,
		cfg:       cfg,
		chunkSize: chunkSize,
		logger:    logger,
		metrics:   m,
	}
}

// StartCapture installs the microphone tap and starts a fresh session. All
// per-session counters and the retained buffer start from zero.
func (e *Engine) StartCapture(ctx context.Context, onChunk ports.ChunkFunc) error {
	e.mu.Lock()
	if e.current != nil {
		e.mu.Unlock()
		return ErrAlreadyRecording
	}
	e.mu.Unlock()

	sessionCtx, cancel := context.WithCancel(ctx)
	session, err := e.capture.Start(sessionCtx, e.cfg)
	if err != nil {
		cancel()
		return fmt.Errorf("start audio engine: %w", err)
	}

	active := &activeCapture{
		session: session,
		cancel:  cancel,
		done:    make(chan struct{}),
		state:   &captureState{},
	}

	e.mu.Lock()
	if e.current != nil {
		e.mu.Unlock()
		cancel()
		_ = session.Stop()
		return ErrAlreadyRecording
	}
	e.current = active
	e.mu.Unlock()

	go e.tapLoop(active, onChunk)
	return nil
}

// StopCapture removes the tap and materializes the retained buffer as a WAV
// file at a fresh temporary path. Per-session state is cleared regardless of
// outcome.
func (e *Engine) StopCapture() (string, error) {
	active, ok := e.takeCurrent()
	if !ok {
		return "", ErrNotRecording
	}

	active.cancel()
	_ = active.session.Stop()
	<-active.done

	active.state.mu.Lock()
	retained := active.state.retained
	active.state.retained = nil
	active.state.level = 0
	active.state.mu.Unlock()

	// The WAV keeps the native capture rate, not the streaming rate.
	data, err := EncodeWAV(retained, e.cfg.SampleRate)
	if err != nil {
		return "", fmt.Errorf("encode retained audio: %w", err)
	}
	path := filepath.Join(os.TempDir(), "voicebar-"+uuid.NewString()+".wav")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("write wav file: %w", err)
	}

	e.logger.Debug("capture stopped", "samples", len(retained), "wav", path)
	return path, nil
}

// DiscardCapture is StopCapture without the file; safe to call when idle.
func (e *Engine) DiscardCapture() {
	active, ok := e.takeCurrent()
	if !ok {
		return
	}

	active.cancel()
	_ = active.session.Stop()
	<-active.done

	active.state.mu.Lock()
	active.state.retained = nil
	active.state.level = 0
	active.state.mu.Unlock()

	e.logger.Debug("capture discarded")
}

// CurrentInputLevel returns the most recent normalized input level, or 0 when
// no session is active. Callers that want a smooth meter apply their own decay.
func (e *Engine) CurrentInputLevel() float64 {
	e.mu.Lock()
	active := e.current
	e.mu.Unlock()
	if active == nil {
		return 0
	}

	active.state.mu.Lock()
	defer active.state.mu.Unlock()
	return active.state.level
}

func (e *Engine) takeCurrent() (*activeCapture, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.current == nil {
		return nil, false
	}
	active := e.current
	e.current = nil
	return active, true
}

func (e *Engine) tapLoop(active *activeCapture, onChunk ports.ChunkFunc) {
	defer close(active.done)

	buf := make([]byte, e.chunkSize)
	for {
		n, err := active.session.Read(buf)
		if n > 0 {
			chunk := e.process(active.state, buf[:n])
			if len(chunk) > 0 && onChunk != nil {
				onChunk(chunk)
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, os.ErrClosed) {
				e.logger.Debug("capture read ended", "err", err)
			}
			return
		}
	}
}

// process handles one device buffer. The critical section is O(buffer size);
// the chunk callback runs outside the lock.
func (e *Engine) process(state *captureState, raw []byte) []byte {
	mono := downmixMono(raw, e.cfg.Channels)
	if len(mono) == 0 {
		return nil
	}
	level := inputLevel(mono)

	state.mu.Lock()
	state.retained = append(state.retained, mono...)
	state.level = level
	state.chunks++
	chunks := state.chunks
	retained := len(state.retained)
	state.mu.Unlock()

	if chunks%100 == 0 {
		e.logger.Debug("capture progress", "chunks", chunks, "retained_samples", retained)
	}

	out := mono
	if needsResample(e.cfg.SampleRate) {
		out = resampleNearest(mono, e.cfg.SampleRate, StreamSampleRate)
	}
	if len(out) == 0 {
		return nil
	}

	e.metrics.AudioChunks.Inc()
	e.metrics.AudioBytes.Add(float64(len(out) * 2))
	e.metrics.InputLevel.Set(level)
	return pcmBytes(out)
}
