package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"voicebar/internal/domain"
	"voicebar/internal/metrics"
	"voicebar/internal/ports"
)

var ErrNoActiveSession = errors.New("no active recording session")

// Config controls session orchestration behavior.
type Config struct {
	// CompletionWait bounds how long Stop waits for the realtime stream to
	// deliver its terminal completed event before falling back.
	CompletionWait time.Duration
}

// SessionController orchestrates push-to-talk recording: capture chunks into
// the realtime stream, stream events into the accumulator, and batch fallback
// when the live stream fails or lags.
type SessionController struct {
	engine    ports.CaptureEngine
	stream    ports.RealtimeStream
	events    ports.EventSink
	finalizer transcriptFinalizer
	logger    *log.Logger
	metrics   *metrics.Metrics
	cfg       Config

	mu      sync.Mutex
	current *activeSession
}

func NewSessionController(
	engine ports.CaptureEngine,
	stream ports.RealtimeStream,
	batch ports.BatchTranscriber,
	events ports.EventSink,
	logger *log.Logger,
	m *metrics.Metrics,
	cfg Config,
) *SessionController {
	if cfg.CompletionWait <= 0 {
		cfg.CompletionWait = 3 * time.Second
	}
	return &SessionController{
		engine:    engine,
		stream:    stream,
		events:    events,
		finalizer: newTranscriptFinalizer(batch, events, logger),
		logger:    logger,
		metrics:   m,
		cfg:       cfg,
	}
}

// Start begins a new capture/transcription session, discarding any session
// still in flight.
func (c *SessionController) Start(ctx context.Context) error {
	var previous *activeSession
	c.mu.Lock()
	if c.current != nil {
		previous = c.current
		c.current = nil
	}
	c.mu.Unlock()
	if previous != nil {
		c.teardownSession(previous)
	}

	active := newActiveSession()
	if err := c.stream.Connect(ctx, func(event domain.StreamEvent) {
		c.handleStreamEvent(active, event)
	}); err != nil {
		return fmt.Errorf("connect realtime stream: %w", err)
	}

	err := c.engine.StartCapture(ctx, func(chunk []byte) {
		// Fire-and-forget: a slow or failed send must never stall capture.
		go c.stream.SendAudioChunk(chunk)
	})
	if err != nil {
		c.stream.Disconnect()
		return err
	}

	c.mu.Lock()
	c.current = active
	c.mu.Unlock()

	reason := domain.SessionReasonRecordingStarted
	if previous != nil {
		reason = domain.SessionReasonRecordingRestarted
	}
	c.events.SessionStateChanged(domain.SessionStateRecording, reason)
	return nil
}

// Stop ends the active session and returns the best available transcript.
// The retained WAV survives even when every transcription path fails.
func (c *SessionController) Stop(ctx context.Context) (domain.StopResult, error) {
	active, err := c.getCurrent()
	if err != nil {
		return domain.StopResult{}, err
	}

	active.setState(domain.SessionStateStopping)
	c.events.SessionStateChanged(domain.SessionStateStopping, domain.SessionReasonTranscribing)

	audioPath, stopErr := c.engine.StopCapture()
	if stopErr != nil {
		c.events.SessionError(domain.ErrorCodeAudioStop, stopErr.Error())
	}

	completed := false
	if !active.streamDead.Load() {
		c.stream.Finalize()
		completed = c.stream.WaitForCompletion(c.cfg.CompletionWait)
	}
	snapshot := active.accumulator.Snapshot()
	c.stream.Disconnect()

	result, reason, finErr := c.finalizer.Finalize(ctx, snapshot, completed, audioPath)
	active.accumulator.Reset()
	if finErr != nil {
		c.metrics.Sessions.WithLabelValues("empty").Inc()
		c.finishSession(active, domain.SessionStateIdle, reason)
		return domain.StopResult{AudioPath: audioPath}, finErr
	}

	c.metrics.Sessions.WithLabelValues(string(result.Source)).Inc()
	c.events.FinalTranscript(result.Transcript, result.Source)
	c.finishSession(active, domain.SessionStateIdle, reason)
	return result, nil
}

// Abort cancels and discards the active session without transcription.
func (c *SessionController) Abort() error {
	active, err := c.getCurrent()
	if err != nil {
		return err
	}

	c.teardownSession(active)
	c.metrics.Sessions.WithLabelValues("discarded").Inc()
	c.finishSession(active, domain.SessionStateIdle, domain.SessionReasonRecordingDiscarded)
	return nil
}

// Status returns the current backend status.
func (c *SessionController) Status() domain.Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return domain.Status{State: domain.SessionStateIdle, Active: false}
	}
	state := c.current.getState()
	return domain.Status{State: state, Active: state != domain.SessionStateIdle}
}

// InputLevel exposes the capture engine's live level for metering.
func (c *SessionController) InputLevel() float64 {
	return c.engine.CurrentInputLevel()
}

func (c *SessionController) handleStreamEvent(active *activeSession, event domain.StreamEvent) {
	switch event.Kind {
	case domain.StreamEventCommitted:
		active.accumulator.HandleCommitted(event.ItemID, event.PreviousItemID)
	case domain.StreamEventDelta:
		snapshot := active.accumulator.HandleDelta(event.ItemID, event.Text)
		c.events.PartialTranscript(snapshot.Preview)
	case domain.StreamEventCompleted:
		snapshot := active.accumulator.HandleCompleted(event.ItemID, event.Text)
		c.events.PartialTranscript(snapshot.Preview)
	case domain.StreamEventFailed, domain.StreamEventDisconnected:
		active.streamDead.Store(true)
		c.logger.Warn("realtime stream unusable", "kind", event.Kind, "message", event.Message)
		c.events.SessionError(domain.ErrorCodeStream, event.Message)
	}
}

func (c *SessionController) getCurrent() (*activeSession, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return nil, ErrNoActiveSession
	}
	return c.current, nil
}

func (c *SessionController) teardownSession(active *activeSession) {
	c.engine.DiscardCapture()
	c.stream.Disconnect()
	active.accumulator.Reset()
}

func (c *SessionController) finishSession(active *activeSession, state domain.SessionState, reason domain.SessionStateReason) {
	active.setState(state)

	c.mu.Lock()
	if c.current == active {
		c.current = nil
	}
	c.mu.Unlock()

	c.events.SessionStateChanged(state, reason)
}
