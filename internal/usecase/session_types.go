package usecase

import (
	"sync"
	"sync/atomic"

	"voicebar/internal/domain"
)

type activeSession struct {
	accumulator *transcriptAccumulator

	// streamDead flips when a failed/disconnected event arrives; capture
	// keeps running for the batch fallback.
	streamDead atomic.Bool

	stateMu sync.Mutex
	state   domain.SessionState
}

func newActiveSession() *activeSession {
	return &activeSession{
		accumulator: newTranscriptAccumulator(),
		state:       domain.SessionStateRecording,
	}
}

func (s *activeSession) setState(state domain.SessionState) {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	s.state = state
}

func (s *activeSession) getState() domain.SessionState {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.state
}
