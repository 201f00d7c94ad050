package domain

// SessionState models the push-to-talk lifecycle.
type SessionState string

const (
	SessionStateIdle      SessionState = "idle"
	SessionStateRecording SessionState = "recording"
	SessionStateStopping  SessionState = "stopping"
	SessionStateError     SessionState = "error"
)

// SessionStateReason provides a structured reason for state transitions.
type SessionStateReason string

const (
	SessionReasonMicReady            SessionStateReason = "mic_ready"
	SessionReasonRecordingStarted    SessionStateReason = "recording_started"
	SessionReasonRecordingRestarted  SessionStateReason = "recording_restarted"
	SessionReasonTranscribing        SessionStateReason = "transcribing"
	SessionReasonRealtimeTranscript  SessionStateReason = "realtime_transcript"
	SessionReasonBatchFallback       SessionStateReason = "batch_fallback"
	SessionReasonPreviewFallback     SessionStateReason = "preview_fallback"
	SessionReasonRecordingDiscarded  SessionStateReason = "recording_discarded"
	SessionReasonNoTranscript        SessionStateReason = "no_transcript"
	SessionReasonTranscriptionFailed SessionStateReason = "transcription_failed"
)

// ErrorCode identifies non-fatal and fatal backend errors.
type ErrorCode string

const (
	ErrorCodeStartup       ErrorCode = "startup"
	ErrorCodeAudioStop     ErrorCode = "audio_stop"
	ErrorCodeStream        ErrorCode = "stream"
	ErrorCodeTranscription ErrorCode = "transcription"
)

// ConnectionState is the realtime connection lifecycle, owned exclusively by
// the stream client.
type ConnectionState string

const (
	ConnStateIdle            ConnectionState = "idle"
	ConnStateConnecting      ConnectionState = "connecting"
	ConnStateOpen            ConnectionState = "open"
	ConnStateClosing         ConnectionState = "closing"
	ConnStateClosedWithError ConnectionState = "closed_with_error"
)

// StreamEventKind identifies inbound realtime transcription events.
type StreamEventKind string

const (
	StreamEventCommitted    StreamEventKind = "committed"
	StreamEventDelta        StreamEventKind = "delta"
	StreamEventCompleted    StreamEventKind = "completed"
	StreamEventFailed       StreamEventKind = "failed"
	StreamEventDisconnected StreamEventKind = "disconnected"
)

// StreamEvent is one inbound event from the realtime transcription service.
// ItemID joins events that belong to the same speech segment; the server does
// not guarantee arrival order across segments.
type StreamEvent struct {
	Kind           StreamEventKind
	ItemID         string
	PreviousItemID string
	Text           string
	Message        string
}

// TranscriptSnapshot is an immutable view of the accumulated transcript.
// Preview falls back to partial text for segments that have not completed;
// Final only includes segments with authoritative final text.
type TranscriptSnapshot struct {
	Preview string `json:"preview"`
	Final   string `json:"final"`
}

// TranscriptSource identifies which path produced the returned transcript.
type TranscriptSource string

const (
	TranscriptSourceRealtime TranscriptSource = "realtime"
	TranscriptSourceBatch    TranscriptSource = "batch"
	TranscriptSourcePreview  TranscriptSource = "preview"
)

// StopResult is returned once recording is stopped and transcription is processed.
type StopResult struct {
	Transcript string           `json:"transcript"`
	Source     TranscriptSource `json:"source"`
	AudioPath  string           `json:"audioPath"`
}

// Status summarizes the current runtime status.
type Status struct {
	State   SessionState `json:"state"`
	Active  bool         `json:"active"`
	Message string       `json:"message,omitempty"`
}
