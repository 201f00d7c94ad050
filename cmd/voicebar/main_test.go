package main

import (
	"testing"

	"voicebar/internal/domain"
)

func TestSessionReasonMessage(t *testing.T) {
	t.Parallel()

	cases := map[domain.SessionStateReason]string{
		domain.SessionReasonMicReady:            "Mic ready",
		domain.SessionReasonRecordingStarted:    "Recording started",
		domain.SessionReasonRecordingRestarted:  "Recording restarted; previous capture discarded",
		domain.SessionReasonTranscribing:        "Recording stopped. Transcribing...",
		domain.SessionReasonRealtimeTranscript:  "Transcript ready (realtime)",
		domain.SessionReasonBatchFallback:       "Transcript ready (batch fallback)",
		domain.SessionReasonPreviewFallback:     "Transcript ready (live preview only)",
		domain.SessionReasonRecordingDiscarded:  "Recording discarded",
		domain.SessionReasonNoTranscript:        "No transcript captured",
		domain.SessionReasonTranscriptionFailed: "Transcription failed",
	}

	for reason, want := range cases {
		reason := reason
		want := want
		t.Run(string(reason), func(t *testing.T) {
			t.Parallel()
			if got := sessionReasonMessage(reason); got != want {
				t.Fatalf("unexpected message: %q", got)
			}
		})
	}

	if got := sessionReasonMessage("unknown"); got != "Session state changed" {
		t.Fatalf("expected generic unknown reason message, got %q", got)
	}
}

func TestErrorMessage(t *testing.T) {
	t.Parallel()

	cases := map[domain.ErrorCode]string{
		domain.ErrorCodeStartup:       "Startup failed",
		domain.ErrorCodeAudioStop:     "Audio stop issue",
		domain.ErrorCodeStream:        "Realtime stream issue",
		domain.ErrorCodeTranscription: "Transcription error",
	}
	for code, want := range cases {
		code := code
		want := want
		t.Run(string(code), func(t *testing.T) {
			t.Parallel()
			if got := errorMessage(code, "ignored"); got != want {
				t.Fatalf("unexpected message: %q", got)
			}
		})
	}

	if got := errorMessage("unknown", "detail"); got != "detail" {
		t.Fatalf("expected detail fallback, got %q", got)
	}
	if got := errorMessage("unknown", ""); got != "Unknown error" {
		t.Fatalf("expected unknown fallback, got %q", got)
	}
}

func TestRootCmdHasRecord(t *testing.T) {
	t.Parallel()

	root := rootCmd()
	cmd, _, err := root.Find([]string{"record"})
	if err != nil {
		t.Fatalf("record command missing: %v", err)
	}
	if cmd.Use != "record" {
		t.Fatalf("unexpected command: %q", cmd.Use)
	}
	if cmd.Flags().Lookup("verbose") == nil {
		t.Fatalf("record command needs a verbose flag")
	}
}
