package openai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func writeRecording(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clip.wav")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write recording: %v", err)
	}
	return path
}

func TestBatchTranscriberDefaults(t *testing.T) {
	t.Parallel()

	b := NewBatchTranscriber(Config{}, log.New(io.Discard))
	if b.cfg.APIBaseURL != "https://api.openai.com/v1" {
		t.Fatalf("unexpected base url: %q", b.cfg.APIBaseURL)
	}
	if b.cfg.BatchModel != "whisper-1" {
		t.Fatalf("unexpected model: %q", b.cfg.BatchModel)
	}
}

func TestBatchTranscribeRequiresAPIKey(t *testing.T) {
	t.Parallel()

	b := NewBatchTranscriber(Config{}, log.New(io.Discard))
	if _, err := b.Transcribe(context.Background(), writeRecording(t, "x")); err == nil {
		t.Fatalf("expected missing key error")
	}
}

func TestBatchTranscribeSuccess(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/audio/transcriptions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected authorization header: %q", got)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		if got := r.FormValue("model"); got != "whisper-1" {
			t.Errorf("unexpected model field: %q", got)
		}
		if got := r.FormValue("prompt"); got != "casual dictation" {
			t.Errorf("unexpected prompt field: %q", got)
		}
		if got := r.FormValue("language"); got != "en" {
			t.Errorf("unexpected language field: %q", got)
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("missing file part: %v", err)
			http.Error(w, "no file", http.StatusBadRequest)
			return
		}
		defer file.Close()
		if header.Filename != "clip.wav" {
			t.Errorf("unexpected filename: %q", header.Filename)
		}
		data, _ := io.ReadAll(file)
		if string(data) != "RIFFfake" {
			t.Errorf("unexpected file contents: %q", string(data))
		}

		_ = json.NewEncoder(w).Encode(map[string]string{"text": "  hello world \n"})
	}))
	defer server.Close()

	b := NewBatchTranscriber(Config{
		APIKey:     "test-key",
		APIBaseURL: server.URL,
		Prompt:     "casual dictation",
		Language:   "en",
	}, log.New(io.Discard))

	text, err := b.Transcribe(context.Background(), writeRecording(t, "RIFFfake"))
	if err != nil {
		t.Fatalf("transcribe failed: %v", err)
	}
	if text != "hello world" {
		t.Fatalf("unexpected transcript: %q", text)
	}
}

func TestBatchTranscribeErrorStatus(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"file too short"}}`, http.StatusBadRequest)
	}))
	defer server.Close()

	b := NewBatchTranscriber(Config{APIKey: "test-key", APIBaseURL: server.URL}, log.New(io.Discard))

	_, err := b.Transcribe(context.Background(), writeRecording(t, "x"))
	if err == nil {
		t.Fatalf("expected status error")
	}
	if !strings.Contains(err.Error(), "status 400") {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(err.Error(), "file too short") {
		t.Fatalf("expected response detail in error: %v", err)
	}
}

func TestBatchTranscribeMissingFile(t *testing.T) {
	t.Parallel()

	b := NewBatchTranscriber(Config{APIKey: "test-key"}, log.New(io.Discard))
	if _, err := b.Transcribe(context.Background(), filepath.Join(t.TempDir(), "missing.wav")); err == nil {
		t.Fatalf("expected open error")
	}
}
