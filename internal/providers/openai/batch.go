package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// BatchTranscriber uploads a finished WAV recording for one-shot
// transcription. It is the fallback path when the realtime stream failed or
// produced nothing; no retries, the orchestrator owns that policy.
type BatchTranscriber struct {
	cfg        Config
	httpClient *http.Client
	logger     *log.Logger
}

func NewBatchTranscriber(cfg Config, logger *log.Logger) *BatchTranscriber {
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = "https://api.openai.com/v1"
	}
	if cfg.BatchModel == "" {
		cfg.BatchModel = "whisper-1"
	}
	return &BatchTranscriber{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		logger:     logger,
	}
}

type transcriptionResponse struct {
	Text string `json:"text"`
}

func (t *BatchTranscriber) Transcribe(ctx context.Context, audioPath string) (string, error) {
	if strings.TrimSpace(t.cfg.APIKey) == "" {
		return "", errors.New("OPENAI_API_KEY is not configured")
	}

	file, err := os.Open(audioPath)
	if err != nil {
		return "", fmt.Errorf("open recording: %w", err)
	}
	defer file.Close()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", err
	}
	if err := writer.WriteField("model", t.cfg.BatchModel); err != nil {
		return "", err
	}
	if t.cfg.Prompt != "" {
		if err := writer.WriteField("prompt", t.cfg.Prompt); err != nil {
			return "", err
		}
	}
	if t.cfg.Language != "" {
		if err := writer.WriteField("language", t.cfg.Language); err != nil {
			return "", err
		}
	}
	if err := writer.Close(); err != nil {
		return "", err
	}

	endpoint := strings.TrimRight(t.cfg.APIBaseURL, "/") + "/audio/transcriptions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+t.cfg.APIKey)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	t.logger.Debug("batch transcription request", "file", filepath.Base(audioPath), "model", t.cfg.BatchModel)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("batch transcription request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("batch transcription returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	var parsed transcriptionResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode batch transcription response: %w", err)
	}
	return strings.TrimSpace(parsed.Text), nil
}
