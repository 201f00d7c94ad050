package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"voicebar/internal/bootstrap"
	"voicebar/internal/domain"
	"voicebar/internal/ports"
	"voicebar/internal/usecase"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "voicebar",
		Short:         "Push-to-talk dictation with realtime transcription",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(recordCmd())
	return root
}

func recordCmd() *cobra.Command {
	var verbose bool
	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record from the microphone until Enter, then print the transcript",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRecord(verbose)
		},
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	return cmd
}

func runRecord(verbose bool) error {
	_ = godotenv.Load()

	logger := log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true})
	if verbose {
		logger.SetLevel(log.DebugLevel)
	}

	sink := &consoleSink{logger: logger}
	services, err := bootstrap.Build(sink, logger, prometheus.DefaultRegisterer)
	if err != nil {
		return err
	}

	if addr := services.Config.Metrics.ListenAddr; addr != "" {
		go serveMetrics(addr, logger)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := services.Controller.Start(ctx); err != nil {
		return err
	}
	logger.Info("recording, press Enter to stop (Ctrl+C discards)")

	pressed := make(chan struct{})
	go func() {
		reader := bufio.NewReader(os.Stdin)
		_, _ = reader.ReadString('\n')
		close(pressed)
	}()

	select {
	case <-pressed:
	case <-ctx.Done():
		logger.Info("interrupted, discarding recording")
		if err := services.Controller.Abort(); err != nil && !errors.Is(err, usecase.ErrNoActiveSession) {
			return err
		}
		return nil
	}

	result, err := services.Controller.Stop(ctx)
	if err != nil {
		if result.AudioPath != "" {
			logger.Warn("recording kept for later transcription", "audio", result.AudioPath)
		}
		return err
	}

	fmt.Println(result.Transcript)
	logger.Info("transcript ready", "source", result.Source, "audio", result.AudioPath)
	return nil
}

func serveMetrics(addr string, logger *log.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	logger.Info("serving metrics", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error("metrics server stopped", "err", err)
	}
}

// consoleSink renders backend events on the terminal.
type consoleSink struct {
	logger *log.Logger
}

var _ ports.EventSink = (*consoleSink)(nil)

func (s *consoleSink) SessionStateChanged(state domain.SessionState, reason domain.SessionStateReason) {
	s.logger.Info(sessionReasonMessage(reason), "state", state)
}

func (s *consoleSink) PartialTranscript(text string) {
	if text == "" {
		return
	}
	s.logger.Debug("partial transcript", "text", text)
}

func (s *consoleSink) FinalTranscript(text string, source domain.TranscriptSource) {
	s.logger.Debug("final transcript", "source", source, "text", text)
}

func (s *consoleSink) SessionError(code domain.ErrorCode, detail string) {
	s.logger.Error(errorMessage(code, detail), "code", code, "detail", detail)
}

func sessionReasonMessage(reason domain.SessionStateReason) string {
	switch reason {
	case domain.SessionReasonMicReady:
		return "Mic ready"
	case domain.SessionReasonRecordingStarted:
		return "Recording started"
	case domain.SessionReasonRecordingRestarted:
		return "Recording restarted; previous capture discarded"
	case domain.SessionReasonTranscribing:
		return "Recording stopped. Transcribing..."
	case domain.SessionReasonRealtimeTranscript:
		return "Transcript ready (realtime)"
	case domain.SessionReasonBatchFallback:
		return "Transcript ready (batch fallback)"
	case domain.SessionReasonPreviewFallback:
		return "Transcript ready (live preview only)"
	case domain.SessionReasonRecordingDiscarded:
		return "Recording discarded"
	case domain.SessionReasonNoTranscript:
		return "No transcript captured"
	case domain.SessionReasonTranscriptionFailed:
		return "Transcription failed"
	default:
		return "Session state changed"
	}
}

func errorMessage(code domain.ErrorCode, detail string) string {
	switch code {
	case domain.ErrorCodeStartup:
		return "Startup failed"
	case domain.ErrorCodeAudioStop:
		return "Audio stop issue"
	case domain.ErrorCodeStream:
		return "Realtime stream issue"
	case domain.ErrorCodeTranscription:
		return "Transcription error"
	default:
		if detail == "" {
			return "Unknown error"
		}
		return detail
	}
}
