package usecase

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/log"

	"voicebar/internal/domain"
	"voicebar/internal/ports"
)

var errNoTranscript = errors.New("no transcript captured")

// transcriptFinalizer decides which transcript a finished session returns:
// the realtime final text when the stream completed, else a batch
// transcription of the retained WAV, else the last realtime preview.
type transcriptFinalizer struct {
	batch  ports.BatchTranscriber
	events ports.EventSink
	logger *log.Logger
}

func newTranscriptFinalizer(batch ports.BatchTranscriber, events ports.EventSink, logger *log.Logger) transcriptFinalizer {
	return transcriptFinalizer{batch: batch, events: events, logger: logger}
}

func (f transcriptFinalizer) Finalize(
	ctx context.Context,
	snapshot domain.TranscriptSnapshot,
	streamCompleted bool,
	audioPath string,
) (domain.StopResult, domain.SessionStateReason, error) {
	if streamCompleted && strings.TrimSpace(snapshot.Final) != "" {
		return domain.StopResult{
			Transcript: snapshot.Final,
			Source:     domain.TranscriptSourceRealtime,
			AudioPath:  audioPath,
		}, domain.SessionReasonRealtimeTranscript, nil
	}

	if audioPath != "" {
		text, err := f.batch.Transcribe(ctx, audioPath)
		if err != nil {
			f.logger.Warn("batch transcription failed", "err", err)
			f.events.SessionError(domain.ErrorCodeTranscription, err.Error())
		} else if strings.TrimSpace(text) != "" {
			return domain.StopResult{
				Transcript: strings.TrimSpace(text),
				Source:     domain.TranscriptSourceBatch,
				AudioPath:  audioPath,
			}, domain.SessionReasonBatchFallback, nil
		}
	}

	if strings.TrimSpace(snapshot.Preview) != "" {
		return domain.StopResult{
			Transcript: snapshot.Preview,
			Source:     domain.TranscriptSourcePreview,
			AudioPath:  audioPath,
		}, domain.SessionReasonPreviewFallback, nil
	}

	return domain.StopResult{AudioPath: audioPath}, domain.SessionReasonNoTranscript, errNoTranscript
}
