package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/reverie-app/reverie-api/internal/domain"
	"github.com/reverie-app/reverie-api/internal/events"
	"github.com/reverie-app/reverie-api/internal/store"
	"github.com/reverie-app/reverie-api/internal/task"
)

// TranscriptionWorker turns journal videos into transcript rows via the
// speech-to-text service. Its artifact is the journal's transcript.
type TranscriptionWorker struct {
	queue       *task.Queue[MediaJob]
	stt         SpeechToText
	transcripts store.TranscriptStore
	emitter     events.Emitter
	logger      *slog.Logger
}

// NewTranscriptionWorker creates the worker and its backing queue. The
// queue does not consume jobs until Start is called. A nil emitter
// disables the insight follow-up job.
func NewTranscriptionWorker(
	stt SpeechToText,
	transcripts store.TranscriptStore,
	emitter events.Emitter,
	config task.Config,
	logger *slog.Logger,
) *TranscriptionWorker {
	if stt == nil {
		panic("transcription worker requires a speech-to-text client")
	}
	if transcripts == nil {
		panic("transcription worker requires a transcript store")
	}
	if logger == nil {
		logger = slog.Default()
	}

	w := &TranscriptionWorker{
		stt:         stt,
		transcripts: transcripts,
		emitter:     emitter,
		logger:      logger.With(slog.String("component", "transcription_worker")),
	}
	w.queue = task.NewQueue(KindTranscription, config, w.handle, logger)
	return w
}

func (w *TranscriptionWorker) handle(ctx context.Context, job task.Job[MediaJob]) error {
	text, segments, language, err := w.stt.Transcribe(ctx, job.Payload.VideoPath)
	if err != nil {
		return fmt.Errorf("transcription failed: %w", err)
	}

	transcript, err := domain.NewTranscript(job.Payload.JournalID, job.Payload.UserID, text, segments, language)
	if err != nil {
		return fmt.Errorf("invalid transcript: %w", err)
	}

	if err := w.transcripts.Create(ctx, transcript); err != nil {
		// A duplicate means a previous run already stored a transcript for
		// this journal; keep the existing row and report success.
		if store.IsDuplicateError(err) {
			w.logger.Warn("transcript already exists, keeping existing row",
				slog.String("journal_id", job.Payload.JournalID.String()))
			return nil
		}
		return fmt.Errorf("failed to save transcript: %w", err)
	}

	w.requestInsight(ctx, job.Payload)
	return nil
}

// requestInsight asks for an insight job now that a transcript exists.
// Insight generation is best-effort: a failed emit never fails the
// transcription job that produced the transcript.
func (w *TranscriptionWorker) requestInsight(ctx context.Context, job MediaJob) {
	if w.emitter == nil {
		return
	}

	event, err := events.NewJobRequestEvent(KindInsight, job)
	if err == nil {
		err = w.emitter.EmitEvent(ctx, event)
	}
	if err != nil {
		w.logger.Warn("failed to request insight job",
			slog.String("journal_id", job.JournalID.String()),
			slog.String("error", err.Error()))
	}
}

// Enqueue submits a transcription job for the journal.
func (w *TranscriptionWorker) Enqueue(ctx context.Context, job MediaJob) (uuid.UUID, error) {
	return w.queue.Enqueue(ctx, job.JournalID, job)
}

// Status reports the job state for the journal, reconciled against
// transcript visibility in the store.
func (w *TranscriptionWorker) Status(ctx context.Context, journalID uuid.UUID) (JobStatus, error) {
	visible, err := w.artifactVisible(ctx, journalID)
	if err != nil {
		return JobStatus{}, err
	}

	job, ok := w.queue.JobByOwner(journalID)
	if !ok {
		if visible {
			return statusFromArtifact(KindTranscription), nil
		}
		return JobStatus{}, ErrUnknownJob
	}

	return statusFromJob(job, visible), nil
}

// Retry deletes the stale transcript, if any, and submits a fresh job.
func (w *TranscriptionWorker) Retry(ctx context.Context, job MediaJob) (uuid.UUID, error) {
	if err := w.transcripts.DeleteByJournalID(ctx, job.JournalID); err != nil && !store.IsNotFoundError(err) {
		return uuid.Nil, fmt.Errorf("failed to delete stale transcript: %w", err)
	}
	w.queue.Forget(job.JournalID)
	return w.queue.Enqueue(ctx, job.JournalID, job)
}

func (w *TranscriptionWorker) artifactVisible(ctx context.Context, journalID uuid.UUID) (bool, error) {
	_, err := w.transcripts.GetByJournalID(ctx, journalID)
	if err != nil {
		if errors.Is(err, store.ErrTranscriptNotFound) || store.IsNotFoundError(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check transcript visibility: %w", err)
	}
	return true, nil
}

// Start launches the worker's consumer loop.
func (w *TranscriptionWorker) Start() { w.queue.Start() }

// Stop drains in-flight jobs and shuts the queue down.
func (w *TranscriptionWorker) Stop() { w.queue.Stop() }
