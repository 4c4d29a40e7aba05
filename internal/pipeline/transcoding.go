package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/reverie-app/reverie-api/internal/domain"
	"github.com/reverie-app/reverie-api/internal/store"
	"github.com/reverie-app/reverie-api/internal/task"
)

// TranscodingWorker converts journal videos into web-playable renditions.
// Its artifact is the journal's transcode path plus a completed status;
// unlike the other workers it also mirrors progress onto the journal row
// so the transcode state survives a process restart.
type TranscodingWorker struct {
	queue      *task.Queue[MediaJob]
	transcoder Transcoder
	journals   store.JournalStore
	logger     *slog.Logger
}

// NewTranscodingWorker creates the worker and its backing queue.
func NewTranscodingWorker(
	transcoder Transcoder,
	journals store.JournalStore,
	config task.Config,
	logger *slog.Logger,
) *TranscodingWorker {
	if transcoder == nil {
		panic("transcoding worker requires a transcoder")
	}
	if journals == nil {
		panic("transcoding worker requires a journal store")
	}
	if logger == nil {
		logger = slog.Default()
	}

	w := &TranscodingWorker{
		transcoder: transcoder,
		journals:   journals,
		logger:     logger.With(slog.String("component", "transcoding_worker")),
	}
	w.queue = task.NewQueue(KindTranscoding, config, w.handle, logger)
	return w
}

func (w *TranscodingWorker) handle(ctx context.Context, job task.Job[MediaJob]) error {
	journalID := job.Payload.JournalID

	if err := w.journals.UpdateTranscode(ctx, journalID, "", domain.TranscodeStatusProcessing); err != nil {
		return fmt.Errorf("failed to mark transcode processing: %w", err)
	}

	outputPath, err := w.transcoder.Transcode(ctx, job.Payload.VideoPath)
	if err != nil {
		if updateErr := w.journals.UpdateTranscode(ctx, journalID, "", domain.TranscodeStatusFailed); updateErr != nil {
			w.logger.Error("failed to mark transcode failed",
				slog.String("journal_id", journalID.String()),
				slog.String("error", updateErr.Error()))
		}
		return fmt.Errorf("transcoding failed: %w", err)
	}

	if err := w.journals.UpdateTranscode(ctx, journalID, outputPath, domain.TranscodeStatusCompleted); err != nil {
		return fmt.Errorf("failed to save transcode result: %w", err)
	}

	return nil
}

// Enqueue submits a transcoding job for the journal.
func (w *TranscodingWorker) Enqueue(ctx context.Context, job MediaJob) (uuid.UUID, error) {
	return w.queue.Enqueue(ctx, job.JournalID, job)
}

// Status reports the job state for the journal, reconciled against the
// journal row's transcode fields.
func (w *TranscodingWorker) Status(ctx context.Context, journalID uuid.UUID) (JobStatus, error) {
	visible, err := w.artifactVisible(ctx, journalID)
	if err != nil {
		return JobStatus{}, err
	}

	job, ok := w.queue.JobByOwner(journalID)
	if !ok {
		if visible {
			return statusFromArtifact(KindTranscoding), nil
		}
		return JobStatus{}, ErrUnknownJob
	}

	return statusFromJob(job, visible), nil
}

// Retry removes the stale rendition file, resets the journal's transcode
// fields, and submits a fresh job.
func (w *TranscodingWorker) Retry(ctx context.Context, job MediaJob) (uuid.UUID, error) {
	journal, err := w.journals.GetByID(ctx, job.JournalID)
	if err != nil && !store.IsNotFoundError(err) {
		return uuid.Nil, fmt.Errorf("failed to load journal for retry: %w", err)
	}

	if journal != nil && journal.TranscodePath != "" {
		if err := os.Remove(journal.TranscodePath); err != nil && !os.IsNotExist(err) {
			w.logger.Warn("failed to remove stale rendition",
				slog.String("path", journal.TranscodePath),
				slog.String("error", err.Error()))
		}
	}

	if err := w.journals.UpdateTranscode(ctx, job.JournalID, "", domain.TranscodeStatusNone); err != nil && !store.IsNotFoundError(err) {
		return uuid.Nil, fmt.Errorf("failed to reset transcode state: %w", err)
	}

	w.queue.Forget(job.JournalID)
	return w.queue.Enqueue(ctx, job.JournalID, job)
}

func (w *TranscodingWorker) artifactVisible(ctx context.Context, journalID uuid.UUID) (bool, error) {
	journal, err := w.journals.GetByID(ctx, journalID)
	if err != nil {
		if store.IsNotFoundError(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check transcode visibility: %w", err)
	}
	return journal.TranscodeStatus == domain.TranscodeStatusCompleted && journal.TranscodePath != "", nil
}

// Start launches the worker's consumer loop.
func (w *TranscodingWorker) Start() { w.queue.Start() }

// Stop drains in-flight jobs and shuts the queue down.
func (w *TranscodingWorker) Stop() { w.queue.Stop() }
