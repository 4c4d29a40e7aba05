package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/reverie-app/reverie-api/internal/domain"
	"github.com/reverie-app/reverie-api/internal/store"
	"github.com/reverie-app/reverie-api/internal/task"
)

// EmotionWorker runs voice emotion analysis on journal videos. Its
// artifact is the journal's dominant emotion, score map, and timeline.
type EmotionWorker struct {
	queue      *task.Queue[MediaJob]
	classifier EmotionClassifier
	journals   store.JournalStore
	logger     *slog.Logger
}

// NewEmotionWorker creates the worker and its backing queue.
func NewEmotionWorker(
	classifier EmotionClassifier,
	journals store.JournalStore,
	config task.Config,
	logger *slog.Logger,
) *EmotionWorker {
	if classifier == nil {
		panic("emotion worker requires a classifier")
	}
	if journals == nil {
		panic("emotion worker requires a journal store")
	}
	if logger == nil {
		logger = slog.Default()
	}

	w := &EmotionWorker{
		classifier: classifier,
		journals:   journals,
		logger:     logger.With(slog.String("component", "emotion_worker")),
	}
	w.queue = task.NewQueue(KindEmotion, config, w.handle, logger)
	return w
}

func (w *EmotionWorker) handle(ctx context.Context, job task.Job[MediaJob]) error {
	analysis, err := w.classifier.Classify(ctx, job.Payload.VideoPath)
	if err != nil {
		return fmt.Errorf("emotion analysis failed: %w", err)
	}

	if err := w.journals.UpdateEmotion(ctx, job.Payload.JournalID, analysis); err != nil {
		return fmt.Errorf("failed to save emotion analysis: %w", err)
	}

	return nil
}

// Enqueue submits an emotion analysis job for the journal.
func (w *EmotionWorker) Enqueue(ctx context.Context, job MediaJob) (uuid.UUID, error) {
	return w.queue.Enqueue(ctx, job.JournalID, job)
}

// Status reports the job state for the journal, reconciled against
// emotion-field visibility on the journal row.
func (w *EmotionWorker) Status(ctx context.Context, journalID uuid.UUID) (JobStatus, error) {
	visible, err := w.artifactVisible(ctx, journalID)
	if err != nil {
		return JobStatus{}, err
	}

	job, ok := w.queue.JobByOwner(journalID)
	if !ok {
		if visible {
			return statusFromArtifact(KindEmotion), nil
		}
		return JobStatus{}, ErrUnknownJob
	}

	return statusFromJob(job, visible), nil
}

// Retry clears the stale emotion fields and submits a fresh job.
func (w *EmotionWorker) Retry(ctx context.Context, job MediaJob) (uuid.UUID, error) {
	if err := w.journals.UpdateEmotion(ctx, job.JournalID, domain.EmotionAnalysis{}); err != nil && !store.IsNotFoundError(err) {
		return uuid.Nil, fmt.Errorf("failed to clear stale emotion analysis: %w", err)
	}
	w.queue.Forget(job.JournalID)
	return w.queue.Enqueue(ctx, job.JournalID, job)
}

func (w *EmotionWorker) artifactVisible(ctx context.Context, journalID uuid.UUID) (bool, error) {
	journal, err := w.journals.GetByID(ctx, journalID)
	if err != nil {
		if store.IsNotFoundError(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check emotion visibility: %w", err)
	}
	return journal.DominantEmotion != "", nil
}

// Start launches the worker's consumer loop.
func (w *EmotionWorker) Start() { w.queue.Start() }

// Stop drains in-flight jobs and shuts the queue down.
func (w *EmotionWorker) Stop() { w.queue.Stop() }
