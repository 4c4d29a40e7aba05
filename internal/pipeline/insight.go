package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/reverie-app/reverie-api/internal/generation"
	"github.com/reverie-app/reverie-api/internal/store"
	"github.com/reverie-app/reverie-api/internal/task"
)

// InsightWorker summarizes a journal's transcript with the LLM. Its
// artifact is the journal's summary field. Insight jobs depend on the
// transcript existing, so they are enqueued by the transcription flow
// rather than directly at upload time.
type InsightWorker struct {
	queue       *task.Queue[MediaJob]
	generator   generation.Generator
	journals    store.JournalStore
	transcripts store.TranscriptStore
	logger      *slog.Logger
}

// NewInsightWorker creates the worker and its backing queue.
func NewInsightWorker(
	generator generation.Generator,
	journals store.JournalStore,
	transcripts store.TranscriptStore,
	config task.Config,
	logger *slog.Logger,
) *InsightWorker {
	if generator == nil {
		panic("insight worker requires a generator")
	}
	if journals == nil {
		panic("insight worker requires a journal store")
	}
	if transcripts == nil {
		panic("insight worker requires a transcript store")
	}
	if logger == nil {
		logger = slog.Default()
	}

	w := &InsightWorker{
		generator:   generator,
		journals:    journals,
		transcripts: transcripts,
		logger:      logger.With(slog.String("component", "insight_worker")),
	}
	w.queue = task.NewQueue(KindInsight, config, w.handle, logger)
	return w
}

func (w *InsightWorker) handle(ctx context.Context, job task.Job[MediaJob]) error {
	transcript, err := w.transcripts.GetByJournalID(ctx, job.Payload.JournalID)
	if err != nil {
		return fmt.Errorf("transcript not available for insight: %w", err)
	}

	insight, err := w.generator.GenerateInsight(ctx, transcript.Text, job.Payload.UserID)
	if err != nil {
		return fmt.Errorf("insight generation failed: %w", err)
	}

	if err := w.journals.UpdateSummary(ctx, job.Payload.JournalID, insight.Summary); err != nil {
		return fmt.Errorf("failed to save summary: %w", err)
	}

	return nil
}

// Enqueue submits an insight job for the journal.
func (w *InsightWorker) Enqueue(ctx context.Context, job MediaJob) (uuid.UUID, error) {
	return w.queue.Enqueue(ctx, job.JournalID, job)
}

// Status reports the job state for the journal, reconciled against
// summary visibility on the journal row.
func (w *InsightWorker) Status(ctx context.Context, journalID uuid.UUID) (JobStatus, error) {
	visible, err := w.artifactVisible(ctx, journalID)
	if err != nil {
		return JobStatus{}, err
	}

	job, ok := w.queue.JobByOwner(journalID)
	if !ok {
		if visible {
			return statusFromArtifact(KindInsight), nil
		}
		return JobStatus{}, ErrUnknownJob
	}

	return statusFromJob(job, visible), nil
}

// Retry clears the stale summary and submits a fresh job.
func (w *InsightWorker) Retry(ctx context.Context, job MediaJob) (uuid.UUID, error) {
	if err := w.journals.UpdateSummary(ctx, job.JournalID, ""); err != nil && !store.IsNotFoundError(err) {
		return uuid.Nil, fmt.Errorf("failed to clear stale summary: %w", err)
	}
	w.queue.Forget(job.JournalID)
	return w.queue.Enqueue(ctx, job.JournalID, job)
}

func (w *InsightWorker) artifactVisible(ctx context.Context, journalID uuid.UUID) (bool, error) {
	journal, err := w.journals.GetByID(ctx, journalID)
	if err != nil {
		if store.IsNotFoundError(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check summary visibility: %w", err)
	}
	return journal.Summary != "", nil
}

// Start launches the worker's consumer loop.
func (w *InsightWorker) Start() { w.queue.Start() }

// Stop drains in-flight jobs and shuts the queue down.
func (w *InsightWorker) Stop() { w.queue.Stop() }
