package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/reverie-app/reverie-api/internal/events"
)

// Worker is the common surface of the four pipeline queues.
type Worker interface {
	// Enqueue submits a job and returns its ID.
	Enqueue(ctx context.Context, job MediaJob) (uuid.UUID, error)

	// Status reports the job state for a journal, reconciled against the
	// visibility of the artifact the worker produces.
	Status(ctx context.Context, journalID uuid.UUID) (JobStatus, error)

	// Retry deletes the worker's stale artifact for the journal and
	// enqueues a fresh job.
	Retry(ctx context.Context, job MediaJob) (uuid.UUID, error)

	// Start launches the worker's consumer loop.
	Start()

	// Stop drains the in-flight job and shuts the worker down.
	Stop()
}

// Set holds the full pipeline keyed by job kind.
type Set struct {
	workers map[string]Worker
}

// NewSet builds a Set from the given workers. Nil entries are allowed and
// simply leave that kind unroutable.
func NewSet(transcription, emotion, transcoding, insight Worker) *Set {
	workers := make(map[string]Worker, 4)
	for kind, worker := range map[string]Worker{
		KindTranscription: transcription,
		KindEmotion:       emotion,
		KindTranscoding:   transcoding,
		KindInsight:       insight,
	} {
		if worker != nil {
			workers[kind] = worker
		}
	}
	return &Set{workers: workers}
}

// ByKind returns the worker for a job kind.
func (s *Set) ByKind(kind string) (Worker, bool) {
	worker, ok := s.workers[kind]
	return worker, ok
}

// Start launches every worker's consumer loop.
func (s *Set) Start() {
	for _, worker := range s.workers {
		worker.Start()
	}
}

// Stop shuts every worker down, draining in-flight jobs.
func (s *Set) Stop() {
	for _, worker := range s.workers {
		worker.Stop()
	}
}

// Dispatcher routes job request events onto the pipeline queues. It is
// registered on the event emitter so the upload flow can request jobs
// without importing this package.
type Dispatcher struct {
	set    *Set
	logger *slog.Logger
}

// NewDispatcher creates a Dispatcher over the given worker set.
func NewDispatcher(set *Set, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		set:    set,
		logger: logger.With(slog.String("component", "pipeline_dispatcher")),
	}
}

// HandleEvent decodes the job payload and enqueues it on the queue named
// by the event kind.
func (d *Dispatcher) HandleEvent(ctx context.Context, event *events.JobRequestEvent) error {
	worker, ok := d.set.ByKind(event.Kind)
	if !ok {
		return fmt.Errorf("no pipeline worker for kind %q", event.Kind)
	}

	var job MediaJob
	if err := event.UnmarshalPayload(&job); err != nil {
		return fmt.Errorf("failed to decode %s job payload: %w", event.Kind, err)
	}

	jobID, err := worker.Enqueue(ctx, job)
	if err != nil {
		return fmt.Errorf("failed to enqueue %s job: %w", event.Kind, err)
	}

	d.logger.Debug("job enqueued from event",
		slog.String("kind", event.Kind),
		slog.String("job_id", jobID.String()),
		slog.String("journal_id", job.JournalID.String()))
	return nil
}

var _ events.Handler = (*Dispatcher)(nil)
