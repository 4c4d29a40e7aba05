package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Common errors returned by the Queue
var (
	ErrQueueClosed = errors.New("job queue is closed")
	ErrQueueFull   = errors.New("job queue is full")
)

// Handler processes one job payload. A returned error marks the job
// failed; it never stops the queue.
type Handler[P any] func(ctx context.Context, job Job[P]) error

// Config holds configuration for a job queue.
type Config struct {
	// QueueSize determines the buffer size of the in-memory job channel.
	QueueSize int

	// WorkerCount determines how many jobs may be in flight at once.
	// The default of 1 keeps processing serial, which bounds shared
	// CPU/GPU usage of the external tools; widen it only when the tool
	// behind the queue is safely reentrant.
	WorkerCount int
}

// DefaultConfig returns a Config with reasonable defaults.
func DefaultConfig() Config {
	return Config{
		QueueSize:   100,
		WorkerCount: 1,
	}
}

// Queue is a per-kind, in-memory job registry plus consumer loop.
//
// Jobs are tracked in a map keyed by job ID with a secondary index keyed
// by owner ID (the job's foreign key), both guarded by one mutex; the
// consumer side is a buffered channel feeding worker goroutines. Ordering
// is FIFO within the queue. Queues of different kinds are fully
// independent and may interleave.
type Queue[P any] struct {
	kind    string
	handler Handler[P]
	config  Config
	logger  *slog.Logger

	mu       sync.RWMutex
	registry map[uuid.UUID]*Job[P]
	byOwner  map[uuid.UUID]uuid.UUID
	closed   bool

	jobs       chan uuid.UUID
	ctx        context.Context
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
	started    bool
}

// NewQueue creates a queue for the given job kind. The handler is invoked
// once per dequeued job; handler panics and errors are contained per job.
func NewQueue[P any](kind string, config Config, handler Handler[P], logger *slog.Logger) *Queue[P] {
	if handler == nil {
		panic("handler cannot be nil")
	}
	if config.QueueSize <= 0 {
		config.QueueSize = DefaultConfig().QueueSize
	}
	if config.WorkerCount <= 0 {
		config.WorkerCount = DefaultConfig().WorkerCount
	}
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Queue[P]{
		kind:       kind,
		handler:    handler,
		config:     config,
		logger:     logger.With(slog.String("component", "job_queue"), slog.String("kind", kind)),
		registry:   make(map[uuid.UUID]*Job[P]),
		byOwner:    make(map[uuid.UUID]uuid.UUID),
		jobs:       make(chan uuid.UUID, config.QueueSize),
		ctx:        ctx,
		cancelFunc: cancel,
	}
}

// Kind returns the queue's job kind.
func (q *Queue[P]) Kind() string {
	return q.kind
}

// Enqueue registers a new job and schedules it for processing. It does
// not block for completion. A newer job for the same owner supersedes the
// owner index entry, so JobByOwner always reflects the latest submission.
func (q *Queue[P]) Enqueue(ctx context.Context, ownerID uuid.UUID, payload P) (uuid.UUID, error) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return uuid.Nil, ErrQueueClosed
	}

	job := &Job[P]{
		ID:         uuid.New(),
		Kind:       q.kind,
		OwnerID:    ownerID,
		Payload:    payload,
		Status:     StatusQueued,
		EnqueuedAt: time.Now().UTC(),
	}
	q.registry[job.ID] = job
	q.byOwner[ownerID] = job.ID
	q.mu.Unlock()

	select {
	case q.jobs <- job.ID:
	default:
		// Channel is full. Drop the registration so the caller can retry.
		q.mu.Lock()
		delete(q.registry, job.ID)
		if q.byOwner[ownerID] == job.ID {
			delete(q.byOwner, ownerID)
		}
		q.mu.Unlock()
		return uuid.Nil, fmt.Errorf("%w: queue capacity %d reached", ErrQueueFull, cap(q.jobs))
	}

	q.logger.Debug("job enqueued",
		slog.String("job_id", job.ID.String()),
		slog.String("owner_id", ownerID.String()),
		slog.Int("queue_len", len(q.jobs)))
	return job.ID, nil
}

// JobByID returns a snapshot of the job with the given ID.
func (q *Queue[P]) JobByID(id uuid.UUID) (Job[P], bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	job, ok := q.registry[id]
	if !ok {
		return Job[P]{}, false
	}
	return *job, true
}

// JobByOwner returns a snapshot of the latest job submitted for the given
// owner (foreign key), or ok=false when none is known.
func (q *Queue[P]) JobByOwner(ownerID uuid.UUID) (Job[P], bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	id, ok := q.byOwner[ownerID]
	if !ok {
		return Job[P]{}, false
	}
	job, ok := q.registry[id]
	if !ok {
		return Job[P]{}, false
	}
	return *job, true
}

// Forget drops the owner index entry and any terminal job records for the
// owner. In-flight jobs stay registered until they finish.
func (q *Queue[P]) Forget(ownerID uuid.UUID) {
	q.mu.Lock()
	defer q.mu.Unlock()

	id, ok := q.byOwner[ownerID]
	if !ok {
		return
	}
	if job, ok := q.registry[id]; ok && job.Status.Terminal() {
		delete(q.registry, id)
	}
	delete(q.byOwner, ownerID)
}

// Start launches the consumer loop.
func (q *Queue[P]) Start() {
	q.mu.Lock()
	if q.started || q.closed {
		q.mu.Unlock()
		return
	}
	q.started = true
	q.mu.Unlock()

	for i := 0; i < q.config.WorkerCount; i++ {
		q.wg.Add(1)
		go q.worker(i)
	}

	q.logger.Info("job queue started", slog.Int("workers", q.config.WorkerCount))
}

// Stop gracefully halts the consumer loop: any in-flight job finishes,
// then workers stop dequeuing. Further Enqueue calls fail with
// ErrQueueClosed. Job records remain readable after Stop.
func (q *Queue[P]) Stop() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.mu.Unlock()

	q.cancelFunc()
	q.wg.Wait()

	q.logger.Info("job queue stopped")
}

// worker consumes job IDs until the queue is stopped.
func (q *Queue[P]) worker(id int) {
	defer q.wg.Done()

	for {
		// Shutdown wins over backlog: once Stop cancels the context, no
		// further job may be claimed even while the channel has entries.
		if q.ctx.Err() != nil {
			return
		}

		select {
		case <-q.ctx.Done():
			return
		case jobID := <-q.jobs:
			q.process(jobID, id)
		}
	}
}

// process runs one job. Once claimed, a job is atomic from the queue's
// point of view: the handler receives a context that is not tied to the
// queue's shutdown, so Stop drains it rather than interrupting it.
func (q *Queue[P]) process(jobID uuid.UUID, workerID int) {
	q.mu.Lock()
	job, ok := q.registry[jobID]
	if !ok {
		q.mu.Unlock()
		return
	}
	job.Status = StatusProcessing
	job.StartedAt = time.Now().UTC()
	snapshot := *job
	q.mu.Unlock()

	logger := q.logger.With(
		slog.String("job_id", jobID.String()),
		slog.String("owner_id", snapshot.OwnerID.String()),
		slog.Int("worker_id", workerID),
	)
	logger.Info("processing job")

	err := q.runHandler(snapshot)

	q.mu.Lock()
	if job, ok := q.registry[jobID]; ok && !job.Status.Terminal() {
		job.FinishedAt = time.Now().UTC()
		if err != nil {
			job.Status = StatusFailed
			job.Error = err.Error()
		} else {
			job.Status = StatusCompleted
		}
	}
	q.mu.Unlock()

	if err != nil {
		logger.Error("job failed", slog.String("error", err.Error()))
		return
	}
	logger.Info("job completed")
}

// runHandler invokes the handler, converting panics into job failures so
// a misbehaving processor cannot take the worker down with it.
func (q *Queue[P]) runHandler(job Job[P]) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("job handler panicked: %v", p)
		}
	}()
	return q.handler(context.Background(), job)
}
