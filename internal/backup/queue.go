package backup

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/reverie-app/reverie-api/internal/task"
)

// Action selects what a backup job does.
type Action string

const (
	// ActionCreate builds a new archive from the user's current data.
	ActionCreate Action = "create"

	// ActionRestore imports an existing archive.
	ActionRestore Action = "restore"
)

// BackupJob is the payload for the backup/restore queue. Jobs are keyed
// by user ID: one backup or restore per user at a time.
type BackupJob struct {
	UserID      uuid.UUID
	Action      Action
	ArchivePath string
	Strategy    Strategy
}

// JobStatus is the externally visible state of one backup job, including
// its result once the job finishes.
type JobStatus struct {
	JobID      uuid.UUID      `json:"jobId"`
	Action     Action         `json:"action"`
	State      task.Status    `json:"state"`
	Error      string         `json:"error,omitempty"`
	EnqueuedAt time.Time      `json:"enqueuedAt"`
	StartedAt  time.Time      `json:"startedAt"`
	FinishedAt time.Time      `json:"finishedAt"`
	Progress   *ProgressEvent `json:"progress,omitempty"`

	// Summary is set for finished restore jobs.
	Summary *RestoreSummary `json:"summary,omitempty"`

	// ArchivePath is set for completed create jobs; it feeds the archive
	// download endpoint.
	ArchivePath string `json:"archivePath,omitempty"`
}

// jobResult holds what a finished job produced.
type jobResult struct {
	summary     *RestoreSummary
	archivePath string
}

// BackupRestoreQueue runs backup creation and restoration through the
// same submit/poll contract the media pipeline uses.
type BackupRestoreQueue struct {
	queue    *task.Queue[BackupJob]
	restorer *Restorer
	creator  *Creator
	logger   *slog.Logger

	mu       sync.Mutex
	results  map[uuid.UUID]jobResult
	progress map[uuid.UUID]ProgressEvent
}

// NewBackupRestoreQueue creates the queue. It does not consume jobs
// until Start is called.
func NewBackupRestoreQueue(
	restorer *Restorer,
	creator *Creator,
	config task.Config,
	logger *slog.Logger,
) *BackupRestoreQueue {
	if restorer == nil {
		panic("backup queue requires a restorer")
	}
	if creator == nil {
		panic("backup queue requires a creator")
	}
	if logger == nil {
		logger = slog.Default()
	}

	q := &BackupRestoreQueue{
		restorer: restorer,
		creator:  creator,
		logger:   logger.With(slog.String("component", "backup_queue")),
		results:  make(map[uuid.UUID]jobResult),
		progress: make(map[uuid.UUID]ProgressEvent),
	}
	q.queue = task.NewQueue("backup_restore", config, q.handle, logger)
	return q
}

func (q *BackupRestoreQueue) handle(ctx context.Context, job task.Job[BackupJob]) error {
	switch job.Payload.Action {
	case ActionRestore:
		onProgress := func(event ProgressEvent) {
			q.mu.Lock()
			q.progress[job.ID] = event
			q.mu.Unlock()
		}

		summary, err := q.restorer.Restore(ctx, job.Payload.UserID, job.Payload.ArchivePath, job.Payload.Strategy, onProgress)
		if summary != nil {
			q.mu.Lock()
			q.results[job.ID] = jobResult{summary: summary}
			q.mu.Unlock()
		}
		return err

	case ActionCreate:
		archivePath, err := q.creator.Create(ctx, job.Payload.UserID)
		if err != nil {
			return err
		}
		q.mu.Lock()
		q.results[job.ID] = jobResult{archivePath: archivePath}
		q.mu.Unlock()
		return nil

	default:
		return fmt.Errorf("unknown backup action %q", job.Payload.Action)
	}
}

// EnqueueRestore submits a restore job for the user. A previous finished
// job for the same user is superseded.
func (q *BackupRestoreQueue) EnqueueRestore(ctx context.Context, userID uuid.UUID, archivePath string, strategy Strategy) (uuid.UUID, error) {
	q.dropSuperseded(userID)
	return q.queue.Enqueue(ctx, userID, BackupJob{
		UserID:      userID,
		Action:      ActionRestore,
		ArchivePath: archivePath,
		Strategy:    strategy,
	})
}

// EnqueueCreate submits a backup creation job for the user.
func (q *BackupRestoreQueue) EnqueueCreate(ctx context.Context, userID uuid.UUID) (uuid.UUID, error) {
	q.dropSuperseded(userID)
	return q.queue.Enqueue(ctx, userID, BackupJob{
		UserID: userID,
		Action: ActionCreate,
	})
}

// dropSuperseded releases the result of the user's previous job so the
// registry does not grow without bound across repeated backups.
func (q *BackupRestoreQueue) dropSuperseded(userID uuid.UUID) {
	if old, ok := q.queue.JobByOwner(userID); ok && old.Status.Terminal() {
		q.queue.Forget(userID)
		q.mu.Lock()
		delete(q.results, old.ID)
		delete(q.progress, old.ID)
		q.mu.Unlock()
	}
}

// StatusByUser reports the latest backup job for the user.
func (q *BackupRestoreQueue) StatusByUser(userID uuid.UUID) (JobStatus, bool) {
	job, ok := q.queue.JobByOwner(userID)
	if !ok {
		return JobStatus{}, false
	}
	return q.statusFrom(job), true
}

// StatusByJob reports the state of a specific job.
func (q *BackupRestoreQueue) StatusByJob(jobID uuid.UUID) (JobStatus, bool) {
	job, ok := q.queue.JobByID(jobID)
	if !ok {
		return JobStatus{}, false
	}
	return q.statusFrom(job), true
}

func (q *BackupRestoreQueue) statusFrom(job task.Job[BackupJob]) JobStatus {
	status := JobStatus{
		JobID:      job.ID,
		Action:     job.Payload.Action,
		State:      job.Status,
		Error:      job.Error,
		EnqueuedAt: job.EnqueuedAt,
		StartedAt:  job.StartedAt,
		FinishedAt: job.FinishedAt,
	}

	q.mu.Lock()
	if event, ok := q.progress[job.ID]; ok {
		status.Progress = &event
	}
	if result, ok := q.results[job.ID]; ok {
		status.Summary = result.summary
		status.ArchivePath = result.archivePath
	}
	q.mu.Unlock()

	return status
}

// Start launches the queue's consumer loop.
func (q *BackupRestoreQueue) Start() { q.queue.Start() }

// Stop drains the in-flight job and shuts the queue down.
func (q *BackupRestoreQueue) Stop() { q.queue.Stop() }
