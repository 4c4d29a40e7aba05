// Package task implements the in-memory background job engine underlying
// every pipeline and backup queue: a per-kind job registry plus an async
// consumer loop with FIFO ordering and per-job failure isolation.
package task

import (
	"time"

	"github.com/google/uuid"
)

// Status represents the current state of a job.
type Status string

// Possible job status values. Transitions are monotonic:
// queued → processing → {completed | failed}, never back.
const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether the status is a final state.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Job is one unit of background work tracked by a Queue. The queue owns
// the job record exclusively; callers only ever see snapshot copies.
//
// OwnerID is the foreign key the job is looked up by between submissions:
// a journal ID for pipeline jobs, a user ID for backup jobs.
type Job[P any] struct {
	ID      uuid.UUID
	Kind    string
	OwnerID uuid.UUID
	Payload P

	Status Status
	Error  string

	EnqueuedAt time.Time
	StartedAt  time.Time
	FinishedAt time.Time
}
