// Package pipeline runs the media processing workers that enrich a journal
// after its video upload completes: transcription, emotion analysis,
// transcoding, and LLM insight generation. Each worker owns one task queue
// keyed by journal ID and writes a disjoint slice of the journal's fields,
// so the workers never contend with each other.
package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/reverie-app/reverie-api/internal/domain"
	"github.com/reverie-app/reverie-api/internal/task"
)

// Job kinds used by the pipeline queues.
const (
	KindTranscription = "transcription"
	KindEmotion       = "emotion"
	KindTranscoding   = "transcoding"
	KindInsight       = "insight"
)

// ErrUnknownJob is returned by Status when no job for the journal is
// tracked by the queue and no finished artifact is visible either.
var ErrUnknownJob = errors.New("no job found for journal")

// MediaJob is the payload shared by all pipeline queues. VideoPath points
// at the original upload on local disk.
type MediaJob struct {
	JournalID uuid.UUID
	UserID    uuid.UUID
	VideoPath string
}

// SpeechToText transcribes a media file.
type SpeechToText interface {
	Transcribe(ctx context.Context, mediaPath string) (text string, segments []domain.TranscriptSegment, language string, err error)
}

// EmotionClassifier analyzes the emotional tone of a media file.
type EmotionClassifier interface {
	Classify(ctx context.Context, mediaPath string) (domain.EmotionAnalysis, error)
}

// Transcoder converts a media file into a web-playable rendition and
// returns the output path.
type Transcoder interface {
	Transcode(ctx context.Context, inputPath string) (outputPath string, err error)
}

// JobStatus is the externally visible state of one pipeline job. The
// zero time values mean the job has not reached that point yet.
type JobStatus struct {
	JobID      uuid.UUID   `json:"jobId"`
	Kind       string      `json:"kind"`
	State      task.Status `json:"state"`
	Error      string      `json:"error,omitempty"`
	EnqueuedAt time.Time   `json:"enqueuedAt"`
	StartedAt  time.Time   `json:"startedAt"`
	FinishedAt time.Time   `json:"finishedAt"`
}

// statusFromJob converts a queue snapshot into a JobStatus, reconciling
// the queue's view against artifact visibility in the store. A job the
// queue considers completed whose artifact is not yet readable is
// reported as still processing, so clients polling the status never see
// "completed" before the result is actually fetchable.
func statusFromJob(job task.Job[MediaJob], artifactVisible bool) JobStatus {
	state := job.Status
	if state == task.StatusCompleted && !artifactVisible {
		state = task.StatusProcessing
	}

	return JobStatus{
		JobID:      job.ID,
		Kind:       job.Kind,
		State:      state,
		Error:      job.Error,
		EnqueuedAt: job.EnqueuedAt,
		StartedAt:  job.StartedAt,
		FinishedAt: job.FinishedAt,
	}
}

// statusFromArtifact synthesizes a completed status for a journal whose
// job record has been dropped from the registry (for example after a
// restart) but whose artifact exists in the store.
func statusFromArtifact(kind string) JobStatus {
	return JobStatus{
		Kind:  kind,
		State: task.StatusCompleted,
	}
}
