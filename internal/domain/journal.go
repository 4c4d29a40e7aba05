package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// TranscodeStatus represents the transcoding state of a journal's video.
type TranscodeStatus string

// Possible transcode status values
const (
	TranscodeStatusNone       TranscodeStatus = "none"
	TranscodeStatusProcessing TranscodeStatus = "processing"
	TranscodeStatusCompleted  TranscodeStatus = "completed"
	TranscodeStatusFailed     TranscodeStatus = "failed"
)

// Common validation errors for Journal
var (
	ErrEmptyJournalID     = errors.New("journal ID cannot be empty")
	ErrEmptyJournalUserID = errors.New("journal user ID cannot be empty")
	ErrEmptyVideoPath     = errors.New("journal video path cannot be empty")
)

// Journal represents one recorded video entry plus the media derived from
// it by the pipeline: thumbnail, emotion analysis, transcoded stream, and
// an optional AI-generated summary. The transcript lives in its own entity
// keyed by journal ID.
//
// The three pipeline workers each write a disjoint set of these fields, so
// a single journal's jobs may complete in any order.
type Journal struct {
	ID            uuid.UUID `json:"id"`
	UserID        uuid.UUID `json:"user_id"`
	Title         string    `json:"title"`
	VideoPath     string    `json:"video_path"`
	ThumbnailPath string    `json:"thumbnail_path,omitempty"`

	// Emotion analysis results, written by the emotion worker.
	DominantEmotion string             `json:"dominant_emotion,omitempty"`
	EmotionScores   map[string]float64 `json:"emotion_scores,omitempty"`
	EmotionTimeline []EmotionSample    `json:"emotion_timeline,omitempty"`

	// Transcoding results, written by the transcoding worker.
	TranscodePath   string          `json:"transcode_path,omitempty"`
	TranscodeStatus TranscodeStatus `json:"transcode_status"`

	// Summary is the AI-generated reflection, written by the insight worker.
	Summary string `json:"summary,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewJournal creates a new Journal for the given user and uploaded video.
// It generates a new UUID, sets the transcode status to none, and sets the
// creation/update timestamps. Returns an error if validation fails.
func NewJournal(userID uuid.UUID, title, videoPath string) (*Journal, error) {
	journal := &Journal{
		ID:              uuid.New(),
		UserID:          userID,
		Title:           title,
		VideoPath:       videoPath,
		TranscodeStatus: TranscodeStatusNone,
		CreatedAt:       time.Now().UTC(),
		UpdatedAt:       time.Now().UTC(),
	}

	if err := journal.Validate(); err != nil {
		return nil, err
	}

	return journal, nil
}

// Validate checks if the Journal has valid data.
// Returns an error if any field fails validation.
func (j *Journal) Validate() error {
	if j.ID == uuid.Nil {
		return ErrEmptyJournalID
	}

	if j.UserID == uuid.Nil {
		return ErrEmptyJournalUserID
	}

	if j.VideoPath == "" {
		return ErrEmptyVideoPath
	}

	return nil
}
