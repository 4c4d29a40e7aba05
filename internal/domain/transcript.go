package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Common validation errors for Transcript
var (
	ErrEmptyTranscriptID        = errors.New("transcript ID cannot be empty")
	ErrEmptyTranscriptJournalID = errors.New("transcript journal ID cannot be empty")
	ErrEmptyTranscriptUserID    = errors.New("transcript user ID cannot be empty")
)

// TranscriptSegment is one timed span of transcribed speech.
type TranscriptSegment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Transcript holds the speech-to-text output for a journal. There is at
// most one transcript per journal; a pipeline retry deletes the stale row
// before a fresh job is enqueued.
type Transcript struct {
	ID        uuid.UUID           `json:"id"`
	JournalID uuid.UUID           `json:"journal_id"`
	UserID    uuid.UUID           `json:"user_id"`
	Text      string              `json:"text"`
	Segments  []TranscriptSegment `json:"segments,omitempty"`
	Language  string              `json:"language,omitempty"`
	CreatedAt time.Time           `json:"created_at"`
	UpdatedAt time.Time           `json:"updated_at"`
}

// NewTranscript creates a Transcript for the given journal.
// Returns an error if validation fails.
func NewTranscript(journalID, userID uuid.UUID, text string, segments []TranscriptSegment, language string) (*Transcript, error) {
	transcript := &Transcript{
		ID:        uuid.New(),
		JournalID: journalID,
		UserID:    userID,
		Text:      text,
		Segments:  segments,
		Language:  language,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}

	if err := transcript.Validate(); err != nil {
		return nil, err
	}

	return transcript, nil
}

// Validate checks if the Transcript has valid data.
func (t *Transcript) Validate() error {
	if t.ID == uuid.Nil {
		return ErrEmptyTranscriptID
	}

	if t.JournalID == uuid.Nil {
		return ErrEmptyTranscriptJournalID
	}

	if t.UserID == uuid.Nil {
		return ErrEmptyTranscriptUserID
	}

	return nil
}
