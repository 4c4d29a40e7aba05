package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Common validation errors for Tag
var (
	ErrEmptyTagID        = errors.New("tag ID cannot be empty")
	ErrEmptyTagUserID    = errors.New("tag user ID cannot be empty")
	ErrEmptyTagJournalID = errors.New("tag journal ID cannot be empty")
	ErrEmptyTagName      = errors.New("tag name cannot be empty")
)

// Tag labels a journal entry.
type Tag struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	JournalID uuid.UUID `json:"journal_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Validate checks if the Tag has valid data.
func (t *Tag) Validate() error {
	if t.ID == uuid.Nil {
		return ErrEmptyTagID
	}

	if t.UserID == uuid.Nil {
		return ErrEmptyTagUserID
	}

	if t.JournalID == uuid.Nil {
		return ErrEmptyTagJournalID
	}

	if t.Name == "" {
		return ErrEmptyTagName
	}

	return nil
}
