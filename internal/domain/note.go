package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Common validation errors for Note and JournalNote
var (
	ErrEmptyNoteID              = errors.New("note ID cannot be empty")
	ErrEmptyNoteUserID          = errors.New("note user ID cannot be empty")
	ErrNoteSelfParent           = errors.New("note cannot be its own parent")
	ErrEmptyJournalNoteID       = errors.New("journal note ID cannot be empty")
	ErrEmptyJournalNoteLink     = errors.New("journal note must reference a journal and a note")
	ErrEmptyJournalNoteUserID   = errors.New("journal note user ID cannot be empty")
)

// Note is a free-form text note. Notes form a tree through ParentID; a nil
// ParentID marks a root note.
type Note struct {
	ID        uuid.UUID  `json:"id"`
	UserID    uuid.UUID  `json:"user_id"`
	ParentID  *uuid.UUID `json:"parent_id,omitempty"`
	Title     string     `json:"title"`
	Content   string     `json:"content"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// NewNote creates a Note for the given user, optionally parented.
// Returns an error if validation fails.
func NewNote(userID uuid.UUID, parentID *uuid.UUID, title, content string) (*Note, error) {
	note := &Note{
		ID:        uuid.New(),
		UserID:    userID,
		ParentID:  parentID,
		Title:     title,
		Content:   content,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}

	if err := note.Validate(); err != nil {
		return nil, err
	}

	return note, nil
}

// Validate checks if the Note has valid data.
func (n *Note) Validate() error {
	if n.ID == uuid.Nil {
		return ErrEmptyNoteID
	}

	if n.UserID == uuid.Nil {
		return ErrEmptyNoteUserID
	}

	if n.ParentID != nil && *n.ParentID == n.ID {
		return ErrNoteSelfParent
	}

	return nil
}

// JournalNote links a note to a journal (many-to-many).
type JournalNote struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	JournalID uuid.UUID `json:"journal_id"`
	NoteID    uuid.UUID `json:"note_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Validate checks if the JournalNote has valid data.
func (jn *JournalNote) Validate() error {
	if jn.ID == uuid.Nil {
		return ErrEmptyJournalNoteID
	}

	if jn.UserID == uuid.Nil {
		return ErrEmptyJournalNoteUserID
	}

	if jn.JournalID == uuid.Nil || jn.NoteID == uuid.Nil {
		return ErrEmptyJournalNoteLink
	}

	return nil
}
