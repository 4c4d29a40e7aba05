package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/reverie-app/reverie-api/internal/domain"
)

// NoteStore defines the interface for note data persistence.
type NoteStore interface {
	// Create saves a new note, keeping the ID already set on the entity.
	// The parent note must already exist when ParentID is non-nil, which
	// is why restore inserts notes in topological order.
	Create(ctx context.Context, note *domain.Note) error

	// ExistsForUser reports whether a note with the given ID exists and
	// belongs to the given user.
	ExistsForUser(ctx context.Context, id, userID uuid.UUID) (bool, error)

	// ListByUser returns all notes owned by the user.
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Note, error)

	// DeleteAllForUser removes every note owned by the user.
	DeleteAllForUser(ctx context.Context, userID uuid.UUID) error

	// WithTx returns a NoteStore bound to the provided transaction.
	WithTx(tx *sql.Tx) NoteStore
}

// JournalNoteStore defines the interface for journal-note link persistence.
type JournalNoteStore interface {
	// Create saves a new journal-note link, keeping the ID already set on
	// the entity. Both sides of the link must already exist.
	Create(ctx context.Context, link *domain.JournalNote) error

	// ExistsForUser reports whether a link with the given ID exists and
	// belongs to the given user.
	ExistsForUser(ctx context.Context, id, userID uuid.UUID) (bool, error)

	// ListByUser returns all journal-note links owned by the user.
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.JournalNote, error)

	// DeleteAllForUser removes every link owned by the user.
	DeleteAllForUser(ctx context.Context, userID uuid.UUID) error

	// WithTx returns a JournalNoteStore bound to the provided transaction.
	WithTx(tx *sql.Tx) JournalNoteStore
}
