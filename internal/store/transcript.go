package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/reverie-app/reverie-api/internal/domain"
)

// TranscriptStore defines the interface for transcript data persistence.
type TranscriptStore interface {
	// Create saves a new transcript, keeping the ID already set on the
	// entity. Returns ErrDuplicate when a transcript already exists for
	// the journal or the ID is taken.
	Create(ctx context.Context, transcript *domain.Transcript) error

	// GetByJournalID retrieves the transcript for a journal.
	// Returns ErrTranscriptNotFound if none exists.
	GetByJournalID(ctx context.Context, journalID uuid.UUID) (*domain.Transcript, error)

	// ExistsForUser reports whether a transcript with the given ID exists
	// and belongs to the given user.
	ExistsForUser(ctx context.Context, id, userID uuid.UUID) (bool, error)

	// ListByUser returns all transcripts owned by the user.
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Transcript, error)

	// DeleteByJournalID removes the transcript for a journal, if any.
	// Used by pipeline retry to drop the stale artifact before re-enqueue.
	DeleteByJournalID(ctx context.Context, journalID uuid.UUID) error

	// DeleteAllForUser removes every transcript owned by the user.
	DeleteAllForUser(ctx context.Context, userID uuid.UUID) error

	// WithTx returns a TranscriptStore bound to the provided transaction.
	WithTx(tx *sql.Tx) TranscriptStore
}
