package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/reverie-app/reverie-api/internal/domain"
)

// JournalStore defines the interface for journal data persistence.
type JournalStore interface {
	// Create saves a new journal to the store, keeping the ID already set
	// on the entity. Returns ErrDuplicate if the ID exists and
	// ErrInvalidEntity if validation fails.
	Create(ctx context.Context, journal *domain.Journal) error

	// GetByID retrieves a journal by its unique ID.
	// Returns ErrJournalNotFound if the journal does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Journal, error)

	// ExistsForUser reports whether a journal with the given ID exists and
	// belongs to the given user.
	ExistsForUser(ctx context.Context, id, userID uuid.UUID) (bool, error)

	// ListByUser returns all journals owned by the user, oldest first.
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Journal, error)

	// UpdateEmotion writes the emotion worker's results onto the journal row.
	UpdateEmotion(ctx context.Context, id uuid.UUID, analysis domain.EmotionAnalysis) error

	// UpdateTranscode writes the transcoding worker's results onto the journal row.
	UpdateTranscode(ctx context.Context, id uuid.UUID, path string, status domain.TranscodeStatus) error

	// UpdateSummary writes the insight worker's summary onto the journal row.
	UpdateSummary(ctx context.Context, id uuid.UUID, summary string) error

	// DeleteAllForUser removes every journal owned by the user.
	// Dependent rows (tags, transcripts, journal links) must already be gone.
	DeleteAllForUser(ctx context.Context, userID uuid.UUID) error

	// WithTx returns a JournalStore bound to the provided transaction.
	WithTx(tx *sql.Tx) JournalStore
}
