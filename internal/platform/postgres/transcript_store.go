package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/reverie-app/reverie-api/internal/domain"
	"github.com/reverie-app/reverie-api/internal/platform/logger"
	"github.com/reverie-app/reverie-api/internal/store"
)

// PostgresTranscriptStore implements the store.TranscriptStore interface
// using a PostgreSQL database as the storage backend.
type PostgresTranscriptStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresTranscriptStore creates a new PostgreSQL implementation of the TranscriptStore interface.
func NewPostgresTranscriptStore(db store.DBTX, logger *slog.Logger) *PostgresTranscriptStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresTranscriptStore{
		db:     db,
		logger: logger.With(slog.String("component", "transcript_store")),
	}
}

// Ensure PostgresTranscriptStore implements store.TranscriptStore interface
var _ store.TranscriptStore = (*PostgresTranscriptStore)(nil)

// Create implements store.TranscriptStore.Create.
// The transcripts table has a unique constraint on journal_id, so a second
// transcript for the same journal surfaces as store.ErrDuplicate.
func (s *PostgresTranscriptStore) Create(ctx context.Context, transcript *domain.Transcript) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := transcript.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	segments, err := json.Marshal(transcript.Segments)
	if err != nil {
		return fmt.Errorf("failed to marshal transcript segments: %w", err)
	}

	query := `
		INSERT INTO transcripts (id, journal_id, user_id, text, segments, language, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = s.db.ExecContext(
		ctx,
		query,
		transcript.ID,
		transcript.JournalID,
		transcript.UserID,
		transcript.Text,
		segments,
		transcript.Language,
		transcript.CreatedAt,
		transcript.UpdatedAt,
	)
	if err != nil {
		return MapError(err)
	}

	log.Debug("transcript created",
		slog.String("transcript_id", transcript.ID.String()),
		slog.String("journal_id", transcript.JournalID.String()))
	return nil
}

// GetByJournalID implements store.TranscriptStore.GetByJournalID.
// Returns store.ErrTranscriptNotFound if no transcript exists for the journal.
func (s *PostgresTranscriptStore) GetByJournalID(ctx context.Context, journalID uuid.UUID) (*domain.Transcript, error) {
	query := `
		SELECT id, journal_id, user_id, text, segments, language, created_at, updated_at
		FROM transcripts
		WHERE journal_id = $1
	`

	var transcript domain.Transcript
	var segments []byte
	err := s.db.QueryRowContext(ctx, query, journalID).Scan(
		&transcript.ID,
		&transcript.JournalID,
		&transcript.UserID,
		&transcript.Text,
		&segments,
		&transcript.Language,
		&transcript.CreatedAt,
		&transcript.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, store.ErrTranscriptNotFound
		}
		return nil, MapError(err)
	}

	if len(segments) > 0 {
		if err := json.Unmarshal(segments, &transcript.Segments); err != nil {
			return nil, fmt.Errorf("failed to unmarshal transcript segments: %w", err)
		}
	}

	return &transcript, nil
}

// ExistsForUser implements store.TranscriptStore.ExistsForUser.
func (s *PostgresTranscriptStore) ExistsForUser(ctx context.Context, id, userID uuid.UUID) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM transcripts WHERE id = $1 AND user_id = $2)`
	if err := s.db.QueryRowContext(ctx, query, id, userID).Scan(&exists); err != nil {
		return false, MapError(err)
	}
	return exists, nil
}

// ListByUser implements store.TranscriptStore.ListByUser.
func (s *PostgresTranscriptStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Transcript, error) {
	query := `
		SELECT id, journal_id, user_id, text, segments, language, created_at, updated_at
		FROM transcripts
		WHERE user_id = $1
		ORDER BY created_at ASC
	`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var transcripts []*domain.Transcript
	for rows.Next() {
		var transcript domain.Transcript
		var segments []byte
		if err := rows.Scan(
			&transcript.ID,
			&transcript.JournalID,
			&transcript.UserID,
			&transcript.Text,
			&segments,
			&transcript.Language,
			&transcript.CreatedAt,
			&transcript.UpdatedAt,
		); err != nil {
			return nil, MapError(err)
		}
		if len(segments) > 0 {
			if err := json.Unmarshal(segments, &transcript.Segments); err != nil {
				return nil, fmt.Errorf("failed to unmarshal transcript segments: %w", err)
			}
		}
		transcripts = append(transcripts, &transcript)
	}

	return transcripts, rows.Err()
}

// DeleteByJournalID implements store.TranscriptStore.DeleteByJournalID.
// Deleting a journal with no transcript is a no-op, not an error.
func (s *PostgresTranscriptStore) DeleteByJournalID(ctx context.Context, journalID uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	_, err := s.db.ExecContext(ctx, `DELETE FROM transcripts WHERE journal_id = $1`, journalID)
	if err != nil {
		return MapError(err)
	}

	log.Debug("transcript deleted for journal", slog.String("journal_id", journalID.String()))
	return nil
}

// DeleteAllForUser implements store.TranscriptStore.DeleteAllForUser.
func (s *PostgresTranscriptStore) DeleteAllForUser(ctx context.Context, userID uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM transcripts WHERE user_id = $1`, userID)
	return MapError(err)
}

// WithTx implements store.TranscriptStore.WithTx.
func (s *PostgresTranscriptStore) WithTx(tx *sql.Tx) store.TranscriptStore {
	return &PostgresTranscriptStore{
		db:     tx,
		logger: s.logger,
	}
}
