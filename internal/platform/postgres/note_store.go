package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/reverie-app/reverie-api/internal/domain"
	"github.com/reverie-app/reverie-api/internal/platform/logger"
	"github.com/reverie-app/reverie-api/internal/store"
)

// PostgresNoteStore implements the store.NoteStore interface
// using a PostgreSQL database as the storage backend.
type PostgresNoteStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresNoteStore creates a new PostgreSQL implementation of the NoteStore interface.
func NewPostgresNoteStore(db store.DBTX, logger *slog.Logger) *PostgresNoteStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresNoteStore{
		db:     db,
		logger: logger.With(slog.String("component", "note_store")),
	}
}

// Ensure PostgresNoteStore implements store.NoteStore interface
var _ store.NoteStore = (*PostgresNoteStore)(nil)

// Create implements store.NoteStore.Create.
// The parent_id foreign key means a child inserted before its parent
// surfaces as store.ErrInvalidEntity; the restore engine avoids that by
// inserting notes in topological order.
func (s *PostgresNoteStore) Create(ctx context.Context, note *domain.Note) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := note.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO notes (id, user_id, parent_id, title, content, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.db.ExecContext(
		ctx,
		query,
		note.ID,
		note.UserID,
		note.ParentID,
		note.Title,
		note.Content,
		note.CreatedAt,
		note.UpdatedAt,
	)
	if err != nil {
		return MapError(err)
	}

	log.Debug("note created", slog.String("note_id", note.ID.String()))
	return nil
}

// ExistsForUser implements store.NoteStore.ExistsForUser.
func (s *PostgresNoteStore) ExistsForUser(ctx context.Context, id, userID uuid.UUID) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM notes WHERE id = $1 AND user_id = $2)`
	if err := s.db.QueryRowContext(ctx, query, id, userID).Scan(&exists); err != nil {
		return false, MapError(err)
	}
	return exists, nil
}

// ListByUser implements store.NoteStore.ListByUser.
func (s *PostgresNoteStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Note, error) {
	query := `
		SELECT id, user_id, parent_id, title, content, created_at, updated_at
		FROM notes
		WHERE user_id = $1
		ORDER BY created_at ASC
	`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var notes []*domain.Note
	for rows.Next() {
		var note domain.Note
		if err := rows.Scan(
			&note.ID,
			&note.UserID,
			&note.ParentID,
			&note.Title,
			&note.Content,
			&note.CreatedAt,
			&note.UpdatedAt,
		); err != nil {
			return nil, MapError(err)
		}
		notes = append(notes, &note)
	}

	return notes, rows.Err()
}

// DeleteAllForUser implements store.NoteStore.DeleteAllForUser.
// Children reference parents within the same user's tree, so the single
// DELETE is safe only because the FK is declared ON DELETE CASCADE for
// parent_id; the statement removes the whole tree.
func (s *PostgresNoteStore) DeleteAllForUser(ctx context.Context, userID uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM notes WHERE user_id = $1`, userID)
	return MapError(err)
}

// WithTx implements store.NoteStore.WithTx.
func (s *PostgresNoteStore) WithTx(tx *sql.Tx) store.NoteStore {
	return &PostgresNoteStore{
		db:     tx,
		logger: s.logger,
	}
}

// PostgresJournalNoteStore implements the store.JournalNoteStore interface
// using a PostgreSQL database as the storage backend.
type PostgresJournalNoteStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresJournalNoteStore creates a new PostgreSQL implementation of the JournalNoteStore interface.
func NewPostgresJournalNoteStore(db store.DBTX, logger *slog.Logger) *PostgresJournalNoteStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresJournalNoteStore{
		db:     db,
		logger: logger.With(slog.String("component", "journal_note_store")),
	}
}

// Ensure PostgresJournalNoteStore implements store.JournalNoteStore interface
var _ store.JournalNoteStore = (*PostgresJournalNoteStore)(nil)

// Create implements store.JournalNoteStore.Create.
func (s *PostgresJournalNoteStore) Create(ctx context.Context, link *domain.JournalNote) error {
	if err := link.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO journal_notes (id, user_id, journal_id, note_id, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := s.db.ExecContext(
		ctx,
		query,
		link.ID,
		link.UserID,
		link.JournalID,
		link.NoteID,
		link.CreatedAt,
	)
	return MapError(err)
}

// ExistsForUser implements store.JournalNoteStore.ExistsForUser.
func (s *PostgresJournalNoteStore) ExistsForUser(ctx context.Context, id, userID uuid.UUID) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM journal_notes WHERE id = $1 AND user_id = $2)`
	if err := s.db.QueryRowContext(ctx, query, id, userID).Scan(&exists); err != nil {
		return false, MapError(err)
	}
	return exists, nil
}

// ListByUser implements store.JournalNoteStore.ListByUser.
func (s *PostgresJournalNoteStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.JournalNote, error) {
	query := `
		SELECT id, user_id, journal_id, note_id, created_at
		FROM journal_notes
		WHERE user_id = $1
		ORDER BY created_at ASC
	`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var links []*domain.JournalNote
	for rows.Next() {
		var link domain.JournalNote
		if err := rows.Scan(
			&link.ID,
			&link.UserID,
			&link.JournalID,
			&link.NoteID,
			&link.CreatedAt,
		); err != nil {
			return nil, MapError(err)
		}
		links = append(links, &link)
	}

	return links, rows.Err()
}

// DeleteAllForUser implements store.JournalNoteStore.DeleteAllForUser.
func (s *PostgresJournalNoteStore) DeleteAllForUser(ctx context.Context, userID uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM journal_notes WHERE user_id = $1`, userID)
	return MapError(err)
}

// WithTx implements store.JournalNoteStore.WithTx.
func (s *PostgresJournalNoteStore) WithTx(tx *sql.Tx) store.JournalNoteStore {
	return &PostgresJournalNoteStore{
		db:     tx,
		logger: s.logger,
	}
}
