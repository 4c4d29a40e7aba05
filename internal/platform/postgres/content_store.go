package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/reverie-app/reverie-api/internal/domain"
	"github.com/reverie-app/reverie-api/internal/store"
)

// PostgresTemplateStore implements the store.TemplateStore interface.
type PostgresTemplateStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresTemplateStore creates a new PostgreSQL implementation of the TemplateStore interface.
func NewPostgresTemplateStore(db store.DBTX, logger *slog.Logger) *PostgresTemplateStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresTemplateStore{
		db:     db,
		logger: logger.With(slog.String("component", "template_store")),
	}
}

var _ store.TemplateStore = (*PostgresTemplateStore)(nil)

// Create implements store.TemplateStore.Create.
func (s *PostgresTemplateStore) Create(ctx context.Context, template *domain.Template) error {
	if err := template.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO templates (id, user_id, name, content, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := s.db.ExecContext(
		ctx,
		query,
		template.ID,
		template.UserID,
		template.Name,
		template.Content,
		template.CreatedAt,
		template.UpdatedAt,
	)
	return MapError(err)
}

// ExistsForUser implements store.TemplateStore.ExistsForUser.
func (s *PostgresTemplateStore) ExistsForUser(ctx context.Context, id, userID uuid.UUID) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM templates WHERE id = $1 AND user_id = $2)`
	if err := s.db.QueryRowContext(ctx, query, id, userID).Scan(&exists); err != nil {
		return false, MapError(err)
	}
	return exists, nil
}

// ListByUser implements store.TemplateStore.ListByUser.
func (s *PostgresTemplateStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Template, error) {
	query := `
		SELECT id, user_id, name, content, created_at, updated_at
		FROM templates
		WHERE user_id = $1
		ORDER BY created_at ASC
	`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var templates []*domain.Template
	for rows.Next() {
		var template domain.Template
		if err := rows.Scan(
			&template.ID,
			&template.UserID,
			&template.Name,
			&template.Content,
			&template.CreatedAt,
			&template.UpdatedAt,
		); err != nil {
			return nil, MapError(err)
		}
		templates = append(templates, &template)
	}

	return templates, rows.Err()
}

// DeleteAllForUser implements store.TemplateStore.DeleteAllForUser.
func (s *PostgresTemplateStore) DeleteAllForUser(ctx context.Context, userID uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM templates WHERE user_id = $1`, userID)
	return MapError(err)
}

// WithTx implements store.TemplateStore.WithTx.
func (s *PostgresTemplateStore) WithTx(tx *sql.Tx) store.TemplateStore {
	return &PostgresTemplateStore{db: tx, logger: s.logger}
}

// PostgresDailyMoodStore implements the store.DailyMoodStore interface.
type PostgresDailyMoodStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresDailyMoodStore creates a new PostgreSQL implementation of the DailyMoodStore interface.
func NewPostgresDailyMoodStore(db store.DBTX, logger *slog.Logger) *PostgresDailyMoodStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresDailyMoodStore{
		db:     db,
		logger: logger.With(slog.String("component", "daily_mood_store")),
	}
}

var _ store.DailyMoodStore = (*PostgresDailyMoodStore)(nil)

// Create implements store.DailyMoodStore.Create.
func (s *PostgresDailyMoodStore) Create(ctx context.Context, mood *domain.DailyMood) error {
	if err := mood.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO daily_moods (id, user_id, date, mood, note, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := s.db.ExecContext(
		ctx,
		query,
		mood.ID,
		mood.UserID,
		mood.Date,
		mood.Mood,
		mood.Note,
		mood.CreatedAt,
	)
	return MapError(err)
}

// ExistsForUser implements store.DailyMoodStore.ExistsForUser.
func (s *PostgresDailyMoodStore) ExistsForUser(ctx context.Context, id, userID uuid.UUID) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM daily_moods WHERE id = $1 AND user_id = $2)`
	if err := s.db.QueryRowContext(ctx, query, id, userID).Scan(&exists); err != nil {
		return false, MapError(err)
	}
	return exists, nil
}

// ListByUser implements store.DailyMoodStore.ListByUser.
func (s *PostgresDailyMoodStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.DailyMood, error) {
	query := `
		SELECT id, user_id, date, mood, note, created_at
		FROM daily_moods
		WHERE user_id = $1
		ORDER BY date ASC
	`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var moods []*domain.DailyMood
	for rows.Next() {
		var mood domain.DailyMood
		if err := rows.Scan(
			&mood.ID,
			&mood.UserID,
			&mood.Date,
			&mood.Mood,
			&mood.Note,
			&mood.CreatedAt,
		); err != nil {
			return nil, MapError(err)
		}
		moods = append(moods, &mood)
	}

	return moods, rows.Err()
}

// DeleteAllForUser implements store.DailyMoodStore.DeleteAllForUser.
func (s *PostgresDailyMoodStore) DeleteAllForUser(ctx context.Context, userID uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM daily_moods WHERE user_id = $1`, userID)
	return MapError(err)
}

// WithTx implements store.DailyMoodStore.WithTx.
func (s *PostgresDailyMoodStore) WithTx(tx *sql.Tx) store.DailyMoodStore {
	return &PostgresDailyMoodStore{db: tx, logger: s.logger}
}

// PostgresTagStore implements the store.TagStore interface.
type PostgresTagStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresTagStore creates a new PostgreSQL implementation of the TagStore interface.
func NewPostgresTagStore(db store.DBTX, logger *slog.Logger) *PostgresTagStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresTagStore{
		db:     db,
		logger: logger.With(slog.String("component", "tag_store")),
	}
}

var _ store.TagStore = (*PostgresTagStore)(nil)

// Create implements store.TagStore.Create.
// The journal_id foreign key makes a tag for a missing journal surface as
// store.ErrInvalidEntity, which restore records as a per-record error.
func (s *PostgresTagStore) Create(ctx context.Context, tag *domain.Tag) error {
	if err := tag.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO tags (id, user_id, journal_id, name, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := s.db.ExecContext(
		ctx,
		query,
		tag.ID,
		tag.UserID,
		tag.JournalID,
		tag.Name,
		tag.CreatedAt,
	)
	return MapError(err)
}

// ExistsForUser implements store.TagStore.ExistsForUser.
func (s *PostgresTagStore) ExistsForUser(ctx context.Context, id, userID uuid.UUID) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM tags WHERE id = $1 AND user_id = $2)`
	if err := s.db.QueryRowContext(ctx, query, id, userID).Scan(&exists); err != nil {
		return false, MapError(err)
	}
	return exists, nil
}

// ListByUser implements store.TagStore.ListByUser.
func (s *PostgresTagStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Tag, error) {
	query := `
		SELECT id, user_id, journal_id, name, created_at
		FROM tags
		WHERE user_id = $1
		ORDER BY created_at ASC
	`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var tags []*domain.Tag
	for rows.Next() {
		var tag domain.Tag
		if err := rows.Scan(
			&tag.ID,
			&tag.UserID,
			&tag.JournalID,
			&tag.Name,
			&tag.CreatedAt,
		); err != nil {
			return nil, MapError(err)
		}
		tags = append(tags, &tag)
	}

	return tags, rows.Err()
}

// DeleteAllForUser implements store.TagStore.DeleteAllForUser.
func (s *PostgresTagStore) DeleteAllForUser(ctx context.Context, userID uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM tags WHERE user_id = $1`, userID)
	return MapError(err)
}

// WithTx implements store.TagStore.WithTx.
func (s *PostgresTagStore) WithTx(tx *sql.Tx) store.TagStore {
	return &PostgresTagStore{db: tx, logger: s.logger}
}
