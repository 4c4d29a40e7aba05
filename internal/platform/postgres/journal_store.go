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

// PostgresJournalStore implements the store.JournalStore interface
// using a PostgreSQL database as the storage backend.
type PostgresJournalStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresJournalStore creates a new PostgreSQL implementation of the JournalStore interface.
// It accepts a database connection or transaction that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresJournalStore(db store.DBTX, logger *slog.Logger) *PostgresJournalStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresJournalStore{
		db:     db,
		logger: logger.With(slog.String("component", "journal_store")),
	}
}

// Ensure PostgresJournalStore implements store.JournalStore interface
var _ store.JournalStore = (*PostgresJournalStore)(nil)

// Create implements store.JournalStore.Create.
// It keeps the ID already set on the entity, which is what restore relies
// on to preserve backup record identity.
func (s *PostgresJournalStore) Create(ctx context.Context, journal *domain.Journal) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := journal.Validate(); err != nil {
		log.Warn("journal validation failed during create",
			slog.String("error", err.Error()),
			slog.String("journal_id", journal.ID.String()))
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	scores, err := json.Marshal(journal.EmotionScores)
	if err != nil {
		return fmt.Errorf("failed to marshal emotion scores: %w", err)
	}
	timeline, err := json.Marshal(journal.EmotionTimeline)
	if err != nil {
		return fmt.Errorf("failed to marshal emotion timeline: %w", err)
	}

	query := `
		INSERT INTO journals (id, user_id, title, video_path, thumbnail_path,
			dominant_emotion, emotion_scores, emotion_timeline,
			transcode_path, transcode_status, summary, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err = s.db.ExecContext(
		ctx,
		query,
		journal.ID,
		journal.UserID,
		journal.Title,
		journal.VideoPath,
		journal.ThumbnailPath,
		journal.DominantEmotion,
		scores,
		timeline,
		journal.TranscodePath,
		journal.TranscodeStatus,
		journal.Summary,
		journal.CreatedAt,
		journal.UpdatedAt,
	)
	if err != nil {
		mapped := MapError(err)
		log.Debug("failed to create journal",
			slog.String("error", mapped.Error()),
			slog.String("journal_id", journal.ID.String()))
		return mapped
	}

	log.Debug("journal created",
		slog.String("journal_id", journal.ID.String()),
		slog.String("user_id", journal.UserID.String()))
	return nil
}

// GetByID implements store.JournalStore.GetByID.
// Returns store.ErrJournalNotFound if the journal does not exist.
func (s *PostgresJournalStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Journal, error) {
	query := `
		SELECT id, user_id, title, video_path, thumbnail_path,
			dominant_emotion, emotion_scores, emotion_timeline,
			transcode_path, transcode_status, summary, created_at, updated_at
		FROM journals
		WHERE id = $1
	`

	var journal domain.Journal
	var scores, timeline []byte
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&journal.ID,
		&journal.UserID,
		&journal.Title,
		&journal.VideoPath,
		&journal.ThumbnailPath,
		&journal.DominantEmotion,
		&scores,
		&timeline,
		&journal.TranscodePath,
		&journal.TranscodeStatus,
		&journal.Summary,
		&journal.CreatedAt,
		&journal.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, store.ErrJournalNotFound
		}
		return nil, MapError(err)
	}

	if err := unmarshalJournalJSON(&journal, scores, timeline); err != nil {
		return nil, err
	}

	return &journal, nil
}

// ExistsForUser implements store.JournalStore.ExistsForUser.
func (s *PostgresJournalStore) ExistsForUser(ctx context.Context, id, userID uuid.UUID) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM journals WHERE id = $1 AND user_id = $2)`
	if err := s.db.QueryRowContext(ctx, query, id, userID).Scan(&exists); err != nil {
		return false, MapError(err)
	}
	return exists, nil
}

// ListByUser implements store.JournalStore.ListByUser.
func (s *PostgresJournalStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Journal, error) {
	query := `
		SELECT id, user_id, title, video_path, thumbnail_path,
			dominant_emotion, emotion_scores, emotion_timeline,
			transcode_path, transcode_status, summary, created_at, updated_at
		FROM journals
		WHERE user_id = $1
		ORDER BY created_at ASC
	`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var journals []*domain.Journal
	for rows.Next() {
		var journal domain.Journal
		var scores, timeline []byte
		if err := rows.Scan(
			&journal.ID,
			&journal.UserID,
			&journal.Title,
			&journal.VideoPath,
			&journal.ThumbnailPath,
			&journal.DominantEmotion,
			&scores,
			&timeline,
			&journal.TranscodePath,
			&journal.TranscodeStatus,
			&journal.Summary,
			&journal.CreatedAt,
			&journal.UpdatedAt,
		); err != nil {
			return nil, MapError(err)
		}
		if err := unmarshalJournalJSON(&journal, scores, timeline); err != nil {
			return nil, err
		}
		journals = append(journals, &journal)
	}

	return journals, rows.Err()
}

// UpdateEmotion implements store.JournalStore.UpdateEmotion.
// It writes only the emotion worker's disjoint field set, so it never
// races with the transcoding or insight workers on the same row.
func (s *PostgresJournalStore) UpdateEmotion(ctx context.Context, id uuid.UUID, analysis domain.EmotionAnalysis) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	scores, err := json.Marshal(analysis.Scores)
	if err != nil {
		return fmt.Errorf("failed to marshal emotion scores: %w", err)
	}
	timeline, err := json.Marshal(analysis.Timeline)
	if err != nil {
		return fmt.Errorf("failed to marshal emotion timeline: %w", err)
	}

	query := `
		UPDATE journals
		SET dominant_emotion = $2, emotion_scores = $3, emotion_timeline = $4, updated_at = NOW()
		WHERE id = $1
	`
	result, err := s.db.ExecContext(ctx, query, id, analysis.Dominant, scores, timeline)
	if err != nil {
		return MapError(err)
	}
	if err := CheckRowsAffected(result, "journal"); err != nil {
		return err
	}

	log.Debug("journal emotion updated",
		slog.String("journal_id", id.String()),
		slog.String("dominant_emotion", analysis.Dominant))
	return nil
}

// UpdateTranscode implements store.JournalStore.UpdateTranscode.
func (s *PostgresJournalStore) UpdateTranscode(ctx context.Context, id uuid.UUID, path string, status domain.TranscodeStatus) error {
	query := `
		UPDATE journals
		SET transcode_path = $2, transcode_status = $3, updated_at = NOW()
		WHERE id = $1
	`
	result, err := s.db.ExecContext(ctx, query, id, path, status)
	if err != nil {
		return MapError(err)
	}
	return CheckRowsAffected(result, "journal")
}

// UpdateSummary implements store.JournalStore.UpdateSummary.
func (s *PostgresJournalStore) UpdateSummary(ctx context.Context, id uuid.UUID, summary string) error {
	query := `UPDATE journals SET summary = $2, updated_at = NOW() WHERE id = $1`
	result, err := s.db.ExecContext(ctx, query, id, summary)
	if err != nil {
		return MapError(err)
	}
	return CheckRowsAffected(result, "journal")
}

// DeleteAllForUser implements store.JournalStore.DeleteAllForUser.
// Zero deleted rows is not an error here: replace-strategy restores run
// this for users that may have no prior data.
func (s *PostgresJournalStore) DeleteAllForUser(ctx context.Context, userID uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, `DELETE FROM journals WHERE user_id = $1`, userID)
	if err != nil {
		return MapError(err)
	}

	if n, err := result.RowsAffected(); err == nil {
		log.Debug("journals deleted for user",
			slog.String("user_id", userID.String()),
			slog.Int64("count", n))
	}
	return nil
}

// WithTx implements store.JournalStore.WithTx.
func (s *PostgresJournalStore) WithTx(tx *sql.Tx) store.JournalStore {
	return &PostgresJournalStore{
		db:     tx,
		logger: s.logger,
	}
}

// unmarshalJournalJSON decodes the jsonb emotion columns into the entity.
func unmarshalJournalJSON(journal *domain.Journal, scores, timeline []byte) error {
	if len(scores) > 0 {
		if err := json.Unmarshal(scores, &journal.EmotionScores); err != nil {
			return fmt.Errorf("failed to unmarshal emotion scores: %w", err)
		}
	}
	if len(timeline) > 0 {
		if err := json.Unmarshal(timeline, &journal.EmotionTimeline); err != nil {
			return fmt.Errorf("failed to unmarshal emotion timeline: %w", err)
		}
	}
	return nil
}
