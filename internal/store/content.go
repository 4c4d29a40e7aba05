package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/reverie-app/reverie-api/internal/domain"
)

// TemplateStore defines the interface for template data persistence.
type TemplateStore interface {
	Create(ctx context.Context, template *domain.Template) error
	ExistsForUser(ctx context.Context, id, userID uuid.UUID) (bool, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Template, error)
	DeleteAllForUser(ctx context.Context, userID uuid.UUID) error
	WithTx(tx *sql.Tx) TemplateStore
}

// DailyMoodStore defines the interface for daily mood data persistence.
type DailyMoodStore interface {
	Create(ctx context.Context, mood *domain.DailyMood) error
	ExistsForUser(ctx context.Context, id, userID uuid.UUID) (bool, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.DailyMood, error)
	DeleteAllForUser(ctx context.Context, userID uuid.UUID) error
	WithTx(tx *sql.Tx) DailyMoodStore
}

// TagStore defines the interface for tag data persistence.
type TagStore interface {
	// Create saves a new tag, keeping the ID already set on the entity.
	// The referenced journal must already exist.
	Create(ctx context.Context, tag *domain.Tag) error
	ExistsForUser(ctx context.Context, id, userID uuid.UUID) (bool, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Tag, error)
	DeleteAllForUser(ctx context.Context, userID uuid.UUID) error
	WithTx(tx *sql.Tx) TagStore
}
