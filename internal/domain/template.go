package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Common validation errors for Template
var (
	ErrEmptyTemplateID     = errors.New("template ID cannot be empty")
	ErrEmptyTemplateUserID = errors.New("template user ID cannot be empty")
	ErrEmptyTemplateName   = errors.New("template name cannot be empty")
)

// Template is a reusable journaling prompt owned by a user.
type Template struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Name      string    `json:"name"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate checks if the Template has valid data.
func (t *Template) Validate() error {
	if t.ID == uuid.Nil {
		return ErrEmptyTemplateID
	}

	if t.UserID == uuid.Nil {
		return ErrEmptyTemplateUserID
	}

	if t.Name == "" {
		return ErrEmptyTemplateName
	}

	return nil
}
