package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/reverie-app/reverie-api/internal/domain"
	"github.com/reverie-app/reverie-api/internal/store"
)

// JournalService exposes journal reads with ownership enforcement. Every
// accessor takes the requesting user's ID and refuses to return another
// user's journal.
type JournalService struct {
	journals    store.JournalStore
	transcripts store.TranscriptStore
	logger      *slog.Logger
}

// NewJournalService creates a JournalService.
func NewJournalService(
	journals store.JournalStore,
	transcripts store.TranscriptStore,
	logger *slog.Logger,
) *JournalService {
	if journals == nil {
		panic("journal service requires a journal store")
	}
	if transcripts == nil {
		panic("journal service requires a transcript store")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &JournalService{
		journals:    journals,
		transcripts: transcripts,
		logger:      logger.With(slog.String("component", "journal_service")),
	}
}

// GetForUser returns the journal when it exists and belongs to the user.
// Returns ErrJournalNotFound for missing journals and ErrNotOwned when the
// journal belongs to someone else.
func (s *JournalService) GetForUser(ctx context.Context, userID, journalID uuid.UUID) (*domain.Journal, error) {
	journal, err := s.journals.GetByID(ctx, journalID)
	if err != nil {
		if errors.Is(err, store.ErrJournalNotFound) || store.IsNotFoundError(err) {
			return nil, ErrJournalNotFound
		}
		return nil, fmt.Errorf("failed to get journal: %w", err)
	}

	if journal.UserID != userID {
		s.logger.Warn("cross-user journal access rejected",
			slog.String("journal_id", journalID.String()),
			slog.String("user_id", userID.String()))
		return nil, ErrNotOwned
	}
	return journal, nil
}

// ListForUser returns all journals owned by the user, oldest first.
func (s *JournalService) ListForUser(ctx context.Context, userID uuid.UUID) ([]*domain.Journal, error) {
	journals, err := s.journals.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list journals: %w", err)
	}
	return journals, nil
}

// TranscriptForUser returns the journal's transcript after verifying the
// journal belongs to the user. Returns ErrTranscriptNotFound when no
// transcript exists yet.
func (s *JournalService) TranscriptForUser(ctx context.Context, userID, journalID uuid.UUID) (*domain.Transcript, error) {
	if _, err := s.GetForUser(ctx, userID, journalID); err != nil {
		return nil, err
	}

	transcript, err := s.transcripts.GetByJournalID(ctx, journalID)
	if err != nil {
		if errors.Is(err, store.ErrTranscriptNotFound) || store.IsNotFoundError(err) {
			return nil, ErrTranscriptNotFound
		}
		return nil, fmt.Errorf("failed to get transcript: %w", err)
	}
	return transcript, nil
}
