package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/reverie-app/reverie-api/internal/api/shared"
	"github.com/reverie-app/reverie-api/internal/domain"
)

// JournalReader is the ownership-checked read surface handlers need.
// *service.JournalService satisfies it.
type JournalReader interface {
	GetForUser(ctx context.Context, userID, journalID uuid.UUID) (*domain.Journal, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]*domain.Journal, error)
	TranscriptForUser(ctx context.Context, userID, journalID uuid.UUID) (*domain.Transcript, error)
}

// JournalHandler handles read access to journals and their transcripts.
// Mutation happens through the upload session flow and the pipeline
// workers, never through this handler.
type JournalHandler struct {
	journals JournalReader
	logger   *slog.Logger
}

// NewJournalHandler creates a new JournalHandler.
func NewJournalHandler(journals JournalReader, logger *slog.Logger) *JournalHandler {
	if journals == nil {
		panic("journal handler requires a journal service")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &JournalHandler{
		journals: journals,
		logger:   logger.With(slog.String("component", "journal_handler")),
	}
}

// List handles GET /api/journals requests.
func (h *JournalHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, err := getUserIDFromContext(r)
	if err != nil {
		HandleAPIError(w, r, err, "Authentication required")
		return
	}

	journals, err := h.journals.ListForUser(r.Context(), userID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list journals")
		return
	}

	responses := make([]JournalResponse, 0, len(journals))
	for _, journal := range journals {
		responses = append(responses, newJournalResponse(journal))
	}
	shared.RespondWithJSON(w, r, http.StatusOK, responses)
}

// Get handles GET /api/journals/{id} requests.
func (h *JournalHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, err := getUserIDFromContext(r)
	if err != nil {
		HandleAPIError(w, r, err, "Authentication required")
		return
	}

	journalID, err := getPathUUID(r, "id")
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid journal ID")
		return
	}

	journal, err := h.journals.GetForUser(r.Context(), userID, journalID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, newJournalResponse(journal))
}

// Transcript handles GET /api/journals/{id}/transcript requests.
func (h *JournalHandler) Transcript(w http.ResponseWriter, r *http.Request) {
	userID, err := getUserIDFromContext(r)
	if err != nil {
		HandleAPIError(w, r, err, "Authentication required")
		return
	}

	journalID, err := getPathUUID(r, "id")
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid journal ID")
		return
	}

	transcript, err := h.journals.TranscriptForUser(r.Context(), userID, journalID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, newTranscriptResponse(transcript))
}
