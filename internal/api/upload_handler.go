package api

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/reverie-app/reverie-api/internal/api/shared"
	"github.com/reverie-app/reverie-api/internal/domain"
	"github.com/reverie-app/reverie-api/internal/upload"
)

// UploadSessionManager is the upload session surface the handler needs.
// *upload.Manager satisfies it.
type UploadSessionManager interface {
	Begin(userID uuid.UUID, title string) (upload.Session, error)
	Receive(sessionID uuid.UUID, content io.Reader) (int64, error)
	Complete(ctx context.Context, sessionID uuid.UUID) (*domain.Journal, error)
	Abort(sessionID uuid.UUID) error
	Get(sessionID uuid.UUID) (upload.Session, bool)
}

// UploadHandler handles the video upload session lifecycle: begin,
// receive content, complete (which creates the journal and enqueues the
// pipeline jobs), or abort.
type UploadHandler struct {
	uploads UploadSessionManager
	logger  *slog.Logger
}

// NewUploadHandler creates a new UploadHandler.
func NewUploadHandler(uploads UploadSessionManager, logger *slog.Logger) *UploadHandler {
	if uploads == nil {
		panic("upload handler requires an upload manager")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &UploadHandler{
		uploads: uploads,
		logger:  logger.With(slog.String("component", "upload_handler")),
	}
}

// Begin handles POST /api/uploads requests. It opens an upload session
// and returns its ID and expiry.
func (h *UploadHandler) Begin(w http.ResponseWriter, r *http.Request) {
	userID, err := getUserIDFromContext(r)
	if err != nil {
		HandleAPIError(w, r, err, "Authentication required")
		return
	}

	var req BeginUploadRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	session, err := h.uploads.Begin(userID, req.Title)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to open upload session")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, newUploadSessionResponse(session))
}

// Receive handles PUT /api/uploads/{id} requests. The request body is
// streamed into the session's temporary artifact.
func (h *UploadHandler) Receive(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.ownedSession(w, r)
	if !ok {
		return
	}

	written, err := h.uploads.Receive(sessionID, r.Body)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, map[string]int64{"bytes_received": written})
}

// Complete handles POST /api/uploads/{id}/complete requests. The
// uploaded video is moved into place, the journal is created, and the
// processing jobs are enqueued.
func (h *UploadHandler) Complete(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.ownedSession(w, r)
	if !ok {
		return
	}

	journal, err := h.uploads.Complete(r.Context(), sessionID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, newJournalResponse(journal))
}

// Abort handles DELETE /api/uploads/{id} requests. The session and its
// partial upload are discarded.
func (h *UploadHandler) Abort(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.ownedSession(w, r)
	if !ok {
		return
	}

	if err := h.uploads.Abort(sessionID); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ownedSession resolves the session ID from the URL and checks that the
// authenticated user owns the session. Foreign sessions are reported as
// not found so session IDs cannot be probed.
func (h *UploadHandler) ownedSession(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	userID, err := getUserIDFromContext(r)
	if err != nil {
		HandleAPIError(w, r, err, "Authentication required")
		return uuid.Nil, false
	}

	sessionID, err := getPathUUID(r, "id")
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid session ID")
		return uuid.Nil, false
	}

	session, ok := h.uploads.Get(sessionID)
	if !ok || session.UserID != userID {
		if ok {
			h.logger.Warn("Upload session access denied",
				slog.String("session_id", sessionID.String()),
				slog.String("user_id", userID.String()))
		}
		HandleAPIError(w, r, upload.ErrSessionNotFound, "")
		return uuid.Nil, false
	}

	return sessionID, true
}
