package api

import (
	"log/slog"
	"net/http"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/reverie-app/reverie-api/internal/api/shared"
	"github.com/reverie-app/reverie-api/internal/pipeline"
)

// JobHandler exposes the media pipeline's submit/poll contract: clients
// poll per-journal job status and can re-enqueue a failed or stale job.
type JobHandler struct {
	journals   JournalReader
	workers    *pipeline.Set
	uploadRoot string
	logger     *slog.Logger
}

// NewJobHandler creates a new JobHandler. uploadRoot is the directory
// holding per-user media; retry jobs resolve the journal's video path
// against it.
func NewJobHandler(
	journals JournalReader,
	workers *pipeline.Set,
	uploadRoot string,
	logger *slog.Logger,
) *JobHandler {
	if journals == nil {
		panic("job handler requires a journal service")
	}
	if workers == nil {
		panic("job handler requires a pipeline worker set")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &JobHandler{
		journals:   journals,
		workers:    workers,
		uploadRoot: uploadRoot,
		logger:     logger.With(slog.String("component", "job_handler")),
	}
}

// Status handles GET /api/journals/{id}/jobs/{kind} requests.
func (h *JobHandler) Status(w http.ResponseWriter, r *http.Request) {
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

	worker, ok := h.workers.ByKind(chi.URLParam(r, "kind"))
	if !ok {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Unknown job kind")
		return
	}

	// Ownership check before the queue is consulted, so foreign journal
	// IDs read the same as unknown ones.
	if _, err := h.journals.GetForUser(r.Context(), userID, journalID); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	status, err := worker.Status(r.Context(), journalID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, status)
}

// Retry handles POST /api/journals/{id}/jobs/{kind}/retry requests. The
// worker deletes any stale artifact for the journal before re-enqueueing.
func (h *JobHandler) Retry(w http.ResponseWriter, r *http.Request) {
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

	kind := chi.URLParam(r, "kind")
	worker, ok := h.workers.ByKind(kind)
	if !ok {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Unknown job kind")
		return
	}

	journal, err := h.journals.GetForUser(r.Context(), userID, journalID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	job := pipeline.MediaJob{
		JournalID: journal.ID,
		UserID:    journal.UserID,
		VideoPath: filepath.Join(h.uploadRoot, journal.UserID.String(), filepath.FromSlash(journal.VideoPath)),
	}

	jobID, err := worker.Retry(r.Context(), job)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to enqueue retry")
		return
	}

	h.logger.Info("Pipeline job retried",
		slog.String("journal_id", journal.ID.String()),
		slog.String("kind", kind),
		slog.String("job_id", jobID.String()))

	shared.RespondWithJSON(w, r, http.StatusAccepted, JobAcceptedResponse{JobID: jobID})
}
