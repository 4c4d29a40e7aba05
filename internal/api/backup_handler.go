package api

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/reverie-app/reverie-api/internal/api/shared"
	"github.com/reverie-app/reverie-api/internal/backup"
	"github.com/reverie-app/reverie-api/internal/pathsec"
	"github.com/reverie-app/reverie-api/internal/service/auth"
	"github.com/reverie-app/reverie-api/internal/task"
)

// BackupJobQueue is the submit/poll surface the handler needs.
// *backup.BackupRestoreQueue satisfies it.
type BackupJobQueue interface {
	EnqueueCreate(ctx context.Context, userID uuid.UUID) (uuid.UUID, error)
	EnqueueRestore(ctx context.Context, userID uuid.UUID, archivePath string, strategy backup.Strategy) (uuid.UUID, error)
	StatusByUser(userID uuid.UUID) (backup.JobStatus, bool)
}

// BackupHandler exposes backup creation, restoration, job polling, and
// archive download. Create and restore are long-running, so both enqueue
// onto the backup queue and return 202; clients poll GetStatus.
type BackupHandler struct {
	queue   BackupJobQueue
	tokens  auth.DownloadTokenService
	workDir string
	logger  *slog.Logger
}

// NewBackupHandler creates a new BackupHandler. workDir is the backup
// work directory; archive paths in requests and tokens are confined to
// it.
func NewBackupHandler(
	queue BackupJobQueue,
	tokens auth.DownloadTokenService,
	workDir string,
	logger *slog.Logger,
) *BackupHandler {
	if queue == nil {
		panic("backup handler requires a backup queue")
	}
	if tokens == nil {
		panic("backup handler requires a download token service")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &BackupHandler{
		queue:   queue,
		tokens:  tokens,
		workDir: workDir,
		logger:  logger.With(slog.String("component", "backup_handler")),
	}
}

// EnqueueCreate handles POST /api/backups requests.
func (h *BackupHandler) EnqueueCreate(w http.ResponseWriter, r *http.Request) {
	userID, err := getUserIDFromContext(r)
	if err != nil {
		HandleAPIError(w, r, err, "Authentication required")
		return
	}

	jobID, err := h.queue.EnqueueCreate(r.Context(), userID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to enqueue backup job")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusAccepted, JobAcceptedResponse{JobID: jobID})
}

// EnqueueRestore handles POST /api/backups/restore requests. The archive
// path is taken relative to the backup work directory.
func (h *BackupHandler) EnqueueRestore(w http.ResponseWriter, r *http.Request) {
	userID, err := getUserIDFromContext(r)
	if err != nil {
		HandleAPIError(w, r, err, "Authentication required")
		return
	}

	var req RestoreRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	strategy := backup.StrategyMerge
	if req.Strategy != "" {
		strategy, err = backup.ParseStrategy(req.Strategy)
		if err != nil {
			HandleAPIError(w, r, err, "")
			return
		}
	}

	archivePath := req.ArchivePath
	if !filepath.IsAbs(archivePath) {
		archivePath = filepath.Join(h.workDir, archivePath)
	}
	// The restorer re-validates before extraction; rejecting here keeps
	// hostile paths out of the queue entirely.
	if err := pathsec.ValidateWithinDir(archivePath, h.workDir); err != nil {
		HandleAPIError(w, r, err, "Archive path is outside the backup directory")
		return
	}

	jobID, err := h.queue.EnqueueRestore(r.Context(), userID, archivePath, strategy)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to enqueue restore job")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusAccepted, JobAcceptedResponse{JobID: jobID})
}

// GetStatus handles GET /api/backups/status requests. It reports the
// user's most recent backup or restore job.
func (h *BackupHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	userID, err := getUserIDFromContext(r)
	if err != nil {
		HandleAPIError(w, r, err, "Authentication required")
		return
	}

	status, ok := h.queue.StatusByUser(userID)
	if !ok {
		shared.RespondWithError(w, r, http.StatusNotFound, "No backup job found")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, status)
}

// CreateDownloadToken handles POST /api/backups/download-token requests.
// A token is only issued once the user's latest create job has finished
// and produced an archive.
func (h *BackupHandler) CreateDownloadToken(w http.ResponseWriter, r *http.Request) {
	userID, err := getUserIDFromContext(r)
	if err != nil {
		HandleAPIError(w, r, err, "Authentication required")
		return
	}

	status, ok := h.queue.StatusByUser(userID)
	if !ok || status.Action != backup.ActionCreate || status.State != task.StatusCompleted || status.ArchivePath == "" {
		shared.RespondWithError(w, r, http.StatusNotFound, "No completed backup available for download")
		return
	}

	token, err := h.tokens.GenerateToken(r.Context(), userID, status.ArchivePath)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to generate download token")
		return
	}

	// Read the expiry back off the signed token rather than duplicating
	// the lifetime arithmetic here.
	claims, err := h.tokens.ValidateToken(r.Context(), token)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to generate download token")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, DownloadTokenResponse{
		Token:     token,
		ExpiresAt: claims.ExpiresAt.Format(time.RFC3339),
	})
}

// Download handles GET /api/backups/download?token=... requests. The
// token is the sole credential: it names the archive it grants access
// to, so this route does not sit behind the identity middleware.
func (h *BackupHandler) Download(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		HandleAPIError(w, r, auth.ErrMissingToken, "")
		return
	}

	claims, err := h.tokens.ValidateToken(r.Context(), token)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	if err := pathsec.ValidateWithinDir(claims.ArchivePath, h.workDir); err != nil {
		h.logger.Warn("Download token names a path outside the work directory",
			slog.String("user_id", claims.UserID.String()),
			slog.String("error", err.Error()))
		HandleAPIError(w, r, auth.ErrInvalidToken, "")
		return
	}

	info, err := os.Stat(claims.ArchivePath)
	if err != nil || info.IsDir() {
		shared.RespondWithError(w, r, http.StatusNotFound, "Archive no longer exists")
		return
	}

	w.Header().Set("Content-Disposition", "attachment; filename="+filepath.Base(claims.ArchivePath))
	w.Header().Set("Content-Type", "application/gzip")
	http.ServeFile(w, r, claims.ArchivePath)
}
