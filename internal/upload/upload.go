// Package upload tracks in-progress video upload sessions. A session
// reserves a temp artifact under the managed upload root; a fixed-TTL
// timer discards abandoned sessions, and completion promotes the artifact
// to the journal's video and requests the pipeline jobs for it.
package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/reverie-app/reverie-api/internal/domain"
	"github.com/reverie-app/reverie-api/internal/events"
	"github.com/reverie-app/reverie-api/internal/pipeline"
	"github.com/reverie-app/reverie-api/internal/store"
)

// ErrSessionNotFound is returned when the session ID is unknown, expired,
// or already completed.
var ErrSessionNotFound = errors.New("upload session not found")

// tempDirName is the per-user directory holding unfinished uploads.
const tempDirName = ".uploads"

// Session is one in-progress video upload.
type Session struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"userId"`
	Title     string    `json:"title"`
	TempPath  string    `json:"-"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type session struct {
	Session
	timer *time.Timer
}

// Manager is the in-memory upload session registry.
type Manager struct {
	journals store.JournalStore
	emitter  events.Emitter
	root     string
	ttl      time.Duration
	logger   *slog.Logger

	mu       sync.Mutex
	sessions map[uuid.UUID]*session
}

// NewManager creates a Manager. root is the managed upload root; ttl is
// how long an unfinished session lives before its artifact is reaped.
func NewManager(
	journals store.JournalStore,
	emitter events.Emitter,
	root string,
	ttl time.Duration,
	logger *slog.Logger,
) *Manager {
	if journals == nil {
		panic("upload manager requires a journal store")
	}
	if emitter == nil {
		panic("upload manager requires an event emitter")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Manager{
		journals: journals,
		emitter:  emitter,
		root:     root,
		ttl:      ttl,
		logger:   logger.With(slog.String("component", "upload_manager")),
		sessions: make(map[uuid.UUID]*session),
	}
}

// Begin opens an upload session for the user and allocates its temp
// artifact. The session is discarded by the reaper if Complete is not
// called within the TTL.
func (m *Manager) Begin(userID uuid.UUID, title string) (Session, error) {
	id := uuid.New()

	tempDir := filepath.Join(m.root, userID.String(), tempDirName)
	if err := os.MkdirAll(tempDir, 0o750); err != nil {
		return Session{}, fmt.Errorf("failed to create upload directory: %w", err)
	}

	tempPath := filepath.Join(tempDir, id.String()+".part")
	file, err := os.OpenFile(tempPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o640)
	if err != nil {
		return Session{}, fmt.Errorf("failed to allocate upload artifact: %w", err)
	}
	if err := file.Close(); err != nil {
		return Session{}, fmt.Errorf("failed to allocate upload artifact: %w", err)
	}

	now := time.Now().UTC()
	s := &session{
		Session: Session{
			ID:        id,
			UserID:    userID,
			Title:     title,
			TempPath:  tempPath,
			CreatedAt: now,
			ExpiresAt: now.Add(m.ttl),
		},
	}
	s.timer = time.AfterFunc(m.ttl, func() { m.reap(id) })

	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()

	m.logger.Info("upload session opened",
		slog.String("session_id", id.String()),
		slog.String("user_id", userID.String()))
	return s.Session, nil
}

// Receive streams the video content into the session's temp artifact.
func (m *Manager) Receive(sessionID uuid.UUID, content io.Reader) (int64, error) {
	m.mu.Lock()
	s, ok := m.sessions[sessionID]
	m.mu.Unlock()
	if !ok {
		return 0, ErrSessionNotFound
	}

	file, err := os.OpenFile(s.TempPath, os.O_WRONLY|os.O_TRUNC, 0o640)
	if err != nil {
		return 0, fmt.Errorf("failed to open upload artifact: %w", err)
	}
	defer func() { _ = file.Close() }()

	written, err := io.Copy(file, content)
	if err != nil {
		return written, fmt.Errorf("failed to write upload artifact: %w", err)
	}
	return written, nil
}

// Complete finalizes the session: the temp artifact becomes the journal's
// video, a journal row is created, and one pipeline job request per kind
// is emitted. The reaper timer is cancelled first, so a completion always
// beats a concurrent reap or loses it cleanly.
func (m *Manager) Complete(ctx context.Context, sessionID uuid.UUID) (*domain.Journal, error) {
	s, ok := m.take(sessionID)
	if !ok {
		return nil, ErrSessionNotFound
	}
	s.timer.Stop()

	relPath := filepath.Join("videos", s.ID.String()+".mp4")
	finalPath := filepath.Join(m.root, s.UserID.String(), relPath)
	if err := os.MkdirAll(filepath.Dir(finalPath), 0o750); err != nil {
		return nil, fmt.Errorf("failed to create video directory: %w", err)
	}
	if err := os.Rename(s.TempPath, finalPath); err != nil {
		return nil, fmt.Errorf("failed to finalize upload artifact: %w", err)
	}

	journal, err := domain.NewJournal(s.UserID, s.Title, filepath.ToSlash(relPath))
	if err != nil {
		return nil, err
	}
	if err := m.journals.Create(ctx, journal); err != nil {
		return nil, fmt.Errorf("failed to create journal: %w", err)
	}

	m.requestJobs(ctx, journal, finalPath)

	m.logger.Info("upload session completed",
		slog.String("session_id", s.ID.String()),
		slog.String("journal_id", journal.ID.String()))
	return journal, nil
}

// Abort discards the session and its temp artifact.
func (m *Manager) Abort(sessionID uuid.UUID) error {
	s, ok := m.take(sessionID)
	if !ok {
		return ErrSessionNotFound
	}
	s.timer.Stop()
	m.discard(s)
	return nil
}

// Get returns a snapshot of a live session.
func (m *Manager) Get(sessionID uuid.UUID) (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[sessionID]; ok {
		return s.Session, true
	}
	return Session{}, false
}

// Stop cancels every reaper timer. Temp artifacts are left on disk; the
// registry is in-memory only, so sessions do not survive a restart.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sessions {
		s.timer.Stop()
	}
	m.sessions = make(map[uuid.UUID]*session)
}

// take removes and returns the session, claiming it against concurrent
// completion and reaping.
func (m *Manager) take(sessionID uuid.UUID) (*session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if ok {
		delete(m.sessions, sessionID)
	}
	return s, ok
}

// reap discards an expired session. A session completed in the meantime
// is no longer registered and is left alone.
func (m *Manager) reap(sessionID uuid.UUID) {
	s, ok := m.take(sessionID)
	if !ok {
		return
	}

	m.logger.Warn("upload session expired, discarding artifact",
		slog.String("session_id", s.ID.String()),
		slog.String("user_id", s.UserID.String()))
	m.discard(s)
}

func (m *Manager) discard(s *session) {
	if err := os.Remove(s.TempPath); err != nil && !os.IsNotExist(err) {
		m.logger.Error("failed to remove upload artifact",
			slog.String("path", s.TempPath),
			slog.String("error", err.Error()))
	}
}

// requestJobs emits one pipeline job request per kind. Emission is
// best-effort: a failed emit is logged and the remaining kinds are still
// requested, so one stuck queue cannot block the others.
func (m *Manager) requestJobs(ctx context.Context, journal *domain.Journal, videoPath string) {
	job := pipeline.MediaJob{
		JournalID: journal.ID,
		UserID:    journal.UserID,
		VideoPath: videoPath,
	}

	for _, kind := range []string{pipeline.KindTranscription, pipeline.KindEmotion, pipeline.KindTranscoding} {
		event, err := events.NewJobRequestEvent(kind, job)
		if err == nil {
			err = m.emitter.EmitEvent(ctx, event)
		}
		if err != nil {
			m.logger.Error("failed to request pipeline job",
				slog.String("kind", kind),
				slog.String("journal_id", journal.ID.String()),
				slog.String("error", err.Error()))
		}
	}
}
