package upload

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/reverie-app/reverie-api/internal/domain"
	"github.com/reverie-app/reverie-api/internal/events"
	"github.com/reverie-app/reverie-api/internal/pipeline"
	"github.com/reverie-app/reverie-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeJournalStore struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*domain.Journal
}

func newFakeJournalStore() *fakeJournalStore {
	return &fakeJournalStore{rows: make(map[uuid.UUID]*domain.Journal)}
}

func (s *fakeJournalStore) Create(_ context.Context, j *domain.Journal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[j.ID]; ok {
		return store.ErrDuplicate
	}
	s.rows[j.ID] = j
	return nil
}

func (s *fakeJournalStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Journal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if j, ok := s.rows[id]; ok {
		return j, nil
	}
	return nil, store.ErrJournalNotFound
}

func (s *fakeJournalStore) ExistsForUser(_ context.Context, id, userID uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.rows[id]
	return ok && j.UserID == userID, nil
}

func (s *fakeJournalStore) ListByUser(_ context.Context, userID uuid.UUID) ([]*domain.Journal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.Journal
	for _, j := range s.rows {
		if j.UserID == userID {
			out = append(out, j)
		}
	}
	return out, nil
}

func (s *fakeJournalStore) UpdateEmotion(_ context.Context, _ uuid.UUID, _ domain.EmotionAnalysis) error {
	return nil
}

func (s *fakeJournalStore) UpdateTranscode(_ context.Context, _ uuid.UUID, _ string, _ domain.TranscodeStatus) error {
	return nil
}

func (s *fakeJournalStore) UpdateSummary(_ context.Context, _ uuid.UUID, _ string) error { return nil }

func (s *fakeJournalStore) DeleteAllForUser(_ context.Context, _ uuid.UUID) error { return nil }

func (s *fakeJournalStore) WithTx(_ *sql.Tx) store.JournalStore { return s }

type capturingEmitter struct {
	mu     sync.Mutex
	events []*events.JobRequestEvent
}

func (e *capturingEmitter) EmitEvent(_ context.Context, event *events.JobRequestEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, event)
	return nil
}

func (e *capturingEmitter) kinds() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, len(e.events))
	for i, event := range e.events {
		out[i] = event.Kind
	}
	return out
}

func newTestManager(t *testing.T, ttl time.Duration) (*Manager, *fakeJournalStore, *capturingEmitter, string) {
	t.Helper()
	journals := newFakeJournalStore()
	emitter := &capturingEmitter{}
	root := t.TempDir()
	m := NewManager(journals, emitter, root, ttl, nil)
	t.Cleanup(m.Stop)
	return m, journals, emitter, root
}

func TestManager_CompleteCreatesJournalAndRequestsJobs(t *testing.T) {
	t.Parallel()

	m, journals, emitter, root := newTestManager(t, time.Minute)
	userID := uuid.New()

	s, err := m.Begin(userID, "evening thoughts")
	require.NoError(t, err)

	_, err = m.Receive(s.ID, strings.NewReader("video bytes"))
	require.NoError(t, err)

	journal, err := m.Complete(context.Background(), s.ID)
	require.NoError(t, err)

	assert.Equal(t, userID, journal.UserID)
	assert.Equal(t, "evening thoughts", journal.Title)
	assert.Equal(t, "videos/"+s.ID.String()+".mp4", journal.VideoPath)

	stored, err := journals.GetByID(context.Background(), journal.ID)
	require.NoError(t, err)
	assert.Equal(t, journal.ID, stored.ID)

	// The artifact moved out of the temp directory into videos/.
	finalPath := filepath.Join(root, userID.String(), "videos", s.ID.String()+".mp4")
	content, err := os.ReadFile(finalPath)
	require.NoError(t, err)
	assert.Equal(t, "video bytes", string(content))
	_, err = os.Stat(s.TempPath)
	assert.True(t, os.IsNotExist(err))

	assert.ElementsMatch(t,
		[]string{pipeline.KindTranscription, pipeline.KindEmotion, pipeline.KindTranscoding},
		emitter.kinds())
}

func TestManager_CompleteUnknownSession(t *testing.T) {
	t.Parallel()

	m, _, _, _ := newTestManager(t, time.Minute)
	_, err := m.Complete(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestManager_ReaperDiscardsExpiredSession(t *testing.T) {
	t.Parallel()

	m, _, emitter, _ := newTestManager(t, 20*time.Millisecond)

	s, err := m.Begin(uuid.New(), "abandoned")
	require.NoError(t, err)
	_, err = m.Receive(s.ID, strings.NewReader("partial"))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		_, statErr := os.Stat(s.TempPath)
		return os.IsNotExist(statErr)
	}, 2*time.Second, 10*time.Millisecond, "temp artifact was not reaped")

	_, ok := m.Get(s.ID)
	assert.False(t, ok)

	_, err = m.Complete(context.Background(), s.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.Empty(t, emitter.kinds(), "a reaped session must not request jobs")
}

func TestManager_CompleteCancelsReaper(t *testing.T) {
	t.Parallel()

	m, _, _, root := newTestManager(t, 50*time.Millisecond)
	userID := uuid.New()

	s, err := m.Begin(userID, "fast upload")
	require.NoError(t, err)
	_, err = m.Receive(s.ID, strings.NewReader("v"))
	require.NoError(t, err)

	journal, err := m.Complete(context.Background(), s.ID)
	require.NoError(t, err)

	// Past the TTL the finalized video must still exist.
	time.Sleep(120 * time.Millisecond)
	_, err = os.Stat(filepath.Join(root, userID.String(), journal.VideoPath))
	assert.NoError(t, err)
}

func TestManager_AbortDiscardsArtifact(t *testing.T) {
	t.Parallel()

	m, _, _, _ := newTestManager(t, time.Minute)

	s, err := m.Begin(uuid.New(), "changed my mind")
	require.NoError(t, err)

	require.NoError(t, m.Abort(s.ID))
	_, err = os.Stat(s.TempPath)
	assert.True(t, os.IsNotExist(err))
	assert.ErrorIs(t, m.Abort(s.ID), ErrSessionNotFound)
}

func TestManager_ReceiveUnknownSession(t *testing.T) {
	t.Parallel()

	m, _, _, _ := newTestManager(t, time.Minute)
	_, err := m.Receive(uuid.New(), strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrSessionNotFound)
}
