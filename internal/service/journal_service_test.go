package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/google/uuid"
	"github.com/reverie-app/reverie-api/internal/domain"
	"github.com/reverie-app/reverie-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubJournalStore struct {
	store.JournalStore
	journals map[uuid.UUID]*domain.Journal
}

func (s *stubJournalStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Journal, error) {
	if j, ok := s.journals[id]; ok {
		return j, nil
	}
	return nil, store.ErrJournalNotFound
}

func (s *stubJournalStore) ListByUser(_ context.Context, userID uuid.UUID) ([]*domain.Journal, error) {
	var out []*domain.Journal
	for _, j := range s.journals {
		if j.UserID == userID {
			out = append(out, j)
		}
	}
	return out, nil
}

func (s *stubJournalStore) WithTx(_ *sql.Tx) store.JournalStore { return s }

type stubTranscriptStore struct {
	store.TranscriptStore
	transcripts map[uuid.UUID]*domain.Transcript
}

func (s *stubTranscriptStore) GetByJournalID(_ context.Context, journalID uuid.UUID) (*domain.Transcript, error) {
	if tr, ok := s.transcripts[journalID]; ok {
		return tr, nil
	}
	return nil, store.ErrTranscriptNotFound
}

func (s *stubTranscriptStore) WithTx(_ *sql.Tx) store.TranscriptStore { return s }

func newTestService(t *testing.T) (*JournalService, *stubJournalStore, *stubTranscriptStore) {
	t.Helper()
	journals := &stubJournalStore{journals: make(map[uuid.UUID]*domain.Journal)}
	transcripts := &stubTranscriptStore{transcripts: make(map[uuid.UUID]*domain.Transcript)}
	return NewJournalService(journals, transcripts, nil), journals, transcripts
}

func TestJournalService_GetForUser(t *testing.T) {
	t.Parallel()

	svc, journals, _ := newTestService(t)
	owner := uuid.New()
	journal, err := domain.NewJournal(owner, "walk", "videos/walk.mp4")
	require.NoError(t, err)
	journals.journals[journal.ID] = journal

	got, err := svc.GetForUser(context.Background(), owner, journal.ID)
	require.NoError(t, err)
	assert.Equal(t, journal.ID, got.ID)

	_, err = svc.GetForUser(context.Background(), uuid.New(), journal.ID)
	assert.ErrorIs(t, err, ErrNotOwned)

	_, err = svc.GetForUser(context.Background(), owner, uuid.New())
	assert.ErrorIs(t, err, ErrJournalNotFound)
}

func TestJournalService_TranscriptForUser(t *testing.T) {
	t.Parallel()

	svc, journals, transcripts := newTestService(t)
	owner := uuid.New()
	journal, err := domain.NewJournal(owner, "walk", "videos/walk.mp4")
	require.NoError(t, err)
	journals.journals[journal.ID] = journal

	_, err = svc.TranscriptForUser(context.Background(), owner, journal.ID)
	assert.ErrorIs(t, err, ErrTranscriptNotFound)

	transcript, err := domain.NewTranscript(journal.ID, owner, "hello", nil, "en")
	require.NoError(t, err)
	transcripts.transcripts[journal.ID] = transcript

	got, err := svc.TranscriptForUser(context.Background(), owner, journal.ID)
	require.NoError(t, err)
	assert.Equal(t, "hello", got.Text)

	// Ownership is enforced before the transcript lookup.
	_, err = svc.TranscriptForUser(context.Background(), uuid.New(), journal.ID)
	assert.ErrorIs(t, err, ErrNotOwned)
}

func TestJournalService_ListForUser(t *testing.T) {
	t.Parallel()

	svc, journals, _ := newTestService(t)
	owner := uuid.New()
	for range 3 {
		j, err := domain.NewJournal(owner, "entry", "videos/v.mp4")
		require.NoError(t, err)
		journals.journals[j.ID] = j
	}
	other, err := domain.NewJournal(uuid.New(), "foreign", "videos/f.mp4")
	require.NoError(t, err)
	journals.journals[other.ID] = other

	got, err := svc.ListForUser(context.Background(), owner)
	require.NoError(t, err)
	assert.Len(t, got, 3)
}
