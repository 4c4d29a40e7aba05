package api

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/reverie-app/reverie-api/internal/domain"
	"github.com/reverie-app/reverie-api/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeJournalReader serves journals and transcripts from maps, applying
// the same ownership semantics as the real service.
type fakeJournalReader struct {
	journals    map[uuid.UUID]*domain.Journal
	transcripts map[uuid.UUID]*domain.Transcript
}

func newFakeJournalReader() *fakeJournalReader {
	return &fakeJournalReader{
		journals:    make(map[uuid.UUID]*domain.Journal),
		transcripts: make(map[uuid.UUID]*domain.Transcript),
	}
}

func (f *fakeJournalReader) GetForUser(_ context.Context, userID, journalID uuid.UUID) (*domain.Journal, error) {
	journal, ok := f.journals[journalID]
	if !ok {
		return nil, service.ErrJournalNotFound
	}
	if journal.UserID != userID {
		return nil, service.ErrNotOwned
	}
	return journal, nil
}

func (f *fakeJournalReader) ListForUser(_ context.Context, userID uuid.UUID) ([]*domain.Journal, error) {
	var owned []*domain.Journal
	for _, journal := range f.journals {
		if journal.UserID == userID {
			owned = append(owned, journal)
		}
	}
	return owned, nil
}

func (f *fakeJournalReader) TranscriptForUser(ctx context.Context, userID, journalID uuid.UUID) (*domain.Transcript, error) {
	if _, err := f.GetForUser(ctx, userID, journalID); err != nil {
		return nil, err
	}
	transcript, ok := f.transcripts[journalID]
	if !ok {
		return nil, service.ErrTranscriptNotFound
	}
	return transcript, nil
}

func (f *fakeJournalReader) add(userID uuid.UUID, title string) *domain.Journal {
	journal, err := domain.NewJournal(userID, title, "videos/"+uuid.NewString()+".mp4")
	if err != nil {
		panic(err)
	}
	f.journals[journal.ID] = journal
	return journal
}

func newJournalRouter(reader *fakeJournalReader) *chi.Mux {
	handler := NewJournalHandler(reader, nil)
	return newTestRouter(func(r chi.Router) {
		r.Get("/journals", handler.List)
		r.Get("/journals/{id}", handler.Get)
		r.Get("/journals/{id}/transcript", handler.Transcript)
	})
}

func TestJournalHandler_Get(t *testing.T) {
	userID := uuid.New()
	reader := newFakeJournalReader()
	journal := reader.add(userID, "First entry")
	router := newJournalRouter(reader)

	rec := doRequest(t, router, http.MethodGet, "/journals/"+journal.ID.String(), userID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp JournalResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, journal.ID, resp.ID)
	assert.Equal(t, "First entry", resp.Title)
}

func TestJournalHandler_GetForeignJournalForbidden(t *testing.T) {
	reader := newFakeJournalReader()
	journal := reader.add(uuid.New(), "Private")
	router := newJournalRouter(reader)

	rec := doRequest(t, router, http.MethodGet, "/journals/"+journal.ID.String(), uuid.New(), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestJournalHandler_GetUnknownJournalNotFound(t *testing.T) {
	router := newJournalRouter(newFakeJournalReader())

	rec := doRequest(t, router, http.MethodGet, "/journals/"+uuid.NewString(), uuid.New(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestJournalHandler_ListReturnsOnlyOwnJournals(t *testing.T) {
	userID := uuid.New()
	reader := newFakeJournalReader()
	reader.add(userID, "Mine")
	reader.add(userID, "Also mine")
	reader.add(uuid.New(), "Someone else's")
	router := newJournalRouter(reader)

	rec := doRequest(t, router, http.MethodGet, "/journals", userID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp []JournalResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp, 2)
}

func TestJournalHandler_ListEmptyIsJSONArray(t *testing.T) {
	router := newJournalRouter(newFakeJournalReader())

	rec := doRequest(t, router, http.MethodGet, "/journals", uuid.New(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestJournalHandler_Transcript(t *testing.T) {
	userID := uuid.New()
	reader := newFakeJournalReader()
	journal := reader.add(userID, "Spoken entry")
	transcript, err := domain.NewTranscript(journal.ID, userID, "hello world", nil, "en")
	require.NoError(t, err)
	reader.transcripts[journal.ID] = transcript
	router := newJournalRouter(reader)

	rec := doRequest(t, router, http.MethodGet,
		"/journals/"+journal.ID.String()+"/transcript", userID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp TranscriptResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, journal.ID, resp.JournalID)
	assert.Equal(t, "hello world", resp.Text)
}

func TestJournalHandler_TranscriptNotYetProduced(t *testing.T) {
	userID := uuid.New()
	reader := newFakeJournalReader()
	journal := reader.add(userID, "Still processing")
	router := newJournalRouter(reader)

	rec := doRequest(t, router, http.MethodGet,
		"/journals/"+journal.ID.String()+"/transcript", userID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
