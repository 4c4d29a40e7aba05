package backup

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/reverie-app/reverie-api/internal/domain"
	"github.com/reverie-app/reverie-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

// openTestDB returns an in-memory database that supports the BEGIN /
// SAVEPOINT / COMMIT statements the restore transaction issues. The
// entity stores themselves are replaced with in-memory fakes, so no
// schema is needed.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// memRecords is the shared storage behind every fake entity store.
type memRecords[T any] struct {
	mu        sync.Mutex
	rows      []*T
	id        func(*T) uuid.UUID
	uid       func(*T) uuid.UUID
	createErr func(*T) error
	creates   int
}

func (m *memRecords[T]) create(rec *T) error {
	// The callback runs unlocked so it may call back into the store,
	// as the parent-ordering test does with exists.
	m.mu.Lock()
	m.creates++
	hook := m.createErr
	m.mu.Unlock()

	if hook != nil {
		if err := hook(rec); err != nil {
			return err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, row := range m.rows {
		if m.id(row) == m.id(rec) {
			return store.ErrDuplicate
		}
	}
	copied := *rec
	m.rows = append(m.rows, &copied)
	return nil
}

func (m *memRecords[T]) exists(id, userID uuid.UUID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, row := range m.rows {
		if m.id(row) == id && m.uid(row) == userID {
			return true
		}
	}
	return false
}

func (m *memRecords[T]) list(userID uuid.UUID) []*T {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*T
	for _, row := range m.rows {
		if m.uid(row) == userID {
			copied := *row
			out = append(out, &copied)
		}
	}
	return out
}

func (m *memRecords[T]) deleteAll(userID uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.rows[:0]
	for _, row := range m.rows {
		if m.uid(row) != userID {
			kept = append(kept, row)
		}
	}
	m.rows = kept
}

func (m *memRecords[T]) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

// Fake stores wrapping memRecords. WithTx returns the store itself; the
// fakes have no transaction semantics.

type memJournalStore struct{ memRecords[domain.Journal] }

func newMemJournalStore() *memJournalStore {
	s := &memJournalStore{}
	s.id = func(j *domain.Journal) uuid.UUID { return j.ID }
	s.uid = func(j *domain.Journal) uuid.UUID { return j.UserID }
	return s
}

func (s *memJournalStore) Create(_ context.Context, j *domain.Journal) error { return s.create(j) }

func (s *memJournalStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Journal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range s.rows {
		if row.ID == id {
			copied := *row
			return &copied, nil
		}
	}
	return nil, store.ErrJournalNotFound
}

func (s *memJournalStore) ExistsForUser(_ context.Context, id, userID uuid.UUID) (bool, error) {
	return s.exists(id, userID), nil
}

func (s *memJournalStore) ListByUser(_ context.Context, userID uuid.UUID) ([]*domain.Journal, error) {
	return s.list(userID), nil
}

func (s *memJournalStore) UpdateEmotion(_ context.Context, _ uuid.UUID, _ domain.EmotionAnalysis) error {
	return nil
}

func (s *memJournalStore) UpdateTranscode(_ context.Context, _ uuid.UUID, _ string, _ domain.TranscodeStatus) error {
	return nil
}

func (s *memJournalStore) UpdateSummary(_ context.Context, _ uuid.UUID, _ string) error { return nil }

func (s *memJournalStore) DeleteAllForUser(_ context.Context, userID uuid.UUID) error {
	s.deleteAll(userID)
	return nil
}

func (s *memJournalStore) WithTx(_ *sql.Tx) store.JournalStore { return s }

type memNoteStore struct{ memRecords[domain.Note] }

func newMemNoteStore() *memNoteStore {
	s := &memNoteStore{}
	s.id = func(n *domain.Note) uuid.UUID { return n.ID }
	s.uid = func(n *domain.Note) uuid.UUID { return n.UserID }
	return s
}

func (s *memNoteStore) Create(_ context.Context, n *domain.Note) error { return s.create(n) }

func (s *memNoteStore) ExistsForUser(_ context.Context, id, userID uuid.UUID) (bool, error) {
	return s.exists(id, userID), nil
}

func (s *memNoteStore) ListByUser(_ context.Context, userID uuid.UUID) ([]*domain.Note, error) {
	return s.list(userID), nil
}

func (s *memNoteStore) DeleteAllForUser(_ context.Context, userID uuid.UUID) error {
	s.deleteAll(userID)
	return nil
}

func (s *memNoteStore) WithTx(_ *sql.Tx) store.NoteStore { return s }

type memJournalNoteStore struct{ memRecords[domain.JournalNote] }

func newMemJournalNoteStore() *memJournalNoteStore {
	s := &memJournalNoteStore{}
	s.id = func(l *domain.JournalNote) uuid.UUID { return l.ID }
	s.uid = func(l *domain.JournalNote) uuid.UUID { return l.UserID }
	return s
}

func (s *memJournalNoteStore) Create(_ context.Context, l *domain.JournalNote) error {
	return s.create(l)
}

func (s *memJournalNoteStore) ExistsForUser(_ context.Context, id, userID uuid.UUID) (bool, error) {
	return s.exists(id, userID), nil
}

func (s *memJournalNoteStore) ListByUser(_ context.Context, userID uuid.UUID) ([]*domain.JournalNote, error) {
	return s.list(userID), nil
}

func (s *memJournalNoteStore) DeleteAllForUser(_ context.Context, userID uuid.UUID) error {
	s.deleteAll(userID)
	return nil
}

func (s *memJournalNoteStore) WithTx(_ *sql.Tx) store.JournalNoteStore { return s }

type memTemplateStore struct{ memRecords[domain.Template] }

func newMemTemplateStore() *memTemplateStore {
	s := &memTemplateStore{}
	s.id = func(r *domain.Template) uuid.UUID { return r.ID }
	s.uid = func(r *domain.Template) uuid.UUID { return r.UserID }
	return s
}

func (s *memTemplateStore) Create(_ context.Context, r *domain.Template) error { return s.create(r) }

func (s *memTemplateStore) ExistsForUser(_ context.Context, id, userID uuid.UUID) (bool, error) {
	return s.exists(id, userID), nil
}

func (s *memTemplateStore) ListByUser(_ context.Context, userID uuid.UUID) ([]*domain.Template, error) {
	return s.list(userID), nil
}

func (s *memTemplateStore) DeleteAllForUser(_ context.Context, userID uuid.UUID) error {
	s.deleteAll(userID)
	return nil
}

func (s *memTemplateStore) WithTx(_ *sql.Tx) store.TemplateStore { return s }

type memDailyMoodStore struct{ memRecords[domain.DailyMood] }

func newMemDailyMoodStore() *memDailyMoodStore {
	s := &memDailyMoodStore{}
	s.id = func(r *domain.DailyMood) uuid.UUID { return r.ID }
	s.uid = func(r *domain.DailyMood) uuid.UUID { return r.UserID }
	return s
}

func (s *memDailyMoodStore) Create(_ context.Context, r *domain.DailyMood) error { return s.create(r) }

func (s *memDailyMoodStore) ExistsForUser(_ context.Context, id, userID uuid.UUID) (bool, error) {
	return s.exists(id, userID), nil
}

func (s *memDailyMoodStore) ListByUser(_ context.Context, userID uuid.UUID) ([]*domain.DailyMood, error) {
	return s.list(userID), nil
}

func (s *memDailyMoodStore) DeleteAllForUser(_ context.Context, userID uuid.UUID) error {
	s.deleteAll(userID)
	return nil
}

func (s *memDailyMoodStore) WithTx(_ *sql.Tx) store.DailyMoodStore { return s }

type memTranscriptStore struct{ memRecords[domain.Transcript] }

func newMemTranscriptStore() *memTranscriptStore {
	s := &memTranscriptStore{}
	s.id = func(r *domain.Transcript) uuid.UUID { return r.ID }
	s.uid = func(r *domain.Transcript) uuid.UUID { return r.UserID }
	return s
}

func (s *memTranscriptStore) Create(_ context.Context, r *domain.Transcript) error {
	return s.create(r)
}

func (s *memTranscriptStore) GetByJournalID(_ context.Context, journalID uuid.UUID) (*domain.Transcript, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range s.rows {
		if row.JournalID == journalID {
			copied := *row
			return &copied, nil
		}
	}
	return nil, store.ErrTranscriptNotFound
}

func (s *memTranscriptStore) ExistsForUser(_ context.Context, id, userID uuid.UUID) (bool, error) {
	return s.exists(id, userID), nil
}

func (s *memTranscriptStore) ListByUser(_ context.Context, userID uuid.UUID) ([]*domain.Transcript, error) {
	return s.list(userID), nil
}

func (s *memTranscriptStore) DeleteByJournalID(_ context.Context, journalID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.rows[:0]
	for _, row := range s.rows {
		if row.JournalID != journalID {
			kept = append(kept, row)
		}
	}
	s.rows = kept
	return nil
}

func (s *memTranscriptStore) DeleteAllForUser(_ context.Context, userID uuid.UUID) error {
	s.deleteAll(userID)
	return nil
}

func (s *memTranscriptStore) WithTx(_ *sql.Tx) store.TranscriptStore { return s }

type memTagStore struct{ memRecords[domain.Tag] }

func newMemTagStore() *memTagStore {
	s := &memTagStore{}
	s.id = func(r *domain.Tag) uuid.UUID { return r.ID }
	s.uid = func(r *domain.Tag) uuid.UUID { return r.UserID }
	return s
}

func (s *memTagStore) Create(_ context.Context, r *domain.Tag) error { return s.create(r) }

func (s *memTagStore) ExistsForUser(_ context.Context, id, userID uuid.UUID) (bool, error) {
	return s.exists(id, userID), nil
}

func (s *memTagStore) ListByUser(_ context.Context, userID uuid.UUID) ([]*domain.Tag, error) {
	return s.list(userID), nil
}

func (s *memTagStore) DeleteAllForUser(_ context.Context, userID uuid.UUID) error {
	s.deleteAll(userID)
	return nil
}

func (s *memTagStore) WithTx(_ *sql.Tx) store.TagStore { return s }

// memStores bundles fresh fakes plus the concrete types for assertions.
type memStores struct {
	journals    *memJournalStore
	notes       *memNoteStore
	links       *memJournalNoteStore
	templates   *memTemplateStore
	dailyMoods  *memDailyMoodStore
	transcripts *memTranscriptStore
	tags        *memTagStore
}

func newMemStores() *memStores {
	return &memStores{
		journals:    newMemJournalStore(),
		notes:       newMemNoteStore(),
		links:       newMemJournalNoteStore(),
		templates:   newMemTemplateStore(),
		dailyMoods:  newMemDailyMoodStore(),
		transcripts: newMemTranscriptStore(),
		tags:        newMemTagStore(),
	}
}

func (m *memStores) restorerStores() RestorerStores {
	return RestorerStores{
		Journals:     m.journals,
		Notes:        m.notes,
		JournalNotes: m.links,
		Templates:    m.templates,
		DailyMoods:   m.dailyMoods,
		Transcripts:  m.transcripts,
		Tags:         m.tags,
	}
}

func (m *memStores) totalCreates() int {
	return m.journals.creates + m.notes.creates + m.links.creates +
		m.templates.creates + m.dailyMoods.creates + m.transcripts.creates + m.tags.creates
}

// testEnv wires a Restorer with fakes and scratch directories.
type testEnv struct {
	restorer   *Restorer
	stores     *memStores
	workDir    string
	uploadRoot string
	userID     uuid.UUID
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	stores := newMemStores()
	workDir := t.TempDir()
	uploadRoot := t.TempDir()

	return &testEnv{
		restorer:   NewRestorer(openTestDB(t), stores.restorerStores(), uploadRoot, workDir, "", nil),
		stores:     stores,
		workDir:    workDir,
		uploadRoot: uploadRoot,
		userID:     uuid.New(),
	}
}

// stageArchive assembles an archive inside the work directory from a
// manifest, entity sets, and media files.
func (e *testEnv) stageArchive(t *testing.T, manifest *Manifest, entities map[string]any, files map[string]string) string {
	t.Helper()

	stageDir := t.TempDir()
	manifestJSON, err := json.Marshal(manifest)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(stageDir, ManifestFilename), manifestJSON, 0o640))

	if len(entities) > 0 {
		require.NoError(t, os.MkdirAll(filepath.Join(stageDir, DatabaseDir), 0o750))
		for name, records := range entities {
			data, err := json.Marshal(records)
			require.NoError(t, err)
			require.NoError(t, os.WriteFile(filepath.Join(stageDir, DatabaseDir, name+".json"), data, 0o640))
		}
	}

	for rel, content := range files {
		path := filepath.Join(stageDir, FilesDir, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o640))
	}

	archivePath := filepath.Join(e.workDir, fmt.Sprintf("archive-%d.tar.gz", time.Now().UnixNano()))
	require.NoError(t, CreateArchive(stageDir, archivePath))
	return archivePath
}

func (e *testEnv) manifestFor(userID uuid.UUID) *Manifest {
	return &Manifest{
		Version:   "1.0.0",
		Timestamp: "2024-01-01T00:00:00Z",
		UserID:    userID.String(),
		Checksums: map[string]string{"manifest": "abc"},
	}
}

// sampleBundle builds a small consistent record set owned by userID.
func sampleBundle(userID uuid.UUID) map[string]any {
	journal := &domain.Journal{
		ID:        uuid.New(),
		UserID:    userID,
		Title:     "river walk",
		VideoPath: "videos/river.mp4",
	}
	rootNote := &domain.Note{ID: uuid.New(), UserID: userID, Title: "root", Content: "r"}
	childNote := &domain.Note{ID: uuid.New(), UserID: userID, ParentID: &rootNote.ID, Title: "child", Content: "c"}
	link := &domain.JournalNote{ID: uuid.New(), UserID: userID, JournalID: journal.ID, NoteID: rootNote.ID}
	template := &domain.Template{ID: uuid.New(), UserID: userID, Name: "daily", Content: "How was today?"}
	mood := &domain.DailyMood{ID: uuid.New(), UserID: userID, Date: time.Now(), Mood: "happy"}
	transcript := &domain.Transcript{ID: uuid.New(), UserID: userID, JournalID: journal.ID, Text: "hello"}
	tag := &domain.Tag{ID: uuid.New(), UserID: userID, JournalID: journal.ID, Name: "outdoors"}

	return map[string]any{
		EntityJournals:     []*domain.Journal{journal},
		EntityNotes:        []*domain.Note{childNote, rootNote}, // child first on purpose
		EntityJournalNotes: []*domain.JournalNote{link},
		EntityTemplates:    []*domain.Template{template},
		EntityDailyMoods:   []*domain.DailyMood{mood},
		EntityTranscripts:  []*domain.Transcript{transcript},
		EntityTags:         []*domain.Tag{tag},
	}
}

func TestRestore_ReplaceImportsEverything(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	bundle := sampleBundle(env.userID)

	// Pre-existing data that replace must wipe.
	old := &domain.Journal{ID: uuid.New(), UserID: env.userID, Title: "old", VideoPath: "old.mp4"}
	require.NoError(t, env.stores.journals.Create(context.Background(), old))

	archive := env.stageArchive(t, env.manifestFor(env.userID), bundle,
		map[string]string{"videos/river.mp4": "bytes"})

	summary, err := env.restorer.Restore(context.Background(), env.userID, archive, StrategyReplace, nil)
	require.NoError(t, err)

	assert.True(t, summary.Success)
	assert.Empty(t, summary.Errors)
	assert.Equal(t, 1, summary.Restored[EntityJournals])
	assert.Equal(t, 2, summary.Restored[EntityNotes])
	assert.Equal(t, 1, summary.Restored[EntityJournalNotes])
	assert.Equal(t, 1, summary.Restored[EntityTemplates])
	assert.Equal(t, 1, summary.Restored[EntityDailyMoods])
	assert.Equal(t, 1, summary.Restored[EntityTranscripts])
	assert.Equal(t, 1, summary.Restored[EntityTags])
	for _, name := range entityNames {
		assert.Zero(t, summary.Skipped[name], "unexpected skips for %s", name)
	}

	// The old journal is gone, the archived one is present.
	assert.False(t, env.stores.journals.exists(old.ID, env.userID))
	assert.Equal(t, 1, env.stores.journals.count())

	// Media landed inside the user's directory.
	content, err := os.ReadFile(filepath.Join(env.uploadRoot, env.userID.String(), "videos/river.mp4"))
	require.NoError(t, err)
	assert.Equal(t, "bytes", string(content))
}

func TestRestore_MergeSkipsExistingRecords(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	bundle := sampleBundle(env.userID)
	archive := env.stageArchive(t, env.manifestFor(env.userID), bundle, nil)

	// First restore seeds everything; second merge must skip it all.
	_, err := env.restorer.Restore(context.Background(), env.userID, archive, StrategyMerge, nil)
	require.NoError(t, err)

	summary, err := env.restorer.Restore(context.Background(), env.userID, archive, StrategyMerge, nil)
	require.NoError(t, err)

	assert.True(t, summary.Success)
	for _, name := range entityNames {
		assert.Zero(t, summary.Restored[name], "unexpected restores for %s", name)
	}
	assert.Equal(t, 1, summary.Skipped[EntityJournals])
	assert.Equal(t, 2, summary.Skipped[EntityNotes])
	assert.Equal(t, 1, summary.Skipped[EntityTranscripts])
}

func TestRestore_SkipStrategyKeepsExistingData(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	existing := &domain.Journal{ID: uuid.New(), UserID: env.userID, Title: "keep me", VideoPath: "keep.mp4"}
	require.NoError(t, env.stores.journals.Create(context.Background(), existing))

	archive := env.stageArchive(t, env.manifestFor(env.userID), sampleBundle(env.userID), nil)

	summary, err := env.restorer.Restore(context.Background(), env.userID, archive, StrategySkip, nil)
	require.NoError(t, err)

	assert.True(t, summary.Success)
	assert.Equal(t, 1, summary.Restored[EntityJournals])
	assert.True(t, env.stores.journals.exists(existing.ID, env.userID), "skip must not delete existing rows")
	assert.Equal(t, 2, env.stores.journals.count())
}

func TestRestore_ExampleManifestSingleJournal(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	manifest := &Manifest{
		Version:   "1.0.0",
		Timestamp: "2024-01-01T00:00:00Z",
		UserID:    "11111111-1111-4111-8111-111111111111",
		Checksums: map[string]string{"manifest": "abc"},
	}
	userID := uuid.MustParse(manifest.UserID)
	journal := &domain.Journal{ID: uuid.New(), UserID: userID, Title: "first", VideoPath: "v.mp4"}

	archive := env.stageArchive(t, manifest, map[string]any{
		EntityJournals: []*domain.Journal{journal},
	}, nil)

	summary, err := env.restorer.Restore(context.Background(), userID, archive, StrategyMerge, nil)
	require.NoError(t, err)

	assert.True(t, summary.Success)
	assert.Equal(t, 1, summary.Restored[EntityJournals])
	assert.Zero(t, summary.Skipped[EntityJournals])
}

func TestRestore_InvalidManifestUserIDRejectsBeforeAnyWrite(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	manifest := env.manifestFor(env.userID)
	manifest.UserID = "not-a-uuid"
	archive := env.stageArchive(t, manifest, sampleBundle(env.userID), nil)

	_, err := env.restorer.Restore(context.Background(), env.userID, archive, StrategyReplace, nil)
	assert.ErrorIs(t, err, ErrInvalidManifest)
	assert.Zero(t, env.stores.totalCreates(), "no store write may happen on manifest failure")
	assert.Equal(t, 0, env.stores.journals.count())
}

func TestRestore_ArchivePathOutsideWorkDirRejected(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	outside := filepath.Join(t.TempDir(), "evil.tar.gz")
	require.NoError(t, os.WriteFile(outside, []byte("x"), 0o640))

	_, err := env.restorer.Restore(context.Background(), env.userID, outside, StrategyMerge, nil)
	assert.ErrorIs(t, err, ErrExtraction)
	assert.Zero(t, env.stores.totalCreates())
}

func TestRestore_TraversalFileNeverEscapesUploadRoot(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	// Hand-craft an archive with a hostile files/ member next to a good one.
	manifestJSON, err := json.Marshal(env.manifestFor(env.userID))
	require.NoError(t, err)

	archivePath := filepath.Join(env.workDir, "hostile.tar.gz")
	craftArchive(t, archivePath, map[string]string{
		ManifestFilename:         string(manifestJSON),
		"files/good.txt":         "safe",
		"files/../../etc/passwd": "root::0:0::/:/bin/sh",
	})

	summary, err := env.restorer.Restore(context.Background(), env.userID, archivePath, StrategyMerge, nil)
	require.NoError(t, err)

	// The traversal attempt is recorded, the safe file still restored.
	assert.False(t, summary.Success)
	require.NotEmpty(t, summary.Errors)
	assert.Equal(t, "files", summary.Errors[0].Table)
	assert.Contains(t, summary.Errors[0].Record, "etc/passwd")

	content, err := os.ReadFile(filepath.Join(env.uploadRoot, env.userID.String(), "good.txt"))
	require.NoError(t, err)
	assert.Equal(t, "safe", string(content))

	_, err = os.Stat(filepath.Join(env.uploadRoot, "..", "etc", "passwd"))
	assert.True(t, os.IsNotExist(err))
}

func TestRestore_PerRecordErrorDoesNotAbortImport(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	good := &domain.Journal{ID: uuid.New(), UserID: env.userID, Title: "good", VideoPath: "g.mp4"}
	bad := &domain.Journal{ID: uuid.New(), UserID: env.userID, Title: "bad", VideoPath: "b.mp4"}

	env.stores.journals.createErr = func(j *domain.Journal) error {
		if j.ID == bad.ID {
			return errors.New("unresolved foreign key")
		}
		return nil
	}

	archive := env.stageArchive(t, env.manifestFor(env.userID), map[string]any{
		EntityJournals: []*domain.Journal{bad, good},
	}, nil)

	summary, err := env.restorer.Restore(context.Background(), env.userID, archive, StrategyMerge, nil)
	require.NoError(t, err)

	assert.False(t, summary.Success)
	assert.Equal(t, 1, summary.Restored[EntityJournals])
	require.Len(t, summary.Errors, 1)
	assert.Equal(t, EntityJournals, summary.Errors[0].Table)
	assert.Equal(t, bad.ID.String(), summary.Errors[0].Record)
	assert.True(t, env.stores.journals.exists(good.ID, env.userID))
}

func TestRestore_NotesInsertedParentFirst(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	// Simulate the self-referential foreign key: creating a child before
	// its parent fails.
	env.stores.notes.createErr = func(n *domain.Note) error {
		if n.ParentID != nil && !env.stores.notes.exists(*n.ParentID, n.UserID) {
			return errors.New("foreign key violation: parent note missing")
		}
		return nil
	}

	archive := env.stageArchive(t, env.manifestFor(env.userID), sampleBundle(env.userID), nil)

	summary, err := env.restorer.Restore(context.Background(), env.userID, archive, StrategyMerge, nil)
	require.NoError(t, err)

	assert.True(t, summary.Success)
	assert.Equal(t, 2, summary.Restored[EntityNotes])
}

func TestRestore_TempDirAlwaysCleaned(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	// Success path.
	archive := env.stageArchive(t, env.manifestFor(env.userID), nil, nil)
	_, err := env.restorer.Restore(context.Background(), env.userID, archive, StrategyMerge, nil)
	require.NoError(t, err)
	assertNoRestoreDirs(t, env.workDir)

	// Manifest failure path.
	bad := env.manifestFor(env.userID)
	bad.Version = "nope"
	badArchive := env.stageArchive(t, bad, nil, nil)
	_, err = env.restorer.Restore(context.Background(), env.userID, badArchive, StrategyMerge, nil)
	require.Error(t, err)
	assertNoRestoreDirs(t, env.workDir)
}

func assertNoRestoreDirs(t *testing.T, workDir string) {
	t.Helper()
	entries, err := os.ReadDir(workDir)
	require.NoError(t, err)
	for _, entry := range entries {
		assert.False(t, entry.IsDir() && strings.HasPrefix(entry.Name(), "restore-"),
			"extraction directory %s left behind", entry.Name())
	}
}

func TestRestore_ProgressCheckpoints(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	archive := env.stageArchive(t, env.manifestFor(env.userID), sampleBundle(env.userID), nil)

	var events []ProgressEvent
	summary, err := env.restorer.Restore(context.Background(), env.userID, archive, StrategyMerge,
		func(event ProgressEvent) { events = append(events, event) })
	require.NoError(t, err)
	require.True(t, summary.Success)

	steps := make([]string, len(events))
	for i, event := range events {
		steps[i] = event.Step
		assert.Equal(t, i, event.StepIndex)
	}
	assert.Equal(t, []string{StepExtract, StepValidate, StepLoadEntities, StepImportDatabase, StepRestoreFiles, StepDone}, steps)
	assert.Equal(t, 100, events[len(events)-1].Percentage)
}

func TestRestore_MismatchedManifestUserWarns(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	otherUser := uuid.New()
	archive := env.stageArchive(t, env.manifestFor(otherUser), nil, nil)

	summary, err := env.restorer.Restore(context.Background(), env.userID, archive, StrategyMerge, nil)
	require.NoError(t, err)

	assert.True(t, summary.Success)
	require.Len(t, summary.Warnings, 1)
	assert.Contains(t, summary.Warnings[0], otherUser.String())
}

func TestChannelProgress(t *testing.T) {
	t.Parallel()

	fn, ch := ChannelProgress()
	fn(ProgressEvent{Step: StepExtract, StepIndex: 0, Percentage: 0})
	fn(ProgressEvent{Step: StepDone, StepIndex: 5, Percentage: 100})

	first := <-ch
	assert.Equal(t, StepExtract, first.Step)
	second := <-ch
	assert.Equal(t, 100, second.Percentage)
}
