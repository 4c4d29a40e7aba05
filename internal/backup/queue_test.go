package backup

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/reverie-app/reverie-api/internal/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestQueue wires a queue over one shared work directory so create
// and restore jobs can hand archives to each other.
func newTestQueue(t *testing.T, stores *memStores, uploadRoot, workDir string) *BackupRestoreQueue {
	t.Helper()

	restorer := NewRestorer(openTestDB(t), stores.restorerStores(), uploadRoot, workDir, "", nil)
	creator := NewCreator(stores.restorerStores(), uploadRoot, workDir, nil, "", nil)

	queue := NewBackupRestoreQueue(restorer, creator, task.DefaultConfig(), nil)
	queue.Start()
	t.Cleanup(queue.Stop)
	return queue
}

// waitTerminal polls the user's job until it reaches a terminal state.
func waitTerminal(t *testing.T, queue *BackupRestoreQueue, userID uuid.UUID) JobStatus {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if status, ok := queue.StatusByUser(userID); ok && status.State.Terminal() {
			return status
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job for user %s did not finish in time", userID)
	return JobStatus{}
}

func TestBackupQueue_CreateJobProducesArchive(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	stores := newMemStores()
	seedStores(t, stores, sampleBundle(userID))
	queue := newTestQueue(t, stores, t.TempDir(), t.TempDir())

	jobID, err := queue.EnqueueCreate(context.Background(), userID)
	require.NoError(t, err)

	status := waitTerminal(t, queue, userID)
	assert.Equal(t, jobID, status.JobID)
	assert.Equal(t, ActionCreate, status.Action)
	assert.Equal(t, task.StatusCompleted, status.State)
	require.NotEmpty(t, status.ArchivePath)

	_, err = os.Stat(status.ArchivePath)
	assert.NoError(t, err)

	byJob, ok := queue.StatusByJob(jobID)
	require.True(t, ok)
	assert.Equal(t, status.ArchivePath, byJob.ArchivePath)
}

func TestBackupQueue_RestoreJobReportsSummaryAndProgress(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	workDir := t.TempDir()
	stores := newMemStores()
	queue := newTestQueue(t, stores, t.TempDir(), workDir)

	env := &testEnv{workDir: workDir}
	archive := env.stageArchive(t, env.manifestFor(userID), sampleBundle(userID), nil)

	_, err := queue.EnqueueRestore(context.Background(), userID, archive, StrategyMerge)
	require.NoError(t, err)

	status := waitTerminal(t, queue, userID)
	assert.Equal(t, ActionRestore, status.Action)
	assert.Equal(t, task.StatusCompleted, status.State)

	require.NotNil(t, status.Summary)
	assert.True(t, status.Summary.Success)
	assert.Equal(t, 1, status.Summary.Restored[EntityJournals])

	require.NotNil(t, status.Progress)
	assert.Equal(t, StepDone, status.Progress.Step)
	assert.Equal(t, 100, status.Progress.Percentage)
}

func TestBackupQueue_CorruptArchiveFailsJob(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	workDir := t.TempDir()
	queue := newTestQueue(t, newMemStores(), t.TempDir(), workDir)

	archive := filepath.Join(workDir, "corrupt.tar.gz")
	require.NoError(t, os.WriteFile(archive, []byte("not a tarball"), 0o640))

	_, err := queue.EnqueueRestore(context.Background(), userID, archive, StrategyMerge)
	require.NoError(t, err)

	status := waitTerminal(t, queue, userID)
	assert.Equal(t, task.StatusFailed, status.State)
	assert.NotEmpty(t, status.Error)
	assert.Nil(t, status.Summary)
}

func TestBackupQueue_NewJobSupersedesFinishedOne(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	queue := newTestQueue(t, newMemStores(), t.TempDir(), t.TempDir())

	firstID, err := queue.EnqueueCreate(context.Background(), userID)
	require.NoError(t, err)
	first := waitTerminal(t, queue, userID)
	require.Equal(t, firstID, first.JobID)

	secondID, err := queue.EnqueueCreate(context.Background(), userID)
	require.NoError(t, err)
	second := waitTerminal(t, queue, userID)

	assert.Equal(t, secondID, second.JobID)
	assert.NotEqual(t, firstID, secondID)

	// The first job's record and result were released.
	_, ok := queue.StatusByJob(firstID)
	assert.False(t, ok)
}

func TestBackupQueue_StatusForUnknownUser(t *testing.T) {
	t.Parallel()

	queue := newTestQueue(t, newMemStores(), t.TempDir(), t.TempDir())

	_, ok := queue.StatusByUser(uuid.New())
	assert.False(t, ok)
	_, ok = queue.StatusByJob(uuid.New())
	assert.False(t, ok)
}
