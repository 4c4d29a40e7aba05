package backup

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/reverie-app/reverie-api/internal/pathsec"
	"github.com/reverie-app/reverie-api/internal/store"
)

// Restorer rebuilds a user's journals, notes, and media files from a
// backup archive. One Restorer serves all users; each Restore call is
// independent.
type Restorer struct {
	db          *sql.DB
	journals    store.JournalStore
	notes       store.NoteStore
	links       store.JournalNoteStore
	templates   store.TemplateStore
	dailyMoods  store.DailyMoodStore
	transcripts store.TranscriptStore
	tags        store.TagStore

	uploadRoot string
	workDir    string
	passphrase string
	logger     *slog.Logger
}

// RestorerStores bundles the per-entity stores a Restorer needs.
type RestorerStores struct {
	Journals     store.JournalStore
	Notes        store.NoteStore
	JournalNotes store.JournalNoteStore
	Templates    store.TemplateStore
	DailyMoods   store.DailyMoodStore
	Transcripts  store.TranscriptStore
	Tags         store.TagStore
}

// NewRestorer creates a Restorer. uploadRoot is the managed media root
// that restored files must resolve within; workDir is where archives
// live and temp extraction directories are created. passphrase must
// match the Creator's for encrypted archives to restore.
func NewRestorer(db *sql.DB, stores RestorerStores, uploadRoot, workDir, passphrase string, logger *slog.Logger) *Restorer {
	if db == nil {
		panic("restorer requires a database")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Restorer{
		db:          db,
		journals:    stores.Journals,
		notes:       stores.Notes,
		links:       stores.JournalNotes,
		templates:   stores.Templates,
		dailyMoods:  stores.DailyMoods,
		transcripts: stores.Transcripts,
		tags:        stores.Tags,
		uploadRoot:  uploadRoot,
		workDir:     workDir,
		passphrase:  passphrase,
		logger:      logger.With(slog.String("component", "restorer")),
	}
}

// Restore executes a full restore of the archive at archivePath for the
// given user, applying the conflict strategy. onProgress, when non-nil,
// receives a fixed sequence of phase checkpoints.
//
// Fatal problems (bad archive path, corrupt archive, invalid manifest,
// transaction failure) return an error before or instead of mutating the
// database. Per-record problems are aggregated into the returned summary
// and never abort the restore.
func (r *Restorer) Restore(
	ctx context.Context,
	userID uuid.UUID,
	archivePath string,
	strategy Strategy,
	onProgress ProgressFunc,
) (*RestoreSummary, error) {
	logger := r.logger.With(slog.String("user_id", userID.String()))

	// A caller-supplied archive path outside the work directory is a path
	// injection attempt, rejected before touching the filesystem.
	if err := pathsec.ValidateWithinDir(archivePath, r.workDir); err != nil {
		return nil, fmt.Errorf("%w: archive path: %v", ErrExtraction, err)
	}

	onProgress.notify(StepExtract, 0, 0)
	extractDir, err := os.MkdirTemp(r.workDir, "restore-"+userID.String()+"-")
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create extraction directory: %v", ErrExtraction, err)
	}
	// The extraction directory is removed on every exit path.
	defer func() {
		if err := os.RemoveAll(extractDir); err != nil {
			logger.Error("failed to remove extraction directory",
				slog.String("dir", extractDir),
				slog.String("error", err.Error()))
		}
	}()

	// Encrypted archives are decrypted to a scratch file alongside the
	// extraction directory. The plaintext copy never outlives the call.
	archiveToExtract := archivePath
	if strings.HasSuffix(archivePath, EncryptedArchiveSuffix) {
		if r.passphrase == "" {
			return nil, fmt.Errorf("%w: archive is encrypted and no passphrase is configured", ErrExtraction)
		}
		decrypted := extractDir + ".tar.gz"
		if err := DecryptArchive(archivePath, decrypted, r.passphrase); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrExtraction, err)
		}
		defer func() {
			if err := os.Remove(decrypted); err != nil {
				logger.Error("failed to remove decrypted archive",
					slog.String("path", decrypted),
					slog.String("error", err.Error()))
			}
		}()
		archiveToExtract = decrypted
	}

	unsafeMembers, err := ExtractArchive(archiveToExtract, extractDir)
	if err != nil {
		return nil, err
	}

	onProgress.notify(StepValidate, 1, 15)
	manifest, err := LoadManifest(extractDir)
	if err != nil {
		return nil, err
	}

	summary := NewRestoreSummary()
	for _, member := range unsafeMembers {
		summary.addError("files", member, errUnsafeMember)
	}
	if manifest.UserID != userID.String() {
		summary.addWarning(fmt.Sprintf("archive was created by user %s, restoring into account %s",
			manifest.UserID, userID))
	}

	onProgress.notify(StepLoadEntities, 2, 30)
	records, err := loadBundle(extractDir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtraction, err)
	}
	records.Notes = sortNotesByDependency(records.Notes)

	logger.Info("starting restore import",
		slog.String("strategy", string(strategy)),
		slog.String("archive_version", manifest.Version),
		slog.Int("record_count", records.total()))

	onProgress.notify(StepImportDatabase, 3, 45)
	err = store.RunInTransaction(ctx, r.db, func(ctx context.Context, tx *sql.Tx) error {
		if strategy == StrategyReplace {
			if err := r.deleteExisting(ctx, tx, userID); err != nil {
				return err
			}
		}
		return r.importBundle(ctx, tx, userID, records, strategy, summary)
	})
	if err != nil {
		summary.addError("transaction", "", err)
		summary.finalize()
		return summary, fmt.Errorf("%w: %v", ErrTransaction, err)
	}

	// File restoration happens after the commit: a copy failure must not
	// roll back records that imported cleanly.
	onProgress.notify(StepRestoreFiles, 4, 80)
	r.restoreFiles(extractDir, userID, summary, logger)

	onProgress.notify(StepDone, 5, 100)
	summary.finalize()

	logger.Info("restore finished",
		slog.Bool("success", summary.Success),
		slog.Int("errors", len(summary.Errors)))

	return summary, nil
}

// deleteExisting removes the user's current rows deepest-dependent first
// so no delete trips a foreign key.
func (r *Restorer) deleteExisting(ctx context.Context, tx *sql.Tx, userID uuid.UUID) error {
	deletes := []struct {
		table string
		fn    func(context.Context, uuid.UUID) error
	}{
		{EntityTags, r.tags.WithTx(tx).DeleteAllForUser},
		{EntityTranscripts, r.transcripts.WithTx(tx).DeleteAllForUser},
		{EntityJournalNotes, r.links.WithTx(tx).DeleteAllForUser},
		{EntityNotes, r.notes.WithTx(tx).DeleteAllForUser},
		{EntityJournals, r.journals.WithTx(tx).DeleteAllForUser},
		{EntityTemplates, r.templates.WithTx(tx).DeleteAllForUser},
		{EntityDailyMoods, r.dailyMoods.WithTx(tx).DeleteAllForUser},
	}

	for _, d := range deletes {
		if err := d.fn(ctx, userID); err != nil {
			return fmt.Errorf("failed to clear %s: %w", d.table, err)
		}
	}
	return nil
}

// recordImporter adapts one entity set to the shared import loop.
type recordImporter struct {
	table  string
	count  int
	id     func(i int) uuid.UUID
	exists func(ctx context.Context, id uuid.UUID) (bool, error)
	insert func(ctx context.Context, i int) error
}

// importBundle inserts every entity set in dependency order.
func (r *Restorer) importBundle(
	ctx context.Context,
	tx *sql.Tx,
	userID uuid.UUID,
	records *bundle,
	strategy Strategy,
	summary *RestoreSummary,
) error {
	journals := r.journals.WithTx(tx)
	notes := r.notes.WithTx(tx)
	links := r.links.WithTx(tx)
	templates := r.templates.WithTx(tx)
	dailyMoods := r.dailyMoods.WithTx(tx)
	transcripts := r.transcripts.WithTx(tx)
	tags := r.tags.WithTx(tx)

	importers := []recordImporter{
		{
			table: EntityJournals,
			count: len(records.Journals),
			id:    func(i int) uuid.UUID { return records.Journals[i].ID },
			exists: func(ctx context.Context, id uuid.UUID) (bool, error) {
				return journals.ExistsForUser(ctx, id, userID)
			},
			insert: func(ctx context.Context, i int) error {
				rec := *records.Journals[i]
				rec.UserID = userID
				return journals.Create(ctx, &rec)
			},
		},
		{
			table: EntityNotes,
			count: len(records.Notes),
			id:    func(i int) uuid.UUID { return records.Notes[i].ID },
			exists: func(ctx context.Context, id uuid.UUID) (bool, error) {
				return notes.ExistsForUser(ctx, id, userID)
			},
			insert: func(ctx context.Context, i int) error {
				rec := *records.Notes[i]
				rec.UserID = userID
				return notes.Create(ctx, &rec)
			},
		},
		{
			table: EntityJournalNotes,
			count: len(records.JournalNotes),
			id:    func(i int) uuid.UUID { return records.JournalNotes[i].ID },
			exists: func(ctx context.Context, id uuid.UUID) (bool, error) {
				return links.ExistsForUser(ctx, id, userID)
			},
			insert: func(ctx context.Context, i int) error {
				rec := *records.JournalNotes[i]
				rec.UserID = userID
				return links.Create(ctx, &rec)
			},
		},
		{
			table: EntityTemplates,
			count: len(records.Templates),
			id:    func(i int) uuid.UUID { return records.Templates[i].ID },
			exists: func(ctx context.Context, id uuid.UUID) (bool, error) {
				return templates.ExistsForUser(ctx, id, userID)
			},
			insert: func(ctx context.Context, i int) error {
				rec := *records.Templates[i]
				rec.UserID = userID
				return templates.Create(ctx, &rec)
			},
		},
		{
			table: EntityDailyMoods,
			count: len(records.DailyMoods),
			id:    func(i int) uuid.UUID { return records.DailyMoods[i].ID },
			exists: func(ctx context.Context, id uuid.UUID) (bool, error) {
				return dailyMoods.ExistsForUser(ctx, id, userID)
			},
			insert: func(ctx context.Context, i int) error {
				rec := *records.DailyMoods[i]
				rec.UserID = userID
				return dailyMoods.Create(ctx, &rec)
			},
		},
		{
			table: EntityTranscripts,
			count: len(records.Transcripts),
			id:    func(i int) uuid.UUID { return records.Transcripts[i].ID },
			exists: func(ctx context.Context, id uuid.UUID) (bool, error) {
				return transcripts.ExistsForUser(ctx, id, userID)
			},
			insert: func(ctx context.Context, i int) error {
				rec := *records.Transcripts[i]
				rec.UserID = userID
				return transcripts.Create(ctx, &rec)
			},
		},
		{
			table: EntityTags,
			count: len(records.Tags),
			id:    func(i int) uuid.UUID { return records.Tags[i].ID },
			exists: func(ctx context.Context, id uuid.UUID) (bool, error) {
				return tags.ExistsForUser(ctx, id, userID)
			},
			insert: func(ctx context.Context, i int) error {
				rec := *records.Tags[i]
				rec.UserID = userID
				return tags.Create(ctx, &rec)
			},
		},
	}

	for _, imp := range importers {
		if err := r.importSet(ctx, tx, imp, strategy, summary); err != nil {
			return err
		}
	}
	return nil
}

// importSet runs the merge/replace/skip policy over one entity set.
// Returned errors are fatal transaction failures; everything per-record
// lands in the summary.
func (r *Restorer) importSet(
	ctx context.Context,
	tx *sql.Tx,
	imp recordImporter,
	strategy Strategy,
	summary *RestoreSummary,
) error {
	for i := 0; i < imp.count; i++ {
		id := imp.id(i)

		// Replace already wiped the user's rows, so the existence check
		// only applies under merge and skip.
		if strategy != StrategyReplace {
			exists, err := imp.exists(ctx, id)
			if err != nil {
				return fmt.Errorf("existence check failed for %s %s: %w", imp.table, id, err)
			}
			if exists {
				summary.Skipped[imp.table]++
				continue
			}
		}

		recordErr, err := insertWithSavepoint(ctx, tx, func() error {
			return imp.insert(ctx, i)
		})
		if err != nil {
			return err
		}
		if recordErr != nil {
			// A uniqueness violation here means the row appeared between
			// the existence check and the insert; treat it as a skip.
			if store.IsDuplicateError(recordErr) {
				summary.Skipped[imp.table]++
				continue
			}
			summary.addError(imp.table, id.String(), recordErr)
			continue
		}
		summary.Restored[imp.table]++
	}
	return nil
}

// insertWithSavepoint runs one insert inside a savepoint so a failed
// statement does not poison the surrounding transaction. The first
// return value is the per-record insert error; the second is a fatal
// savepoint failure.
func insertWithSavepoint(ctx context.Context, tx *sql.Tx, insert func() error) (error, error) {
	if _, err := tx.ExecContext(ctx, "SAVEPOINT restore_record"); err != nil {
		return nil, fmt.Errorf("failed to create savepoint: %w", err)
	}

	if err := insert(); err != nil {
		if _, rbErr := tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT restore_record"); rbErr != nil {
			return nil, fmt.Errorf("failed to roll back savepoint: %w", rbErr)
		}
		return err, nil
	}

	if _, err := tx.ExecContext(ctx, "RELEASE SAVEPOINT restore_record"); err != nil {
		return nil, fmt.Errorf("failed to release savepoint: %w", err)
	}
	return nil, nil
}

// restoreFiles copies the archive's files/ tree into the user's media
// directory. Runs after the transaction commits; individual copy
// failures and traversal attempts are recorded and skipped.
func (r *Restorer) restoreFiles(extractDir string, userID uuid.UUID, summary *RestoreSummary, logger *slog.Logger) {
	filesDir := filepath.Join(extractDir, FilesDir)
	if _, err := os.Stat(filesDir); os.IsNotExist(err) {
		return
	}

	targetRoot := filepath.Join(r.uploadRoot, userID.String())

	walkErr := filepath.WalkDir(filesDir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(filesDir, path)
		if err != nil {
			summary.addError("files", path, err)
			return nil
		}

		dest, err := pathsec.SafeResolve(rel, targetRoot)
		if err != nil {
			summary.addError("files", rel, err)
			return nil
		}

		if err := copyFile(path, dest); err != nil {
			summary.addError("files", rel, err)
			return nil
		}
		return nil
	})
	if walkErr != nil {
		summary.addError("files", filesDir, walkErr)
		logger.Error("file restore walk failed", slog.String("error", walkErr.Error()))
	}
}

func copyFile(src, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o750); err != nil {
		return fmt.Errorf("failed to create destination directory: %w", err)
	}

	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open source: %w", err)
	}
	defer func() { _ = in.Close() }()

	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o640)
	if err != nil {
		return fmt.Errorf("failed to create destination: %w", err)
	}

	_, err = io.Copy(out, in)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("failed to copy file: %w", err)
	}
	return nil
}
