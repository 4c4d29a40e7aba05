package backup

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/reverie-app/reverie-api/internal/vault"
)

// Creator assembles backup archives: every entity set dumped to JSON,
// the user's media files mirrored, a manifest with checksums, all packed
// into a gzipped tarball under the work directory.
type Creator struct {
	stores     RestorerStores
	uploadRoot string
	workDir    string
	vault      vault.Vault
	passphrase string
	logger     *slog.Logger
}

// NewCreator creates a Creator. offsite may be nil, in which case
// archives stay on local disk only. A non-empty passphrase enables
// archive encryption.
func NewCreator(
	stores RestorerStores,
	uploadRoot, workDir string,
	offsite vault.Vault,
	passphrase string,
	logger *slog.Logger,
) *Creator {
	if logger == nil {
		logger = slog.Default()
	}

	return &Creator{
		stores:     stores,
		uploadRoot: uploadRoot,
		workDir:    workDir,
		vault:      offsite,
		passphrase: passphrase,
		logger:     logger.With(slog.String("component", "backup_creator")),
	}
}

// Create builds a backup archive for the user and returns its path. When
// a vault is configured the archive is also uploaded under
// <userID>/<filename>.
func (c *Creator) Create(ctx context.Context, userID uuid.UUID) (string, error) {
	logger := c.logger.With(slog.String("user_id", userID.String()))

	stageDir, err := os.MkdirTemp(c.workDir, "backup-"+userID.String()+"-")
	if err != nil {
		return "", fmt.Errorf("failed to create staging directory: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(stageDir); err != nil {
			logger.Error("failed to remove staging directory",
				slog.String("dir", stageDir),
				slog.String("error", err.Error()))
		}
	}()

	checksums := make(map[string]string)
	stats := &ManifestStats{}

	if err := c.dumpEntities(ctx, userID, stageDir, checksums, stats); err != nil {
		return "", err
	}
	if err := c.stageFiles(userID, stageDir, checksums, stats); err != nil {
		return "", err
	}

	manifest := NewManifest(userID, checksums, stats)
	manifestJSON, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(stageDir, ManifestFilename), manifestJSON, 0o640); err != nil {
		return "", fmt.Errorf("failed to write manifest: %w", err)
	}

	archiveName := fmt.Sprintf("backup-%s-%s.tar.gz",
		userID, time.Now().UTC().Format("20060102T150405Z"))
	archivePath := filepath.Join(c.workDir, archiveName)
	if err := CreateArchive(stageDir, archivePath); err != nil {
		return "", err
	}

	if c.passphrase != "" {
		encryptedPath := archivePath + EncryptedArchiveSuffix
		if err := EncryptArchive(archivePath, encryptedPath, c.passphrase); err != nil {
			_ = os.Remove(archivePath)
			return "", err
		}
		if err := os.Remove(archivePath); err != nil {
			logger.Warn("failed to remove plaintext archive",
				slog.String("path", archivePath),
				slog.String("error", err.Error()))
		}
		archivePath = encryptedPath
		archiveName += EncryptedArchiveSuffix
	}

	if c.vault != nil {
		if err := c.uploadToVault(ctx, userID, archivePath, archiveName); err != nil {
			return "", err
		}
	}

	logger.Info("backup created",
		slog.String("archive", archiveName),
		slog.Int("journals", stats.Journals),
		slog.Int("files", stats.Files))

	return archivePath, nil
}

// dumpEntities writes database/<entity>.json for every entity set the
// user owns. Empty sets still produce a file, so a restore of a fresh
// account is distinguishable from a truncated archive.
func (c *Creator) dumpEntities(
	ctx context.Context,
	userID uuid.UUID,
	stageDir string,
	checksums map[string]string,
	stats *ManifestStats,
) error {
	databaseDir := filepath.Join(stageDir, DatabaseDir)
	if err := os.MkdirAll(databaseDir, 0o750); err != nil {
		return fmt.Errorf("failed to create database directory: %w", err)
	}

	journals, err := c.stores.Journals.ListByUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to list journals: %w", err)
	}
	notes, err := c.stores.Notes.ListByUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to list notes: %w", err)
	}
	links, err := c.stores.JournalNotes.ListByUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to list journal notes: %w", err)
	}
	templates, err := c.stores.Templates.ListByUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to list templates: %w", err)
	}
	dailyMoods, err := c.stores.DailyMoods.ListByUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to list daily moods: %w", err)
	}
	transcripts, err := c.stores.Transcripts.ListByUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to list transcripts: %w", err)
	}
	tags, err := c.stores.Tags.ListByUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to list tags: %w", err)
	}

	stats.Journals = len(journals)
	stats.Notes = len(notes)
	stats.Transcripts = len(transcripts)

	dumps := []struct {
		name    string
		records any
	}{
		{EntityJournals, journals},
		{EntityNotes, notes},
		{EntityJournalNotes, links},
		{EntityTemplates, templates},
		{EntityDailyMoods, dailyMoods},
		{EntityTranscripts, transcripts},
		{EntityTags, tags},
	}

	for _, d := range dumps {
		data, err := json.MarshalIndent(d.records, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode %s: %w", d.name, err)
		}
		relPath := DatabaseDir + "/" + d.name + ".json"
		if err := os.WriteFile(filepath.Join(databaseDir, d.name+".json"), data, 0o640); err != nil {
			return fmt.Errorf("failed to write %s: %w", relPath, err)
		}
		sum := sha256.Sum256(data)
		checksums[relPath] = hex.EncodeToString(sum[:])
	}

	return nil
}

// stageFiles mirrors the user's media directory under files/.
func (c *Creator) stageFiles(
	userID uuid.UUID,
	stageDir string,
	checksums map[string]string,
	stats *ManifestStats,
) error {
	userDir := filepath.Join(c.uploadRoot, userID.String())
	if _, err := os.Stat(userDir); os.IsNotExist(err) {
		return nil
	}

	filesDir := filepath.Join(stageDir, FilesDir)
	return filepath.WalkDir(userDir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(userDir, path)
		if err != nil {
			return err
		}

		dest := filepath.Join(filesDir, rel)
		if err := copyFile(path, dest); err != nil {
			return fmt.Errorf("failed to stage %s: %w", rel, err)
		}

		sum, size, err := hashFile(dest)
		if err != nil {
			return err
		}
		checksums[FilesDir+"/"+filepath.ToSlash(rel)] = sum
		stats.Files++
		stats.TotalBytes += int(size)
		return nil
	})
}

func hashFile(path string) (string, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", 0, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = file.Close() }()

	hasher := sha256.New()
	size, err := io.Copy(hasher, file)
	if err != nil {
		return "", 0, fmt.Errorf("failed to hash %s: %w", path, err)
	}
	return hex.EncodeToString(hasher.Sum(nil)), size, nil
}

func (c *Creator) uploadToVault(ctx context.Context, userID uuid.UUID, archivePath, archiveName string) error {
	file, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("failed to open archive for upload: %w", err)
	}
	defer func() { _ = file.Close() }()

	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat archive: %w", err)
	}

	key := userID.String() + "/" + archiveName
	if err := c.vault.Put(ctx, key, file, info.Size()); err != nil {
		return fmt.Errorf("failed to upload archive to vault: %w", err)
	}
	return nil
}
