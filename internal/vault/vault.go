// Package vault stores finished backup archives offsite. The server keeps
// working copies on local disk; a vault is the durable home an archive is
// uploaded to after creation and fetched from before a restore.
package vault

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/reverie-app/reverie-api/internal/config"
)

// ErrArchiveNotFound is returned when the requested archive key does not
// exist in the vault.
var ErrArchiveNotFound = errors.New("archive not found in vault")

// Vault is the storage backend for backup archives.
type Vault interface {
	// Put uploads the archive content under key, replacing any existing
	// object with the same key.
	Put(ctx context.Context, key string, content io.Reader, size int64) error

	// Get returns a reader for the archive stored under key. The caller
	// must close it. Returns ErrArchiveNotFound if the key is absent.
	Get(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes the archive stored under key. Deleting an absent key
	// is not an error.
	Delete(ctx context.Context, key string) error
}

// New builds the vault selected by the backup configuration. The "none"
// backend returns a nil Vault: archives then only live on local disk.
func New(cfg config.BackupConfig) (Vault, error) {
	switch cfg.Vault {
	case "none":
		return nil, nil
	case "filesystem":
		return NewFilesystemVault(cfg.VaultPath)
	case "s3":
		return NewS3Vault(cfg.S3)
	default:
		return nil, fmt.Errorf("unknown vault backend %q", cfg.Vault)
	}
}
