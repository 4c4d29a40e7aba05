package vault

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/reverie-app/reverie-api/internal/pathsec"
)

// FilesystemVault stores archives as files under a root directory. It is
// the default backend for single-host deployments.
type FilesystemVault struct {
	root string
}

// NewFilesystemVault creates a vault rooted at root, creating the
// directory if needed.
func NewFilesystemVault(root string) (*FilesystemVault, error) {
	if root == "" {
		return nil, fmt.Errorf("vault root cannot be empty")
	}
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create vault root: %w", err)
	}
	return &FilesystemVault{root: root}, nil
}

// resolve maps a key to a path inside the root. Keys are caller-supplied,
// so they go through the same traversal guard as archive members.
func (v *FilesystemVault) resolve(key string) (string, error) {
	path, err := pathsec.SafeResolve(key, v.root)
	if err != nil {
		return "", fmt.Errorf("invalid archive key %q: %w", key, err)
	}
	return path, nil
}

// Put writes the archive to a temp file first and renames it into place,
// so a concurrent Get never sees a partial write.
func (v *FilesystemVault) Put(ctx context.Context, key string, content io.Reader, size int64) error {
	path, err := v.resolve(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("failed to create archive directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".upload-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := io.Copy(tmp, content); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write archive: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to finalize archive: %w", err)
	}

	return nil
}

// Get opens the archive stored under key.
func (v *FilesystemVault) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	path, err := v.resolve(key)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrArchiveNotFound, key)
		}
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	return file, nil
}

// Delete removes the archive stored under key.
func (v *FilesystemVault) Delete(ctx context.Context, key string) error {
	path, err := v.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete archive: %w", err)
	}
	return nil
}

var _ Vault = (*FilesystemVault)(nil)
