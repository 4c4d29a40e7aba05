package backup

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/reverie-app/reverie-api/internal/pathsec"
)

// maxArchiveFileSize caps a single extracted member to guard against
// decompression bombs. Journal videos stay well under this.
const maxArchiveFileSize = 8 << 30 // 8 GiB

// ExtractArchive decompresses and untars the archive at archivePath into
// destDir. Member paths are resolved against destDir; a member that
// escapes it, or is not a plain file or directory, is skipped and
// returned in the skipped list so the caller can record it; one hostile
// or broken entry must not block the rest of the backup. A corrupt
// stream is fatal.
func ExtractArchive(archivePath, destDir string) (skipped []string, err error) {
	file, err := os.Open(archivePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtraction, err)
	}
	defer func() { _ = file.Close() }()

	gz, err := gzip.NewReader(file)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtraction, err)
	}
	defer func() { _ = gz.Close() }()

	reader := tar.NewReader(gz)
	for {
		header, err := reader.Next()
		if err == io.EOF {
			return skipped, nil
		}
		if err != nil {
			return skipped, fmt.Errorf("%w: %v", ErrExtraction, err)
		}

		target, err := pathsec.SafeResolve(header.Name, destDir)
		if err != nil {
			skipped = append(skipped, header.Name)
			continue
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o750); err != nil {
				return skipped, fmt.Errorf("%w: %v", ErrExtraction, err)
			}
		case tar.TypeReg:
			if err := extractFile(reader, target, header.FileInfo().Mode()); err != nil {
				return skipped, err
			}
		default:
			// Symlinks and devices have no business in a backup archive.
			skipped = append(skipped, header.Name)
		}
	}
}

func extractFile(reader io.Reader, target string, mode fs.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
		return fmt.Errorf("%w: %v", ErrExtraction, err)
	}

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode.Perm())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrExtraction, err)
	}

	written, err := io.Copy(out, io.LimitReader(reader, maxArchiveFileSize+1))
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrExtraction, err)
	}
	if written > maxArchiveFileSize {
		return fmt.Errorf("%w: member %q exceeds size limit", ErrExtraction, target)
	}
	return nil
}

// CreateArchive packs the contents of srcDir into a gzipped tarball at
// archivePath. Member names are recorded relative to srcDir.
func CreateArchive(srcDir, archivePath string) error {
	out, err := os.Create(archivePath)
	if err != nil {
		return fmt.Errorf("failed to create archive: %w", err)
	}
	defer func() { _ = out.Close() }()

	gz := gzip.NewWriter(out)
	writer := tar.NewWriter(gz)

	err = filepath.WalkDir(srcDir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == srcDir {
			return nil
		}

		rel, err := filepath.Rel(srcDir, path)
		if err != nil {
			return err
		}

		info, err := entry.Info()
		if err != nil {
			return err
		}

		header, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		header.Name = filepath.ToSlash(rel)

		if err := writer.WriteHeader(header); err != nil {
			return err
		}
		if !entry.Type().IsRegular() {
			return nil
		}

		file, err := os.Open(path)
		if err != nil {
			return err
		}
		defer func() { _ = file.Close() }()

		_, err = io.Copy(writer, file)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to pack archive: %w", err)
	}

	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize tar: %w", err)
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("failed to finalize gzip: %w", err)
	}
	return out.Close()
}
