// Package pathsec validates that filesystem paths stay within the managed
// upload root. Every caller-supplied archive path and every file path read
// out of a backup archive goes through it before any filesystem operation.
package pathsec

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrOutsideRoot is returned when a path resolves outside the given root.
var ErrOutsideRoot = errors.New("path resolves outside the allowed root")

// SafeResolve joins path onto root and returns the cleaned absolute result,
// or ErrOutsideRoot when the resolved path escapes the root. path may be
// relative (resolved against root) or absolute (checked against root).
func SafeResolve(path, root string) (string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("failed to resolve root: %w", err)
	}

	var candidate string
	if filepath.IsAbs(path) {
		candidate = filepath.Clean(path)
	} else {
		candidate = filepath.Join(absRoot, path)
	}

	if err := validateWithin(candidate, absRoot); err != nil {
		return "", err
	}
	return candidate, nil
}

// ValidateWithinDir checks that path resolves within root without
// returning the resolved path.
func ValidateWithinDir(path, root string) error {
	_, err := SafeResolve(path, root)
	return err
}

// validateWithin assumes both arguments are absolute and cleaned.
func validateWithin(path, root string) error {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrOutsideRoot, err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("%w: %s", ErrOutsideRoot, path)
	}
	return nil
}
