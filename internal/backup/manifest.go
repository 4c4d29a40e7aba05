package backup

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// ManifestFilename is the archive member holding the manifest.
const ManifestFilename = "manifest.json"

// manifestValidate reuses one validator instance; validator caches struct
// metadata internally and is safe for concurrent use.
var manifestValidate = validator.New()

// ManifestStats carries optional entity counts recorded at backup time.
// Purely informational; never used to drive the restore.
type ManifestStats struct {
	Journals    int `json:"journals,omitempty"`
	Notes       int `json:"notes,omitempty"`
	Files       int `json:"files,omitempty"`
	TotalBytes  int `json:"totalBytes,omitempty"`
	Transcripts int `json:"transcripts,omitempty"`
}

// Manifest describes one backup archive. It is validated in full before
// any database mutation; a manifest failure always aborts the restore.
type Manifest struct {
	Version   string            `json:"version"   validate:"required,semver"`
	Timestamp string            `json:"timestamp" validate:"required"`
	UserID    string            `json:"userId"    validate:"required,uuid4"`
	Checksums map[string]string `json:"checksums" validate:"required,min=1"`
	Stats     *ManifestStats    `json:"stats,omitempty"`
}

// Validate checks all manifest fields. The timestamp must be RFC 3339.
func (m *Manifest) Validate() error {
	if err := manifestValidate.Struct(m); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidManifest, err)
	}
	if _, err := time.Parse(time.RFC3339, m.Timestamp); err != nil {
		return fmt.Errorf("%w: timestamp %q is not RFC 3339: %v", ErrInvalidManifest, m.Timestamp, err)
	}
	return nil
}

// CreatedAt returns the parsed manifest timestamp. Call Validate first.
func (m *Manifest) CreatedAt() time.Time {
	t, _ := time.Parse(time.RFC3339, m.Timestamp)
	return t
}

// UserUUID returns the parsed manifest user ID. Call Validate first.
func (m *Manifest) UserUUID() uuid.UUID {
	id, _ := uuid.Parse(m.UserID)
	return id
}

// LoadManifest reads and validates manifest.json from the extracted
// archive directory.
func LoadManifest(dir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestFilename))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidManifest, err)
	}

	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidManifest, err)
	}
	if err := manifest.Validate(); err != nil {
		return nil, err
	}
	return &manifest, nil
}

// NewManifest builds a manifest for a backup being created now.
func NewManifest(userID uuid.UUID, checksums map[string]string, stats *ManifestStats) *Manifest {
	return &Manifest{
		Version:   FormatVersion,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		UserID:    userID.String(),
		Checksums: checksums,
		Stats:     stats,
	}
}

// FormatVersion is the archive format written by this build.
const FormatVersion = "1.0.0"
