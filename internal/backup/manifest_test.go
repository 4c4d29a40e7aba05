package backup

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validManifest() *Manifest {
	return &Manifest{
		Version:   "1.0.0",
		Timestamp: "2024-01-01T00:00:00Z",
		UserID:    "11111111-1111-4111-8111-111111111111",
		Checksums: map[string]string{"manifest": "abc"},
	}
}

func TestManifestValidate(t *testing.T) {
	t.Parallel()

	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, validManifest().Validate())
	})

	t.Run("bad semver", func(t *testing.T) {
		m := validManifest()
		m.Version = "one point oh"
		assert.ErrorIs(t, m.Validate(), ErrInvalidManifest)
	})

	t.Run("bad user id", func(t *testing.T) {
		m := validManifest()
		m.UserID = "not-a-uuid"
		assert.ErrorIs(t, m.Validate(), ErrInvalidManifest)
	})

	t.Run("non v4 user id", func(t *testing.T) {
		m := validManifest()
		m.UserID = "11111111-1111-1111-1111-111111111111"
		assert.ErrorIs(t, m.Validate(), ErrInvalidManifest)
	})

	t.Run("bad timestamp", func(t *testing.T) {
		m := validManifest()
		m.Timestamp = "January 1st 2024"
		assert.ErrorIs(t, m.Validate(), ErrInvalidManifest)
	})

	t.Run("missing checksums", func(t *testing.T) {
		m := validManifest()
		m.Checksums = nil
		assert.ErrorIs(t, m.Validate(), ErrInvalidManifest)
	})

	t.Run("empty checksums", func(t *testing.T) {
		m := validManifest()
		m.Checksums = map[string]string{}
		assert.ErrorIs(t, m.Validate(), ErrInvalidManifest)
	})
}

func TestManifestAccessors(t *testing.T) {
	t.Parallel()

	m := validManifest()
	require.NoError(t, m.Validate())

	assert.Equal(t, 2024, m.CreatedAt().Year())
	assert.Equal(t, m.UserID, m.UserUUID().String())
}

func TestLoadManifest(t *testing.T) {
	t.Parallel()

	t.Run("round trip", func(t *testing.T) {
		dir := t.TempDir()
		content := `{
			"version": "1.2.3",
			"timestamp": "2024-06-15T10:30:00Z",
			"userId": "22222222-2222-4222-8222-222222222222",
			"checksums": {"database/journals.json": "deadbeef"}
		}`
		require.NoError(t, os.WriteFile(filepath.Join(dir, ManifestFilename), []byte(content), 0o640))

		m, err := LoadManifest(dir)
		require.NoError(t, err)
		assert.Equal(t, "1.2.3", m.Version)
		assert.Equal(t, "deadbeef", m.Checksums["database/journals.json"])
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadManifest(t.TempDir())
		assert.ErrorIs(t, err, ErrInvalidManifest)
	})

	t.Run("malformed json", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, ManifestFilename), []byte("{not json"), 0o640))
		_, err := LoadManifest(dir)
		assert.ErrorIs(t, err, ErrInvalidManifest)
	})
}

func TestNewManifest(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	m := NewManifest(userID, map[string]string{"a": "b"}, &ManifestStats{Journals: 2})

	require.NoError(t, m.Validate())
	assert.Equal(t, FormatVersion, m.Version)
	assert.Equal(t, userID, m.UserUUID())
	assert.Equal(t, 2, m.Stats.Journals)
}
