package shared

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Title    string `json:"title"`
		Strategy string `json:"strategy"`
	}

	t.Run("valid body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/restore",
			strings.NewReader(`{"title": "Morning walk", "strategy": "merge"}`))

		var got payload
		require.NoError(t, DecodeJSON(req, &got))
		assert.Equal(t, "Morning walk", got.Title)
		assert.Equal(t, "merge", got.Strategy)
	})

	t.Run("malformed body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/restore",
			strings.NewReader(`{"title": "Morning walk",}`))

		var got payload
		assert.Error(t, DecodeJSON(req, &got))
	})

	t.Run("empty body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/restore", strings.NewReader(""))

		var got payload
		err := DecodeJSON(req, &got)
		assert.ErrorIs(t, err, io.EOF)
	})
}

func TestValidateRequest(t *testing.T) {
	type restoreForm struct {
		ArchivePath string `validate:"required"`
		Strategy    string `validate:"omitempty,oneof=merge replace skip"`
	}

	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, ValidateRequest(&restoreForm{
			ArchivePath: "backup-2026.tar.gz",
			Strategy:    "replace",
		}))
	})

	t.Run("missing required field", func(t *testing.T) {
		assert.Error(t, ValidateRequest(&restoreForm{Strategy: "merge"}))
	})

	t.Run("value outside oneof", func(t *testing.T) {
		assert.Error(t, ValidateRequest(&restoreForm{
			ArchivePath: "backup-2026.tar.gz",
			Strategy:    "overwrite",
		}))
	})
}
