package gemini

import (
	"context"
	"html/template"
	"log/slog"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/reverie-app/reverie-api/internal/generation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGenerator(t *testing.T) *GeminiGenerator {
	t.Helper()

	tmpl, err := template.New("insight").
		Parse("Summarize this journal entry:\n\n{{.TranscriptText}}")
	require.NoError(t, err)

	return &GeminiGenerator{
		logger:         slog.New(slog.NewTextHandler(os.Stderr, nil)),
		promptTemplate: tmpl,
	}
}

func TestCreatePrompt(t *testing.T) {
	t.Parallel()

	g := newTestGenerator(t)

	t.Run("includes transcript text", func(t *testing.T) {
		prompt, err := g.createPrompt(context.Background(), "today was a good day")
		require.NoError(t, err)
		assert.Contains(t, prompt, "today was a good day")
		assert.Contains(t, prompt, "Summarize this journal entry")
	})

	t.Run("rejects empty transcript", func(t *testing.T) {
		_, err := g.createPrompt(context.Background(), "")
		assert.ErrorIs(t, err, ErrEmptyTranscriptText)
	})
}

func TestParseResponse(t *testing.T) {
	t.Parallel()

	g := newTestGenerator(t)
	userID := uuid.New()

	t.Run("valid response", func(t *testing.T) {
		insight, err := g.parseResponse(context.Background(), &ResponseSchema{
			Summary: "You reflected on a calm morning walk.",
			Themes:  []string{"nature", "gratitude"},
		}, userID)
		require.NoError(t, err)
		assert.Equal(t, "You reflected on a calm morning walk.", insight.Summary)
		assert.Equal(t, []string{"nature", "gratitude"}, insight.Themes)
	})

	t.Run("nil response", func(t *testing.T) {
		_, err := g.parseResponse(context.Background(), nil, userID)
		assert.ErrorIs(t, err, generation.ErrInvalidResponse)
	})

	t.Run("missing summary", func(t *testing.T) {
		_, err := g.parseResponse(context.Background(), &ResponseSchema{}, userID)
		assert.ErrorIs(t, err, generation.ErrInvalidResponse)
	})

	t.Run("nil user ID", func(t *testing.T) {
		_, err := g.parseResponse(context.Background(), &ResponseSchema{Summary: "s"}, uuid.Nil)
		assert.Error(t, err)
	})
}
