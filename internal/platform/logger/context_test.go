package logger

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromContext_ReturnsStoredLogger(t *testing.T) {
	stored := slog.New(slog.NewTextHandler(os.Stderr, nil))
	ctx := WithLogger(context.Background(), stored)

	assert.Same(t, stored, FromContext(ctx))
}

func TestFromContext_FallsBackToDefault(t *testing.T) {
	assert.Same(t, slog.Default(), FromContext(context.Background()))
}

func TestFromContextOrDefault(t *testing.T) {
	def := slog.New(slog.NewTextHandler(os.Stderr, nil))

	// Nothing in context: provided default wins.
	assert.Same(t, def, FromContextOrDefault(context.Background(), def))

	// Context value wins over the provided default.
	stored := slog.New(slog.NewTextHandler(os.Stderr, nil))
	ctx := WithLogger(context.Background(), stored)
	assert.Same(t, stored, FromContextOrDefault(ctx, def))

	// Nil default falls back to the process default.
	assert.Same(t, slog.Default(), FromContextOrDefault(context.Background(), nil))
}
