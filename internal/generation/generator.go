package generation

import (
	"context"

	"github.com/google/uuid"
)

// Insight is the LLM's reflection on a single journal entry's
// transcript: a short summary plus any recurring themes it noticed.
type Insight struct {
	Summary string
	Themes  []string
}

// Generator defines the interface for producing insights from transcript
// text. This interface serves as a boundary between the application core
// and external AI/LLM services.
type Generator interface {
	// GenerateInsight summarizes the provided transcript text for the given
	// user. It returns an Insight or an error if generation fails (see
	// errors.go for specific types).
	GenerateInsight(ctx context.Context, transcriptText string, userID uuid.UUID) (*Insight, error)
}
