package gemini

import "errors"

// Error definitions for the gemini package.
var (
	// ErrEmptyTranscriptText is returned when a transcript text is empty.
	ErrEmptyTranscriptText = errors.New("transcript text cannot be empty")
)
