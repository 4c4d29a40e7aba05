package service

import "errors"

// Common service errors - sentinel errors used across service implementations.
// Callers check for them with errors.Is(); the API layer maps them to HTTP
// status codes.
var (
	// ErrNotOwned indicates a resource is owned by a different user than the
	// one making the request. Maps to HTTP 403 Forbidden.
	ErrNotOwned = errors.New("resource is owned by another user")

	// ErrJournalNotFound indicates the requested journal does not exist.
	// Maps to HTTP 404 Not Found.
	ErrJournalNotFound = errors.New("journal not found")

	// ErrTranscriptNotFound indicates the journal has no transcript yet.
	// Maps to HTTP 404 Not Found.
	ErrTranscriptNotFound = errors.New("transcript not found")
)
