package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/reverie-app/reverie-api/internal/api/shared"
	"github.com/reverie-app/reverie-api/internal/backup"
	"github.com/reverie-app/reverie-api/internal/pathsec"
	"github.com/reverie-app/reverie-api/internal/pipeline"
	"github.com/reverie-app/reverie-api/internal/service"
	"github.com/reverie-app/reverie-api/internal/service/auth"
	"github.com/reverie-app/reverie-api/internal/store"
	"github.com/reverie-app/reverie-api/internal/upload"
)

// MapErrorToStatusCode maps internal errors to appropriate HTTP status
// codes based on the error type. This prevents leaking internal error
// types or messages to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	// Token errors
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrMissingToken),
		errors.Is(err, auth.ErrWrongTokenType),
		errors.Is(err, errMissingIdentity):
		return http.StatusUnauthorized

	// Authorization errors
	case errors.Is(err, service.ErrNotOwned):
		return http.StatusForbidden

	// Not found errors
	case errors.Is(err, service.ErrJournalNotFound),
		errors.Is(err, service.ErrTranscriptNotFound),
		errors.Is(err, pipeline.ErrUnknownJob),
		errors.Is(err, upload.ErrSessionNotFound):
		return http.StatusNotFound

	// Conflict errors
	case errors.Is(err, store.ErrDuplicate):
		return http.StatusConflict

	// Bad request errors
	case errors.Is(err, store.ErrInvalidEntity),
		errors.Is(err, backup.ErrInvalidManifest),
		errors.Is(err, backup.ErrExtraction),
		errors.Is(err, backup.ErrInvalidStrategy),
		errors.Is(err, pathsec.ErrOutsideRoot):
		return http.StatusBadRequest

	// Default: internal server error
	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type. This prevents leaking sensitive internal
// details such as filesystem paths.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		return "Download token expired"

	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrMissingToken),
		errors.Is(err, auth.ErrWrongTokenType):
		return "Invalid download token"

	case errors.Is(err, service.ErrNotOwned):
		return "You do not own this journal"

	case errors.Is(err, service.ErrJournalNotFound):
		return "Journal not found"

	case errors.Is(err, service.ErrTranscriptNotFound):
		return "Transcript not found"

	case errors.Is(err, pipeline.ErrUnknownJob):
		return "No job found for this journal"

	case errors.Is(err, upload.ErrSessionNotFound):
		return "Upload session not found or expired"

	case errors.Is(err, store.ErrDuplicate):
		return "Resource already exists"

	case errors.Is(err, store.ErrInvalidEntity):
		return "Invalid entity data"

	case errors.Is(err, backup.ErrInvalidManifest):
		return "Archive manifest is invalid"

	case errors.Is(err, backup.ErrExtraction):
		return "Archive could not be read"

	case errors.Is(err, backup.ErrInvalidStrategy):
		return "Unknown restore strategy"

	case errors.Is(err, pathsec.ErrOutsideRoot):
		return "Path is outside the allowed directory"

	default:
		return "An unexpected error occurred"
	}
}

// HandleAPIError writes the standard error response for err, using the
// override message when provided and the sanitized default otherwise.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, message string) {
	if message == "" {
		message = GetSafeErrorMessage(err)
	}
	shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), message, err)
}

// SanitizeValidationError removes sensitive details from validation errors
// and returns a user-friendly message.
func SanitizeValidationError(err error) string {
	errMsg := err.Error()

	// Example format: "Key: 'RestoreRequest.Strategy' Error:Field
	// validation for 'Strategy' failed on the 'oneof' tag"
	if strings.Contains(errMsg, "Field validation") {
		parts := strings.Split(errMsg, "Error:")
		if len(parts) >= 2 {
			fieldParts := strings.Split(parts[1], "'")
			if len(fieldParts) >= 3 {
				field := fieldParts[1]
				var tag string
				if len(fieldParts) >= 5 {
					tag = fieldParts[3]
				}

				if tag != "" {
					return fmt.Sprintf("Invalid %s: %s", field, getValidationTagMessage(tag))
				}
				return fmt.Sprintf("Invalid %s", field)
			}
		}
	}

	return "Validation error"
}

// getValidationTagMessage maps validation tags to user-friendly error messages
func getValidationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "min":
		return "too short"
	case "max":
		return "too long"
	case "oneof":
		return "invalid value"
	default:
		return "validation failed"
	}
}
