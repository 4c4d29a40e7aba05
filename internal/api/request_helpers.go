package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/reverie-app/reverie-api/internal/api/shared"
)

// errMissingIdentity is returned when a handler runs without an
// authenticated user in the request context. The identity middleware
// guarantees this never happens on wired routes, so hitting it means a
// route was registered outside middleware.Require.
var errMissingIdentity = errors.New("no authenticated user in request context")

// getUserIDFromContext extracts the authenticated user ID placed in the
// request context by the identity middleware.
func getUserIDFromContext(r *http.Request) (uuid.UUID, error) {
	userID, ok := r.Context().Value(shared.UserIDContextKey).(uuid.UUID)
	if !ok || userID == uuid.Nil {
		return uuid.Nil, errMissingIdentity
	}
	return userID, nil
}

// getPathUUID parses the named chi URL parameter as a UUID.
func getPathUUID(r *http.Request, name string) (uuid.UUID, error) {
	raw := chi.URLParam(r, name)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s: %w", name, err)
	}
	return id, nil
}
