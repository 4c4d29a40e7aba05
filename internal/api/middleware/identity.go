package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/reverie-app/reverie-api/internal/api/shared"
)

// UserIDHeader is set by the authentication gateway in front of this
// service. Session handling lives there; this service only consumes the
// already-verified identity.
const UserIDHeader = "X-User-ID"

// IdentityMiddleware lifts the gateway-provided user identity into the
// request context.
type IdentityMiddleware struct{}

// NewIdentityMiddleware creates an IdentityMiddleware.
func NewIdentityMiddleware() *IdentityMiddleware {
	return &IdentityMiddleware{}
}

// Require rejects requests without a valid user identity and adds the
// user ID to the request context otherwise.
func (m *IdentityMiddleware) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get(UserIDHeader)
		if header == "" {
			shared.RespondWithError(w, r, http.StatusUnauthorized, "User identity required")
			return
		}

		userID, err := uuid.Parse(header)
		if err != nil || userID == uuid.Nil {
			shared.RespondWithError(w, r, http.StatusUnauthorized, "Invalid user identity")
			return
		}

		ctx := context.WithValue(r.Context(), shared.UserIDContextKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetUserID extracts the user ID from the request context.
// Returns the user ID and a boolean indicating if it was found.
func GetUserID(r *http.Request) (uuid.UUID, bool) {
	userID, ok := r.Context().Value(shared.UserIDContextKey).(uuid.UUID)
	return userID, ok
}
