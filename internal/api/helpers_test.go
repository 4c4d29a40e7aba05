package api

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/reverie-app/reverie-api/internal/api/middleware"
)

// routeFunc registers handler routes on a router whose routes all sit
// behind the identity middleware.
type routeFunc func(r chi.Router)

func newTestRouter(register routeFunc) *chi.Mux {
	router := chi.NewRouter()
	identity := middleware.NewIdentityMiddleware()
	router.Group(func(r chi.Router) {
		r.Use(identity.Require)
		register(r)
	})
	return router
}

// doRequest performs req against the router and returns the recorder.
func doRequest(t *testing.T, router http.Handler, method, target string, userID uuid.UUID, body io.Reader) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, target, body)
	if userID != uuid.Nil {
		req.Header.Set(middleware.UserIDHeader, userID.String())
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}
