package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/reverie-app/reverie-api/internal/api"
	apiMiddleware "github.com/reverie-app/reverie-api/internal/api/middleware"
)

// setupRouter creates and configures the application router with all
// routes and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.TraceMiddleware)

	uploadHandler := api.NewUploadHandler(app.uploads, app.logger)
	journalHandler := api.NewJournalHandler(app.journalService, app.logger)
	jobHandler := api.NewJobHandler(app.journalService, app.workers, app.config.Backup.UploadRoot, app.logger)
	backupHandler := api.NewBackupHandler(app.backupQueue, app.tokenService, app.config.Backup.WorkDir, app.logger)

	identity := apiMiddleware.NewIdentityMiddleware()

	r.Route("/api", func(r chi.Router) {
		// The download token is the credential for this route, so it is
		// not behind the identity middleware.
		r.Get("/backups/download", backupHandler.Download)

		r.Group(func(r chi.Router) {
			r.Use(identity.Require)

			// Upload sessions
			r.Post("/uploads", uploadHandler.Begin)
			r.Put("/uploads/{id}", uploadHandler.Receive)
			r.Post("/uploads/{id}/complete", uploadHandler.Complete)
			r.Delete("/uploads/{id}", uploadHandler.Abort)

			// Journals
			r.Get("/journals", journalHandler.List)
			r.Get("/journals/{id}", journalHandler.Get)
			r.Get("/journals/{id}/transcript", journalHandler.Transcript)

			// Pipeline job polling and retry
			r.Get("/journals/{id}/jobs/{kind}", jobHandler.Status)
			r.Post("/journals/{id}/jobs/{kind}/retry", jobHandler.Retry)

			// Backups
			r.Post("/backups", backupHandler.EnqueueCreate)
			r.Post("/backups/restore", backupHandler.EnqueueRestore)
			r.Get("/backups/status", backupHandler.GetStatus)
			r.Post("/backups/download-token", backupHandler.CreateDownloadToken)
		})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("Failed to write health check response", "error", err)
		}
	})

	return r
}
