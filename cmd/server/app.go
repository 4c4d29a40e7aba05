package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/reverie-app/reverie-api/internal/backup"
	"github.com/reverie-app/reverie-api/internal/config"
	"github.com/reverie-app/reverie-api/internal/events"
	"github.com/reverie-app/reverie-api/internal/pipeline"
	"github.com/reverie-app/reverie-api/internal/platform/emotion"
	"github.com/reverie-app/reverie-api/internal/platform/ffmpeg"
	"github.com/reverie-app/reverie-api/internal/platform/gemini"
	"github.com/reverie-app/reverie-api/internal/platform/postgres"
	"github.com/reverie-app/reverie-api/internal/platform/speech"
	"github.com/reverie-app/reverie-api/internal/service"
	"github.com/reverie-app/reverie-api/internal/service/auth"
	"github.com/reverie-app/reverie-api/internal/task"
	"github.com/reverie-app/reverie-api/internal/upload"
	"github.com/reverie-app/reverie-api/internal/vault"
)

// application holds all the shared application dependencies to simplify
// management and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	// Core services
	journalService *service.JournalService
	tokenService   auth.DownloadTokenService

	// Upload sessions and the event plumbing behind them
	uploads *upload.Manager
	emitter *events.InMemoryEmitter

	// Media pipeline
	workers *pipeline.Set

	// Backup engine
	backupQueue *backup.BackupRestoreQueue
}

// newApplication creates a new application instance with all
// dependencies initialized and the background queues started.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger, db *sql.DB) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
	}

	// Stores
	journalStore := postgres.NewPostgresJournalStore(db, logger)
	noteStore := postgres.NewPostgresNoteStore(db, logger)
	journalNoteStore := postgres.NewPostgresJournalNoteStore(db, logger)
	templateStore := postgres.NewPostgresTemplateStore(db, logger)
	dailyMoodStore := postgres.NewPostgresDailyMoodStore(db, logger)
	transcriptStore := postgres.NewPostgresTranscriptStore(db, logger)
	tagStore := postgres.NewPostgresTagStore(db, logger)

	// Download token service
	var err error
	app.tokenService, err = auth.NewDownloadTokenService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize download token service: %w", err)
	}
	logger.Info("Download token service initialized",
		"token_lifetime_minutes", cfg.Auth.DownloadTokenLifetimeMinutes)

	// Event emitter links the upload flow (and the transcription worker)
	// to the pipeline dispatcher.
	app.emitter = events.NewInMemoryEmitter(logger)

	// Pipeline workers
	toolTimeout := time.Duration(cfg.Pipeline.ToolTimeoutSeconds) * time.Second
	queueConfig := task.Config{QueueSize: cfg.Pipeline.QueueSize, WorkerCount: 1}

	sttClient := speech.NewClient(cfg.Pipeline.TranscriptionURL, toolTimeout, logger)
	emotionClient := emotion.NewClient(cfg.Pipeline.EmotionURL, toolTimeout, logger)
	transcoder := ffmpeg.NewTranscoder(cfg.Pipeline.FFmpegPath, logger)

	// Insights are optional: without an API key the insight queue is not
	// created and the transcription worker never requests one.
	var insightWorker pipeline.Worker
	var transcriptionEmitter events.Emitter
	if cfg.LLM.GeminiAPIKey != "" {
		generator, err := gemini.NewGeminiGenerator(ctx, logger.With("component", "llm_generator"), cfg.LLM)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize insight generator: %w", err)
		}
		insightWorker = pipeline.NewInsightWorker(generator, journalStore, transcriptStore, queueConfig, logger)
		transcriptionEmitter = app.emitter
		logger.Info("Insight generator initialized", "model", cfg.LLM.ModelName)
	} else {
		logger.Info("Insight generation disabled: no API key configured")
	}

	app.workers = pipeline.NewSet(
		pipeline.NewTranscriptionWorker(sttClient, transcriptStore, transcriptionEmitter, queueConfig, logger),
		pipeline.NewEmotionWorker(emotionClient, journalStore, queueConfig, logger),
		pipeline.NewTranscodingWorker(transcoder, journalStore, queueConfig, logger),
		insightWorker,
	)
	app.emitter.RegisterHandler(pipeline.NewDispatcher(app.workers, logger))

	// Upload sessions
	sessionTTL := time.Duration(cfg.Upload.SessionTTLMinutes) * time.Minute
	app.uploads = upload.NewManager(journalStore, app.emitter, cfg.Backup.UploadRoot, sessionTTL, logger)

	// Journal read service
	app.journalService = service.NewJournalService(journalStore, transcriptStore, logger)

	// Backup engine
	restorerStores := backup.RestorerStores{
		Journals:     journalStore,
		Notes:        noteStore,
		JournalNotes: journalNoteStore,
		Templates:    templateStore,
		DailyMoods:   dailyMoodStore,
		Transcripts:  transcriptStore,
		Tags:         tagStore,
	}

	offsite, err := vault.New(cfg.Backup)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize archive vault: %w", err)
	}
	if offsite != nil {
		logger.Info("Archive vault initialized", "backend", cfg.Backup.Vault)
	}

	restorer := backup.NewRestorer(db, restorerStores, cfg.Backup.UploadRoot, cfg.Backup.WorkDir, cfg.Backup.Passphrase, logger)
	creator := backup.NewCreator(restorerStores, cfg.Backup.UploadRoot, cfg.Backup.WorkDir, offsite, cfg.Backup.Passphrase, logger)
	app.backupQueue = backup.NewBackupRestoreQueue(restorer, creator,
		task.Config{QueueSize: cfg.Backup.QueueSize, WorkerCount: 1}, logger)

	// Start consuming jobs.
	app.workers.Start()
	app.backupQueue.Start()

	logger.Info("Application initialized successfully")
	return app, nil
}

// Run starts the application server, handling lifecycle and cleanup.
func (app *application) Run(ctx context.Context) error {
	router := app.setupRouter()

	if err := app.startHTTPServer(ctx, router); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// cleanup handles graceful shutdown of application resources. Queues are
// drained before the database closes so in-flight jobs can finish their
// writes.
func (app *application) cleanup() {
	if app.uploads != nil {
		app.uploads.Stop()
	}
	if app.workers != nil {
		app.workers.Stop()
	}
	if app.backupQueue != nil {
		app.backupQueue.Stop()
	}

	if app.db != nil {
		closeDatabase(app.db, app.logger)
	}

	app.logger.Info("Application shutdown completed")
}
