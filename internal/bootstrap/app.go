package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"

	"resumegen-backend/internal/activity"
	"resumegen-backend/internal/ats"
	"resumegen-backend/internal/auth"
	"resumegen-backend/internal/cleanup"
	"resumegen-backend/internal/documents"
	"resumegen-backend/internal/email"
	"resumegen-backend/internal/export"
	"resumegen-backend/internal/generations"
	"resumegen-backend/internal/health"
	"resumegen-backend/internal/jobpostings"
	"resumegen-backend/internal/llm"
	"resumegen-backend/internal/llm/ollama"
	"resumegen-backend/internal/queue"
	"resumegen-backend/internal/shared/config"
	"resumegen-backend/internal/shared/server"
	"resumegen-backend/internal/shared/storage/db"
	"resumegen-backend/internal/shared/storage/object"
	"resumegen-backend/internal/shared/storage/object/local"
	"resumegen-backend/internal/shared/storage/object/s3"
	"resumegen-backend/internal/shared/telemetry"
	"resumegen-backend/internal/usage"
	"resumegen-backend/internal/users"
)

// App holds the wired application.
type App struct {
	Config config.Config
	Router *gin.Engine
	DB     *sql.DB

	Generations *generations.Service
	GenRepo     generations.Repo
	Activity    *activity.Service
	Mailer      *email.SMTPMailer
	Queue       queue.Client
	Receiver    queue.Receiver
	Cleaner     *cleanup.Cleaner
}

// Build wires repositories, services, and the HTTP router from configuration.
// Without DATABASE_URL everything runs on in-memory stores, which suits local
// development only.
func Build(ctx context.Context, cfg config.Config) (*App, error) {
	app := &App{Config: cfg}

	if cfg.DatabaseURL != "" {
		database, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultServerOptions()))
		if err != nil {
			return nil, fmt.Errorf("connect database: %w", err)
		}
		app.DB = database
	} else {
		if cfg.Env == "production" {
			return nil, fmt.Errorf("DATABASE_URL is required in production")
		}
		telemetry.Warn("bootstrap.memory_mode", map[string]any{
			"detail": "no DATABASE_URL, using in-memory repositories",
		})
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	queueClient, receiver, err := buildQueue(ctx, cfg)
	if err != nil {
		return nil, err
	}
	app.Queue = queueClient
	app.Receiver = receiver

	var (
		userRepo     users.Repo
		documentRepo documents.DocumentsRepo
		runRepo      generations.Repo
		activityRepo activity.ActivityRepo
		usageStore   usage.Store
	)
	if app.DB != nil {
		userRepo = &users.PGRepo{DB: app.DB}
		documentRepo = &documents.PGRepo{DB: app.DB}
		runRepo = &generations.PGRepo{DB: app.DB}
		activityRepo = &activity.PGRepo{DB: app.DB}
		usageStore = &usage.PGStore{DB: app.DB}
	} else {
		userRepo = users.NewMemoryRepo()
		documentRepo = documents.NewMemoryRepo()
		runRepo = generations.NewMemoryRepo()
		activityRepo = activity.NewMemoryRepo()
		usageStore = usage.NewMemoryStore()
	}
	app.GenRepo = runRepo

	activitySvc := activity.NewService(activityRepo)
	app.Activity = activitySvc

	usageSvc := usage.NewService(usageStore)
	userSvc := users.NewService(userRepo)

	documentSvc := &documents.Service{
		Store:          store,
		Repo:           documentRepo,
		Activity:       activitySvc,
		MaxUploadBytes: cfg.MaxUploadBytes,
	}

	var model llm.Client
	if cfg.OllamaURL != "" {
		model = ollama.New(cfg.OllamaURL, cfg.OllamaModel, 0)
	}

	broker := generations.NewBroker()
	generationSvc := &generations.Service{
		Repo:     runRepo,
		DocRepo:  documentRepo,
		Store:    store,
		LLM:      model,
		Fetcher:  jobpostings.NewFetcher(),
		Usage:    usageSvc,
		Events:   broker,
		Activity: activitySvc,
		Timeout:  cfg.GenerationTimeout,
	}
	app.Generations = generationSvc

	app.Mailer = email.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPFrom)

	app.Cleaner = &cleanup.Cleaner{
		Interval:  cfg.CleanupInterval,
		TempTTL:   cfg.TempFileTTL,
		Activity:  activityRepo,
		Retention: time.Duration(cfg.RetentionDays) * 24 * time.Hour,
	}
	if dirStore, ok := store.(interface{ BaseDir() string }); ok {
		app.Cleaner.TempDir = dirStore.BaseDir()
	} else if sweeper, ok := store.(cleanup.ExtractedSweeper); ok {
		app.Cleaner.Objects = sweeper
	}

	usageHandler := usage.NewHandler(usageSvc)

	api := []server.RouteRegistrar{
		users.NewHandler(userSvc),
		ats.NewHandler(),
		documents.NewHandler(documentSvc),
		generations.NewHandler(generationSvc, broker),
		export.NewHandler(generationSvc, queueClient),
		usageHandler,
		activity.NewHandler(activitySvc),
	}
	if cfg.GoogleClientID != "" && cfg.GoogleClientSecret != "" {
		api = append(api, auth.NewGoogleService(
			cfg.GoogleClientID,
			cfg.GoogleClientSecret,
			cfg.GoogleRedirectURL,
			cfg.UIRedirectURL,
			userSvc,
		))
	} else {
		telemetry.Warn("bootstrap.google_auth_disabled", map[string]any{
			"detail": "GOOGLE_CLIENT_ID/GOOGLE_CLIENT_SECRET not set",
		})
	}

	app.Router = server.NewRouter(server.RouterDeps{
		Env:         cfg.Env,
		CORSOrigins: cfg.CORSAllowOrigin,
		Health:      health.NewHandler(app.DB, model),
		API:         api,
		Dev:         []server.DevRegistrar{usageHandler},
	})

	return app, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	if cfg.ObjectStoreType == "s3" {
		store, err := s3.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
		if err != nil {
			return nil, fmt.Errorf("build s3 store: %w", err)
		}
		return store, nil
	}
	return local.New(cfg.LocalStoreDir), nil
}

func buildQueue(ctx context.Context, cfg config.Config) (queue.Client, queue.Receiver, error) {
	if cfg.SQSQueueURL != "" {
		q, err := queue.NewSQSQueue(ctx, cfg.AWSRegion, cfg.SQSQueueURL)
		if err != nil {
			return nil, nil, fmt.Errorf("build sqs queue: %w", err)
		}
		return q, q, nil
	}
	mem := queue.NewMemoryQueue()
	return mem, mem, nil
}
