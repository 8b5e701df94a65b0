package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/swagger"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"pmapi/docs"
	"pmapi/internal/config"
	"pmapi/internal/database"
	"pmapi/internal/database/migration"
	handlers "pmapi/internal/http/handler"
	"pmapi/internal/http/middleware"
	"pmapi/internal/logger"
	"pmapi/internal/model"
	"pmapi/internal/otel"
	"pmapi/internal/repository/postgres"
	"pmapi/internal/service"
	"pmapi/internal/storage"
)

// @title Project Management API
// @version 1.0
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	// Load configuration from environment variables (.env auto-loaded if present)
	cfg := config.Load()
	log := logger.New(cfg.LogLevel, cfg.Location())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := otel.Init(ctx, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize tracing")
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			log.Error().Err(err).Msg("failed to flush traces")
		}
	}()

	// Initialize PostgreSQL connection (with pooling via database/sql)
	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	if cfg.Migrate {
		if err := migration.EnsureMigrated(ctx, db, log, cfg.Database.Host); err != nil {
			log.Fatal().Err(err).Msg("failed to migrate database")
		}
	}

	// Initialize reusable S3-compatible object storage client (MinIO-supported)
	objStore, err := storage.NewMinIO(cfg.MinIO)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize object storage")
	}

	// Initialize repositories and services
	departmentRepo := postgres.NewDepartments(db)
	projectRepo := postgres.NewProjects(db)
	taskRepo := postgres.NewTasks(db)
	timeEntryRepo := postgres.NewTimeEntries(db)
	attachmentRepo := postgres.NewAttachments(db)
	lookup := service.NewRelatedLookup(projectRepo, taskRepo)

	attachmentLC := service.NewLifecycle(model.KindAttachment, attachmentRepo,
		service.WithPageSize[*model.Attachment](cfg.PageSize),
		service.WithReferences[*model.Attachment](lookup),
	)

	if cfg.Auth.JWTSecret == "" {
		log.Warn().Msg("JWT_SECRET is empty; every bearer token will be rejected")
	}
	auth := middleware.NewAuthenticator(cfg.Auth.JWTSecret, cfg.Auth.Issuer, log)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics, err := middleware.NewPrometheusMiddleware(reg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to register metrics")
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler(log),
	})

	// Register global middleware
	app.Use(otelfiber.Middleware())
	// RequestID middleware adds/propagates X-Request-ID and stores it in context
	app.Use(middleware.RequestID())
	// JSON Logger middleware for structured request logs
	app.Use(middleware.Logger(log))
	app.Use(metrics.Handler())

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	// Register HTTP routes with injected services
	handlers.RegisterRoutes(app, handlers.Deps{
		DB:      db,
		Storage: objStore,
		Auth:    auth,
		Log:     log,

		Departments: service.NewLifecycle(model.KindDepartment, departmentRepo,
			service.WithPageSize[*model.Department](cfg.PageSize)),
		Projects: service.NewLifecycle(model.KindProject, projectRepo,
			service.WithPageSize[*model.Project](cfg.PageSize)),
		Tasks: service.NewLifecycle(model.KindTask, taskRepo,
			service.WithPageSize[*model.Task](cfg.PageSize),
			service.WithReferences[*model.Task](lookup)),
		TimeEntries: service.NewLifecycle(model.KindTimeEntry, timeEntryRepo,
			service.WithPageSize[*model.TimeEntry](cfg.PageSize),
			service.WithReferences[*model.TimeEntry](lookup)),
		Attachments: service.NewAttachmentService(attachmentLC, objStore, cfg.MinIO.PresignExpiry),
	})

	// Swagger UI with dynamic host and scheme
	app.Get("/swagger/*", func(c *fiber.Ctx) error {
		scheme := c.Protocol()
		if proto := c.Get("X-Forwarded-Proto"); proto != "" {
			scheme = strings.Split(proto, ",")[0]
		}

		docs.SwaggerInfo.Host = c.Get("Host")
		docs.SwaggerInfo.Schemes = []string{scheme}

		return swagger.HandlerDefault(c)
	})

	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.ShutdownWithContext(sctx); err != nil {
			log.Error().Err(err).Msg("graceful shutdown failed")
		}
	}()

	addr := ":" + cfg.Port
	log.Info().Str("addr", addr).Msg("listening")

	if err := app.Listen(addr); err != nil {
		log.Fatal().Err(err).Msg("failed to start server")
	}
}
