package main

import (
	"context"
	"database/sql"
	"log"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"imgapi/internal/config"
	"imgapi/internal/convert"
	"imgapi/internal/database"
	"imgapi/internal/database/migration"
	handlers "imgapi/internal/http/handler"
	"imgapi/internal/http/middleware"
	"imgapi/internal/model"
	tracing "imgapi/internal/otel"
	"imgapi/internal/repository"
	"imgapi/internal/repository/memory"
	"imgapi/internal/repository/postgres"
	"imgapi/internal/service"
	"imgapi/internal/storage"
)

func main() {
	// Load configuration from environment variables (.env auto-loaded if present)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	loc := time.Local
	ctx := context.Background()

	shutdownTracing, err := tracing.Init(ctx, loc)
	if err != nil {
		log.Fatalf("failed to initialize tracing: %v", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(sctx)
	}()

	// Metadata store: PostgreSQL or the in-process memory store.
	var (
		db       *sql.DB
		images   repository.ImageRepository
		accounts repository.AccountRepository
		videos   repository.VideoRepository
	)
	switch cfg.DBDriver {
	case config.DBDriverPostgres:
		db, err = database.NewPostgres(cfg.Database)
		if err != nil {
			log.Fatalf("failed to connect to database: %v", err)
		}
		defer db.Close()

		if err := migration.EnsureMigrated(ctx, db, loc, cfg.Database.Host); err != nil {
			log.Fatalf("failed to migrate database: %v", err)
		}
		if cfg.CreateDefaultAccount {
			if err := migration.EnsureDefaultAccount(ctx, db, loc); err != nil {
				log.Fatalf("failed to seed default account: %v", err)
			}
		}

		images = postgres.NewImagePostgres(db)
		accounts = postgres.NewAccountPostgres(db)
		videos = postgres.NewVideoPostgres(db)
	case config.DBDriverMemory:
		store := memory.New()
		if cfg.CreateDefaultAccount {
			if err := store.SeedAccount(ctx, model.Account{
				AccountID:   config.DefaultAccountID,
				AccountHash: config.DefaultAccountHash,
			}); err != nil {
				log.Fatalf("failed to seed default account: %v", err)
			}
		}
		// Memory mode has no other way to learn about videos; register
		// whatever already sits in the videos directory.
		if err := store.SeedVideosFromDir(ctx, cfg.VideosStoragePath); err != nil {
			log.Fatalf("failed to seed videos: %v", err)
		}
		images, accounts, videos = store, store, store
	}

	// Blob stores. Images go to the configured driver; videos are always read
	// from a local directory.
	var imageStore storage.Storage
	switch cfg.StorageDriver {
	case config.StorageDriverMinIO:
		imageStore, err = storage.NewMinIO(cfg.MinIO)
		if err != nil {
			log.Fatalf("failed to initialize object storage: %v", err)
		}
	case config.StorageDriverFS:
		imageStore, err = storage.NewFS(cfg.ImagesStoragePath)
		if err != nil {
			log.Fatalf("failed to initialize image storage: %v", err)
		}
	}
	videoStore, err := storage.NewFS(cfg.VideosStoragePath)
	if err != nil {
		log.Fatalf("failed to initialize video storage: %v", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// Deferred store-and-convert pipeline.
	pipeline, err := convert.NewPipeline(convert.PipelineConfig{
		Store:     imageStore,
		Workers:   cfg.Convert.Workers,
		QueueSize: cfg.Convert.QueueSize,
		Registry:  registry,
	})
	if err != nil {
		log.Fatalf("failed to initialize conversion pipeline: %v", err)
	}
	pipeline.Start()
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		_ = pipeline.Shutdown(sctx)
	}()

	imgSvc := service.NewImageService(images, accounts, imageStore, pipeline, cfg.AppHost)
	vidSvc := service.NewVideoService(videos, videoStore)

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler(),
	})

	promMiddleware, err := middleware.NewPrometheusMiddleware(registry)
	if err != nil {
		log.Fatalf("failed to initialize metrics: %v", err)
	}

	// Register global middleware
	app.Use(cors.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Logger())
	app.Use(otelfiber.Middleware())
	app.Use(promMiddleware.Handler())

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	handlers.RegisterRoutes(app, db, imgSvc, vidSvc)

	addr := ":" + cfg.Port

	if err := app.Listen(addr); err != nil {
		log.Fatalf("failed to start server: %v", err)
	}
}
