package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"

	"github.com/maltedev/gomag-importer/internal/api"
	"github.com/maltedev/gomag-importer/internal/browser"
	"github.com/maltedev/gomag-importer/internal/config"
	"github.com/maltedev/gomag-importer/internal/database"
	"github.com/maltedev/gomag-importer/internal/events"
	"github.com/maltedev/gomag-importer/internal/export"
	"github.com/maltedev/gomag-importer/internal/fetch"
	"github.com/maltedev/gomag-importer/internal/gomag"
	"github.com/maltedev/gomag-importer/internal/imports"
	"github.com/maltedev/gomag-importer/internal/jobs"
	"github.com/maltedev/gomag-importer/internal/pipeline"
	"github.com/maltedev/gomag-importer/internal/ratelimit"
	"github.com/maltedev/gomag-importer/internal/scraper"
	"github.com/maltedev/gomag-importer/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := database.New(ctx, database.Config{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		Database: cfg.Database.DBName,
		MaxConns: cfg.Database.MaxConns,
	})
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Error("failed to connect to Redis", "error", err)
		os.Exit(1)
	}

	relay := database.NewRelay(db, redisClient, log, database.RelayConfig{
		PollInterval: 5 * time.Second,
		BatchSize:    100,
	})
	go func() {
		if err := relay.Start(ctx); err != nil && err != context.Canceled {
			log.Error("relay stopped with error", "error", err)
		}
	}()

	b, err := browser.New(&browser.Options{
		Headless:       cfg.Browser.Headless,
		Timeout:        cfg.Browser.Timeout,
		UserAgent:      cfg.Browser.UserAgent,
		ViewportWidth:  cfg.Browser.ViewportWidth,
		ViewportHeight: cfg.Browser.ViewportHeight,
		AcceptLanguage: cfg.Browser.AcceptLanguage,
		TimezoneID:     cfg.Browser.TimezoneID,
		Locale:         cfg.Browser.Locale,
	})
	if err != nil {
		log.Error("failed to initialize browser", "error", err)
		os.Exit(1)
	}
	defer b.Close()

	fetcher := fetch.New(&fetch.Options{
		Timeout:    cfg.Scraper.FetchTimeout,
		UserAgent:  cfg.Browser.UserAgent,
		AcceptLang: cfg.Browser.AcceptLanguage,
		MaxTries:   cfg.Scraper.MaxRetries,
	})

	registry := scraper.NewRegistry(fetcher, b, scraper.Credentials{
		PSIUser: cfg.Sources.PSIUser,
		PSIPass: cfg.Sources.PSIPass,
		XDUser:  cfg.Sources.XDUser,
		XDPass:  cfg.Sources.XDPass,
	})

	limiter := ratelimit.NewAdaptiveRateLimiter(cfg.Scraper.RateLimitMin, cfg.Scraper.RateLimitMax)
	pipe := pipeline.New(registry, limiter)

	publisher := events.NewPublisher(database.NewOutboxRepository(db))

	jobManager := jobs.NewManager(db, pipe, publisher, log)
	go jobManager.StartWorker(ctx)

	// admin automation is optional; without credentials the service still
	// scrapes and exports
	var uploader imports.Uploader
	if cfg.GomagConfigured() {
		uploader = gomag.NewClient(b, cfg.Gomag)
	} else {
		log.Warn("gomag admin not configured, import endpoints disabled")
	}

	writer := export.NewWriter(cfg.Export.TemplatePath, cfg.Export.VATRate)
	importSvc := imports.NewService(
		db,
		database.NewDraftRepository(db),
		database.NewImportRepository(db),
		writer,
		uploader,
		publisher,
		"exports",
	)

	handlers := api.NewHandlers(jobManager, importSvc, database.NewImportRepository(db), log)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(5 * time.Minute))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "https://localhost:*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		pendingCount, _ := relay.GetPendingCount(r.Context())
		deadLetterCount, _ := relay.GetDeadLetterCount(r.Context())

		health := map[string]interface{}{
			"status": "ok",
			"gomag":  cfg.GomagConfigured(),
			"outbox": map[string]interface{}{
				"pending":     pendingCount,
				"dead_letter": deadLetterCount,
			},
		}

		status := http.StatusOK
		if pendingCount > 1000 {
			health["status"] = "warning"
			health["message"] = "High number of pending outbox events"
		}
		if deadLetterCount > 100 {
			health["status"] = "error"
			health["message"] = "High number of dead letter events"
			status = http.StatusServiceUnavailable
		}

		w.WriteHeader(status)
		json.NewEncoder(w).Encode(health)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/jobs", handlers.CreateJob)
		r.Post("/jobs/upload", handlers.UploadLinks)
		r.Get("/jobs", handlers.ListJobs)
		r.Get("/jobs/{jobID}", handlers.GetJob)
		r.Get("/jobs/{jobID}/drafts", handlers.GetJobDrafts)
		r.Post("/jobs/{jobID}/export", handlers.ExportJob)
		r.Post("/jobs/{jobID}/import", handlers.ImportJob)

		r.Get("/drafts", handlers.ListDrafts)
		r.Get("/drafts/{draftID}", handlers.GetDraft)
		r.Put("/drafts/{draftID}", handlers.UpdateDraft)

		r.Get("/imports", handlers.ListImportRuns)
		r.Get("/imports/{runID}", handlers.GetImportRun)

		r.Get("/gomag/categories", handlers.GetCategories)

		r.Get("/stats", handlers.GetStats)
	})

	server := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		log.Info("shutting down server...")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("server shutdown failed", "error", err)
		}
	}()

	log.Info("server starting", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server failed", "error", err)
		os.Exit(1)
	}

	log.Info("server stopped")
}
