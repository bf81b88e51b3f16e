package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/fjmerc/arcana/internal/audit"
	"github.com/fjmerc/arcana/internal/backup"
	"github.com/fjmerc/arcana/internal/config"
	"github.com/fjmerc/arcana/internal/credits"
	"github.com/fjmerc/arcana/internal/database"
	"github.com/fjmerc/arcana/internal/handlers"
	"github.com/fjmerc/arcana/internal/metrics"
	"github.com/fjmerc/arcana/internal/middleware"
	"github.com/fjmerc/arcana/internal/notify"
	"github.com/fjmerc/arcana/internal/ratelimit"
	"github.com/fjmerc/arcana/internal/repository"
	"github.com/fjmerc/arcana/internal/repository/postgres"
	"github.com/fjmerc/arcana/internal/repository/sqlite"
)

const version = "1.0.0"

func main() {
	// Setup structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("starting arcana",
		"port", cfg.Port,
		"database_backend", cfg.DatabaseBackend,
		"rate_limit_backend", cfg.RateLimitBackend,
		"welcome_credits", cfg.WelcomeCredits,
		"reading_cost", cfg.ReadingCost,
	)

	// Load rate limit policies (defaults plus optional YAML overrides)
	policies, err := config.LoadPolicies(cfg.PolicyFile)
	if err != nil {
		slog.Error("failed to load rate limit policies", "error", err)
		os.Exit(1)
	}

	// Initialize storage
	var (
		repos  *repository.Repositories
		pinger handlers.Pinger
	)

	switch cfg.DatabaseBackend {
	case "postgres":
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		pgRepos, pool, err := postgres.NewRepositories(ctx, cfg.PostgresURL, cfg.PostgresMaxConn)
		cancel()
		if err != nil {
			slog.Error("failed to initialize postgres", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		repos = pgRepos
		pinger = pool
		slog.Info("postgres initialized", "max_conns", cfg.PostgresMaxConn)

	default:
		db, err := database.Initialize(cfg.DBPath)
		if err != nil {
			slog.Error("failed to initialize database", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		sqliteRepos, err := sqlite.NewRepositories(db)
		if err != nil {
			slog.Error("failed to build repositories", "error", err)
			os.Exit(1)
		}
		repos = sqliteRepos
		pinger = db

		// Ledger gauges come straight from the database on scrape
		prometheus.MustRegister(metrics.NewLedgerMetricsCollector(db))
		slog.Info("database initialized", "path", cfg.DBPath)
	}

	// Audit events are written asynchronously; Close drains them on shutdown
	auditLogger := audit.NewLogger(repos.Audit)
	defer auditLogger.Close()

	// Optionally tee audit events to an external receiver
	auditSink := audit.Sink(auditLogger)
	if cfg.AuditWebhookURL != "" {
		client := notify.NewClient(cfg.AuditWebhookURL, cfg.AuditWebhookSecret, 10*time.Second)
		dispatcher := notify.NewDispatcher(client, 2, 256, notify.NewPrometheusMetrics())
		dispatcher.Start()
		defer dispatcher.Shutdown()

		auditSink = audit.Tee(auditLogger, dispatcher)
		slog.Info("audit webhook delivery enabled", "url", cfg.AuditWebhookURL)
	}

	creditService := credits.NewService(repos.Credits, auditSink, cfg.WelcomeCredits)

	// Periodic ledger snapshots, optionally shipped to S3
	if cfg.BackupEnabled {
		var uploader *backup.Uploader
		if cfg.BackupS3Bucket != "" {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			uploader, err = backup.NewUploader(ctx, backup.S3Config{
				Bucket:          cfg.BackupS3Bucket,
				Region:          cfg.BackupS3Region,
				Endpoint:        cfg.BackupS3Endpoint,
				AccessKeyID:     cfg.BackupS3AccessKeyID,
				SecretAccessKey: cfg.BackupS3SecretAccessKey,
				PathStyle:       cfg.BackupS3PathStyle,
			})
			cancel()
			if err != nil {
				slog.Error("failed to initialize snapshot uploader", "error", err)
				os.Exit(1)
			}
		}

		scheduler := backup.NewScheduler(
			cfg.DBPath,
			cfg.BackupDir,
			time.Duration(cfg.BackupIntervalHours)*time.Hour,
			cfg.BackupRetentionDays,
			uploader,
		)
		if err := scheduler.Start(context.Background()); err != nil {
			slog.Error("failed to start backup scheduler", "error", err)
			os.Exit(1)
		}
		defer scheduler.Stop()
	}

	// Rate limit admission: in-process by default, Redis when limits must be
	// shared across instances
	var admitter middleware.Admitter
	switch cfg.RateLimitBackend {
	case "redis":
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			slog.Error("failed to parse redis url", "error", err)
			os.Exit(1)
		}
		client := redis.NewClient(opts)
		defer client.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		redisLimiter, err := ratelimit.NewRedisLimiter(ctx, client)
		cancel()
		if err != nil {
			slog.Error("failed to initialize redis limiter", "error", err)
			os.Exit(1)
		}
		admitter = redisLimiter
		slog.Info("redis rate limiter initialized")

	default:
		limiter := ratelimit.New(ratelimit.NewMemoryStore())
		defer limiter.Stop()
		admitter = middleware.MemoryAdmitter(limiter)
	}

	// DB-backed limiter for the auth callback: those limits must hold across
	// instances and fail closed
	dbLimiter := middleware.NewDBRateLimiter(repos.RateLimits, time.Duration(cfg.CleanupIntervalMinutes)*time.Minute)
	defer dbLimiter.Stop()

	authPolicy := policies["auth"]
	if authPolicy.Name == "" {
		authPolicy = ratelimit.Auth
	}

	startTime := time.Now()

	// Setup HTTP router
	mux := http.NewServeMux()

	userAuth := middleware.UserAuth(cfg.SessionSecret)
	authRateLimit := middleware.DBRateLimitMiddleware(dbLimiter, authPolicy)

	mux.HandleFunc("/api/readings", func(w http.ResponseWriter, r *http.Request) {
		userAuth(handlers.ReadingHandler(creditService, cfg.ReadingCost)).ServeHTTP(w, r)
	})

	mux.HandleFunc("/api/credits", func(w http.ResponseWriter, r *http.Request) {
		userAuth(handlers.BalanceHandler(creditService)).ServeHTTP(w, r)
	})
	mux.HandleFunc("/api/credits/history", func(w http.ResponseWriter, r *http.Request) {
		userAuth(handlers.HistoryHandler(creditService)).ServeHTTP(w, r)
	})
	mux.HandleFunc("/api/credits/summary", func(w http.ResponseWriter, r *http.Request) {
		userAuth(handlers.SummaryHandler(creditService)).ServeHTTP(w, r)
	})

	mux.HandleFunc("/api/payments/webhook", handlers.PaymentWebhookHandler(creditService, cfg.WebhookSecret))
	mux.HandleFunc("/api/signup-hook", handlers.SignupHookHandler(creditService))

	mux.HandleFunc("/auth/callback", func(w http.ResponseWriter, r *http.Request) {
		authRateLimit(handlers.AuthCallbackHandler(cfg.SessionSecret, cfg.HTTPSEnabled)).ServeHTTP(w, r)
	})

	mux.HandleFunc("/api/health", handlers.HealthHandler(pinger, version, startTime))
	mux.Handle("/metrics", promhttp.Handler())

	// Wrap with middleware (order: Recovery -> Logging -> Metrics -> Security -> Auth -> RateLimit -> handlers)
	handler := middleware.RecoveryMiddleware(
		middleware.LoggingMiddleware(
			metrics.Middleware(
				middleware.SecurityHeadersMiddleware(
					middleware.OptionalUserAuth(cfg.SessionSecret)(
						middleware.RateLimitMiddleware(admitter, policies)(mux),
					),
				),
			),
		),
	)

	// Setup HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start HTTP server in a goroutine
	serverErrors := make(chan error, 1)
	go func() {
		slog.Info("http server listening", "address", server.Addr)
		serverErrors <- server.ListenAndServe()
	}()

	// Setup graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		slog.Error("server error", "error", err)
		os.Exit(1)

	case sig := <-shutdown:
		slog.Info("shutdown signal received", "signal", sig)

		// Give outstanding requests 10 seconds to complete
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			slog.Error("graceful shutdown failed", "error", err)
			if err := server.Close(); err != nil {
				slog.Error("server close failed", "error", err)
			}
			os.Exit(1)
		}

		slog.Info("server shutdown complete")
	}
}
