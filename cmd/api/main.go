// Copyright (c) 2026 Audira. All rights reserved.
// Author: contact@audira.fm

// Command api is the entry point for the Audira HTTP API server.
//
// # Startup Sequence
//
//  1. Initialize structured logger.
//  2. Load configuration from environment variables.
//  3. Connect to PostgreSQL (pgxpool).
//  4. Connect to Redis.
//  5. Run database migrations (idempotent).
//  6. Wire domain services and HTTP handlers.
//  7. Start HTTP server with graceful shutdown.
//
// No business logic lives here. All wiring is explicit constructor injection.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/audira/audira/internal/api"
	"github.com/audira/audira/internal/catalog/book"
	"github.com/audira/audira/internal/listening/badge"
	"github.com/audira/audira/internal/listening/progress"
	"github.com/audira/audira/internal/listening/quiz"
	"github.com/audira/audira/internal/platform/config"
	"github.com/audira/audira/internal/platform/constants"
	"github.com/audira/audira/internal/platform/migration"
	pgstore "github.com/audira/audira/internal/platform/postgres"
	redisstore "github.com/audira/audira/internal/platform/redis"
	"github.com/audira/audira/internal/platform/sec"
	"github.com/audira/audira/internal/users/account"
	"github.com/audira/audira/internal/users/auth"
)

func main() {
	// ── 1. Logger ──────────────────────────────────────────────────────────
	// Initialize first so that subsequent startup errors are structured JSON.
	rawLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	// Add global context to all log entries.
	log := rawLog.With(slog.String("app", "audira"))
	slog.SetDefault(log)

	log.Info("[Audira] service_initializing")

	// ── 2. Configuration ──────────────────────────────────────────────────
	cfg, err := config.Load()
	must(log, err, "load configuration")

	if cfg.Debug {
		debugLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
		log = debugLog.With(slog.String("app", "audira"))
		slog.SetDefault(log)
		log.Debug("debug_logging_enabled")
	}

	log.Info("configuration_loaded",
		slog.String("environment", cfg.Environment),
		slog.String("port", cfg.ServerPort),
	)

	// Root context for startup. Use a 30s deadline so misconfiguration is
	// caught quickly rather than hanging indefinitely.
	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startupCancel()

	// Application context outlives startup; it stops the rate limiter's
	// cleanup goroutine on shutdown.
	appCtx, appCancel := context.WithCancel(context.Background())
	defer appCancel()

	// ── 3. PostgreSQL ─────────────────────────────────────────────────────
	pool, err := pgstore.NewPool(startupCtx, cfg.DatabaseURL)
	must(log, err, "connect to postgres")
	defer func() {
		log.Info("closing postgres pool")
		pool.Close()
	}()

	// ── 4. Redis ──────────────────────────────────────────────────────────
	rdb, err := redisstore.NewClient(startupCtx, cfg.RedisURL)
	must(log, err, "connect to redis")
	defer func() {
		log.Info("closing redis client")
		if cerr := rdb.Close(); cerr != nil {
			log.Error("redis close error", slog.Any("error", cerr))
		}
	}()

	// ── 5. Migrations ─────────────────────────────────────────────────────
	must(log, migration.RunUp(cfg.DatabaseURL, cfg.MigrationPath, log), "run migrations")

	// ── 6. Token Service ──────────────────────────────────────────────────
	tokenService, err := sec.NewTokenService(cfg.JWTSecret, constants.AuthIssuer, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	must(log, err, "initialize token service")

	// Google Sign-In is optional; the login endpoint reports the feature
	// as unavailable when the credentials are not configured.
	var googleVerifier auth.IdentityVerifier
	if cfg.GoogleClientID != "" {
		verifier, err := auth.NewGoogleVerifier(startupCtx, cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL)
		must(log, err, "initialize google verifier")
		googleVerifier = verifier
		log.Info("google_sign_in_enabled")
	}

	// ── 7. Health Handlers ────────────────────────────────────────────────
	liveness, readiness := api.NewHealthHandlers(api.HealthDependencies{
		CheckDatabase: func() error {
			return pool.Ping(context.Background())
		},
		CheckCache: func() error {
			return rdb.Ping(context.Background()).Err()
		},
	}, log)

	// ── 8. Domain Wiring ──────────────────────────────────────────────────
	userRepository := auth.NewUserRepository(pool)
	sessionRepository := auth.NewSessionRepository(pool)
	revocationRepository := auth.NewRevocationRepository(rdb)
	codeRepository := auth.NewCodeRepository(rdb)
	authService := auth.NewService(userRepository, sessionRepository, revocationRepository, codeRepository, tokenService, googleVerifier, log)
	authHandler := auth.NewHandler(authService)

	accountRepository := account.NewRepository(pool)
	accountHandler := account.NewHandler(account.NewService(accountRepository))

	badgeRepository := badge.NewPostgresRepository(pool)
	badgeEngine := badge.NewEngine(badgeRepository, badge.NewPostgresStatsRepository(pool), log)
	badgeHandler := badge.NewHandler(badgeRepository)

	progressService := progress.NewService(progress.NewRepository(pool), badgeEngine, log)
	progressHandler := progress.NewHandler(progressService)

	quizService := quiz.NewService(quiz.NewRepository(pool), progressService, log)
	quizHandler := quiz.NewHandler(quizService)

	bookService := book.NewService(book.NewPostgresRepository(pool), progressService)
	bookHandler := book.NewHandler(bookService)

	// ── 9. HTTP Server ────────────────────────────────────────────────────
	handlers := api.Handlers{
		Liveness:  liveness,
		Readiness: readiness,
		Auth:      authHandler,
		Book:      bookHandler,
		Progress:  progressHandler,
		Quiz:      quizHandler,
		Account:   accountHandler,
		Badge:     badgeHandler,
	}

	gate := api.AuthGate{
		Verifier:    tokenService,
		Revocations: revocationRepository,
		Sessions:    sessionRepository,
	}

	server := api.NewServer(appCtx, cfg, log, gate, handlers)

	// ── 10. Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Block until OS signal or server error.
	select {
	case sig := <-quit:
		log.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-serverErr:
		log.Error("server startup error", slog.Any("error", err))
	}

	// Give in-flight requests enough time to complete.
	shutdownTimeout := constants.ShutdownTimeout
	log.Info("shutting down server", slog.Duration("timeout", shutdownTimeout))

	if err := server.Shutdown(shutdownTimeout); err != nil {
		log.Error("shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	log.Info("server stopped cleanly")
}

// must logs a structured fatal error and terminates the process if err is non-nil.
//
// It is intentionally limited to startup wiring. After startup, all errors
// must be returned and handled explicitly (never panic).
func must(log *slog.Logger, err error, context string) {
	if err != nil {
		log.Error("startup failure",
			slog.String("context", context),
			slog.Any("error", err),
		)
		os.Exit(1)
	}
}
