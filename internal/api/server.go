// Copyright (c) 2026 Audira. All rights reserved.
// Author: contact@audira.fm

/*
Package api wires together the HTTP router, middleware chain, and all
domain handlers into a runnable [http.Server].

Architecture:

  - This package is the topmost Presentation layer boundary.
  - It acts as the central composition root for the HTTP transport framework (chi router).
  - Only this package and cmd/api are allowed to import net/http server primitives.
*/
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/audira/audira/internal/catalog/book"
	"github.com/audira/audira/internal/listening/badge"
	"github.com/audira/audira/internal/listening/progress"
	"github.com/audira/audira/internal/listening/quiz"
	"github.com/audira/audira/internal/platform/config"
	"github.com/audira/audira/internal/platform/constants"
	"github.com/audira/audira/internal/platform/middleware"
	"github.com/audira/audira/internal/users/account"
	"github.com/audira/audira/internal/users/auth"
)

// # Server Definitions

// Server wraps the chi router and the [http.Server].
//
// It is constructed once in main.go with all dependencies injected.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	log        *slog.Logger
}

// # Handler Registry

// Handlers groups all domain-specific HTTP handler sets.
//
// # Usage
//
// New domains add a field here — no other change to server.go is required.
type Handlers struct {
	// Liveness is the /health handler — always returns 200 if process is alive.
	Liveness http.HandlerFunc

	// Readiness is the /ready handler — returns 200 when all deps are healthy.
	Readiness http.HandlerFunc

	// Auth handles registration, login, token refresh, and logout.
	Auth *auth.Handler

	// Book handles the audiobook catalog and category tree.
	Book *book.Handler

	// Progress handles playback reports and track completion.
	Progress *progress.Handler

	// Quiz handles comprehension quiz submissions.
	Quiz *quiz.Handler

	// Account handles per-user profile and content-key routes.
	Account *account.Handler

	// Badge handles per-user achievement listings.
	Badge *badge.Handler
}

// AuthGate bundles the three checks the Authenticate middleware runs on
// every bearer token: signature, revocation registry, session registry.
type AuthGate struct {
	Verifier    middleware.TokenVerifier
	Revocations middleware.RevocationChecker
	Sessions    middleware.SessionChecker
}

// # Server Initialization

// NewServer constructs the chi router with the full middleware chain and
// registers all route groups.
func NewServer(context context.Context, cfg *config.Config, log *slog.Logger, gate AuthGate, h Handlers) *Server {
	r := chi.NewRouter()

	// # Middleware Chain
	// Global middleware applied in order of execution.
	r.Use(middleware.RequestID())
	r.Use(middleware.StructuredLogger(log))
	r.Use(chimw.Timeout(constants.GlobalRequestTimeout))
	r.Use(middleware.RateLimit(context))
	r.Use(middleware.PanicRecovery(log))
	r.Use(middleware.Authenticate(gate.Verifier, gate.Revocations, gate.Sessions))
	r.Use(middleware.CORS(cfg))
	r.Use(chimw.CleanPath)

	// # Infrastructure Endpoints
	// Unauthenticated health probes for container orchestration.
	r.Get("/health", h.Liveness)
	r.Get("/ready", h.Readiness)

	// # Application API
	// Domain-specific route groups mounted under versioned prefix.
	r.Route("/api/v1", func(api chi.Router) {

		// Public surface: credential exchange and catalog taxonomy.
		api.Mount("/auth", h.Auth.Routes())
		api.Mount("/categories", h.Book.CategoryRoutes())

		// Authenticated surface.
		api.Group(func(protected chi.Router) {
			protected.Use(middleware.RequireAuth())

			protected.Mount("/books", h.Book.Routes())
			protected.Mount("/listening", h.Progress.Routes())
			protected.Mount("/quizzes", h.Quiz.Routes())

			// Per-user resources: the path owner must be the caller.
			protected.Route("/users/{userID}", func(owned chi.Router) {
				owned.Use(middleware.RequireOwner("userID"))

				owned.Mount("/badges", h.Badge.Routes())
				owned.Mount("/", h.Account.Routes())
			})
		})
	})

	return &Server{
		router: r,
		log:    log,
		httpServer: &http.Server{
			Addr:              ":" + cfg.ServerPort,
			Handler:           r,
			ReadTimeout:       constants.DefaultReadTimeout,
			WriteTimeout:      constants.DefaultWriteTimeout,
			IdleTimeout:       constants.DefaultIdleTimeout,
			ReadHeaderTimeout: constants.DefaultReadHeaderTimeout,
		},
	}
}

// # Server Lifecycle

// ListenAndServe starts the HTTP server.
//
// It blocks until the server is closed or an error occurs.
func (s *Server) ListenAndServe() error {
	s.log.Info("server starting", slog.String("addr", s.httpServer.Addr))
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server, waiting for in-flight requests.
func (s *Server) Shutdown(timeout time.Duration) error {
	context, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.httpServer.Shutdown(context)
}
