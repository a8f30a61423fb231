// Package server is the composition root: it wires the store, provider
// client, limiter and services into handlers, mounts the routes and runs the
// HTTP server until a shutdown signal arrives.
//
// DEPENDENCY FLOW:
//
//	config.Config
//	  → factory.NewRepository   (sqlite | postgres)
//	  → perenual.New            (provider client)
//	  → ratelimit.New           (sliding window over a MemoryStore)
//	  → service.PlantService / service.AuthService
//	  → handler.*Handler
//	  → chi routes
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/plantkeeper/internal/auth"
	"github.com/sakif/plantkeeper/internal/config"
	"github.com/sakif/plantkeeper/internal/factory"
	"github.com/sakif/plantkeeper/internal/handler"
	"github.com/sakif/plantkeeper/internal/metrics"
	"github.com/sakif/plantkeeper/internal/middleware"
	"github.com/sakif/plantkeeper/internal/perenual"
	"github.com/sakif/plantkeeper/internal/ratelimit"
	"github.com/sakif/plantkeeper/internal/repository"
	"github.com/sakif/plantkeeper/internal/service"
)

const shutdownTimeout = 30 * time.Second

// Deps are the collaborators a Server routes to. New builds them from
// configuration; tests build them by hand and call NewWithDeps.
type Deps struct {
	Repo     repository.PlantRepository
	Provider handler.Provider
	Limiter  *ratelimit.Limiter

	// Tokens is nil when admin auth is disabled; write routes are then open
	// and /api/auth/token is not mounted.
	Tokens       *auth.TokenService
	PasswordHash string
}

// Server owns the router and the repository. The repository is closed
// after the HTTP server has stopped.
type Server struct {
	router *chi.Mux
	config *config.Config
	logger *slog.Logger
	repo   repository.PlantRepository
}

// New opens the configured store and builds every dependency.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Server, error) {
	repo, err := factory.NewRepository(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	client := perenual.New(perenual.Config{
		BaseURL:    cfg.PerenualBaseURL,
		APIKey:     cfg.PerenualAPIKey,
		Timeout:    cfg.ProviderTimeout,
		MaxRetries: cfg.ProviderMaxRetries,
	}, logger)
	if cfg.PerenualAPIKey == "" {
		logger.Warn("PERENUAL_API_KEY not set: provider routes will fail upstream")
	}

	limiter := ratelimit.New(cfg.RateLimit, cfg.RateLimitPeriod, ratelimit.NewMemoryStore(), logger)

	var tokens *auth.TokenService
	if cfg.AuthEnabled() {
		tokens, err = auth.NewTokenService(cfg.JWTSecret)
		if err != nil {
			repo.Close()
			return nil, fmt.Errorf("configuring auth: %w", err)
		}
	} else {
		logger.Warn("JWT_SECRET not set: local write routes are unauthenticated")
	}

	return NewWithDeps(cfg, Deps{
		Repo:         repo,
		Provider:     client,
		Limiter:      limiter,
		Tokens:       tokens,
		PasswordHash: cfg.AdminPasswordHash,
	}, logger), nil
}

// NewWithDeps wires routes over caller-supplied dependencies.
func NewWithDeps(cfg *config.Config, deps Deps, logger *slog.Logger) *Server {
	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		repo:   deps.Repo,
	}
	s.setupRoutes(deps)
	return s
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes mounts:
//
//	GET    /health                             store ping
//	GET    /metrics                            Prometheus
//	POST   /api/auth/token                     admin login          (auth enabled only)
//	GET    /api/plants/fetch                   provider list        (rate limited)
//	GET    /api/plants/perenual/random         provider random      (rate limited)
//	GET    /api/plants/perenual/{id}           provider details     (rate limited)
//	GET    /api/plants/perenual/{id}/diseases  provider diseases    (rate limited)
//	GET    /api/plants/perenual/{id}/guides    provider care guides (rate limited)
//	GET    /api/plants                         local list
//	GET    /api/plants/{id}                    local get
//	POST   /api/plants                         local create         (admin)
//	PUT    /api/plants/{id}                    local update         (admin)
//	DELETE /api/plants/{id}                    local delete         (admin)
//
// Middleware order: RealIP must run before RequestID/Logger so logs and the
// rate limiter see the client address, and Recoverer sits inside Logger so
// a panic is still logged as a 500.
func (s *Server) setupRoutes(deps Deps) {
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)

	plants := service.NewPlantService(deps.Repo, deps.Provider, s.logger)
	plantHandler := handler.NewPlantHandler(plants, s.logger)
	providerHandler := handler.NewProviderHandler(deps.Provider, s.logger)
	healthHandler := handler.NewHealthHandler(deps.Repo, s.logger)

	s.router.Get("/health", healthHandler.HandleHealth)
	s.router.Handle("/metrics", metrics.Handler())

	s.router.Route("/api", func(r chi.Router) {
		if deps.Tokens != nil {
			authService := service.NewAuthService(deps.Tokens, auth.NewPasswordService(), deps.PasswordHash, s.logger)
			authHandler := handler.NewAuthHandler(authService, s.logger)
			r.Post("/auth/token", authHandler.HandleToken)
		}

		r.Route("/plants", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(middleware.RateLimit(deps.Limiter, s.logger))
				r.Get("/fetch", providerHandler.HandleFetch)
				r.Get("/perenual/random", providerHandler.HandleRandom)
				r.Get("/perenual/{id}", providerHandler.HandleDetails)
				r.Get("/perenual/{id}/diseases", providerHandler.HandleDiseases)
				r.Get("/perenual/{id}/guides", providerHandler.HandleGuides)
			})

			r.Get("/", plantHandler.HandleList)
			r.Get("/{id}", plantHandler.HandleGet)

			r.Group(func(r chi.Router) {
				r.Use(auth.RequireAdmin(deps.Tokens))
				r.Post("/", plantHandler.HandleCreate)
				r.Put("/{id}", plantHandler.HandleUpdate)
				r.Delete("/{id}", plantHandler.HandleDelete)
			})
		})
	})
}

// Start serves until SIGINT or SIGTERM, then drains in-flight requests for
// up to shutdownTimeout and closes the store.
func (s *Server) Start() error {
	defer func() {
		if err := s.repo.Close(); err != nil {
			s.logger.Error("closing store", slog.String("error", err.Error()))
		}
	}()

	// provider calls retry, so leave room beyond one attempt
	writeTimeout := 2*s.config.ProviderTimeout + 15*time.Second

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: writeTimeout,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("environment", string(s.config.Environment)),
			slog.String("db_driver", s.config.DBDriver),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}
	return nil
}
