package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/JET-SOUZA/jet.iptv/internal/catalog"
	"github.com/JET-SOUZA/jet.iptv/internal/guard"
	"github.com/JET-SOUZA/jet.iptv/internal/handler"
	"github.com/JET-SOUZA/jet.iptv/internal/openapi"
	"github.com/JET-SOUZA/jet.iptv/internal/server/middleware"
	"github.com/JET-SOUZA/jet.iptv/internal/service"
	"github.com/JET-SOUZA/jet.iptv/internal/session"
	"github.com/JET-SOUZA/jet.iptv/internal/store"
)

// Config holds the HTTP server configuration.
type Config struct {
	Host            string
	Port            int
	ShutdownTimeout time.Duration
	CORSOrigins     []string
	MaxBodySize     int64 // bytes
	// LoginRatePerMinute caps POST /login and POST /register per client IP
	// and per submitted username. Zero disables the limit.
	LoginRatePerMinute int
	Version            string
}

// DefaultConfig returns a Config with sensible production defaults.
func DefaultConfig() Config {
	return Config{
		Host:               "0.0.0.0",
		Port:               8080,
		ShutdownTimeout:    30 * time.Second,
		CORSOrigins:        []string{"*"},
		MaxBodySize:        1 << 20, // 1MB
		LoginRatePerMinute: 10,
		Version:            "dev",
	}
}

// Deps are the services the router is built from.
type Deps struct {
	Store    *store.Store
	Auth     *service.AuthService
	Admin    *service.AdminService
	Sessions *session.Manager
	Catalog  *catalog.Catalog
}

// Server is the top-level HTTP server. It owns the Chi router and the
// services behind it.
type Server struct {
	cfg        Config
	deps       Deps
	router     chi.Router
	httpServer *http.Server
	logger     *slog.Logger
}

// New creates a new Server, wires up all routes and middleware, and returns
// it ready to listen. Call ListenAndServe to start accepting connections.
func New(cfg Config, deps Deps, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{cfg: cfg, deps: deps, logger: logger}
	if err := s.setupRouter(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Server) setupRouter() error {
	pages, err := handler.NewPages(s.deps.Sessions, s.deps.Store, s.deps.Auth.RegistrationOpen(), s.logger)
	if err != nil {
		return fmt.Errorf("load templates: %w", err)
	}

	authHandler := handler.NewAuthHandler(s.deps.Auth, s.deps.Sessions, pages)
	mediaHandler := handler.NewMediaHandler(s.deps.Catalog, s.deps.Store, pages)
	adminHandler := handler.NewAdminHandler(s.deps.Admin, pages)
	sysHandler := handler.NewSystemHandler(s.deps.Store, openapi.Generate(s.cfg.Version, "", openapi.Routes()))

	r := chi.NewRouter()

	// --- Global middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(s.logger))
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	if s.cfg.MaxBodySize > 0 {
		r.Use(chimw.RequestSize(s.cfg.MaxBodySize))
	}
	// Cross-origin reads only; credentials are never shared cross-origin.
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Requested-With"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	// --- Health checks and API description (no session) ---
	r.Get("/healthz", sysHandler.Healthz)
	r.Get("/readyz", sysHandler.Readyz)
	r.Get("/openapi.json", sysHandler.OpenAPI)

	// --- HTML pages ---
	r.Group(func(r chi.Router) {
		r.Use(middleware.Sessions(s.deps.Sessions))
		r.Use(chimw.Compress(5))

		r.Get("/", mediaHandler.Index)

		r.Get("/login", authHandler.LoginForm)
		r.Get("/logout", authHandler.Logout)
		r.Get("/register", authHandler.RegisterForm)
		r.Group(func(r chi.Router) {
			if s.cfg.LoginRatePerMinute > 0 {
				r.Use(middleware.RateLimit(s.cfg.LoginRatePerMinute))
				r.Use(middleware.RateLimitByFormField("username", s.cfg.LoginRatePerMinute))
			}
			r.Post("/login", authHandler.Login)
			r.Post("/register", authHandler.Register)
		})

		// Premium content
		r.Group(func(r chi.Router) {
			r.Use(middleware.Guard(s.deps.Sessions, guard.LoggedIn(), guard.Premium()))

			r.Get("/category/{name}", mediaHandler.Category)
			r.Get("/player", mediaHandler.Player)
			r.Get("/playlist", mediaHandler.PlaylistForm)
			r.Post("/playlist", mediaHandler.Playlist)
			r.Get("/playlist.m3u", mediaHandler.PlaylistM3U)
			r.Get("/xtream", mediaHandler.XtreamForm)
			r.Post("/xtream", mediaHandler.Xtream)
		})

		// User administration
		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.Guard(s.deps.Sessions, guard.LoggedIn(), guard.Admin(s.deps.Store)))

			r.Get("/", adminHandler.Dashboard)
			r.Post("/create", adminHandler.Create)
			r.Post("/delete/{id}", adminHandler.Delete)
			r.Post("/toggle_premium/{id}", adminHandler.TogglePremium)
			r.Post("/set_expiry/{id}", adminHandler.SetExpiry)
		})
	})

	s.router = r
	return nil
}

// ListenAndServe starts the HTTP server and blocks until a SIGINT or SIGTERM
// is received. It then performs a graceful shutdown, draining in-flight
// requests before closing the user database.
func (s *Server) ListenAndServe() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Listen for shutdown signals
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start server in background goroutine
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "addr", addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Wait for shutdown signal or server error
	select {
	case err := <-errCh:
		return fmt.Errorf("server listen: %w", err)
	case <-ctx.Done():
		s.logger.Info("shutdown signal received, draining connections...")
	}

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	if err := s.deps.Store.Close(); err != nil {
		s.logger.Warn("close user database", "error", err)
	}
	s.logger.Info("server stopped")
	return nil
}

// Router returns the underlying Chi router, useful for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// ServeHTTP implements http.Handler, delegating to the router.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
