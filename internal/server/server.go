// Package server wires the application together: it builds the dependency
// graph (store → services → handlers), mounts the routes, and owns the
// HTTP server lifecycle including graceful shutdown.
//
// DEPENDENCY FLOW:
//
//	config → sqlite.DB ─→ AuthService ───→ AuthHandler
//	                  └─→ CollectionService → CollectionHandler
//	         catalog.Client ─────────────→ ComicsHandler
//
// Handlers never touch the database; services never touch HTTP.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/nwehr/longbox/internal/auth"
	"github.com/nwehr/longbox/internal/catalog"
	"github.com/nwehr/longbox/internal/config"
	"github.com/nwehr/longbox/internal/handler"
	"github.com/nwehr/longbox/internal/middleware"
	sqliteRepo "github.com/nwehr/longbox/internal/repository/sqlite"
	"github.com/nwehr/longbox/internal/service"
)

// Server holds the router and the resources it owns. The database is
// closed during shutdown.
type Server struct {
	router *chi.Mux
	cfg    *config.Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New assembles the full dependency graph and mounts all routes.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		cfg:    cfg,
		logger: logger,
		db:     db,
	}

	if err := s.setupRoutes(); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	tokens, err := auth.NewTokenService(auth.TokenConfig{
		Secret:     s.cfg.JWTSecret,
		AccessTTL:  s.cfg.AccessTTL,
		RefreshTTL: s.cfg.RefreshTTL,
	})
	if err != nil {
		return err
	}
	passwords := auth.NewPasswordService()

	authSvc := service.NewAuthService(s.db, tokens, passwords, s.logger, s.cfg.TokensOnRegister)
	collectionSvc := service.NewCollectionService(s.db, s.db, s.logger)

	authHandler := handler.NewAuthHandler(authSvc, s.logger)
	collectionHandler := handler.NewCollectionHandler(collectionSvc, s.logger)

	catalogClient := catalog.New(catalog.Config{
		BaseURL: s.cfg.ComicVineBaseURL,
		APIKey:  s.cfg.ComicVineAPIKey,
	}, s.logger)
	comicsHandler := handler.NewComicsHandler(catalogClient, s.logger)

	requireAuth := auth.RequireAuth(tokens)

	s.router.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.HandleRegister)
			r.Post("/login", authHandler.HandleLogin)
			r.Post("/refresh", authHandler.HandleRefresh)
			r.Post("/logout", authHandler.HandleLogout)

			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Post("/change-email", authHandler.HandleChangeEmail)
				r.Post("/change-password", authHandler.HandleChangePassword)
			})
		})

		r.Route("/collection", func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/", collectionHandler.HandleList)
			r.Post("/create", collectionHandler.HandleCreate)
			r.Post("/rename", collectionHandler.HandleRename)
			r.Post("/delete", collectionHandler.HandleDelete)
			r.Post("/add", collectionHandler.HandleAddIssue)
			r.Post("/deleteIssue", collectionHandler.HandleRemoveIssue)
			r.Get("/{name}", collectionHandler.HandleGet)
		})

		r.Route("/comics", func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/volume/search", comicsHandler.HandleVolumeSearch)
			r.Get("/volume/{id}", comicsHandler.HandleVolumeIssues)
		})
	})

	return nil
}

// Router exposes the mounted router. Used by tests to drive the full stack
// through httptest without binding a port.
func (s *Server) Router() http.Handler {
	return s.router
}

// Close releases the server's resources without serving. Tests use it;
// Start calls it implicitly on shutdown.
func (s *Server) Close() error {
	return s.db.Close()
}

// Start runs the HTTP server until SIGINT/SIGTERM, then shuts down
// gracefully: stop accepting connections, drain in-flight requests (30s
// cap), close the database.
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.cfg.Port),
			slog.String("database", s.cfg.DBPath),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
