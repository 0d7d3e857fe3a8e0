// Package server wires the dependency graph and owns the HTTP lifecycle.
// Everything is assembled here: database, token services, the edit-lock
// coordinator, services, handlers and routes.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/storycollab/internal/auth"
	"github.com/sakif/storycollab/internal/config"
	"github.com/sakif/storycollab/internal/editlock"
	"github.com/sakif/storycollab/internal/handler"
	"github.com/sakif/storycollab/internal/media"
	"github.com/sakif/storycollab/internal/middleware"
	sqliteRepo "github.com/sakif/storycollab/internal/repository/sqlite"
	"github.com/sakif/storycollab/internal/service"
)

// Server holds the router and the resources it owns. The database connection
// belongs to the server and is closed during shutdown.
type Server struct {
	router *chi.Mux
	cfg    *config.Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New assembles the full dependency chain and registers all routes.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.Database.Path)
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

// setupRoutes builds services and handlers and maps them to the API surface:
//
//	POST   /api/auth/register              create an author account
//	POST   /api/auth/login                 email/password login
//	GET    /api/auth/me                    account behind the token
//	GET    /api/auth/github/login          redirect to GitHub (optional)
//	GET    /api/auth/github/callback       OAuth callback (optional)
//	GET    /api/stories                    list stories
//	POST   /api/stories                    create a story
//	GET    /api/stories/{id}               read one story (audited)
//	PUT    /api/stories/{id}               commit content (lock required)
//	DELETE /api/stories/{id}               delete (author only)
//	PUT    /api/stories/{id}/start-editing claim the edit lock
//	PUT    /api/stories/{id}/stop-editing  release the edit lock
//	GET    /api/stories/{id}/logs          the story's audit trail
//	POST   /api/upload                     story image upload
//	POST   /api/admin/register             create an admin account
//	POST   /api/admin/login                admin login
//	GET    /api/admin/check-auth           validate an admin token
//	GET    /api/admin/stats                dashboard counters
//	GET    /api/admin/users                authors with story counts
//	GET    /api/admin/activities           recent activity feed
//	DELETE /api/admin/users/{id}           remove an author (cascade)
//	GET    /media/*                        uploaded images
func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	tokens, err := auth.NewTokenService(
		s.cfg.Auth.JWTSecret,
		s.cfg.Auth.Issuer,
		s.cfg.Auth.UserTokenTTL,
		s.cfg.Auth.AdminTokenTTL,
	)
	if err != nil {
		return err
	}
	passwords := auth.NewPasswordService()

	var github *auth.GitHubProvider
	if s.cfg.Auth.GitHubClientID != "" && s.cfg.Auth.GitHubClientSecret != "" {
		github = auth.NewGitHubProvider(
			s.cfg.Auth.GitHubClientID,
			s.cfg.Auth.GitHubClientSecret,
			s.cfg.Auth.GitHubCallbackURL,
		)
	}

	mediaStore, err := media.NewStore(s.cfg.Media.Dir, s.cfg.Media.BaseURL, s.cfg.Media.MaxUploadSize)
	if err != nil {
		return err
	}

	coordinator := editlock.New(s.db, s.db, s.logger)
	storyService := service.NewStoryService(coordinator, s.db, s.db, s.logger)
	authService := service.NewAuthService(s.db, tokens, passwords, s.logger)
	adminService := service.NewAdminService(s.db, s.db, s.db, s.db, tokens, passwords, s.logger)

	storyHandler := handler.NewStoryHandler(storyService, s.logger)
	authHandler := handler.NewAuthHandler(authService, github, s.logger)
	adminHandler := handler.NewAdminHandler(adminService, s.logger)
	uploadHandler := handler.NewUploadHandler(mediaStore, s.cfg.Media.MaxUploadSize, s.logger)

	// Uploaded images are public, immutable files.
	fileServer := http.FileServer(http.Dir(mediaStore.Dir()))
	s.router.Handle(s.cfg.Media.BaseURL+"/*", http.StripPrefix(s.cfg.Media.BaseURL+"/", fileServer))

	s.router.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.HandleRegister)
			r.Post("/login", authHandler.HandleLogin)
			r.Get("/github/login", authHandler.HandleGitHubLogin)
			r.Get("/github/callback", authHandler.HandleGitHubCallback)

			r.Group(func(r chi.Router) {
				r.Use(auth.RequireAuth(tokens))
				r.Get("/me", authHandler.HandleMe)
			})
		})

		r.Route("/stories", func(r chi.Router) {
			r.Use(auth.RequireAuth(tokens))
			r.Get("/", storyHandler.HandleList)
			r.Post("/", storyHandler.HandleCreate)
			r.Get("/{id}", storyHandler.HandleGet)
			r.Put("/{id}", storyHandler.HandleUpdate)
			r.Delete("/{id}", storyHandler.HandleDelete)
			r.Put("/{id}/start-editing", storyHandler.HandleStartEditing)
			r.Put("/{id}/stop-editing", storyHandler.HandleStopEditing)
			r.Get("/{id}/logs", storyHandler.HandleLogs)
		})

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(tokens))
			r.Post("/upload", uploadHandler.HandleUpload)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Post("/register", adminHandler.HandleRegister)
			r.Post("/login", adminHandler.HandleLogin)

			r.Group(func(r chi.Router) {
				r.Use(auth.RequireAdmin(tokens))
				r.Get("/check-auth", adminHandler.HandleCheckAuth)
				r.Get("/stats", adminHandler.HandleStats)
				r.Get("/users", adminHandler.HandleListUsers)
				r.Get("/activities", adminHandler.HandleActivities)
				r.Delete("/users/{id}", adminHandler.HandleDeleteUser)
			})
		})
	})

	return nil
}

// Start runs the HTTP server until SIGINT/SIGTERM, then shuts down
// gracefully: stop accepting connections, drain in-flight requests, close
// the database so the WAL is flushed.
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.String("addr", srv.Addr),
			slog.String("database", s.cfg.Database.Path),
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

		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
