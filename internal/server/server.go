// Package server sets up the HTTP server, router, and all route definitions.
//
// This is the composition root: New builds the database, services, storage
// backend and report renderer from a config.Config, and setupRoutes wires
// handlers to URL patterns. Nothing else in the module constructs its own
// dependencies.
//
//	config → sqlite.DB → services → handlers → chi routes
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/brief-builder/internal/auth"
	"github.com/sakif/brief-builder/internal/config"
	"github.com/sakif/brief-builder/internal/handler"
	"github.com/sakif/brief-builder/internal/middleware"
	"github.com/sakif/brief-builder/internal/report"
	sqliteRepo "github.com/sakif/brief-builder/internal/repository/sqlite"
	"github.com/sakif/brief-builder/internal/service"
	"github.com/sakif/brief-builder/internal/storage"
)

// uploadsPath is the URL prefix local uploads are served under.
const uploadsPath = "/uploads"

// Server represents the HTTP server and all its dependencies.
//
// The Server owns the database connection; Start closes it after shutdown.
type Server struct {
	router *chi.Mux
	config *config.Config
	logger *slog.Logger
	db     *sqliteRepo.DB

	authService       *service.AuthService
	briefService      *service.BriefService
	submissionService *service.SubmissionService
	uploadService     *service.UploadService
	github            *auth.GitHubProvider // nil when GitHub sign-in is off
	uploadDir         string               // served under /uploads; empty for S3
}

// New opens the database and builds every dependency from cfg.
// The caller must call Start (which closes the database) or Close.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.DBPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}

	if err := s.buildServices(ctx); err != nil {
		db.Close()
		return nil, err
	}
	s.setupRoutes()

	return s, nil
}

func (s *Server) buildServices(ctx context.Context) error {
	tokens, err := auth.NewTokenService(s.config.Auth.JWTSecret, s.config.Auth.TokenTTL)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}

	store, err := s.newStore(ctx)
	if err != nil {
		return err
	}

	renderer := report.NewPDFRenderer(report.PDFOptions{
		LogoPath: s.config.Paths.LogoPath,
		FontPath: s.config.Paths.FontPath,
		Compress: true,
	}, s.logger)

	s.authService = service.NewAuthService(s.db, tokens, auth.NewPasswordService(), s.logger)
	s.briefService = service.NewBriefService(s.db, s.logger)
	s.submissionService = service.NewSubmissionService(s.db, s.db, renderer, s.logger)
	s.uploadService = service.NewUploadService(store, s.logger)

	if gh := s.config.GitHub; gh.Enabled() {
		s.github = auth.NewGitHubProvider(gh.ClientID, gh.ClientSecret, gh.CallbackURL)
	} else {
		s.logger.Info("GitHub sign-in disabled (GITHUB_CLIENT_ID / GITHUB_CLIENT_SECRET not set)")
	}
	return nil
}

// newStore picks the upload backend named by the config.
func (s *Server) newStore(ctx context.Context) (storage.Store, error) {
	switch s.config.Storage.Backend {
	case config.StorageS3:
		c := s.config.Storage.S3
		store, err := storage.NewS3Store(ctx, storage.S3Config{
			Bucket:    c.Bucket,
			Region:    c.Region,
			Endpoint:  c.Endpoint,
			AccessKey: c.AccessKey,
			SecretKey: c.SecretKey,
			Prefix:    c.Prefix,
			PublicURL: c.PublicURL,
		})
		if err != nil {
			return nil, fmt.Errorf("creating s3 store: %w", err)
		}
		return store, nil
	default:
		store, err := storage.NewLocalStore(s.config.Paths.UploadDir, uploadsPath)
		if err != nil {
			return nil, fmt.Errorf("creating local store: %w", err)
		}
		s.uploadDir = store.Dir()
		return store, nil
	}
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
// GET    /healthz                              → DB ping
// POST   /register                             → create account
// POST   /token                                → password login
// GET    /users/me                             → current user            [auth]
// GET    /auth/github/login, /auth/github/callback (when configured)
// GET    /main-brief                           → respondent-facing brief
// POST   /briefs                               → create brief            [auth]
// GET    /briefs                               → own briefs              [auth]
// GET    /briefs/{id}                          → brief
// PUT    /briefs/{id}                          → replace brief           [auth]
// PUT    /briefs/{id}/set-main                 → mark main               [auth]
// DELETE /briefs/{id}                          → delete brief            [auth]
// GET    /briefs/{id}/submissions              → brief's submissions     [auth]
// POST   /briefs/submissions                   → anonymous submission
// GET    /briefs/submission/{sessionId}        → submission by session
// GET    /briefs/submissions/{sessionId}/pdf   → PDF report
// POST   /briefs/uploadfile                    → file upload
// GET    /uploads/*, /static/*                 → files
//
// MIDDLEWARE ORDER MATTERS:
// 1. RequestID (so the logger can read it)
// 2. RealIP
// 3. Logger
// 4. Recoverer (innermost, so a recovered panic is still logged as a 500)
func (s *Server) setupRoutes() {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)

	if s.config.Paths.StaticDir != "" {
		fileServer := http.FileServer(http.Dir(s.config.Paths.StaticDir))
		s.router.Handle("/static/*", http.StripPrefix("/static/", fileServer))
	}
	if s.uploadDir != "" {
		fileServer := http.FileServer(http.Dir(s.uploadDir))
		s.router.Handle(uploadsPath+"/*", http.StripPrefix(uploadsPath+"/", fileServer))
	}

	authHandler := handler.NewAuthHandler(s.authService, s.github, s.logger)
	briefHandler := handler.NewBriefHandler(s.briefService, s.logger)
	submissionHandler := handler.NewSubmissionHandler(s.submissionService, s.logger)
	uploadHandler := handler.NewUploadHandler(s.uploadService, s.logger)
	healthHandler := handler.NewHealthHandler(s.db, s.logger)

	requireAuth := auth.RequireAuth(s.authService, handler.WriteError)

	s.router.Get("/healthz", healthHandler.HandleHealth)
	s.router.Post("/register", authHandler.HandleRegister)
	s.router.Post("/token", authHandler.HandleToken)
	s.router.With(requireAuth).Get("/users/me", authHandler.HandleMe)

	if s.github != nil {
		s.router.Get("/auth/github/login", authHandler.HandleGitHubLogin)
		s.router.Get("/auth/github/callback", authHandler.HandleGitHubCallback)
	}

	s.router.Get("/main-brief", briefHandler.HandleGetMain)

	s.router.Route("/briefs", func(r chi.Router) {
		// Public: respondents have no account.
		r.Post("/submissions", submissionHandler.HandleCreate)
		r.Get("/submission/{sessionId}", submissionHandler.HandleGetBySession)
		r.Get("/submissions/{sessionId}/pdf", submissionHandler.HandleReport)
		r.Post("/uploadfile", uploadHandler.HandleUpload)
		r.Get("/{id}", briefHandler.HandleGetByID)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Post("/", briefHandler.HandleCreate)
			r.Get("/", briefHandler.HandleList)
			r.Put("/{id}", briefHandler.HandleUpdate)
			r.Put("/{id}/set-main", briefHandler.HandleSetMain)
			r.Delete("/{id}", briefHandler.HandleDelete)
			r.Get("/{id}/submissions", submissionHandler.HandleListForBrief)
		})
	})
}

// Handler exposes the router, e.g. for httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the database. Start calls it on shutdown.
func (s *Server) Close() error {
	return s.db.Close()
}

// Start serves HTTP until SIGINT/SIGTERM, then shuts down gracefully:
//  1. stop accepting new connections
//  2. wait for in-flight requests (30s timeout)
//  3. close the database
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second, // PDF rendering
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("database", s.config.DBPath),
			slog.String("storage", s.config.Storage.Backend),
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

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
