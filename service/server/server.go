package server

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"flame/service/app"
	"flame/service/config"
	"flame/service/util"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

//go:embed templates/*.html
var templates embed.FS

type Server struct {
	cfg        *config.Config
	store      *app.Store
	apps       *app.Service
	renderer   *util.TemplateRenderer
	logger     *slog.Logger
	router     *chi.Mux
	httpServer *http.Server
	startTime  time.Time
	version    string
}

func New(cfg *config.Config, logger *slog.Logger, version string) (*Server, error) {
	store, err := app.NewStore(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("failed to create store: %w", err)
	}

	icons, err := app.NewIconStore(cfg.UploadsPath)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to create icon store: %w", err)
	}

	tmpl, err := template.ParseFS(templates, "templates/*.html")
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	s := &Server{
		cfg:       cfg,
		store:     store,
		apps:      app.NewService(store, icons, logger),
		renderer:  util.NewTemplateRenderer(tmpl),
		logger:    logger,
		startTime: time.Now(),
		version:   version,
	}

	s.setupRoutes()
	return s, nil
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(loggingMiddleware(s.logger))
	r.Use(metricsMiddleware())
	r.Use(securityHeadersMiddleware())
	r.Use(middleware.Timeout(15 * time.Second))
	r.Use(middleware.Compress(5))
	r.Use(middleware.StripSlashes)
	r.Use(rateLimitMiddleware(s.cfg.RateLimit))

	auth := authMiddleware(s.cfg.APIKey)

	r.With(auth).Get("/", s.handleIndex)
	r.Get("/healthz", s.handleHealthCheck)
	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())
	r.Handle("/uploads/*", uploadsHandler(s.apps.Icons().Dir()))

	r.Route("/fragment", func(r chi.Router) {
		r.Use(auth)
		r.Get("/apps", s.handleFragmentApps)
		r.Get("/app-form", s.handleFragmentAppForm)
		r.Get("/app-form/toggle", s.handleFragmentAppFormToggle)
		r.Get("/app-form/{id}", s.handleFragmentAppForm)
	})

	r.Route("/action", func(r chi.Router) {
		r.Use(auth)
		r.Post("/app", s.handleSubmitAppForm)
		r.Post("/app/{id}", s.handleSubmitAppForm)
		r.Delete("/app/{id}", s.handleDeleteAppAction)
	})

	r.Route("/api/apps", func(r chi.Router) {
		r.Get("/", s.handleListApps)
		r.With(auth).Post("/", s.handleCreateApp)
		r.Get("/{id}", s.handleGetApp)
		r.Get("/{id}/qr", s.handleAppQRCode)
		r.With(auth).Put("/{id}", s.handleUpdateApp)
		r.With(auth).Delete("/{id}", s.handleDeleteApp)
	})

	s.router = r
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	msg := fmt.Sprintf("Flame running on:\n  Local: http://localhost:%d", s.cfg.Port)
	if lanIP := util.GetLANIP(); lanIP != "" {
		msg += fmt.Sprintf("\n  Network: http://%s:%d", lanIP, s.cfg.Port)
	}
	s.logger.Info(msg)

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		return s.Shutdown()
	case err := <-errCh:
		return util.LogError(s.logger, "HTTP server failed", err, "addr", addr)
	}
}

func (s *Server) Shutdown() error {
	s.logger.Info("Shutting down server")

	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := s.httpServer.Shutdown(ctx); err != nil {
			return util.LogError(s.logger, "failed to shutdown http server", err)
		}
	}

	if err := s.store.Close(); err != nil {
		return util.LogError(s.logger, "failed to close store", err)
	}

	return nil
}
