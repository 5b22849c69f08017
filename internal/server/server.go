package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/stackit-qa/apiserver/config"
	"github.com/stackit-qa/apiserver/internal/app"
	"github.com/stackit-qa/apiserver/internal/handlers"
	"github.com/stackit-qa/apiserver/internal/logging"
	"go.uber.org/zap"
)

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	app        *app.App
	logger     *zap.Logger
}

// New constructs a Server with basic middleware and defaults.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	if cfg.Auth.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	logger, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	router := NewRouter(a, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		app:        a,
		logger:     logger,
	}, nil
}

// NewRouter mounts every route over the services of a.
func NewRouter(a *app.App, jwtSecret string, tokenTTL time.Duration) *chi.Mux {
	authHandler := handlers.NewAuthHandler(a.Identity, jwtSecret, tokenTTL)
	questionHandler := handlers.NewQuestionHandler(a.Forum, a.Sanitizer)
	notificationHandler := handlers.NewNotificationHandler(a.Notifications)
	helpHandler := handlers.NewHelpHandler(a.Help)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		logging.Middleware(a.Logger),
		middleware.Timeout(60*time.Second),
	)
	router.Get("/healthz", handlers.Healthz)
	router.Route("/auth", func(r chi.Router) {
		handlers.AuthRouter(r, authHandler)
	})
	router.Route("/questions", func(r chi.Router) {
		handlers.QuestionRouter(r, questionHandler, authHandler.RequireAuth)
	})
	router.Route("/answers", func(r chi.Router) {
		handlers.AnswerRouter(r, questionHandler, authHandler.RequireAuth)
	})
	router.Get("/tags", questionHandler.ListTags)
	router.Route("/notifications", func(r chi.Router) {
		handlers.NotificationRouter(r, notificationHandler, authHandler.RequireAuth)
	})
	router.Route("/help", func(r chi.Router) {
		handlers.HelpRouter(r, helpHandler)
	})
	return router
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server.
func (s *Server) Start() error {
	s.logger.Info("server listening", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests, then releases the backends.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	s.app.Close()
	_ = s.logger.Sync()
	return err
}
