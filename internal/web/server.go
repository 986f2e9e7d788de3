package web

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/kozaktomas/faceid/internal/app"
	"github.com/kozaktomas/faceid/internal/config"
	"github.com/kozaktomas/faceid/internal/constants"
	"github.com/kozaktomas/faceid/internal/web/middleware"
)

// Server represents the web server
type Server struct {
	app        *app.App
	logger     *slog.Logger
	router     *chi.Mux
	httpServer *http.Server
	limiter    middleware.Limiter
	redis      *redis.Client
}

// NewServer creates a new web server for addr (host:port).
func NewServer(a *app.App, addr string) (*Server, error) {
	r := chi.NewRouter()

	s := &Server{
		app:    a,
		logger: a.Logger.With("component", "web"),
		router: r,
	}

	if err := s.setupRateLimiter(&a.Config.RateLimit); err != nil {
		return nil, err
	}

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(constants.RequestTimeout))
	r.Use(middleware.CORS(a.Config.Web.AllowedOrigins))

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: constants.RequestTimeout + 10*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

func (s *Server) setupRateLimiter(cfg *config.RateLimitConfig) error {
	if cfg.PerMinute <= 0 {
		return nil
	}
	if cfg.RedisURL == "" {
		s.limiter = middleware.NewLocalLimiter(cfg.PerMinute)
		s.logger.Info("rate limiting enabled", "per_minute", cfg.PerMinute, "backend", "memory")
		return nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("parse REDIS_URL: %w", err)
	}
	s.redis = redis.NewClient(opts)
	s.limiter = middleware.NewRedisLimiter(s.redis, cfg.PerMinute, time.Minute)
	s.logger.Info("rate limiting enabled", "per_minute", cfg.PerMinute, "backend", "redis", "addr", opts.Addr)
	return nil
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("starting web server", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down web server")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			return fmt.Errorf("closing redis client: %w", err)
		}
	}
	return nil
}

// Router returns the chi router for testing
func (s *Server) Router() *chi.Mux {
	return s.router
}
