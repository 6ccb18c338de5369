package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"callguard/internal/api/handlers"
	apimiddleware "callguard/internal/api/middleware"
	"callguard/internal/config"
	"callguard/internal/metrics"
	"callguard/internal/streaming"
	"callguard/pkg/logger"
)

// Router holds dependencies for the API router
type Router struct {
	config   config.Config
	handlers *handlers.Handlers
	limiter  apimiddleware.RateLimitStore
	hub      *streaming.WebSocketHub
	logger   *logger.Logger
}

// NewRouter creates a new Router instance. limiter and hub may be nil; the
// rate limiter and the alert stream are then left out.
func NewRouter(
	cfg config.Config,
	h *handlers.Handlers,
	limiter apimiddleware.RateLimitStore,
	hub *streaming.WebSocketHub,
	log *logger.Logger,
) *Router {
	return &Router{
		config:   cfg,
		handlers: h,
		limiter:  limiter,
		hub:      hub,
		logger:   log.WithComponent("router"),
	}
}

// Setup sets up the Chi router with all routes and middleware
func (r *Router) Setup() http.Handler {
	router := chi.NewRouter()

	// Core middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(apimiddleware.Logger(r.logger))
	router.Use(metrics.Middleware)
	router.Use(middleware.Recoverer)

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   r.config.CORS.AllowedOrigins,
		AllowedMethods:   r.config.CORS.AllowedMethods,
		AllowedHeaders:   r.config.CORS.AllowedHeaders,
		AllowCredentials: r.config.CORS.AllowCredentials,
		MaxAge:           r.config.CORS.MaxAge,
	}))

	// Probes and scrapes are never rate limited
	router.Get("/", r.handlers.Health.Root)
	router.Get("/health", r.handlers.Health.Check)
	router.Get("/ready", r.handlers.Health.Ready)
	router.Handle("/metrics", metrics.Handler())

	if r.hub != nil {
		router.Get("/api/v1/alerts/ws", r.hub.ServeWebSocket)
	}

	router.Group(func(scoring chi.Router) {
		scoring.Use(middleware.Timeout(60 * time.Second))
		if r.config.RateLimit.Enabled && r.limiter != nil {
			scoring.Use(apimiddleware.RateLimiter(r.limiter, r.config.RateLimit, r.logger))
		}

		scoring.Post("/analyze", r.handlers.Analysis.Analyze)
		scoring.Get("/sample", r.handlers.Analysis.Sample)
		scoring.Get("/analyze_sample", r.handlers.Analysis.AnalyzeSample)

		scoring.Route("/api/v1/analyze", func(analyze chi.Router) {
			analyze.Post("/", r.handlers.Analysis.Analyze)
			analyze.Post("/text", r.handlers.Analysis.AnalyzeText)
		})
	})

	return router
}
