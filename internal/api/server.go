// Package api provides the HTTP API server and handlers for the novelly service.
package api

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/novelly/novelly-server/internal/sse"
	"github.com/novelly/novelly-server/internal/validation"
)

// Config holds HTTP-level settings for the server.
type Config struct {
	// CORSOrigins lists allowed browser origins. Empty allows any origin.
	CORSOrigins []string
	// RateLimitRequests is the per-IP request budget for /api/v1 within
	// RateLimitWindow. Zero disables rate limiting.
	RateLimitRequests int
	RateLimitWindow   time.Duration
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	services   *Services
	router     *chi.Mux
	api        huma.API
	sseHandler *sse.Handler
	validator  *validation.Validator
	logger     *slog.Logger
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(cfg Config, services *Services, sseHandler *sse.Handler, logger *slog.Logger) *Server {
	s := &Server{
		services:   services,
		router:     chi.NewRouter(),
		sseHandler: sseHandler,
		validator:  validation.New(),
		logger:     logger,
	}

	s.setupMiddleware(cfg)

	humaConfig := huma.DefaultConfig("Novelly API", "1.0.0")
	humaConfig.Info.Description = "Book discovery backed by a self-growing shared catalog."
	humaConfig.Transformers = append(humaConfig.Transformers, EnvelopeTransformer)
	s.api = humachi.New(s.router, humaConfig)
	RegisterErrorHandler()

	s.setupRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// API returns the huma API, used by tests to register and call operations.
func (s *Server) API() huma.API {
	return s.api
}

// setupMiddleware configures the middleware stack.
func (s *Server) setupMiddleware(cfg Config) {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger(s.logger))
	s.router.Use(middleware.Recoverer)

	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", userIDHeader, "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	if cfg.RateLimitRequests > 0 {
		window := cfg.RateLimitWindow
		if window <= 0 {
			window = time.Minute
		}
		s.router.Use(apiOnly(httprate.LimitByIP(cfg.RateLimitRequests, window)))
	}

	s.router.Use(userMiddleware)
}

// setupRoutes registers every operation.
func (s *Server) setupRoutes() {
	s.router.Handle("/metrics", promhttp.Handler())
	s.router.Get("/api/v1/events", s.sseHandler.ServeHTTP)

	s.registerHealthRoutes()
	s.registerCatalogRoutes()
	s.registerBookRoutes()
	s.registerLibraryRoutes()
	s.registerHistoryRoutes()
	s.registerFeedRoutes()
	s.registerRecommendationRoutes()
	s.registerInterviewRoutes()
}

// apiOnly applies mw to /api/v1 requests and passes everything else through.
func apiOnly(mw func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		limited := mw(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.HasPrefix(r.URL.Path, "/api/v1/") {
				limited.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// requestLogger logs one line per request at INFO, or WARN for 5xx.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			level := slog.LevelInfo
			if ww.Status() >= http.StatusInternalServerError {
				level = slog.LevelWarn
			}
			logger.Log(r.Context(), level, "http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}
