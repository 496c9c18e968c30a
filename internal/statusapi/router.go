// Package statusapi exposes the pipeline to a HUD: a JSON status endpoint,
// control endpoints that enqueue pipeline events, and a websocket feed.
package statusapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"inputpipe/internal/metrics"
	"inputpipe/internal/pipeline"
)

// Controller is the part of the pipeline the API drives. Both methods are
// safe to call from HTTP goroutines.
type Controller interface {
	Status() pipeline.Status
	Enqueue(ev pipeline.Event) bool
}

// RouterConfig contains all dependencies needed to construct the HTTP router.
type RouterConfig struct {
	// Controller is the pipeline (required)
	Controller Controller

	// RateLimiter is an optional pre-configured rate limiter. If nil, no
	// limiting is applied; the caller owns its lifetime either way.
	RateLimiter *IPRateLimiter

	// CORSOrigins is an optional list of allowed CORS origins.
	CORSOrigins []string

	Logger *zap.Logger
}

type routerHandlers struct {
	ctrl Controller
	log  *zap.Logger
}

// NewRouter constructs the HTTP router with all middleware and routes. It
// starts no goroutines and opens no listeners, so it is safe to wrap in
// httptest.NewServer.
func NewRouter(cfg RouterConfig) *chi.Mux {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	r := chi.NewRouter()

	// Middleware - Order matters!
	r.Use(requestLogger(log))
	r.Use(middleware.Recoverer)

	// Rate limiting before CORS to reject early
	if cfg.RateLimiter != nil {
		r.Use(cfg.RateLimiter.Middleware)
	}

	origins := cfg.CORSOrigins
	if origins == nil {
		origins = []string{"http://localhost:*", "http://127.0.0.1:*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
	}))

	h := &routerHandlers{ctrl: cfg.Controller, log: log}

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", h.handleGetStatus)

		r.Get("/features", h.handleGetFeatures)
		r.Post("/features/{name}", h.handleSetFeature)
		r.Post("/features/{name}/toggle", h.handleToggleFeature)

		r.Post("/macro/{action}", h.handleMacro)

		r.Post("/fov", h.handleSetFOV)
		r.Post("/channel", h.handleSetChannel)
	})

	return r
}

// requestLogger logs each request through zap and records its latency by
// route pattern.
func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			pattern := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				pattern = rctx.RoutePattern()
			}
			elapsed := time.Since(start)
			metrics.RecordRequest(r.Method, pattern, elapsed)
			log.Debug("request",
				zap.String("method", r.Method),
				zap.String("route", pattern),
				zap.Int("status", ww.Status()),
				zap.Duration("elapsed", elapsed))
		})
	}
}
