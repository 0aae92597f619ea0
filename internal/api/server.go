package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	corslib "github.com/rs/cors"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/pitchboard/pitchboard/internal/api/handler"
	"github.com/pitchboard/pitchboard/internal/cache"
	"github.com/pitchboard/pitchboard/internal/config"
	"github.com/pitchboard/pitchboard/internal/metrics"
)

// NewRouter creates and configures the chi router with all middleware and routes.
func NewRouter(svc handler.Service, appCache *cache.Cache, m *metrics.Manager, cfg *config.Config) *chi.Mux {
	r := chi.NewRouter()

	// --- Middleware stack ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(TimingMiddleware)
	r.Use(MetricsMiddleware(m))
	r.Use(middleware.Compress(5)) // gzip

	// CORS
	c := corslib.New(corslib.Options{
		AllowedOrigins:   cfg.CORSOrigins(),
		AllowedMethods:   []string{"GET", "POST", "HEAD", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Accept-Encoding", "Content-Type", "If-None-Match", "Cache-Control"},
		ExposedHeaders:   []string{"X-Process-Time", "X-Cache", "Link", "ETag", "Content-Disposition"},
		AllowCredentials: false,
	})
	r.Use(c.Handler)

	// Rate limiting
	if cfg.RateLimitEnabled {
		r.Use(RateLimitMiddleware(cfg.RateLimitRequests, cfg.RateLimitWindow()))
	}

	// --- Handler dependencies ---
	h := handler.New(svc, appCache, cfg)

	// --- Routes ---

	r.Get("/", h.Root)
	r.Get("/dashboard", h.Dashboard)

	// Health checks
	r.Route("/health", func(r chi.Router) {
		r.Get("/", h.HealthCheck)
		r.Get("/cache", h.HealthCheckCache)
	})

	// Prometheus scrape endpoint
	r.Method(http.MethodGet, "/metrics", m.Handler())

	// Swagger UI
	r.Get("/docs/*", httpSwagger.Handler(
		httpSwagger.URL("/docs/doc.json"),
	))

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Session discovery
		r.Get("/sessions", h.ListSessions)

		// Single-feed tables
		r.Get("/sessions/{sessionID}/plays", h.GetPlays)
		r.Get("/sessions/{sessionID}/balls", h.GetBalls)

		// Configurable pipeline
		r.Post("/query", h.RunQuery)
		r.Post("/query/export", h.ExportQuery)
	})

	return r
}
