package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Limiter decides whether a client may make another request.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// NewRouter assembles the HTTP surface: health endpoint plus the v1 API
// behind CORS and per-client rate limiting.
func NewRouter(h *Handlers, limiter Limiter, health http.HandlerFunc, logger *slog.Logger) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "https://localhost:*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", health)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(RateLimit(limiter, logger))

		r.Post("/scrape", h.Scrape)
		r.Post("/scrape/batch", h.ScrapeBatch)
		r.Get("/trending", h.Trending)

		r.Route("/shoes", func(r chi.Router) {
			r.Get("/", h.ListShoes)
			r.Get("/{article}", h.GetShoe)
			r.Delete("/{article}", h.DeleteShoe)
			r.Get("/{article}/history", h.GetHistory)
		})

		r.Route("/watches", func(r chi.Router) {
			r.Post("/", h.CreateWatch)
			r.Get("/", h.ListWatches)
			r.Delete("/{watchID}", h.DeleteWatch)
		})
	})

	return r
}

// RateLimit rejects requests over the per-client quota with 429. A
// limiter backend failure lets the request through; throttling is not
// worth an outage.
func RateLimit(limiter Limiter, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter == nil {
				next.ServeHTTP(w, r)
				return
			}

			allowed, err := limiter.Allow(r.Context(), r.RemoteAddr)
			if err != nil {
				logger.Warn("rate limiter unavailable", "error", err)
				next.ServeHTTP(w, r)
				return
			}
			if !allowed {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				w.Write([]byte(`{"error":"rate limit exceeded"}`))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
