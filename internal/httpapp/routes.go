package httpapp

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"
)

type RouterConfig struct {
	RequestsPerSecond int
	BurstSize         int
	// MediaDir, when set, is served under /media/ for the local storage
	// backend.
	MediaDir string
}

func NewRouter(h *Handler, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	if cfg.RequestsPerSecond > 0 {
		r.Use(rateLimit(rate.Limit(cfg.RequestsPerSecond), cfg.BurstSize))
	}

	r.Get("/health", h.Health)

	r.Route("/api", func(r chi.Router) {
		r.Post("/convert", h.Convert)
		r.Get("/stats", h.GetStats)
		r.Route("/audios", func(r chi.Router) {
			r.Get("/", h.ListAudios)
			r.Get("/{id}", h.GetAudio)
			r.Get("/{id}/status", h.GetStatus)
			r.Get("/{id}/events", h.StreamEvents)
			r.Get("/{id}/download", h.Download)
		})
	})

	if cfg.MediaDir != "" {
		fs := http.StripPrefix("/media/", http.FileServer(http.Dir(cfg.MediaDir)))
		r.Get("/media/*", fs.ServeHTTP)
	}

	return r
}

// rateLimit rejects requests beyond the configured service-wide rate with
// 429, keeping a burst of misbehaving clients from starving conversions.
func rateLimit(limit rate.Limit, burst int) func(http.Handler) http.Handler {
	limiter := rate.NewLimiter(limit, burst)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				http.Error(w, `{"error":"too many requests"}`, http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
