package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/ignite/waitlist/internal/config"
)

// SetupRoutes configures all API routes.
//
// The signup endpoint is public (it backs an unauthenticated landing-page
// form) and carries the rate limiter; the read endpoints are gated by the
// admin bearer token. Health endpoints carry neither.
func SetupRoutes(h *Handlers, hc *HealthChecker, limiter *RateLimiter, cfg *config.Config) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)

	// CORS for the landing page origin(s). No credentials: the form is
	// anonymous.
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	// Health checks (no auth required)
	r.Get("/health", hc.HandleHealth)
	r.Get("/health/live", hc.HandleLiveness)
	r.Get("/health/ready", hc.HandleReadiness)

	r.Route("/api", func(r chi.Router) {
		// Public form endpoint
		r.Group(func(r chi.Router) {
			if limiter != nil {
				r.Use(limiter.Middleware)
			}
			r.Post("/signups", h.HandleSignup)
		})

		// Operator read endpoints
		r.Group(func(r chi.Router) {
			r.Use(requireAdminToken(cfg.Admin.Token))
			r.Get("/signups", h.HandleListSignups)
			r.Get("/signups/count", h.HandleCountSignups)
		})
	})

	return r
}

// requireAdminToken gates a route group behind a static bearer token. An
// empty configured token disables the endpoints entirely rather than
// leaving them open.
func requireAdminToken(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if token == "" {
				respondError(w, http.StatusNotFound, "not found")
				return
			}
			if req.Header.Get("Authorization") != "Bearer "+token {
				respondError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			next.ServeHTTP(w, req)
		})
	}
}
