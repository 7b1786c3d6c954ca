/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route
  definitions. This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logger:     Request logging
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests for the frontend
  5. Rate limit: Process-wide token bucket
  6. Auth:       Bearer-token owner extraction (API routes only)

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/ledgerd: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/time/rate"
)

// RouterConfig carries the router's tunables.
type RouterConfig struct {
	CORSOrigins  []string
	RateLimitRPS float64
	RateBurst    int
}

// NewRouter creates a router with all routes configured. Every /api route
// runs behind the bearer-token middleware.
func NewRouter(h *Handler, auth *TokenAuthority, cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))
	r.Use(rateLimit(cfg.RateLimitRPS, cfg.RateBurst))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(auth.Middleware)

		r.Route("/transactions", func(r chi.Router) {
			r.Get("/", h.ListTransactions)
			r.Post("/", h.CreateTransaction)
			r.Put("/{id}", h.UpdateTransaction)
			r.Delete("/{id}", h.DeleteTransaction)
		})

		r.Get("/balances", h.GetBalances)

		r.Route("/wishlist", func(r chi.Router) {
			r.Get("/", h.ListWishes)
			r.Post("/", h.CreateWish)
			r.Put("/{id}", h.UpdateWish)
			r.Delete("/{id}", h.DeleteWish)
			r.Post("/{id}/toggle", h.ToggleWish)
		})

		r.Route("/scheduled", func(r chi.Router) {
			r.Get("/", h.ListTemplates)
			r.Post("/", h.CreateTemplate)
			r.Put("/{id}", h.UpdateTemplate)
			r.Delete("/{id}", h.DeleteTemplate)
			r.Post("/apply", h.ApplyTemplates)
		})

		r.Get("/currencies", h.ListCurrencies)
	})

	return r
}

// rateLimit applies a process-wide token bucket to every request.
func rateLimit(rps float64, burst int) func(http.Handler) http.Handler {
	limiter := rate.NewLimiter(rate.Limit(rps), burst)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				writeError(w, http.StatusTooManyRequests, http.StatusText(http.StatusTooManyRequests))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
