package api

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter wires the handlers into a chi router with the standard
// middleware stack. The generous timeout covers synchronous multi-page
// runs, which sleep between pages.
func NewRouter(h *Handlers) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(5 * time.Minute))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "https://localhost:*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", h.Health)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/search", h.Search)
		r.Post("/search/async", h.SearchAsync)
		r.Get("/listings/{roomID}", h.GetListing)
		r.Get("/groups/{groupID}/listings", h.GetGroupListings)
		r.Post("/groups/{groupID}/listings/{airbnbID}/detail", h.RefreshListingDetail)
		r.Get("/price-range", h.GetPriceRange)
		r.Get("/proxies", h.GetProxies)
	})

	return r
}
