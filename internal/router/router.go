package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/dateai/dateai-server/internal/api/chat"
	"github.com/dateai/dateai-server/internal/api/events"
	"github.com/dateai/dateai-server/internal/api/geocode"
	"github.com/dateai/dateai-server/internal/api/planner"
	"github.com/dateai/dateai-server/internal/api/restaurants"
	"github.com/dateai/dateai-server/internal/api/saved"
)

// Config contains dependencies needed for the router setup
type Config struct {
	EventsHandler          *events.Handler
	RestaurantsHandler     *restaurants.Handler
	PlannerHandler         *planner.Handler
	GeocodeHandler         *geocode.Handler
	ChatHandler            *chat.Handler
	SavedHandler           *saved.Handler
	AuthenticateMiddleware func(http.Handler) http.Handler
}

// SetupRouter initializes and configures the main application router.
// Server-wide middleware (logger, requestID, recoverer) are expected
// to be applied before mounting this router in main.go.
func SetupRouter(cfg *Config) chi.Router {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:3000"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("pong"))
	})

	r.Route("/api/v1", func(r chi.Router) {

		// --- Public Routes ---
		r.Group(func(r chi.Router) {
			r.Get("/events/search", cfg.EventsHandler.SearchEvents)
			r.Get("/restaurants/search", cfg.RestaurantsHandler.SearchRestaurants)
			r.Post("/plans", cfg.PlannerHandler.GeneratePlan)
			r.Post("/plans/optimize", cfg.PlannerHandler.OptimizeRoute)
			r.Get("/locations/search", cfg.GeocodeHandler.SearchLocations)
			r.Post("/chat/recommendations", cfg.ChatHandler.GetRecommendations)
		})

		// --- Protected Routes ---
		r.Group(func(r chi.Router) {
			r.Use(cfg.AuthenticateMiddleware)

			r.Post("/saved/{kind}", cfg.SavedHandler.SaveItem)
			r.Get("/saved/{kind}", cfg.SavedHandler.ListItems)
			r.Delete("/saved/{kind}/{id}", cfg.SavedHandler.DeleteItem)
		})
	})

	return r
}
