package container

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/patrickmn/go-cache"

	database "github.com/dateai/dateai-server/app/db"
	"github.com/dateai/dateai-server/config"
	"github.com/dateai/dateai-server/internal/api/chat"
	"github.com/dateai/dateai-server/internal/api/events"
	"github.com/dateai/dateai-server/internal/api/geocode"
	"github.com/dateai/dateai-server/internal/api/planner"
	"github.com/dateai/dateai-server/internal/api/providers"
	"github.com/dateai/dateai-server/internal/api/restaurants"
	"github.com/dateai/dateai-server/internal/api/saved"
)

const geminiModel = "gemini-2.0-flash"

// Container holds all application dependencies
type Container struct {
	Config             *config.Config
	Logger             *slog.Logger
	Pool               *pgxpool.Pool
	EventsHandler      *events.Handler
	RestaurantsHandler *restaurants.Handler
	PlannerHandler     *planner.Handler
	GeocodeHandler     *geocode.Handler
	ChatHandler        *chat.Handler
	SavedHandler       *saved.Handler
}

// NewContainer initializes and returns a new dependency container
func NewContainer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Container, error) {
	// Initialize database
	dbConfig, err := database.NewDatabaseConfig(cfg, logger)
	if err != nil {
		logger.Error("Failed to generate database config", slog.Any("error", err))
		return nil, err
	}

	pool, err := database.Init(dbConfig.ConnectionURL, logger)
	if err != nil {
		logger.Error("Failed to initialize database pool", slog.Any("error", err))
		return nil, err
	}

	httpClient := &http.Client{Timeout: 30 * time.Second}

	// Geocoding backs both the location search endpoint and the
	// city lookups inside the provider adapters.
	geocodeService := geocode.NewServiceImpl(
		httpClient,
		os.Getenv("MAPBOX_ACCESS_TOKEN"),
		cache.New(cache.NoExpiration, 0),
		logger,
	)
	geocodeHandler := geocode.NewGeocodeHandler(geocodeService, logger)

	// Providers fan out in declared order; earlier entries win dedup ties.
	eventProviders := []providers.EventProvider{
		providers.NewTicketmaster(httpClient, os.Getenv("TICKETMASTER_API_KEY"), logger),
		providers.NewRapidAPIEvents(httpClient, os.Getenv("RAPIDAPI_KEY"), geocodeService, logger),
		providers.NewEventbrite(httpClient, os.Getenv("RAPIDAPI_KEY"), geocodeService, logger),
		providers.NewGoogleEvents(httpClient, os.Getenv("SERPAPI_API_KEY"), logger),
	}

	eventsService := events.NewServiceImpl(eventProviders, cache.New(events.CacheDuration, 10*time.Minute), logger)
	eventsHandler := events.NewEventsHandler(eventsService, logger)

	restaurantsUpstream := restaurants.NewMergedUpstream(
		httpClient,
		os.Getenv("YELP_API_KEY"),
		os.Getenv("RAPIDAPI_KEY"),
		logger,
	)
	restaurantsService := restaurants.NewServiceImpl(restaurantsUpstream, cache.New(restaurants.CacheDuration, time.Minute), logger)
	restaurantsHandler := restaurants.NewRestaurantsHandler(restaurantsService, logger)

	plannerService := planner.NewServiceImpl(eventsService, restaurantsService, logger)
	plannerHandler := planner.NewPlannerHandler(plannerService, logger)

	completer, err := chat.NewGeminiCompleter(ctx, os.Getenv("GOOGLE_GEMINI_API_KEY"), geminiModel)
	if err != nil {
		logger.Error("Failed to initialize Gemini client", slog.Any("error", err))
		return nil, err
	}
	chatService := chat.NewServiceImpl(completer, geocodeService, logger)
	chatHandler := chat.NewChatHandler(chatService, logger)

	savedRepo := saved.NewRepository(pool, logger)
	savedService := saved.NewServiceImpl(savedRepo, logger)
	savedHandler := saved.NewSavedHandler(savedService, logger)

	return &Container{
		Config:             cfg,
		Logger:             logger,
		Pool:               pool,
		EventsHandler:      eventsHandler,
		RestaurantsHandler: restaurantsHandler,
		PlannerHandler:     plannerHandler,
		GeocodeHandler:     geocodeHandler,
		ChatHandler:        chatHandler,
		SavedHandler:       savedHandler,
	}, nil
}

// Close releases pooled resources.
func (c *Container) Close() {
	if c.Pool != nil {
		c.Pool.Close()
	}
}
