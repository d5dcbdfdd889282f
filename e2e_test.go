package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/patrickmn/go-cache"
	"github.com/stretchr/testify/suite"

	appMiddleware "github.com/dateai/dateai-server/app/middleware"
	"github.com/dateai/dateai-server/config"
	"github.com/dateai/dateai-server/internal/api/chat"
	"github.com/dateai/dateai-server/internal/api/events"
	"github.com/dateai/dateai-server/internal/api/geocode"
	"github.com/dateai/dateai-server/internal/api/planner"
	"github.com/dateai/dateai-server/internal/api/providers"
	"github.com/dateai/dateai-server/internal/api/restaurants"
	"github.com/dateai/dateai-server/internal/api/saved"
	api "github.com/dateai/dateai-server/internal/router"
	"github.com/dateai/dateai-server/internal/types"
)

// failingDoer stands in for every upstream HTTP dependency. Event
// providers must absorb its failures while the restaurant path
// surfaces them.
type failingDoer struct{}

func (failingDoer) Do(req *http.Request) (*http.Response, error) {
	return nil, fmt.Errorf("upstream unreachable: %s", req.URL.Host)
}

// cannedCompleter returns a fixed model completion.
type cannedCompleter struct {
	content string
}

func (c cannedCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	return c.content, nil
}

const testJWTSecret = "e2e-test-secret"

type E2ETestSuite struct {
	suite.Suite
	router http.Handler
	dbmock pgxmock.PgxPoolIface
	userID uuid.UUID
}

func (s *E2ETestSuite) SetupSuite() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	doer := failingDoer{}

	geocodeService := geocode.NewServiceImpl(doer, "test-token", cache.New(cache.NoExpiration, 0), logger)

	eventProviders := []providers.EventProvider{
		providers.NewTicketmaster(doer, "tm-key", logger),
		providers.NewRapidAPIEvents(doer, "rapid-key", geocodeService, logger),
		providers.NewEventbrite(doer, "rapid-key", geocodeService, logger),
		providers.NewGoogleEvents(doer, "serp-key", logger),
	}
	eventsService := events.NewServiceImpl(eventProviders, cache.New(events.CacheDuration, 0), logger)

	restaurantsUpstream := restaurants.NewMergedUpstream(doer, "yelp-key", "rapid-key", logger)
	restaurantsService := restaurants.NewServiceImpl(restaurantsUpstream, cache.New(restaurants.CacheDuration, 0), logger)

	plannerService := planner.NewServiceImpl(eventsService, restaurantsService, logger)

	dbmock, err := pgxmock.NewPool()
	s.Require().NoError(err)
	s.dbmock = dbmock
	s.userID = uuid.New()

	savedRepo := saved.NewRepository(dbmock, logger)
	savedService := saved.NewServiceImpl(savedRepo, logger)

	chatService := chat.NewServiceImpl(cannedCompleter{content: "No events match that request."}, geocodeService, logger)

	jwtCfg := config.JWTConfig{SecretKey: testJWTSecret, Issuer: "dateai-server", Audience: "dateai-client"}

	s.router = api.SetupRouter(&api.Config{
		EventsHandler:          events.NewEventsHandler(eventsService, logger),
		RestaurantsHandler:     restaurants.NewRestaurantsHandler(restaurantsService, logger),
		PlannerHandler:         planner.NewPlannerHandler(plannerService, logger),
		GeocodeHandler:         geocode.NewGeocodeHandler(geocodeService, logger),
		ChatHandler:            chat.NewChatHandler(chatService, logger),
		SavedHandler:           saved.NewSavedHandler(savedService, logger),
		AuthenticateMiddleware: appMiddleware.Authenticate(logger, jwtCfg),
	})
}

func (s *E2ETestSuite) TearDownSuite() {
	s.dbmock.Close()
}

func (s *E2ETestSuite) accessToken() string {
	claims := appMiddleware.Claims{
		UserID: s.userID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "dateai-server",
			Audience:  jwt.ClaimStrings{"dateai-client"},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testJWTSecret))
	s.Require().NoError(err)
	return token
}

func (s *E2ETestSuite) TestPing() {
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))

	s.Equal(http.StatusOK, rec.Code)
	s.Equal("pong", rec.Body.String())
}

func (s *E2ETestSuite) TestEventSearchAbsorbsProviderFailures() {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/events/search?latitude=38.9&longitude=-77.03&radius=25", nil)
	s.router.ServeHTTP(rec, req)

	s.Equal(http.StatusOK, rec.Code)

	var body struct {
		Events []types.Event `json:"events"`
		Count  int           `json:"count"`
	}
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &body))
	s.Zero(body.Count)
	s.Empty(body.Events)
}

func (s *E2ETestSuite) TestRestaurantSearchSurfacesUpstreamFailure() {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/restaurants/search?latitude=38.9&longitude=-77.03", nil)
	s.router.ServeHTTP(rec, req)

	s.Equal(http.StatusInternalServerError, rec.Code)
}

func (s *E2ETestSuite) TestOptimizeRouteOrdersStops() {
	stops := []types.Event{
		{ID: "a", Title: "Start", Location: types.EventLocation{Latitude: 38.9, Longitude: -77.03}},
		{ID: "b", Title: "Far", Location: types.EventLocation{Latitude: 40.9, Longitude: -77.03}},
		{ID: "c", Title: "Near", Location: types.EventLocation{Latitude: 39.9, Longitude: -77.03}},
	}
	payload, err := json.Marshal(map[string][]types.Event{"events": stops})
	s.Require().NoError(err)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/plans/optimize", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	s.router.ServeHTTP(rec, req)

	s.Require().Equal(http.StatusOK, rec.Code)

	var body struct {
		Events []types.Event `json:"events"`
	}
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &body))
	s.Require().Len(body.Events, 3)
	s.Equal("a", body.Events[0].ID)
	s.Equal("c", body.Events[1].ID)
	s.Equal("b", body.Events[2].ID)
}

func (s *E2ETestSuite) TestSavedRoutesRequireToken() {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/saved/events", nil)
	s.router.ServeHTTP(rec, req)

	s.Equal(http.StatusUnauthorized, rec.Code)
}

func (s *E2ETestSuite) TestSavedRoundTrip() {
	token := s.accessToken()
	itemID := uuid.New()
	payload := json.RawMessage(`{"title":"Jazz Night"}`)

	s.dbmock.ExpectQuery("INSERT INTO saved_items").
		WithArgs(pgxmock.AnyArg(), s.userID, types.SavedEvents, "ticketmaster-abc123", payload).
		WillReturnRows(pgxmock.NewRows([]string{"id", "user_id", "kind", "entity_id", "payload", "created_at"}).
			AddRow(itemID, s.userID, types.SavedEvents, "ticketmaster-abc123", payload, time.Now()))

	body := bytes.NewBufferString(`{"entity_id":"ticketmaster-abc123","payload":{"title":"Jazz Night"}}`)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/saved/events", body)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	s.router.ServeHTTP(rec, req)

	s.Require().Equal(http.StatusCreated, rec.Code)

	s.dbmock.ExpectExec("DELETE FROM saved_items").
		WithArgs(s.userID, types.SavedEvents, "ticketmaster-abc123").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodDelete, "/api/v1/saved/events/ticketmaster-abc123", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	s.router.ServeHTTP(rec, req)

	s.Equal(http.StatusNoContent, rec.Code)
	s.NoError(s.dbmock.ExpectationsWereMet())
}

func (s *E2ETestSuite) TestChatRecommendationsWithoutEventBlocks() {
	body := bytes.NewBufferString(`{"latitude":38.9,"longitude":-77.03,"type":"nightlife"}`)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat/recommendations", body)
	req.Header.Set("Content-Type", "application/json")
	s.router.ServeHTTP(rec, req)

	s.Require().Equal(http.StatusOK, rec.Code)

	var resp chat.RecommendationResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.Equal("No events match that request.", resp.Content)
	s.Empty(resp.Events)
}

func (s *E2ETestSuite) TestUnknownSavedKindRejected() {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/saved/bookmarks", nil)
	req.Header.Set("Authorization", "Bearer "+s.accessToken())
	s.router.ServeHTTP(rec, req)

	s.Equal(http.StatusBadRequest, rec.Code)
}

func TestE2ETestSuite(t *testing.T) {
	suite.Run(t, new(E2ETestSuite))
}
