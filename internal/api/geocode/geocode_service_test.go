package geocode

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubDoer struct {
	respond func(req *http.Request) (*http.Response, error)
	calls   int
}

func (s *stubDoer) Do(req *http.Request) (*http.Response, error) {
	s.calls++
	return s.respond(req)
}

func jsonResponse(body string) *http.Response {
	return &http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
	}
}

const placesBody = `{"features":[
  {"id": "place.1", "text": "Washington", "place_name": "Washington, District of Columbia, United States", "center": [-77.0366, 38.895]},
  {"id": "place.2", "text": "Washington", "place_name": "Washington, Utah, United States", "center": [-113.5083, 37.1305]}
]}`

func newTestService(client *stubDoer) *ServiceImpl {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewServiceImpl(client, "mapbox-token", cache.New(cache.NoExpiration, 0), logger)
}

func TestSearchLocations(t *testing.T) {
	client := &stubDoer{respond: func(req *http.Request) (*http.Response, error) {
		q := req.URL.Query()
		assert.Equal(t, "mapbox-token", q.Get("access_token"))
		assert.Equal(t, "place,locality,neighborhood,address", q.Get("types"))
		assert.Equal(t, "5", q.Get("limit"))
		return jsonResponse(placesBody), nil
	}}
	svc := newTestService(client)

	suggestions, err := svc.SearchLocations(context.Background(), "Washington")
	require.NoError(t, err)
	require.Len(t, suggestions, 2)
	assert.Equal(t, "place.1", suggestions[0].ID)
	assert.Equal(t, "Washington, District of Columbia, United States", suggestions[0].PlaceName)
	assert.Equal(t, [2]float64{-77.0366, 38.895}, suggestions[0].Center)
}

func TestSearchLocationsShortQuery(t *testing.T) {
	client := &stubDoer{respond: func(*http.Request) (*http.Response, error) {
		t.Fatal("no upstream call expected for short queries")
		return nil, nil
	}}
	svc := newTestService(client)

	for _, query := range []string{"", "w"} {
		suggestions, err := svc.SearchLocations(context.Background(), query)
		require.NoError(t, err)
		assert.Empty(t, suggestions)
	}
}

func TestSearchLocationsUsesCache(t *testing.T) {
	client := &stubDoer{respond: func(*http.Request) (*http.Response, error) {
		return jsonResponse(placesBody), nil
	}}
	svc := newTestService(client)

	_, err := svc.SearchLocations(context.Background(), "Washington")
	require.NoError(t, err)
	_, err = svc.SearchLocations(context.Background(), "Washington")
	require.NoError(t, err)

	assert.Equal(t, 1, client.calls)
}

func TestSearchLocationsServesStaleEntryOnUpstreamFailure(t *testing.T) {
	failing := false
	client := &stubDoer{respond: func(*http.Request) (*http.Response, error) {
		if failing {
			return nil, errors.New("mapbox unreachable")
		}
		return jsonResponse(placesBody), nil
	}}
	svc := newTestService(client)

	fresh, err := svc.SearchLocations(context.Background(), "Washington")
	require.NoError(t, err)
	require.Len(t, fresh, 2)

	// Age the entry past the freshness window, then take the upstream down.
	svc.cache.Set("Washington", cachedSuggestions{
		suggestions: fresh,
		fetchedAt:   time.Now().Add(-CacheDuration - time.Minute),
	}, cache.NoExpiration)
	failing = true

	stale, err := svc.SearchLocations(context.Background(), "Washington")
	require.NoError(t, err)
	assert.Equal(t, fresh, stale)
}

func TestSearchLocationsEmptyOnFailureWithoutCache(t *testing.T) {
	client := &stubDoer{respond: func(*http.Request) (*http.Response, error) {
		return nil, errors.New("mapbox unreachable")
	}}
	svc := newTestService(client)

	suggestions, err := svc.SearchLocations(context.Background(), "Washington")
	require.NoError(t, err, "forward geocoding absorbs upstream failures")
	assert.Empty(t, suggestions)
}

func TestReverseCity(t *testing.T) {
	client := &stubDoer{respond: func(req *http.Request) (*http.Response, error) {
		assert.Contains(t, req.URL.Path, "-77.02,38.9.json")
		assert.Equal(t, "place", req.URL.Query().Get("types"))
		return jsonResponse(placesBody), nil
	}}
	svc := newTestService(client)

	city, err := svc.ReverseCity(context.Background(), 38.9, -77.02)
	require.NoError(t, err)
	assert.Equal(t, "Washington", city)
}

func TestReverseCityPropagatesErrors(t *testing.T) {
	client := &stubDoer{respond: func(*http.Request) (*http.Response, error) {
		return &http.Response{StatusCode: http.StatusUnauthorized, Body: io.NopCloser(strings.NewReader(""))}, nil
	}}
	svc := newTestService(client)

	_, err := svc.ReverseCity(context.Background(), 38.9, -77.02)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
}
