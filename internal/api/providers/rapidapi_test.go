package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dateai/dateai-server/internal/types"
)

type stubGeocoder struct {
	city string
	err  error
}

func (s *stubGeocoder) ReverseCity(_ context.Context, _, _ float64) (string, error) {
	return s.city, s.err
}

func rapidEventsBody(startDate string) string {
	return fmt.Sprintf(`{"data":[{
		"name": "Rooftop Jazz",
		"description": "Live jazz concert on the rooftop",
		"category": "Concerts",
		"start_date": %q,
		"venue": {
			"name": "Sky Lounge",
			"full_address": "500 K St NW",
			"city": "Washington",
			"state": "DC",
			"latitude": 38.902,
			"longitude": -77.019
		},
		"price_range": {"min": 20, "max": 45}
	}]}`, startDate)
}

func TestRapidAPIEventsSearch(t *testing.T) {
	tomorrow := time.Now().AddDate(0, 0, 1).Format("2006-01-02 15:04:05")
	client := &stubDoer{respond: func(req *http.Request) (*http.Response, error) {
		assert.Equal(t, "rapid-key", req.Header.Get("X-RapidAPI-Key"))
		return jsonResponse(rapidEventsBody(tomorrow)), nil
	}}
	provider := NewRapidAPIEvents(client, "rapid-key", &stubGeocoder{city: "Washington"}, discardLogger())

	events, err := provider.Search(context.Background(), types.SearchParams{
		Latitude: 38.9, Longitude: -77.0, Keyword: "jazz",
	})
	require.NoError(t, err)
	require.Len(t, events, 1)

	ev := events[0]
	assert.True(t, ev.Valid())
	assert.Contains(t, ev.ID, "rapid-")
	assert.Equal(t, "Rooftop Jazz", ev.Title)
	assert.Equal(t, types.CategoryLiveMusic, ev.Category)
	assert.Equal(t, "Concerts", ev.Subcategory)
	assert.Equal(t, "$20-$45", ev.PriceRange)
	assert.Equal(t, "Sky Lounge, 500 K St NW, Washington, DC", ev.Location.Address)

	require.Len(t, client.requests, 1)
	query := client.requests[0].URL.Query().Get("query")
	assert.Contains(t, query, "jazz in Washington from ")
}

func TestRapidAPIEventsTimeHasNoLeadingZero(t *testing.T) {
	d := time.Now().AddDate(0, 0, 1)
	start := time.Date(d.Year(), d.Month(), d.Day(), 9, 5, 0, 0, time.UTC)
	client := &stubDoer{respond: func(*http.Request) (*http.Response, error) {
		return jsonResponse(rapidEventsBody(start.Format("2006-01-02 15:04:05"))), nil
	}}
	provider := NewRapidAPIEvents(client, "rapid-key", &stubGeocoder{city: "Washington"}, discardLogger())

	events, err := provider.Search(context.Background(), types.SearchParams{Latitude: 38.9, Longitude: -77.0})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "9:05 AM", events[0].Time)
}

func TestRapidAPIEventsSearchDropsPastEvents(t *testing.T) {
	yesterday := time.Now().AddDate(0, 0, -1).Format("2006-01-02 15:04:05")
	client := &stubDoer{respond: func(*http.Request) (*http.Response, error) {
		return jsonResponse(rapidEventsBody(yesterday)), nil
	}}
	provider := NewRapidAPIEvents(client, "rapid-key", &stubGeocoder{city: "Washington"}, discardLogger())

	events, err := provider.Search(context.Background(), types.SearchParams{Latitude: 38.9, Longitude: -77.0})
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestRapidAPIEventsSearchGeocodeFailure(t *testing.T) {
	client := &stubDoer{respond: func(*http.Request) (*http.Response, error) {
		t.Fatal("no upstream call expected when geocoding fails")
		return nil, nil
	}}
	provider := NewRapidAPIEvents(client, "rapid-key", &stubGeocoder{err: errors.New("mapbox down")}, discardLogger())

	_, err := provider.Search(context.Background(), types.SearchParams{Latitude: 38.9, Longitude: -77.0})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reverse geocode")
}

func TestFormatPriceRange(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{`"$15-$30"`, "$15-$30"},
		{`42`, "$42"},
		{`{"min": 20, "max": 45.5}`, "$20-$45.5"},
		{`{"min": 0, "max": 45}`, "Price TBA"},
		{`null`, "Price TBA"},
		{``, "Price TBA"},
		{`[1,2]`, "Price TBA"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, formatPriceRange(json.RawMessage(tc.raw)), "raw=%s", tc.raw)
	}
}

func TestParseUpstreamTimestamp(t *testing.T) {
	for _, value := range []string{
		"2024-06-01T19:00:00Z",
		"2024-06-01 19:00:00",
		"2024-06-01T19:00:00",
		"2024-06-01",
	} {
		ts, err := parseUpstreamTimestamp(value)
		require.NoError(t, err, value)
		assert.Equal(t, 2024, ts.Year())
	}

	_, err := parseUpstreamTimestamp("next Tuesday")
	assert.Error(t, err)
}
