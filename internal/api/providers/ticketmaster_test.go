package providers

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dateai/dateai-server/internal/types"
)

type stubDoer struct {
	respond  func(req *http.Request) (*http.Response, error)
	requests []*http.Request
}

func (s *stubDoer) Do(req *http.Request) (*http.Response, error) {
	s.requests = append(s.requests, req)
	return s.respond(req)
}

func jsonResponse(body string) *http.Response {
	return &http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const tmPage = `{
  "_embedded": {"events": [{
    "id": "abc123",
    "name": "Jazz Night",
    "info": "An evening of jazz",
    "url": "https://tm.example/abc123",
    "dates": {"start": {"dateTime": "2024-06-01T23:30:00Z"}, "status": {"code": "onsale"}},
    "classifications": [{"segment": {"name": "Music"}, "genre": {"name": "Jazz"}}],
    "priceRanges": [{"min": 25, "max": 50.5}],
    "images": [
      {"url": "https://img.example/small.jpg", "ratio": "4_3", "width": 640},
      {"url": "https://img.example/wide.jpg", "ratio": "16_9", "width": 2048}
    ],
    "_embedded": {"venues": [{
      "name": "Blue Note",
      "city": {"name": "Washington"},
      "state": {"stateCode": "DC"},
      "location": {"latitude": "38.9", "longitude": "-77.0"},
      "capacity": 300
    }]}
  }]},
  "page": {"totalPages": 1}
}`

func TestTicketmasterSearchFormatsEvents(t *testing.T) {
	client := &stubDoer{respond: func(*http.Request) (*http.Response, error) {
		return jsonResponse(tmPage), nil
	}}
	tm := NewTicketmaster(client, "tm-key", discardLogger())

	events, err := tm.Search(context.Background(), types.SearchParams{Latitude: 38.9, Longitude: -77.0})
	require.NoError(t, err)
	require.Len(t, events, 1)

	ev := events[0]
	assert.Equal(t, "ticketmaster-abc123", ev.ID)
	assert.Equal(t, "Jazz Night", ev.Title)
	assert.Equal(t, "An evening of jazz", ev.Description)
	assert.Equal(t, "6/1/2024", ev.Date)
	assert.Equal(t, "11:30 PM", ev.Time)
	assert.Equal(t, types.CategoryLiveMusic, ev.Category)
	assert.Equal(t, "Jazz", ev.Subcategory)
	assert.Equal(t, "$25-$50.5", ev.PriceRange)
	assert.Equal(t, "onsale", ev.Status)
	assert.Equal(t, "https://img.example/wide.jpg", ev.ImageURL, "prefers the wide high-res image")
	assert.Equal(t, "Blue Note, Washington, DC", ev.Location.Address)
	assert.Equal(t, 38.9, ev.Location.Latitude)
	assert.True(t, ev.Valid())
}

func TestTicketmasterSearchRequiresCoordinates(t *testing.T) {
	client := &stubDoer{respond: func(*http.Request) (*http.Response, error) {
		t.Fatal("no request expected with no coordinates")
		return nil, nil
	}}
	tm := NewTicketmaster(client, "tm-key", discardLogger())

	events, err := tm.Search(context.Background(), types.SearchParams{})
	require.NoError(t, err)
	assert.Nil(t, events)
}

func TestTicketmasterSearchQueryParameters(t *testing.T) {
	client := &stubDoer{respond: func(*http.Request) (*http.Response, error) {
		return jsonResponse(`{"page":{"totalPages":0}}`), nil
	}}
	tm := NewTicketmaster(client, "tm-key", discardLogger())

	_, err := tm.Search(context.Background(), types.SearchParams{
		Latitude: 38.9, Longitude: -77.0, Radius: 25, Keyword: "jazz",
	})
	require.NoError(t, err)
	require.Len(t, client.requests, 1)

	q := client.requests[0].URL.Query()
	assert.Equal(t, "tm-key", q.Get("apikey"))
	assert.Equal(t, "38.9,-77", q.Get("latlong"))
	assert.Equal(t, "25", q.Get("radius"))
	assert.Equal(t, "miles", q.Get("unit"))
	assert.Equal(t, "jazz", q.Get("keyword"))
	assert.Equal(t, "date,asc", q.Get("sort"))
	assert.Equal(t, "100", q.Get("size"))
}

func TestTicketmasterFetchStopsAtTotalPages(t *testing.T) {
	client := &stubDoer{respond: func(*http.Request) (*http.Response, error) {
		return jsonResponse(strings.Replace(tmPage, `"totalPages": 1`, `"totalPages": 2`, 1)), nil
	}}
	tm := NewTicketmaster(client, "tm-key", discardLogger())

	_, err := tm.Search(context.Background(), types.SearchParams{Latitude: 38.9, Longitude: -77.0})
	require.NoError(t, err)
	assert.Len(t, client.requests, 2)
}

func TestTicketmasterSearchPropagatesUpstreamErrors(t *testing.T) {
	client := &stubDoer{respond: func(*http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusTooManyRequests,
			Body:       io.NopCloser(strings.NewReader("rate limited")),
		}, nil
	}}
	tm := NewTicketmaster(client, "tm-key", discardLogger())

	_, err := tm.Search(context.Background(), types.SearchParams{Latitude: 38.9, Longitude: -77.0})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 429")
}
