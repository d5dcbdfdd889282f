package chat

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dateai/dateai-server/internal/api/geocode"
)

type stubCompleter struct {
	content string
	err     error
	prompts []string
}

func (s *stubCompleter) Complete(_ context.Context, prompt string) (string, error) {
	s.prompts = append(s.prompts, prompt)
	return s.content, s.err
}

type stubGeocoder struct {
	suggestions map[string][]geocode.Suggestion
}

func (s *stubGeocoder) SearchLocations(_ context.Context, query string) ([]geocode.Suggestion, error) {
	return s.suggestions[query], nil
}

func (s *stubGeocoder) ReverseCity(_ context.Context, _, _ float64) (string, error) {
	return "", nil
}

func newTestChatService(completer Completer, geocoder geocode.Service) *ServiceImpl {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewServiceImpl(completer, geocoder, logger)
}

func TestGetRecommendations(t *testing.T) {
	completer := &stubCompleter{content: sampleCompletion}
	geocoder := &stubGeocoder{suggestions: map[string][]geocode.Suggestion{
		"Blue Note, 131 W 3rd St, New York, NY": {{
			ID:        "address.1",
			PlaceName: "131 West 3rd Street, New York, New York, United States",
			Center:    [2]float64{-74.0007, 40.7308},
		}},
		// The Cellar address is left unresolvable.
	}}
	svc := newTestChatService(completer, geocoder)

	resp, err := svc.GetRecommendations(context.Background(), RecommendationParams{
		Latitude: 40.73, Longitude: -74.0, Type: RecommendNightlife,
		Preferences: []string{"jazz", "cocktails"},
	})
	require.NoError(t, err)

	assert.Equal(t, sampleCompletion, resp.Content)
	require.Len(t, resp.Events, 1, "events without a geocoding match are dropped")

	ev := resp.Events[0]
	assert.Equal(t, "Jazz at the Blue Note", ev.Title)
	assert.Equal(t, 40.7308, ev.Location.Latitude)
	assert.Equal(t, -74.0007, ev.Location.Longitude)
	assert.Equal(t, "Blue Note", ev.Venue.Name)
	assert.Equal(t, "New York", ev.Venue.City)
	assert.True(t, ev.Valid())

	require.Len(t, completer.prompts, 1)
	assert.Contains(t, completer.prompts[0], "nightlife recommendations within 5 miles")
	assert.Contains(t, completer.prompts[0], "jazz, cocktails")
}

func TestGetRecommendationsRejectsUnknownType(t *testing.T) {
	svc := newTestChatService(&stubCompleter{}, &stubGeocoder{})

	_, err := svc.GetRecommendations(context.Background(), RecommendationParams{
		Latitude: 40.73, Longitude: -74.0, Type: "weather",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown recommendation type")
}

func TestGetRecommendationsPropagatesCompletionErrors(t *testing.T) {
	completer := &stubCompleter{err: errors.New("model overloaded")}
	svc := newTestChatService(completer, &stubGeocoder{})

	_, err := svc.GetRecommendations(context.Background(), RecommendationParams{
		Latitude: 40.73, Longitude: -74.0, Type: RecommendRestaurants,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to get recommendations")
}
