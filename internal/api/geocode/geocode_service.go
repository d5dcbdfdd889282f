package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/patrickmn/go-cache"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/dateai/dateai-server/internal/api/providers"
)

const (
	mapboxBaseURL = "https://api.mapbox.com/geocoding/v5/mapbox.places"

	// CacheDuration is the freshness window for forward geocoding results.
	// Entries are kept past expiry and served stale when Mapbox is down.
	CacheDuration = 24 * time.Hour

	suggestionLimit = 5
	minQueryLength  = 2

	requestTimeout = 30 * time.Second
)

// Suggestion is one forward-geocoding candidate. Center is [longitude,
// latitude], the GeoJSON axis order Mapbox uses.
type Suggestion struct {
	ID        string     `json:"id"`
	PlaceName string     `json:"place_name"`
	Center    [2]float64 `json:"center"`
}

type cachedSuggestions struct {
	suggestions []Suggestion
	fetchedAt   time.Time
}

var _ Service = (*ServiceImpl)(nil)

// Service resolves free text to place suggestions and coordinates to city
// names.
type Service interface {
	SearchLocations(ctx context.Context, query string) ([]Suggestion, error)
	ReverseCity(ctx context.Context, latitude, longitude float64) (string, error)
}

// ServiceImpl is a Mapbox geocoding client. Forward lookups are cached for
// 24 hours; an expired entry is still served when the upstream call fails.
type ServiceImpl struct {
	logger      *slog.Logger
	client      providers.Doer
	accessToken string
	baseURL     string
	cache       *cache.Cache
}

// NewServiceImpl builds the geocoder. The cache should be created with
// cache.NoExpiration as default TTL; freshness is tracked per entry so that
// stale results stay reachable.
func NewServiceImpl(client providers.Doer, accessToken string, locationCache *cache.Cache, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{
		logger:      logger,
		client:      client,
		accessToken: accessToken,
		baseURL:     mapboxBaseURL,
		cache:       locationCache,
	}
}

type mapboxFeature struct {
	ID        string     `json:"id"`
	Text      string     `json:"text"`
	PlaceName string     `json:"place_name"`
	Center    [2]float64 `json:"center"`
}

type mapboxResponse struct {
	Features []mapboxFeature `json:"features"`
}

// SearchLocations returns up to five place suggestions for a free-text
// query. Upstream failures fall back to a stale cache entry when one
// exists, otherwise to an empty result; the caller never sees the error.
func (s *ServiceImpl) SearchLocations(ctx context.Context, query string) ([]Suggestion, error) {
	ctx, span := otel.Tracer("GeocodeService").Start(ctx, "SearchLocations")
	defer span.End()
	span.SetAttributes(attribute.String("geocode.query", query))

	if len(query) < minQueryLength {
		return []Suggestion{}, nil
	}

	var stale []Suggestion
	if cached, found := s.cache.Get(query); found {
		entry, ok := cached.(cachedSuggestions)
		if ok && time.Since(entry.fetchedAt) < CacheDuration {
			span.SetStatus(codes.Ok, "Served from cache")
			return entry.suggestions, nil
		}
		if ok {
			stale = entry.suggestions
		}
	}

	suggestions, err := s.forward(ctx, query)
	if err != nil {
		s.logger.WarnContext(ctx, "Mapbox search failed", slog.Any("error", err))
		span.RecordError(err)
		if stale != nil {
			s.logger.InfoContext(ctx, "Serving expired geocode cache entry",
				slog.String("query", query))
			span.SetStatus(codes.Ok, "Served stale cache entry")
			return stale, nil
		}
		span.SetStatus(codes.Ok, "Served empty result")
		return []Suggestion{}, nil
	}

	s.cache.Set(query, cachedSuggestions{suggestions: suggestions, fetchedAt: time.Now()}, cache.NoExpiration)
	span.SetStatus(codes.Ok, "Served from upstream")
	return suggestions, nil
}

func (s *ServiceImpl) forward(ctx context.Context, query string) ([]Suggestion, error) {
	endpoint := fmt.Sprintf("%s/%s.json?access_token=%s&types=place,locality,neighborhood,address&limit=%d",
		s.baseURL, url.PathEscape(query), url.QueryEscape(s.accessToken), suggestionLimit)

	body, err := s.fetch(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	suggestions := make([]Suggestion, 0, len(body.Features))
	for _, f := range body.Features {
		suggestions = append(suggestions, Suggestion{
			ID:        f.ID,
			PlaceName: f.PlaceName,
			Center:    f.Center,
		})
	}
	return suggestions, nil
}

// ReverseCity resolves coordinates to a city name. An empty string with a
// nil error means Mapbox matched nothing at that point.
func (s *ServiceImpl) ReverseCity(ctx context.Context, latitude, longitude float64) (string, error) {
	ctx, span := otel.Tracer("GeocodeService").Start(ctx, "ReverseCity")
	defer span.End()

	endpoint := fmt.Sprintf("%s/%g,%g.json?types=place&access_token=%s",
		s.baseURL, longitude, latitude, url.QueryEscape(s.accessToken))

	body, err := s.fetch(ctx, endpoint)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Reverse geocode failed")
		return "", err
	}
	if len(body.Features) == 0 {
		span.SetStatus(codes.Ok, "No match")
		return "", nil
	}
	span.SetStatus(codes.Ok, "City resolved")
	return body.Features[0].Text, nil
}

func (s *ServiceImpl) fetch(ctx context.Context, endpoint string) (*mapboxResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("mapbox request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("mapbox request: status %d", resp.StatusCode)
	}

	var body mapboxResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("mapbox request: %w", err)
	}
	return &body, nil
}
