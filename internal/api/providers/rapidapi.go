package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dateai/dateai-server/internal/types"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	rapidEventsHost  = "real-time-events-search.p.rapidapi.com"
	rapidEventsLimit = 100
)

// RapidAPIEvents adapts the real-time-events-search RapidAPI upstream. The
// upstream searches by free text, so coordinates are first resolved to a
// city name through the geocoder.
type RapidAPIEvents struct {
	logger   *slog.Logger
	client   Doer
	apiKey   string
	host     string
	geocoder Geocoder
}

var _ EventProvider = (*RapidAPIEvents)(nil)

func NewRapidAPIEvents(client Doer, apiKey string, geocoder Geocoder, logger *slog.Logger) *RapidAPIEvents {
	return &RapidAPIEvents{
		logger:   logger,
		client:   client,
		apiKey:   apiKey,
		host:     rapidEventsHost,
		geocoder: geocoder,
	}
}

type rapidVenue struct {
	Name        string      `json:"name"`
	Address     string      `json:"full_address"`
	City        string      `json:"city"`
	State       string      `json:"state"`
	Latitude    json.Number `json:"latitude"`
	Longitude   json.Number `json:"longitude"`
	Capacity    int         `json:"capacity"`
	Description string      `json:"description"`
}

type rapidPerformer struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	ImageURL string `json:"image_url"`
	URL      string `json:"url"`
}

type rapidEvent struct {
	Name        string           `json:"name"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Category    string           `json:"category"`
	StartDate   string           `json:"start_date"`
	Venue       *rapidVenue      `json:"venue"`
	ImageURL    string           `json:"image_url"`
	TicketURL   string           `json:"ticket_url"`
	PriceRange  json.RawMessage  `json:"price_range"`
	Performers  []rapidPerformer `json:"performers"`
}

type rapidResponse struct {
	Data []rapidEvent `json:"data"`
}

func (r *RapidAPIEvents) Name() string { return "rapidapi" }

func (r *RapidAPIEvents) Search(ctx context.Context, params types.SearchParams) ([]types.Event, error) {
	ctx, span := otel.Tracer("Providers").Start(ctx, "RapidAPIEvents.Search")
	defer span.End()

	if params.Latitude == 0 || params.Longitude == 0 {
		r.logger.DebugContext(ctx, "No location provided for RapidAPI search")
		return nil, nil
	}

	city, err := r.geocoder.ReverseCity(ctx, params.Latitude, params.Longitude)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("rapidapi reverse geocode: %w", err)
	}
	if city == "" {
		city = "Events"
	}

	keyword := params.Keyword
	if keyword == "" {
		keyword = "Events"
	}
	query := fmt.Sprintf("%s in %s from %s", keyword, city, time.Now().Format("1/2/2006"))

	events, err := r.fetchEvents(ctx, query)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "RapidAPI fetch failed")
		return nil, err
	}

	span.SetAttributes(attribute.Int("events.count", len(events)))
	span.SetStatus(codes.Ok, "RapidAPI events fetched")
	return events, nil
}

func (r *RapidAPIEvents) fetchEvents(ctx context.Context, query string) ([]types.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	endpoint := fmt.Sprintf("https://%s/search-events?query=%s&limit=%d",
		r.host, url.QueryEscape(query), rapidEventsLimit)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-RapidAPI-Key", r.apiKey)
	req.Header.Set("X-RapidAPI-Host", r.host)

	resp, err := r.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			r.logger.WarnContext(ctx, "RapidAPI request timed out")
		}
		return nil, fmt.Errorf("rapidapi events: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rapidapi events: status %d", resp.StatusCode)
	}

	var body rapidResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("rapidapi events: %w", err)
	}

	today := startOfDay(time.Now())
	events := make([]types.Event, 0, len(body.Data))
	for i := range body.Data {
		if ev, ok := r.formatEvent(&body.Data[i], today); ok && ev.Valid() {
			events = append(events, ev)
		}
	}
	return events, nil
}

func (r *RapidAPIEvents) formatEvent(ev *rapidEvent, today time.Time) (types.Event, bool) {
	if ev.Venue == nil {
		return types.Event{}, false
	}
	lat, latErr := ev.Venue.Latitude.Float64()
	lon, lonErr := ev.Venue.Longitude.Float64()
	if latErr != nil || lonErr != nil || lat == 0 || lon == 0 {
		return types.Event{}, false
	}

	start, err := parseUpstreamTimestamp(ev.StartDate)
	if err != nil {
		return types.Event{}, false
	}
	// Past events are not worth surfacing.
	if start.Before(today) {
		return types.Event{}, false
	}

	title := ev.Name
	if title == "" {
		title = ev.Title
	}
	description := ev.Description
	if description == "" {
		description = "No description available"
	}
	subcategory := ev.Category
	if subcategory == "" {
		subcategory = "Various"
	}

	address := joinNonEmpty(", ", ev.Venue.Name, ev.Venue.Address, ev.Venue.City, ev.Venue.State)

	var attractions []types.Attraction
	for _, p := range ev.Performers {
		attractions = append(attractions, types.Attraction{
			Name:  p.Name,
			Type:  p.Type,
			Image: p.ImageURL,
			URL:   p.URL,
		})
	}

	return types.Event{
		ID:          fmt.Sprintf("rapid-%d-%s", time.Now().UnixMilli(), uuid.NewString()[:8]),
		Title:       title,
		Description: description,
		Date:        start.Format("Monday, January 2, 2006"),
		Time:        start.Format("3:04 PM"),
		Location: types.EventLocation{
			Latitude:  lat,
			Longitude: lon,
			Address:   address,
		},
		Category:    ClassifyCategory(title, ev.Category, ev.Description),
		Subcategory: subcategory,
		Status:      "active",
		ImageURL:    ev.ImageURL,
		TicketURL:   ev.TicketURL,
		PriceRange:  formatPriceRange(ev.PriceRange),
		Venue: types.Venue{
			Name:        ev.Venue.Name,
			City:        ev.Venue.City,
			State:       ev.Venue.State,
			Capacity:    ev.Venue.Capacity,
			GeneralInfo: ev.Venue.Description,
		},
		Attractions: attractions,
	}, true
}

// formatPriceRange tolerates the three shapes the upstream emits for
// price_range: a plain string, a bare number, or a {min,max} object.
func formatPriceRange(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return "Price TBA"
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return "$" + strconv.FormatFloat(n, 'f', -1, 64)
	}
	var bounds struct {
		Min float64 `json:"min"`
		Max float64 `json:"max"`
	}
	if err := json.Unmarshal(raw, &bounds); err == nil && bounds.Min != 0 && bounds.Max != 0 {
		return fmt.Sprintf("$%s-$%s",
			strconv.FormatFloat(bounds.Min, 'f', -1, 64),
			strconv.FormatFloat(bounds.Max, 'f', -1, 64))
	}
	return "Price TBA"
}

var upstreamTimestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func parseUpstreamTimestamp(value string) (time.Time, error) {
	for _, layout := range upstreamTimestampLayouts {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", value)
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func joinNonEmpty(sep string, parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}
