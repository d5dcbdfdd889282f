package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/dateai/dateai-server/internal/types"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const eventbriteHost = "eventbrite-api3.p.rapidapi.com"

// Eventbrite adapts the Eventbrite search exposed through RapidAPI. Like
// RapidAPIEvents it searches by place name, so a reverse geocode runs first;
// with no resolvable city there is nothing to query.
type Eventbrite struct {
	logger   *slog.Logger
	client   Doer
	apiKey   string
	host     string
	geocoder Geocoder
}

var _ EventProvider = (*Eventbrite)(nil)

func NewEventbrite(client Doer, apiKey string, geocoder Geocoder, logger *slog.Logger) *Eventbrite {
	return &Eventbrite{
		logger:   logger,
		client:   client,
		apiKey:   apiKey,
		host:     eventbriteHost,
		geocoder: geocoder,
	}
}

type ebEvent struct {
	ID   string `json:"id"`
	Name struct {
		Text string `json:"text"`
	} `json:"name"`
	Description *struct {
		Text string `json:"text"`
	} `json:"description"`
	Start struct {
		Local string `json:"local"`
	} `json:"start"`
	Status   string `json:"status"`
	URL      string `json:"url"`
	Category *struct {
		Name string `json:"name"`
	} `json:"category"`
	Logo *struct {
		URL string `json:"url"`
	} `json:"logo"`
	Venue *struct {
		Name      string      `json:"name"`
		Latitude  json.Number `json:"latitude"`
		Longitude json.Number `json:"longitude"`
		Address   struct {
			Address1 string `json:"address_1"`
			City     string `json:"city"`
			Region   string `json:"region"`
		} `json:"address"`
	} `json:"venue"`
}

type ebResponse struct {
	Events []ebEvent `json:"events"`
}

func (e *Eventbrite) Name() string { return "eventbrite" }

func (e *Eventbrite) Search(ctx context.Context, params types.SearchParams) ([]types.Event, error) {
	ctx, span := otel.Tracer("Providers").Start(ctx, "Eventbrite.Search")
	defer span.End()

	if params.Latitude == 0 || params.Longitude == 0 {
		e.logger.DebugContext(ctx, "No location provided for Eventbrite search")
		return nil, nil
	}

	city, err := e.geocoder.ReverseCity(ctx, params.Latitude, params.Longitude)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("eventbrite reverse geocode: %w", err)
	}
	if city == "" {
		e.logger.DebugContext(ctx, "Could not determine city name for Eventbrite search")
		return nil, nil
	}

	radius := params.Radius
	if radius == 0 {
		radius = 10
	}

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	endpoint := fmt.Sprintf("https://%s/events/search?location.address=%s&location.within=%dkm",
		e.host, url.QueryEscape(city), int(radius))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-RapidAPI-Key", e.apiKey)
	req.Header.Set("X-RapidAPI-Host", e.host)

	resp, err := e.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			e.logger.WarnContext(ctx, "Eventbrite request timed out")
		}
		span.RecordError(err)
		return nil, fmt.Errorf("eventbrite events: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("eventbrite events: status %d", resp.StatusCode)
		span.RecordError(err)
		return nil, err
	}

	var body ebResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("eventbrite events: %w", err)
	}

	events := make([]types.Event, 0, len(body.Events))
	for i := range body.Events {
		if ev, ok := formatEventbriteEvent(&body.Events[i]); ok {
			events = append(events, ev)
		}
	}

	span.SetAttributes(attribute.Int("events.count", len(events)))
	span.SetStatus(codes.Ok, "Eventbrite events fetched")
	return events, nil
}

func formatEventbriteEvent(ev *ebEvent) (types.Event, bool) {
	if ev.Venue == nil {
		return types.Event{}, false
	}
	lat, latErr := ev.Venue.Latitude.Float64()
	lon, lonErr := ev.Venue.Longitude.Float64()
	if latErr != nil || lonErr != nil || lat == 0 || lon == 0 {
		return types.Event{}, false
	}

	start, err := time.Parse("2006-01-02T15:04:05", ev.Start.Local)
	if err != nil {
		return types.Event{}, false
	}

	description := "No description available"
	if ev.Description != nil && ev.Description.Text != "" {
		description = ev.Description.Text
	}
	subcategory := "Various"
	categoryName := ""
	if ev.Category != nil {
		subcategory = ev.Category.Name
		categoryName = ev.Category.Name
	}
	imageURL := ""
	if ev.Logo != nil {
		imageURL = ev.Logo.URL
	}

	return types.Event{
		ID:          "eventbrite-" + ev.ID,
		Title:       ev.Name.Text,
		Description: description,
		Date:        start.Format("1/2/2006"),
		Time:        start.Format("3:04 PM"),
		Location: types.EventLocation{
			Latitude:  lat,
			Longitude: lon,
			Address: joinNonEmpty(", ",
				ev.Venue.Name, ev.Venue.Address.Address1, ev.Venue.Address.City, ev.Venue.Address.Region),
		},
		Category:    ClassifyCategory(ev.Name.Text, categoryName, description),
		Subcategory: subcategory,
		Status:      ev.Status,
		ImageURL:    imageURL,
		TicketURL:   ev.URL,
		Venue: types.Venue{
			Name:  ev.Venue.Name,
			City:  ev.Venue.Address.City,
			State: ev.Venue.Address.Region,
		},
	}, true
}
