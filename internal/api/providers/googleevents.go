package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/dateai/dateai-server/internal/types"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const serpapiBaseURL = "https://serpapi.com/search.json"

// mapCoordsPattern pulls latitude/longitude out of the serpapi maps link,
// the only place the google_events engine exposes venue coordinates.
var mapCoordsPattern = regexp.MustCompile(`!3d(-?\d+\.\d+)!4d(-?\d+\.\d+)`)

// GoogleEvents adapts Google Events results served through SerpAPI.
type GoogleEvents struct {
	logger  *slog.Logger
	client  Doer
	apiKey  string
	baseURL string
}

var _ EventProvider = (*GoogleEvents)(nil)

func NewGoogleEvents(client Doer, apiKey string, logger *slog.Logger) *GoogleEvents {
	return &GoogleEvents{
		logger:  logger,
		client:  client,
		apiKey:  apiKey,
		baseURL: serpapiBaseURL,
	}
}

type googleEvent struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Thumbnail   string   `json:"thumbnail"`
	Address     []string `json:"address"`
	Date        struct {
		When string `json:"when"`
	} `json:"date"`
	EventLocationMap *struct {
		SerpapiLink string `json:"serpapi_link"`
	} `json:"event_location_map"`
	TicketInfo []struct {
		Link string `json:"link"`
	} `json:"ticket_info"`
	Venue *struct {
		Name    string  `json:"name"`
		Rating  float64 `json:"rating"`
		Reviews int     `json:"reviews"`
	} `json:"venue"`
}

type googleResponse struct {
	EventsResults []googleEvent `json:"events_results"`
}

func (g *GoogleEvents) Name() string { return "google" }

func (g *GoogleEvents) Search(ctx context.Context, params types.SearchParams) ([]types.Event, error) {
	ctx, span := otel.Tracer("Providers").Start(ctx, "GoogleEvents.Search")
	defer span.End()

	if params.Latitude == 0 || params.Longitude == 0 {
		return nil, nil
	}

	city := params.Keyword
	if city == "" {
		city = "events"
	}
	query := url.Values{}
	query.Set("engine", "google_events")
	query.Set("q", "Events in "+city)
	query.Set("hl", "en")
	query.Set("gl", "us")
	query.Set("api_key", g.apiKey)

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"?"+query.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := g.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			g.logger.WarnContext(ctx, "SerpAPI request timed out")
		}
		span.RecordError(err)
		return nil, fmt.Errorf("google events: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("google events: status %d", resp.StatusCode)
		span.RecordError(err)
		return nil, err
	}

	var body googleResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("google events: %w", err)
	}

	events := make([]types.Event, 0, len(body.EventsResults))
	for i := range body.EventsResults {
		if ev, ok := formatGoogleEvent(&body.EventsResults[i]); ok {
			events = append(events, ev)
		}
	}

	span.SetAttributes(attribute.Int("events.count", len(events)))
	span.SetStatus(codes.Ok, "Google events fetched")
	return events, nil
}

func formatGoogleEvent(ev *googleEvent) (types.Event, bool) {
	lat, lon, ok := extractMapCoords(ev)
	if !ok {
		return types.Event{}, false
	}

	datePart, timePart := splitWhen(ev.Date.When)
	if timePart == "" {
		timePart = "Time TBA"
	}

	description := ev.Description
	if description == "" {
		description = "No description available"
	}

	address := "Location TBA"
	if len(ev.Address) > 0 {
		address = strings.Join(ev.Address, ", ")
	}

	venueName := "Venue TBA"
	var rating float64
	var reviews int
	if ev.Venue != nil {
		venueName = ev.Venue.Name
		rating = ev.Venue.Rating
		reviews = ev.Venue.Reviews
	} else if len(ev.Address) > 0 {
		venueName = ev.Address[0]
	}

	city, state := "", ""
	if len(ev.Address) > 1 {
		parts := strings.SplitN(ev.Address[1], ", ", 2)
		city = parts[0]
		if len(parts) > 1 {
			state = parts[1]
		}
	}

	ticketURL := ""
	if len(ev.TicketInfo) > 0 {
		ticketURL = ev.TicketInfo[0].Link
	}

	return types.Event{
		ID:          fmt.Sprintf("google-%d-%s", time.Now().UnixMilli(), uuid.NewString()[:8]),
		Title:       ev.Title,
		Description: description,
		Date:        datePart,
		Time:        timePart,
		Location: types.EventLocation{
			Latitude:  lat,
			Longitude: lon,
			Address:   address,
		},
		Category:    ClassifyCategory(ev.Title, "", description),
		Subcategory: "Various",
		Status:      "active",
		ImageURL:    ev.Thumbnail,
		TicketURL:   ticketURL,
		Venue: types.Venue{
			Name:    venueName,
			City:    city,
			State:   state,
			Rating:  rating,
			Reviews: reviews,
		},
	}, true
}

func extractMapCoords(ev *googleEvent) (lat, lon float64, ok bool) {
	if ev.EventLocationMap == nil {
		return 0, 0, false
	}
	m := mapCoordsPattern.FindStringSubmatch(ev.EventLocationMap.SerpapiLink)
	if m == nil {
		return 0, 0, false
	}
	lat, latErr := strconv.ParseFloat(m[1], 64)
	lon, lonErr := strconv.ParseFloat(m[2], 64)
	if latErr != nil || lonErr != nil || lat == 0 || lon == 0 {
		return 0, 0, false
	}
	return lat, lon, true
}

// splitWhen splits the "when" display string ("Sat, Jun 1, 7 - 10 PM") into
// its first two comma segments; anything after the second segment is
// dropped.
func splitWhen(when string) (datePart, timePart string) {
	if when == "" {
		return "", ""
	}
	parts := strings.Split(when, ", ")
	datePart = parts[0]
	if len(parts) > 1 {
		timePart = parts[1]
	}
	return
}
