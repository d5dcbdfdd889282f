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
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	ticketmasterBaseURL = "https://app.ticketmaster.com/discovery/v2"

	// The Discovery API caps page*size at 1000; we stop well before that.
	ticketmasterPageSize  = 100
	ticketmasterMaxPages  = 4
	ticketmasterMaxEvents = 400
)

// Ticketmaster adapts the Ticketmaster Discovery API. It is the only
// paginated provider: pages are fetched sequentially under one shared
// deadline and the fetch stops early when a page carries no embedded events.
type Ticketmaster struct {
	logger  *slog.Logger
	client  Doer
	apiKey  string
	baseURL string
}

var _ EventProvider = (*Ticketmaster)(nil)

func NewTicketmaster(client Doer, apiKey string, logger *slog.Logger) *Ticketmaster {
	return &Ticketmaster{
		logger:  logger,
		client:  client,
		apiKey:  apiKey,
		baseURL: ticketmasterBaseURL,
	}
}

type tmImage struct {
	URL   string `json:"url"`
	Ratio string `json:"ratio"`
	Width int    `json:"width"`
}

type tmVenue struct {
	Name string `json:"name"`
	City struct {
		Name string `json:"name"`
	} `json:"city"`
	State *struct {
		StateCode string `json:"stateCode"`
	} `json:"state"`
	Location *struct {
		Latitude  string `json:"latitude"`
		Longitude string `json:"longitude"`
	} `json:"location"`
	Capacity    int `json:"capacity"`
	GeneralInfo *struct {
		GeneralRule string `json:"generalRule"`
	} `json:"generalInfo"`
}

type tmAttraction struct {
	Name   string    `json:"name"`
	Type   string    `json:"type"`
	URL    string    `json:"url"`
	Images []tmImage `json:"images"`
}

type tmEvent struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Info        string `json:"info"`
	PleaseNote  string `json:"pleaseNote"`
	URL         string `json:"url"`
	Images      []tmImage
	Dates       struct {
		Start struct {
			DateTime  string `json:"dateTime"`
			LocalDate string `json:"localDate"`
			LocalTime string `json:"localTime"`
		} `json:"start"`
		Status struct {
			Code string `json:"code"`
		} `json:"status"`
	} `json:"dates"`
	Classifications []struct {
		Segment *struct {
			Name string `json:"name"`
		} `json:"segment"`
		Genre *struct {
			Name string `json:"name"`
		} `json:"genre"`
	} `json:"classifications"`
	PriceRanges []struct {
		Min float64 `json:"min"`
		Max float64 `json:"max"`
	} `json:"priceRanges"`
	Embedded *struct {
		Venues      []tmVenue      `json:"venues"`
		Attractions []tmAttraction `json:"attractions"`
	} `json:"_embedded"`
}

type tmResponse struct {
	Embedded *struct {
		Events []tmEvent `json:"events"`
	} `json:"_embedded"`
	Page struct {
		TotalPages int `json:"totalPages"`
	} `json:"page"`
}

func (t *Ticketmaster) Name() string { return "ticketmaster" }

func (t *Ticketmaster) Search(ctx context.Context, params types.SearchParams) ([]types.Event, error) {
	ctx, span := otel.Tracer("Providers").Start(ctx, "Ticketmaster.Search")
	defer span.End()

	if params.Latitude == 0 || params.Longitude == 0 {
		return nil, nil
	}

	query := url.Values{}
	query.Set("apikey", t.apiKey)
	query.Set("size", strconv.Itoa(ticketmasterPageSize))
	query.Set("unit", "miles")
	query.Set("sort", "date,asc")
	query.Set("includeTBA", "yes")
	query.Set("includeTest", "no")
	query.Set("latlong", fmt.Sprintf("%g,%g", params.Latitude, params.Longitude))
	radius := params.Radius
	if radius == 0 {
		radius = 10
	}
	query.Set("radius", strconv.Itoa(int(radius)))
	if params.Keyword != "" {
		query.Set("keyword", params.Keyword)
	}
	query.Set("startDateTime", time.Now().UTC().Format("2006-01-02T15:04:05Z"))

	raw, err := t.fetchAllPages(ctx, query)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Ticketmaster fetch failed")
		return nil, err
	}

	events := make([]types.Event, 0, len(raw))
	for i := range raw {
		if ev, ok := t.formatEvent(&raw[i]); ok {
			events = append(events, ev)
		}
	}

	span.SetAttributes(attribute.Int("events.count", len(events)))
	span.SetStatus(codes.Ok, "Ticketmaster events fetched")
	return events, nil
}

// fetchAllPages walks the paginated response under a single deadline shared
// by every page request.
func (t *Ticketmaster) fetchAllPages(ctx context.Context, query url.Values) ([]tmEvent, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	var all []tmEvent
	for page := 0; page < ticketmasterMaxPages && len(all) < ticketmasterMaxEvents; page++ {
		query.Set("page", strconv.Itoa(page))

		req, err := http.NewRequestWithContext(ctx, http.MethodGet,
			fmt.Sprintf("%s/events.json?%s", t.baseURL, query.Encode()), nil)
		if err != nil {
			return nil, err
		}

		resp, err := t.client.Do(req)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				t.logger.WarnContext(ctx, "Ticketmaster request timed out", slog.Int("page", page))
			}
			return nil, fmt.Errorf("ticketmaster page %d: %w", page, err)
		}

		var body tmResponse
		decodeErr := json.NewDecoder(resp.Body).Decode(&body)
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("ticketmaster page %d: status %d", page, resp.StatusCode)
		}
		if decodeErr != nil {
			return nil, fmt.Errorf("ticketmaster page %d: %w", page, decodeErr)
		}

		if body.Embedded == nil || len(body.Embedded.Events) == 0 {
			break
		}
		all = append(all, body.Embedded.Events...)
		if body.Page.TotalPages <= page+1 {
			break
		}
	}

	if len(all) > ticketmasterMaxEvents {
		all = all[:ticketmasterMaxEvents]
	}
	return all, nil
}

func (t *Ticketmaster) formatEvent(ev *tmEvent) (types.Event, bool) {
	if ev.Embedded == nil || len(ev.Embedded.Venues) == 0 {
		return types.Event{}, false
	}
	venue := ev.Embedded.Venues[0]
	if venue.Location == nil {
		return types.Event{}, false
	}
	lat, latErr := strconv.ParseFloat(venue.Location.Latitude, 64)
	lon, lonErr := strconv.ParseFloat(venue.Location.Longitude, 64)
	if latErr != nil || lonErr != nil || lat == 0 || lon == 0 {
		return types.Event{}, false
	}

	description := ev.Description
	if description == "" {
		description = ev.Info
	}
	if description == "" {
		description = ev.PleaseNote
	}
	if description == "" {
		description = "No description available"
	}

	date, timeOfDay := tmEventSchedule(ev)

	state := ""
	if venue.State != nil {
		state = venue.State.StateCode
	}

	priceRange := "Price TBA"
	if len(ev.PriceRanges) > 0 {
		priceRange = fmt.Sprintf("$%s-$%s",
			strconv.FormatFloat(ev.PriceRanges[0].Min, 'f', -1, 64),
			strconv.FormatFloat(ev.PriceRanges[0].Max, 'f', -1, 64))
	}

	generalInfo := ""
	if venue.GeneralInfo != nil {
		generalInfo = venue.GeneralInfo.GeneralRule
	}

	var attractions []types.Attraction
	for _, a := range ev.Embedded.Attractions {
		image := ""
		if len(a.Images) > 0 {
			image = a.Images[0].URL
		}
		attractions = append(attractions, types.Attraction{
			Name:  a.Name,
			Type:  a.Type,
			Image: image,
			URL:   a.URL,
		})
	}

	return types.Event{
		ID:          "ticketmaster-" + ev.ID,
		Title:       ev.Name,
		Description: description,
		Date:        date,
		Time:        timeOfDay,
		Location: types.EventLocation{
			Latitude:  lat,
			Longitude: lon,
			Address:   fmt.Sprintf("%s, %s, %s", venue.Name, venue.City.Name, state),
		},
		Category:    mapTicketmasterCategory(ev),
		Subcategory: tmGenre(ev),
		PriceRange:  priceRange,
		Status:      ev.Dates.Status.Code,
		ImageURL:    pickImage(ev.Images),
		TicketURL:   ev.URL,
		Venue: types.Venue{
			Name:        venue.Name,
			City:        venue.City.Name,
			State:       state,
			Capacity:    venue.Capacity,
			GeneralInfo: generalInfo,
		},
		Attractions: attractions,
	}, true
}

func tmEventSchedule(ev *tmEvent) (date, timeOfDay string) {
	start := ev.Dates.Start
	date = "Date TBA"
	timeOfDay = "Time TBA"

	if start.DateTime != "" {
		if ts, err := time.Parse(time.RFC3339, start.DateTime); err == nil {
			date = ts.Format("1/2/2006")
			timeOfDay = ts.Format("3:04 PM")
			return
		}
	}
	if start.LocalDate != "" {
		if ts, err := time.Parse("2006-01-02", start.LocalDate); err == nil {
			date = ts.Format("1/2/2006")
		}
	}
	if start.LocalTime != "" {
		timeOfDay = start.LocalTime
	}
	return
}

// mapTicketmasterCategory maps Discovery API segment/genre names onto the
// unified categories. Ticketmaster's own taxonomy is precise enough that
// the generic keyword classifier is not used here.
func mapTicketmasterCategory(ev *tmEvent) types.EventCategory {
	if len(ev.Classifications) == 0 || ev.Classifications[0].Segment == nil {
		return types.CategorySpecial
	}
	segment := strings.ToLower(ev.Classifications[0].Segment.Name)
	genre := strings.ToLower(tmGenre(ev))

	switch {
	case strings.Contains(genre, "comedy"):
		return types.CategoryComedy
	case strings.Contains(segment, "music"):
		return types.CategoryLiveMusic
	case strings.Contains(segment, "sports"):
		return types.CategorySportsGames
	case strings.Contains(segment, "arts"):
		return types.CategoryPerformingArts
	case strings.Contains(segment, "food"):
		return types.CategoryFoodDrink
	case strings.Contains(segment, "cultural"):
		return types.CategoryCultural
	case strings.Contains(segment, "social"):
		return types.CategorySocial
	case strings.Contains(segment, "education"):
		return types.CategoryEducational
	case strings.Contains(segment, "outdoor"):
		return types.CategoryOutdoor
	}
	return types.CategorySpecial
}

func tmGenre(ev *tmEvent) string {
	if len(ev.Classifications) > 0 && ev.Classifications[0].Genre != nil {
		return ev.Classifications[0].Genre.Name
	}
	return "Various"
}

// pickImage prefers a wide 16:9 rendition over whatever comes first.
func pickImage(images []tmImage) string {
	for _, img := range images {
		if img.Ratio == "16_9" && img.Width > 1000 {
			return img.URL
		}
	}
	if len(images) > 0 {
		return images[0].URL
	}
	return ""
}
