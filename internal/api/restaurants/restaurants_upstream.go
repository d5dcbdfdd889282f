package restaurants

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/dateai/dateai-server/internal/api/providers"
)

const (
	yelpBaseURL         = "https://api.yelp.com/v3"
	rapidRestaurantHost = "restaurants-near-me-usa.p.rapidapi.com"

	// nearDuplicateDegrees is the coordinate tolerance under which two
	// same-named listings from different sources count as one place.
	nearDuplicateDegrees = 0.0001
)

// UpstreamRestaurant is the merged record shape both restaurant sources are
// normalized into before filtering.
type UpstreamRestaurant struct {
	RestaurantID string   `json:"restaurant_id"`
	Name         string   `json:"name"`
	Cuisines     []string `json:"cuisines"`
	Address      struct {
		Street     string `json:"street"`
		City       string `json:"city"`
		State      string `json:"state"`
		PostalCode string `json:"postal_code"`
	} `json:"address"`
	Latitude    float64      `json:"latitude"`
	Longitude   float64      `json:"longitude"`
	Rating      float64      `json:"rating"`
	ReviewCount int          `json:"review_count"`
	PriceLevel  int          `json:"price_level"`
	IsOpenNow   bool         `json:"is_open_now"`
	Hours       []hoursBlock `json:"hours"`
	PhotoURL    string       `json:"photo_url"`
	Distance    float64      `json:"distance"` // meters
	Phone       string       `json:"phone"`
	DisplayPhone string      `json:"display_phone"`
	Website     string       `json:"website"`
	Transactions []string    `json:"transactions"`
	Source       string      `json:"source"`
}

type hoursBlock struct {
	HoursType string `json:"hours_type"`
	IsOpenNow bool   `json:"is_open_now"`
	Open      []struct {
		IsOvernight bool   `json:"is_overnight"`
		Start       string `json:"start"`
		End         string `json:"end"`
		Day         int    `json:"day"`
	} `json:"open"`
}

var _ Upstream = (*MergedUpstream)(nil)

// Upstream produces pre-merged, deduplicated restaurant records near a
// coordinate.
type Upstream interface {
	FetchNearby(ctx context.Context, latitude, longitude float64) ([]UpstreamRestaurant, error)
}

// MergedUpstream queries Yelp and the RapidAPI restaurant source, normalizes
// both into the merged shape and drops near-duplicate listings (same name,
// coordinates within 0.0001 degrees). Yelp records are listed first and win
// dedup collisions. A single failed source is absorbed; the fetch errors
// only when no source produced data.
type MergedUpstream struct {
	logger      *slog.Logger
	client      providers.Doer
	yelpAPIKey  string
	rapidAPIKey string
	yelpURL     string
	rapidHost   string
}

func NewMergedUpstream(client providers.Doer, yelpAPIKey, rapidAPIKey string, logger *slog.Logger) *MergedUpstream {
	return &MergedUpstream{
		logger:      logger,
		client:      client,
		yelpAPIKey:  yelpAPIKey,
		rapidAPIKey: rapidAPIKey,
		yelpURL:     yelpBaseURL,
		rapidHost:   rapidRestaurantHost,
	}
}

func (u *MergedUpstream) FetchNearby(ctx context.Context, latitude, longitude float64) ([]UpstreamRestaurant, error) {
	ctx, span := otel.Tracer("RestaurantsUpstream").Start(ctx, "FetchNearby")
	defer span.End()

	yelp, yelpErr := u.fetchYelp(ctx, latitude, longitude)
	if yelpErr != nil {
		u.logger.WarnContext(ctx, "Yelp fetch failed", slog.Any("error", yelpErr))
	}
	rapid, rapidErr := u.fetchRapidAPI(ctx, latitude, longitude)
	if rapidErr != nil {
		u.logger.WarnContext(ctx, "RapidAPI restaurant fetch failed", slog.Any("error", rapidErr))
	}

	if yelpErr != nil && rapidErr != nil {
		err := fmt.Errorf("all restaurant sources failed: %w", errors.Join(yelpErr, rapidErr))
		span.RecordError(err)
		span.SetStatus(codes.Error, "All restaurant sources failed")
		return nil, err
	}

	merged := dedupeByNameAndProximity(append(yelp, rapid...))
	span.SetAttributes(attribute.Int("restaurants.count", len(merged)))
	span.SetStatus(codes.Ok, "Restaurants merged")
	return merged, nil
}

func dedupeByNameAndProximity(all []UpstreamRestaurant) []UpstreamRestaurant {
	unique := all[:0:0]
	for _, candidate := range all {
		dup := false
		for i := range unique {
			if strings.EqualFold(unique[i].Name, candidate.Name) &&
				math.Abs(unique[i].Latitude-candidate.Latitude) < nearDuplicateDegrees &&
				math.Abs(unique[i].Longitude-candidate.Longitude) < nearDuplicateDegrees {
				dup = true
				break
			}
		}
		if !dup {
			unique = append(unique, candidate)
		}
	}
	return unique
}

type yelpBusiness struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	ImageURL   string `json:"image_url"`
	URL        string `json:"url"`
	Categories []struct {
		Alias string `json:"alias"`
		Title string `json:"title"`
	} `json:"categories"`
	Rating      float64 `json:"rating"`
	ReviewCount int     `json:"review_count"`
	Coordinates struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	} `json:"coordinates"`
	Price    string `json:"price"`
	Location struct {
		Address1 string `json:"address1"`
		City     string `json:"city"`
		State    string `json:"state"`
		ZipCode  string `json:"zip_code"`
	} `json:"location"`
	Phone        string       `json:"phone"`
	DisplayPhone string       `json:"display_phone"`
	Distance     float64      `json:"distance"`
	IsClosed     bool         `json:"is_closed"`
	Hours        []hoursBlock `json:"hours"`
	Transactions []string     `json:"transactions"`
}

func (u *MergedUpstream) fetchYelp(ctx context.Context, latitude, longitude float64) ([]UpstreamRestaurant, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	endpoint := fmt.Sprintf(
		"%s/businesses/search?latitude=%g&longitude=%g&radius=16000&sort_by=distance&limit=50",
		u.yelpURL, latitude, longitude)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+u.yelpAPIKey)
	req.Header.Set("Accept", "application/json")

	resp, err := u.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("yelp search: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("yelp search: status %d", resp.StatusCode)
	}

	var body struct {
		Businesses []yelpBusiness `json:"businesses"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("yelp search: %w", err)
	}

	out := make([]UpstreamRestaurant, 0, len(body.Businesses))
	for _, b := range body.Businesses {
		out = append(out, transformYelp(b))
	}
	return out, nil
}

func transformYelp(b yelpBusiness) UpstreamRestaurant {
	r := UpstreamRestaurant{
		RestaurantID: b.ID,
		Name:         b.Name,
		Latitude:     b.Coordinates.Latitude,
		Longitude:    b.Coordinates.Longitude,
		Rating:       b.Rating,
		ReviewCount:  b.ReviewCount,
		PriceLevel:   len(b.Price),
		IsOpenNow:    !b.IsClosed,
		Hours:        b.Hours,
		PhotoURL:     b.ImageURL,
		Distance:     b.Distance,
		Phone:        b.Phone,
		DisplayPhone: b.DisplayPhone,
		Website:      b.URL,
		Transactions: b.Transactions,
		Source:       "yelp",
	}
	if r.PriceLevel == 0 {
		r.PriceLevel = 2
	}
	for _, c := range b.Categories {
		r.Cuisines = append(r.Cuisines, c.Title)
	}
	r.Address.Street = b.Location.Address1
	r.Address.City = b.Location.City
	r.Address.State = b.Location.State
	r.Address.PostalCode = b.Location.ZipCode
	if len(r.Hours) == 0 {
		r.Hours = []hoursBlock{{HoursType: "REGULAR", IsOpenNow: !b.IsClosed}}
	}
	return r
}

type rapidRestaurant struct {
	ID      json.Number `json:"id"`
	Name    string      `json:"restaurantName"`
	Cuisine []string    `json:"cuisineType"`
	Address struct {
		Street   string `json:"street"`
		City     string `json:"city"`
		State    string `json:"state"`
		Postcode string `json:"postcode"`
	} `json:"address"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	Rating       float64 `json:"rating"`
	ReviewsCount int     `json:"reviews_count"`
	PriceLevel   int     `json:"price_level"`
	PhotoURL     string  `json:"photo_url"`
	Distance     float64 `json:"distance"`
	Phone        string  `json:"phone"`
	Website      string  `json:"website"`
}

func (u *MergedUpstream) fetchRapidAPI(ctx context.Context, latitude, longitude float64) ([]UpstreamRestaurant, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	// The upstream only supports a bounding box, so approximate the search
	// area with ±0.1 degrees around the query point.
	payload, err := json.Marshal(map[string]float64{
		"lat1":  latitude - 0.1,
		"lat2":  latitude + 0.1,
		"long1": longitude - 0.1,
		"long2": longitude + 0.1,
	})
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("https://%s/restaurants/location/within-boundary", u.rapidHost)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("content-type", "application/json")
	req.Header.Set("X-RapidAPI-Key", u.rapidAPIKey)
	req.Header.Set("X-RapidAPI-Host", u.rapidHost)

	resp, err := u.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rapidapi restaurants: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rapidapi restaurants: status %d", resp.StatusCode)
	}

	var body []rapidRestaurant
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("rapidapi restaurants: %w", err)
	}

	out := make([]UpstreamRestaurant, 0, len(body))
	for _, r := range body {
		out = append(out, transformRapidAPI(r))
	}
	return out, nil
}

func transformRapidAPI(in rapidRestaurant) UpstreamRestaurant {
	// This source carries no live hours, so assume a fixed 11:00-23:00
	// schedule every day.
	hour := time.Now().Hour()
	isOpenNow := hour >= 11 && hour < 23

	block := hoursBlock{HoursType: "REGULAR", IsOpenNow: isOpenNow}
	for day := 0; day < 7; day++ {
		block.Open = append(block.Open, struct {
			IsOvernight bool   `json:"is_overnight"`
			Start       string `json:"start"`
			End         string `json:"end"`
			Day         int    `json:"day"`
		}{Start: "1100", End: "2300", Day: day})
	}

	r := UpstreamRestaurant{
		RestaurantID: in.ID.String(),
		Name:         in.Name,
		Cuisines:     in.Cuisine,
		Latitude:     in.Latitude,
		Longitude:    in.Longitude,
		Rating:       in.Rating,
		ReviewCount:  in.ReviewsCount,
		PriceLevel:   in.PriceLevel,
		IsOpenNow:    isOpenNow,
		Hours:        []hoursBlock{block},
		PhotoURL:     in.PhotoURL,
		Distance:     in.Distance,
		Phone:        in.Phone,
		Website:      in.Website,
		Transactions: []string{"delivery", "pickup", "restaurant_reservation"},
		Source:       "rapidapi",
	}
	if r.Rating == 0 {
		r.Rating = 4.0
	}
	if r.PriceLevel == 0 {
		r.PriceLevel = 2
	}
	r.Address.Street = in.Address.Street
	r.Address.City = in.Address.City
	r.Address.State = in.Address.State
	r.Address.PostalCode = in.Address.Postcode
	return r
}
