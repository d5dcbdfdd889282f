package restaurants

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/dateai/dateai-server/internal/geo"
	"github.com/dateai/dateai-server/internal/types"
)

const (
	// CacheDuration is shorter than the event cache: restaurant open state
	// changes within the hour.
	CacheDuration = 5 * time.Minute

	PageSize = 20

	defaultImageURL = "https://images.unsplash.com/photo-1517248135467-4c7edcad34c4"
)

// stockPhotos pads the gallery when an upstream only carries one image.
var stockPhotos = []string{
	"https://images.unsplash.com/photo-1552566626-52f8b828add9",
	"https://images.unsplash.com/photo-1544148103-0773bf10d330",
}

var _ Service = (*ServiceImpl)(nil)

// Service is the restaurant search contract. Unlike the event aggregator,
// fetch errors here propagate to the caller.
type Service interface {
	SearchRestaurants(ctx context.Context, params types.RestaurantSearchParams) (*types.RestaurantSearchResult, error)
	// SearchAllRestaurants returns the full filtered set without pagination.
	SearchAllRestaurants(ctx context.Context, params types.RestaurantSearchParams) ([]types.Restaurant, error)
}

// ServiceImpl caches the full filtered result set per (location, filters)
// key and paginates over it in memory.
type ServiceImpl struct {
	logger   *slog.Logger
	upstream Upstream
	cache    *cache.Cache
}

func NewServiceImpl(upstream Upstream, restaurantCache *cache.Cache, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{
		logger:   logger,
		upstream: upstream,
		cache:    restaurantCache,
	}
}

func (s *ServiceImpl) SearchRestaurants(ctx context.Context, params types.RestaurantSearchParams) (*types.RestaurantSearchResult, error) {
	ctx, span := otel.Tracer("RestaurantsService").Start(ctx, "SearchRestaurants")
	defer span.End()

	all, err := s.SearchAllRestaurants(ctx, params)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Upstream fetch failed")
		return nil, err
	}
	span.SetStatus(codes.Ok, "Restaurants returned")
	return paginate(all, params.Page), nil
}

func (s *ServiceImpl) SearchAllRestaurants(ctx context.Context, params types.RestaurantSearchParams) ([]types.Restaurant, error) {
	ctx, span := otel.Tracer("RestaurantsService").Start(ctx, "SearchAllRestaurants")
	defer span.End()

	key := cacheKey(params)
	span.SetAttributes(attribute.String("cache.key", key))

	if cached, found := s.cache.Get(key); found {
		if all, ok := cached.([]types.Restaurant); ok {
			span.SetStatus(codes.Ok, "Served from cache")
			return all, nil
		}
	}

	fetched, err := s.upstream.FetchNearby(ctx, params.Latitude, params.Longitude)
	if err != nil {
		s.logger.ErrorContext(ctx, "Restaurant fetch failed", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Upstream fetch failed")
		return nil, fmt.Errorf("failed to fetch restaurants: %w", err)
	}

	all := formatRestaurants(fetched, params)
	s.cache.Set(key, all, CacheDuration)

	s.logger.InfoContext(ctx, "Restaurants fetched",
		slog.Int("fetched", len(fetched)), slog.Int("after_filters", len(all)))
	span.SetStatus(codes.Ok, "Served from upstream")
	return all, nil
}

// cacheKey identifies one (location, filters) combination. Filters marshal
// deterministically because RestaurantFilter is a flat struct.
func cacheKey(params types.RestaurantSearchParams) string {
	filters, _ := json.Marshal(params.Filters)
	return fmt.Sprintf("%g,%g-%s", params.Latitude, params.Longitude, filters)
}

func paginate(all []types.Restaurant, page int) *types.RestaurantSearchResult {
	if page < 1 {
		page = 1
	}
	start := (page - 1) * PageSize
	end := start + PageSize
	if start > len(all) {
		start = len(all)
	}
	if end > len(all) {
		end = len(all)
	}
	return &types.RestaurantSearchResult{
		Restaurants: all[start:end],
		TotalCount:  len(all),
		HasMore:     page*PageSize < len(all),
	}
}

// formatRestaurants converts merged upstream records into canonical
// restaurants, applying the request filters inline.
func formatRestaurants(fetched []UpstreamRestaurant, params types.RestaurantSearchParams) []types.Restaurant {
	out := make([]types.Restaurant, 0, len(fetched))
	for i := range fetched {
		r := formatRestaurant(&fetched[i], params)
		if params.Filters != nil && !matchesFilters(&r, params.Filters) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func formatRestaurant(in *UpstreamRestaurant, params types.RestaurantSearchParams) types.Restaurant {
	lat, lon := in.Latitude, in.Longitude
	if lat == 0 && lon == 0 {
		lat, lon = params.Latitude, params.Longitude
	}

	image := in.PhotoURL
	if image == "" {
		image = defaultImageURL
	}

	categories := make([]types.RestaurantCategory, 0, len(in.Cuisines))
	for _, cuisine := range in.Cuisines {
		categories = append(categories, types.RestaurantCategory{
			Alias: strings.ToLower(cuisine),
			Title: cuisine,
		})
	}

	display := make([]string, 0, 2)
	if in.Address.Street != "" {
		display = append(display, in.Address.Street)
	}
	if in.Address.City != "" || in.Address.State != "" {
		display = append(display, fmt.Sprintf("%s, %s", in.Address.City, in.Address.State))
	}

	hours := make([]types.RestaurantHours, 0, len(in.Hours))
	for _, block := range in.Hours {
		h := types.RestaurantHours{HoursType: block.HoursType, IsOpenNow: block.IsOpenNow}
		for _, window := range block.Open {
			h.Open = append(h.Open, types.OpenWindow{
				IsOvernight: window.IsOvernight,
				Start:       window.Start,
				End:         window.End,
				Day:         window.Day,
			})
		}
		hours = append(hours, h)
	}

	price := "$$"
	if in.PriceLevel > 0 {
		level := in.PriceLevel
		if level > 4 {
			level = 4
		}
		price = strings.Repeat("$", level)
	}

	source := in.Source
	if source == "" {
		source = "rapidapi"
	}

	return types.Restaurant{
		ID:          in.RestaurantID,
		Name:        in.Name,
		ImageURL:    image,
		URL:         in.Website,
		ReviewCount: in.ReviewCount,
		Categories:  categories,
		Rating:      in.Rating,
		Coordinates: types.Coordinates{Latitude: lat, Longitude: lon},
		Price:       price,
		Location: types.RestaurantLocation{
			Address1:       in.Address.Street,
			City:           in.Address.City,
			State:          in.Address.State,
			Country:        "US",
			ZipCode:        in.Address.PostalCode,
			DisplayAddress: display,
		},
		Phone:        in.Phone,
		DisplayPhone: in.DisplayPhone,
		Distance:     in.Distance,
		IsClosed:     !in.IsOpenNow,
		Hours:        hours,
		Photos:       append([]string{image}, stockPhotos...),
		Transactions: in.Transactions,
		Source:       source,
	}
}

func matchesFilters(r *types.Restaurant, f *types.RestaurantFilter) bool {
	if f.Rating > 0 && r.Rating < f.Rating {
		return false
	}
	if len(f.Price) > 0 {
		level := strconv.Itoa(len(r.Price))
		if !contains(f.Price, level) {
			return false
		}
	}
	if len(f.Categories) > 0 {
		any := false
		for _, c := range r.Categories {
			if contains(f.Categories, c.Alias) {
				any = true
				break
			}
		}
		if !any {
			return false
		}
	}
	// Filter distance is miles; restaurant distance is meters.
	if f.Distance > 0 && r.Distance > f.Distance*geo.MetersPerMile {
		return false
	}
	if f.OpenNow && r.IsClosed {
		return false
	}
	return true
}

func contains(haystack []string, needle string) bool {
	for _, v := range haystack {
		if v == needle {
			return true
		}
	}
	return false
}
