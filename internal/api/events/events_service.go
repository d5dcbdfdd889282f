package events

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/dateai/dateai-server/app/observability/metrics"
	"github.com/dateai/dateai-server/internal/api/providers"
	"github.com/dateai/dateai-server/internal/geo"
	"github.com/dateai/dateai-server/internal/types"
)

const (
	// CacheDuration is the freshness window of the aggregated snapshot.
	CacheDuration = 30 * time.Minute

	// DefaultSearchRadius is miles, applied when the caller passes none.
	DefaultSearchRadius = 100

	// snapshotKey is the single cache slot every query shares. The snapshot
	// is intentionally not keyed by location; see DESIGN.md.
	snapshotKey = "events:snapshot"
)

var _ Service = (*ServiceImpl)(nil)

// Service is the multi-provider event aggregation contract.
type Service interface {
	SearchAllEvents(ctx context.Context, params types.EventSearchParams) ([]types.Event, error)
}

// ServiceImpl fans out to every registered provider, validates and
// deduplicates the union, and serves filtered views of a cached snapshot.
type ServiceImpl struct {
	logger    *slog.Logger
	providers []providers.EventProvider
	cache     *cache.Cache
}

// NewServiceImpl builds the aggregator. Provider order matters: when
// duplicate records collide across providers, the earlier provider wins.
func NewServiceImpl(eventProviders []providers.EventProvider, eventCache *cache.Cache, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{
		logger:    logger,
		providers: eventProviders,
		cache:     eventCache,
	}
}

func (s *ServiceImpl) SearchAllEvents(ctx context.Context, params types.EventSearchParams) ([]types.Event, error) {
	ctx, span := otel.Tracer("EventsService").Start(ctx, "SearchAllEvents")
	defer span.End()

	m := metrics.Get()
	m.SearchRequestsTotal.Add(ctx, 1)

	snapshot, found := s.cachedSnapshot()
	if found {
		m.CacheHitsTotal.Add(ctx, 1)
		s.logger.DebugContext(ctx, "Using cached events", slog.Int("count", len(snapshot)))
	} else {
		m.CacheMissesTotal.Add(ctx, 1)
		s.logger.DebugContext(ctx, "Cache expired or not found, fetching fresh events")
		fetched := s.fetchAllEvents(ctx, types.SearchParams{
			Latitude:  params.Latitude,
			Longitude: params.Longitude,
			Radius:    params.Radius,
			Keyword:   params.Keyword,
		})
		s.cache.Set(snapshotKey, fetched, CacheDuration)
		snapshot = fetched
	}

	// Work on a copy: distance is a per-query view, never cached state.
	filtered := make([]types.Event, len(snapshot))
	copy(filtered, snapshot)

	hasLocation := params.Latitude != 0 && params.Longitude != 0
	if hasLocation {
		for i := range filtered {
			filtered[i].Distance = geo.Distance(
				params.Latitude, params.Longitude,
				filtered[i].Location.Latitude, filtered[i].Location.Longitude)
		}
	}

	if params.Filters != nil {
		var userLoc *types.PlanLocation
		if hasLocation {
			userLoc = &types.PlanLocation{Latitude: params.Latitude, Longitude: params.Longitude}
		}
		var err error
		filtered, err = filterEvents(filtered, params.Filters, userLoc)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "Filter application failed")
			return nil, fmt.Errorf("failed to filter events: %w", err)
		}
	}

	sortEvents(filtered)

	if params.Size > 0 && len(filtered) > params.Size {
		filtered = filtered[:params.Size]
	}

	span.SetAttributes(attribute.Int("events.count", len(filtered)))
	span.SetStatus(codes.Ok, "Events returned")
	return filtered, nil
}

func (s *ServiceImpl) cachedSnapshot() ([]types.Event, bool) {
	cached, found := s.cache.Get(snapshotKey)
	if !found {
		return nil, false
	}
	snapshot, ok := cached.([]types.Event)
	return snapshot, ok
}

// fetchAllEvents issues every provider search concurrently and waits for all
// of them to settle. A failed provider contributes an empty slice; results
// are concatenated in declared provider order so deduplication precedence
// stays deterministic.
func (s *ServiceImpl) fetchAllEvents(ctx context.Context, params types.SearchParams) []types.Event {
	if params.Radius == 0 {
		params.Radius = DefaultSearchRadius
	}

	m := metrics.Get()
	results := make([][]types.Event, len(s.providers))

	var wg sync.WaitGroup
	for i, provider := range s.providers {
		wg.Add(1)
		go func(slot int, p providers.EventProvider) {
			defer wg.Done()
			m.ProviderFetchesTotal.Add(ctx, 1, metrics.WithProvider(p.Name()))
			fetched, err := p.Search(ctx, params)
			if err != nil {
				m.ProviderFailuresTotal.Add(ctx, 1, metrics.WithProvider(p.Name()))
				s.logger.ErrorContext(ctx, "Provider search failed",
					slog.String("provider", p.Name()), slog.Any("error", err))
				return
			}
			results[slot] = fetched
		}(i, provider)
	}
	wg.Wait()

	var all []types.Event
	for i, batch := range results {
		valid := 0
		for _, ev := range batch {
			if ev.Valid() {
				all = append(all, ev)
				valid++
			}
		}
		s.logger.InfoContext(ctx, "Provider events collected",
			slog.String("provider", s.providers[i].Name()),
			slog.Int("fetched", len(batch)), slog.Int("valid", valid))
	}

	unique := removeDuplicates(all)
	s.logger.InfoContext(ctx, "Aggregated events",
		slog.Int("total", len(all)), slog.Int("unique", len(unique)))
	return unique
}

// removeDuplicates collapses records sharing lowercased title, date and
// coordinates; the first occurrence wins. Two genuinely distinct events with
// identical title, date and venue collapse as well; that coarseness is
// accepted.
func removeDuplicates(events []types.Event) []types.Event {
	seen := make(map[string]struct{}, len(events))
	unique := events[:0:0]
	for _, ev := range events {
		key := fmt.Sprintf("%s-%s-%g-%g",
			strings.ToLower(ev.Title), ev.Date, ev.Location.Latitude, ev.Location.Longitude)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		unique = append(unique, ev)
	}
	return unique
}

func filterEvents(events []types.Event, filters *types.Filter, userLocation *types.PlanLocation) ([]types.Event, error) {
	if err := validateFilter(filters); err != nil {
		return nil, err
	}

	today := startOfToday()
	kept := events[:0:0]
	for _, ev := range events {
		if filters.Category != "" && filters.Category != "all" && string(ev.Category) != filters.Category {
			continue
		}
		if !matchesDateBucket(ev.Date, filters.Date, today) {
			continue
		}
		if len(filters.PriceRange) > 0 && !matchesPriceBucket(ev.PriceRange, filters.PriceRange) {
			continue
		}
		if userLocation != nil && filters.Distance > 0 {
			d := geo.Distance(userLocation.Latitude, userLocation.Longitude,
				ev.Location.Latitude, ev.Location.Longitude)
			if d > filters.Distance {
				continue
			}
		}
		kept = append(kept, ev)
	}
	return kept, nil
}

func validateFilter(filters *types.Filter) error {
	if filters.Category != "" && filters.Category != "all" &&
		!types.IsValidCategory(types.EventCategory(filters.Category)) {
		return fmt.Errorf("unknown category %q", filters.Category)
	}
	switch filters.Date {
	case "", "all", "today", "tomorrow", "week", "month":
	default:
		return fmt.Errorf("unknown date range %q", filters.Date)
	}
	for _, bucket := range filters.PriceRange {
		switch bucket {
		case "free", "0-25", "25-50", "50-100", "100+":
		default:
			return fmt.Errorf("unknown price bucket %q", bucket)
		}
	}
	return nil
}

func matchesDateBucket(eventDate, bucket string, today time.Time) bool {
	if bucket == "" || bucket == "all" {
		return true
	}
	parsed, ok := parseEventDate(eventDate)
	switch bucket {
	case "today":
		return ok && sameDay(parsed, today)
	case "tomorrow":
		return ok && sameDay(parsed, today.AddDate(0, 0, 1))
	case "week":
		// Upper bound only, and unparseable dates ("Date TBA", bare
		// weekday strings) stay in: the comparison never excludes them.
		return !ok || !parsed.After(today.AddDate(0, 0, 7))
	case "month":
		return !ok || !parsed.After(today.AddDate(0, 1, 0))
	}
	return true
}

// priceBuckets map bucket keys to inclusive upper bounds over the first
// numeric value found in the price string.
func matchesPriceBucket(priceRange string, buckets []string) bool {
	if priceRange == "" {
		return false
	}
	price, ok := firstNumber(priceRange)
	if !ok {
		return false
	}
	for _, bucket := range buckets {
		switch bucket {
		case "free":
			if price == 0 {
				return true
			}
		case "0-25":
			if price <= 25 {
				return true
			}
		case "25-50":
			if price > 25 && price <= 50 {
				return true
			}
		case "50-100":
			if price > 50 && price <= 100 {
				return true
			}
		case "100+":
			if price > 100 {
				return true
			}
		}
	}
	return false
}

var leadingNumberPattern = regexp.MustCompile(`^-?\d+(\.\d+)?`)

// firstNumber extracts the leading numeric value after stripping everything
// that is not a digit, dot or minus, so "$25-$50" yields 25. The planner
// reads prices differently (see planner.priceDigits).
func firstNumber(priceRange string) (float64, bool) {
	cleaned := strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' {
			return r
		}
		return -1
	}, priceRange)
	match := leadingNumberPattern.FindString(cleaned)
	if match == "" {
		return 0, false
	}
	price, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0, false
	}
	return price, true
}

// sortEvents orders ascending by parsed date, breaking ties by distance when
// both records carry one.
func sortEvents(events []types.Event) {
	sort.SliceStable(events, func(i, j int) bool {
		di, okI := parseEventDate(events[i].Date)
		dj, okJ := parseEventDate(events[j].Date)
		if okI && okJ && !di.Equal(dj) {
			return di.Before(dj)
		}
		if events[i].Distance > 0 && events[j].Distance > 0 {
			return events[i].Distance < events[j].Distance
		}
		return false
	})
}

// eventDateLayouts covers the display formats the adapters emit.
var eventDateLayouts = []string{
	"1/2/2006",
	"Monday, January 2, 2006",
	"January 2, 2006",
	"2006-01-02",
	"Jan 2, 2006",
}

func parseEventDate(value string) (time.Time, bool) {
	for _, layout := range eventDateLayouts {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}

func startOfToday() time.Time {
	now := time.Now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
}
