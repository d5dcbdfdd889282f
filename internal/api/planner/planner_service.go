package planner

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/dateai/dateai-server/app/observability/metrics"
	"github.com/dateai/dateai-server/internal/api/events"
	"github.com/dateai/dateai-server/internal/api/restaurants"
	"github.com/dateai/dateai-server/internal/geo"
	"github.com/dateai/dateai-server/internal/types"
)

const (
	eventSearchRadiusMiles = 25
	eventSearchSize        = 100
	restaurantRadiusMeters = 25000
	maxStops               = 3
)

// ValidationError carries a user-displayable reason for a rejected plan
// request. It is returned before any upstream call is made.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// PlanError is a planner failure after fetching, e.g. an empty candidate
// pool. The reason is user-displayable.
type PlanError struct {
	Reason string
}

func (e *PlanError) Error() string { return e.Reason }

var _ Service = (*ServiceImpl)(nil)

type Service interface {
	GenerateDatePlan(ctx context.Context, req types.DatePlanRequest) (*types.DatePlan, error)
	OptimizeRoute(stops []types.Event) []types.Event
}

// ServiceImpl builds an itinerary from the event aggregator and the
// restaurant service with a greedy time-of-day heuristic. Stop order is tied
// to candidate pool order, which follows provider response order.
type ServiceImpl struct {
	logger      *slog.Logger
	events      events.Service
	restaurants restaurants.Service
}

func NewServiceImpl(eventsSvc events.Service, restaurantsSvc restaurants.Service, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{
		logger:      logger,
		events:      eventsSvc,
		restaurants: restaurantsSvc,
	}
}

func (s *ServiceImpl) GenerateDatePlan(ctx context.Context, req types.DatePlanRequest) (*types.DatePlan, error) {
	ctx, span := otel.Tracer("PlannerService").Start(ctx, "GenerateDatePlan")
	defer span.End()

	m := metrics.Get()
	m.PlanRequestsTotal.Add(ctx, 1)
	start := time.Now()
	defer func() {
		m.PlanDurationSeconds.Record(ctx, time.Since(start).Seconds())
	}()

	if err := validateRequest(req); err != nil {
		s.logger.WarnContext(ctx, "Plan request rejected", slog.String("reason", err.Error()))
		span.SetStatus(codes.Error, "Validation failed")
		return nil, err
	}

	pool, err := s.fetchCandidates(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Candidate fetch failed")
		return nil, err
	}
	if len(pool) == 0 {
		span.SetStatus(codes.Error, "No candidates")
		return nil, &PlanError{Reason: "No venues or events found in the selected area"}
	}

	// Split the budget into thirds, one share per stop.
	budgetPerActivity := req.Budget / 3
	withinBudget := pool[:0:0]
	for _, c := range pool {
		if c.PriceRange == "" || priceDigits(c.PriceRange) <= budgetPerActivity {
			withinBudget = append(withinBudget, c)
		}
	}
	if len(withinBudget) == 0 {
		span.SetStatus(codes.Error, "Nothing within budget")
		return nil, &PlanError{Reason: "No options found within your budget"}
	}

	preferred := applyPreferences(withinBudget, req.Preferences)
	selected := selectStops(preferred, req.StartTime)

	plan := &types.DatePlan{
		Events:      selected,
		TotalCost:   totalCost(selected),
		TravelTimes: travelTimes(selected, req.TransportMode),
	}

	s.logger.InfoContext(ctx, "Date plan generated",
		slog.Int("candidates", len(pool)),
		slog.Int("within_budget", len(withinBudget)),
		slog.Int("stops", len(plan.Events)))
	span.SetStatus(codes.Ok, "Plan generated")
	return plan, nil
}

func validateRequest(req types.DatePlanRequest) error {
	switch {
	case req.Date.IsZero():
		return &ValidationError{Reason: "Please select a date"}
	case req.StartTime == "":
		return &ValidationError{Reason: "Please select a start time"}
	case req.Duration < 2 || req.Duration > 12:
		return &ValidationError{Reason: "Duration must be between 2 and 12 hours"}
	case req.Budget < 20 || req.Budget > 500:
		return &ValidationError{Reason: "Budget must be between $20 and $500"}
	case req.Location == nil:
		return &ValidationError{Reason: "Please select a location"}
	}
	if req.TransportMode != "" &&
		req.TransportMode != types.TransportDriving &&
		req.TransportMode != types.TransportWalking &&
		req.TransportMode != types.TransportTransit {
		return &ValidationError{Reason: "Invalid transport mode"}
	}
	return nil
}

// fetchCandidates joins events and restaurants into one pool. Both fetches
// run concurrently; either failing fails the plan.
func (s *ServiceImpl) fetchCandidates(ctx context.Context, req types.DatePlanRequest) ([]types.Event, error) {
	var (
		fetchedEvents      []types.Event
		fetchedRestaurants []types.Restaurant
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		fetchedEvents, err = s.events.SearchAllEvents(gctx, types.EventSearchParams{
			Latitude:  req.Location.Latitude,
			Longitude: req.Location.Longitude,
			Radius:    eventSearchRadiusMiles,
			Size:      eventSearchSize,
		})
		return err
	})
	g.Go(func() error {
		var err error
		fetchedRestaurants, err = s.restaurants.SearchAllRestaurants(gctx, types.RestaurantSearchParams{
			Latitude:  req.Location.Latitude,
			Longitude: req.Location.Longitude,
			Filters:   &types.RestaurantFilter{Distance: restaurantRadiusMeters / geo.MetersPerMile},
		})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to fetch plan candidates: %w", err)
	}

	pool := make([]types.Event, 0, len(fetchedEvents)+len(fetchedRestaurants))
	pool = append(pool, fetchedEvents...)
	for i := range fetchedRestaurants {
		pool = append(pool, restaurantToEvent(&fetchedRestaurants[i], req))
	}
	return pool, nil
}

// restaurantToEvent reshapes a restaurant into the candidate record the
// selection step consumes. Distance stays in the restaurant's native meters.
func restaurantToEvent(r *types.Restaurant, req types.DatePlanRequest) types.Event {
	titles := make([]string, 0, len(r.Categories))
	for _, c := range r.Categories {
		titles = append(titles, c.Title)
	}
	subcategory := "Restaurant"
	if len(titles) > 0 {
		subcategory = titles[0]
	}
	status := "open"
	if r.IsClosed {
		status = "closed"
	}

	return types.Event{
		ID:          "restaurant-" + r.ID,
		Title:       r.Name,
		Description: strings.Join(titles, ", "),
		Date:        req.Date.Format("1/2/2006"),
		Time:        req.StartTime,
		Location: types.EventLocation{
			Latitude:  r.Coordinates.Latitude,
			Longitude: r.Coordinates.Longitude,
			Address:   strings.Join(r.Location.DisplayAddress, ", "),
		},
		Category:    types.CategoryFoodDrink,
		Subcategory: subcategory,
		PriceRange:  r.Price,
		Status:      status,
		Distance:    r.Distance,
		ImageURL:    r.ImageURL,
		Venue: types.Venue{
			Name:   r.Name,
			City:   r.Location.City,
			State:  r.Location.State,
			Rating: r.Rating,
		},
	}
}

// applyPreferences keeps candidates matching any preference term against
// title, description, or category. An empty match falls back to the full
// budget-filtered set rather than failing.
func applyPreferences(pool []types.Event, preferences []string) []types.Event {
	if len(preferences) == 0 {
		return pool
	}
	terms := make([]string, 0, len(preferences))
	for _, p := range preferences {
		terms = append(terms, strings.ToLower(p))
	}

	matched := pool[:0:0]
	for _, c := range pool {
		title := strings.ToLower(c.Title)
		desc := strings.ToLower(c.Description)
		category := strings.ToLower(string(c.Category))
		for _, term := range terms {
			if strings.Contains(title, term) || strings.Contains(desc, term) || strings.Contains(category, term) {
				matched = append(matched, c)
				break
			}
		}
	}
	if len(matched) == 0 {
		return pool
	}
	return matched
}

// selectStops picks stops greedily by the hour of the start time: a meal
// first, then a fitting activity, then one filler of a different category.
func selectStops(pool []types.Event, startTime string) []types.Event {
	hour := startHour(startTime)
	selected := make([]types.Event, 0, maxStops)

	pick := func(match func(types.Event) bool) {
		for _, c := range pool {
			if isSelected(selected, c.ID) || !match(c) {
				continue
			}
			selected = append(selected, c)
			return
		}
	}

	switch {
	case hour < 11:
		pick(func(e types.Event) bool {
			return e.Category == types.CategoryFoodDrink &&
				strings.Contains(strings.ToLower(e.Description), "breakfast")
		})
		pick(func(e types.Event) bool {
			return e.Category == types.CategoryCultural || e.Category == types.CategoryOutdoor
		})
	case hour < 17:
		pick(func(e types.Event) bool { return e.Category == types.CategoryFoodDrink })
		pick(func(e types.Event) bool { return e.Category != types.CategoryFoodDrink })
	default:
		pick(func(e types.Event) bool { return e.Category == types.CategoryFoodDrink })
		pick(func(e types.Event) bool {
			return e.Category == types.CategoryLiveMusic ||
				e.Category == types.CategoryPerformingArts ||
				e.Category == types.CategoryComedy
		})
	}

	if len(selected) < maxStops {
		pick(func(e types.Event) bool {
			return len(selected) == 0 || e.Category != selected[0].Category
		})
	}
	if len(selected) == 0 {
		selected = append(selected, pool[0])
	}
	return selected
}

func isSelected(selected []types.Event, id string) bool {
	for _, s := range selected {
		if s.ID == id {
			return true
		}
	}
	return false
}

func startHour(startTime string) int {
	hour, _ := strconv.Atoi(strings.SplitN(startTime, ":", 2)[0])
	return hour
}

// travelTimes estimates minutes between consecutive stops from the leading
// stop's distance and a fixed per-mode speed (walking ~3mph, transit ~6mph,
// driving ~12mph). A stop with no computed distance counts as 1 mile.
func travelTimes(stops []types.Event, mode types.TransportMode) []int {
	if len(stops) < 2 {
		return []int{}
	}
	perMile := 5.0 // driving
	switch mode {
	case types.TransportWalking:
		perMile = 20
	case types.TransportTransit:
		perMile = 10
	}

	times := make([]int, 0, len(stops)-1)
	for i := 0; i < len(stops)-1; i++ {
		distance := stops[i].Distance
		if distance == 0 {
			distance = 1
		}
		times = append(times, int(math.Round(distance*perMile)))
	}
	return times
}

func totalCost(stops []types.Event) float64 {
	var sum float64
	for _, s := range stops {
		sum += priceDigits(s.PriceRange)
	}
	return sum
}

// priceDigits reads the digit characters of a price string as one number:
// "$25" is 25, and a range like "$25-$50" reads as 2550. Strings without
// digits, like "$$", read as 0.
func priceDigits(priceRange string) float64 {
	var digits strings.Builder
	for _, r := range priceRange {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	if digits.Len() == 0 {
		return 0
	}
	n, err := strconv.Atoi(digits.String())
	if err != nil {
		return 0
	}
	return float64(n)
}
