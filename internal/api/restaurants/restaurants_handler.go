package restaurants

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	"github.com/dateai/dateai-server/internal/api"
	"github.com/dateai/dateai-server/internal/types"
)

type Handler struct {
	logger  *slog.Logger
	service Service
}

func NewRestaurantsHandler(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		logger:  logger,
		service: service,
	}
}

// SearchRestaurants handles GET /restaurants/search.
func (h *Handler) SearchRestaurants(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("RestaurantsHandler").Start(r.Context(), "SearchRestaurants")
	defer span.End()

	l := h.logger.With(slog.String("method", "SearchRestaurants"))

	params, err := parseRestaurantQuery(r)
	if err != nil {
		l.WarnContext(ctx, "Invalid restaurant query", slog.Any("error", err))
		span.SetStatus(codes.Error, "Invalid query")
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.service.SearchRestaurants(ctx, params)
	if err != nil {
		l.ErrorContext(ctx, "Restaurant search failed", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Service operation failed")
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to search restaurants")
		return
	}

	span.SetStatus(codes.Ok, "Restaurants returned")
	api.WriteJSONResponse(w, r, http.StatusOK, result)
}

func parseRestaurantQuery(r *http.Request) (types.RestaurantSearchParams, error) {
	q := r.URL.Query()
	params := types.RestaurantSearchParams{Page: 1}

	var err error
	if params.Latitude, err = parseFloatParam(q.Get("latitude")); err != nil {
		return params, err
	}
	if params.Longitude, err = parseFloatParam(q.Get("longitude")); err != nil {
		return params, err
	}
	if page := q.Get("page"); page != "" {
		if params.Page, err = strconv.Atoi(page); err != nil {
			return params, err
		}
		if params.Page < 1 {
			params.Page = 1
		}
	}

	filters := &types.RestaurantFilter{
		OpenNow: q.Get("open_now") == "true",
	}
	if filters.Rating, err = parseFloatParam(q.Get("rating")); err != nil {
		return params, err
	}
	if filters.Distance, err = parseFloatParam(q.Get("distance")); err != nil {
		return params, err
	}
	if prices := q.Get("price"); prices != "" {
		filters.Price = strings.Split(prices, ",")
	}
	if categories := q.Get("categories"); categories != "" {
		filters.Categories = strings.Split(categories, ",")
	}
	if filters.Rating > 0 || filters.Distance > 0 || filters.OpenNow ||
		len(filters.Price) > 0 || len(filters.Categories) > 0 {
		params.Filters = filters
	}
	return params, nil
}

func parseFloatParam(value string) (float64, error) {
	if value == "" {
		return 0, nil
	}
	return strconv.ParseFloat(value, 64)
}
