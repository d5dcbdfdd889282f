package events

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

func NewEventsHandler(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		logger:  logger,
		service: service,
	}
}

// SearchEvents handles GET /events/search.
func (h *Handler) SearchEvents(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("EventsHandler").Start(r.Context(), "SearchEvents")
	defer span.End()

	l := h.logger.With(slog.String("method", "SearchEvents"))

	params, err := parseSearchQuery(r)
	if err != nil {
		l.WarnContext(ctx, "Invalid search query", slog.Any("error", err))
		span.SetStatus(codes.Error, "Invalid query")
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	results, err := h.service.SearchAllEvents(ctx, params)
	if err != nil {
		l.ErrorContext(ctx, "Event search failed", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Service operation failed")
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to search events")
		return
	}

	span.SetStatus(codes.Ok, "Events returned")
	api.WriteJSONResponse(w, r, http.StatusOK, map[string]any{
		"events": results,
		"count":  len(results),
	})
}

func parseSearchQuery(r *http.Request) (types.EventSearchParams, error) {
	q := r.URL.Query()
	params := types.EventSearchParams{Keyword: q.Get("keyword")}

	var err error
	if params.Latitude, err = parseFloatParam(q.Get("latitude")); err != nil {
		return params, err
	}
	if params.Longitude, err = parseFloatParam(q.Get("longitude")); err != nil {
		return params, err
	}
	if params.Radius, err = parseFloatParam(q.Get("radius")); err != nil {
		return params, err
	}
	if size := q.Get("size"); size != "" {
		if params.Size, err = strconv.Atoi(size); err != nil {
			return params, err
		}
	}

	filters := &types.Filter{
		Category: q.Get("category"),
		Date:     q.Get("date"),
		SortBy:   q.Get("sort_by"),
	}
	if filters.Distance, err = parseFloatParam(q.Get("distance")); err != nil {
		return params, err
	}
	if prices := q.Get("price"); prices != "" {
		filters.PriceRange = strings.Split(prices, ",")
	}
	if filters.Category != "" || filters.Date != "" || filters.Distance > 0 || len(filters.PriceRange) > 0 {
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
