package geocode

import (
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	"github.com/dateai/dateai-server/internal/api"
)

type Handler struct {
	logger  *slog.Logger
	service Service
}

func NewGeocodeHandler(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		logger:  logger,
		service: service,
	}
}

// SearchLocations handles GET /locations/search?q=.
func (h *Handler) SearchLocations(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("GeocodeHandler").Start(r.Context(), "SearchLocations")
	defer span.End()

	l := h.logger.With(slog.String("method", "SearchLocations"))

	query := r.URL.Query().Get("q")
	suggestions, err := h.service.SearchLocations(ctx, query)
	if err != nil {
		l.ErrorContext(ctx, "Location search failed", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Service operation failed")
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to search locations")
		return
	}

	span.SetStatus(codes.Ok, "Suggestions returned")
	api.WriteJSONResponse(w, r, http.StatusOK, map[string]any{
		"suggestions": suggestions,
	})
}
