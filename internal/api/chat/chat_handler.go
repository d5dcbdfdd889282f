package chat

import (
	"encoding/json"
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

func NewChatHandler(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		logger:  logger,
		service: service,
	}
}

// GetRecommendations handles POST /chat/recommendations.
func (h *Handler) GetRecommendations(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("ChatHandler").Start(r.Context(), "GetRecommendations")
	defer span.End()

	l := h.logger.With(slog.String("method", "GetRecommendations"))

	var params RecommendationParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		l.WarnContext(ctx, "Invalid recommendation request body", slog.Any("error", err))
		span.SetStatus(codes.Error, "Invalid body")
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}
	if !ValidRecommendationType(params.Type) {
		span.SetStatus(codes.Error, "Invalid type")
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid recommendation type")
		return
	}

	resp, err := h.service.GetRecommendations(ctx, params)
	if err != nil {
		l.ErrorContext(ctx, "Recommendation request failed", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Service operation failed")
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to get recommendations")
		return
	}

	span.SetStatus(codes.Ok, "Recommendations returned")
	api.WriteJSONResponse(w, r, http.StatusOK, resp)
}
