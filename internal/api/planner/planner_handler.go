package planner

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	"github.com/dateai/dateai-server/internal/api"
	"github.com/dateai/dateai-server/internal/types"
)

type Handler struct {
	logger  *slog.Logger
	service Service
}

func NewPlannerHandler(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		logger:  logger,
		service: service,
	}
}

// GeneratePlan handles POST /plans.
func (h *Handler) GeneratePlan(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("PlannerHandler").Start(r.Context(), "GeneratePlan")
	defer span.End()

	l := h.logger.With(slog.String("method", "GeneratePlan"))

	var req types.DatePlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		l.WarnContext(ctx, "Invalid plan request body", slog.Any("error", err))
		span.SetStatus(codes.Error, "Invalid body")
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}

	plan, err := h.service.GenerateDatePlan(ctx, req)
	if err != nil {
		var validationErr *ValidationError
		var planErr *PlanError
		switch {
		case errors.As(err, &validationErr):
			span.SetStatus(codes.Error, "Validation failed")
			api.ErrorResponse(w, r, http.StatusBadRequest, validationErr.Reason)
		case errors.As(err, &planErr):
			span.SetStatus(codes.Error, "No plan possible")
			api.ErrorResponse(w, r, http.StatusUnprocessableEntity, planErr.Reason)
		default:
			l.ErrorContext(ctx, "Plan generation failed", slog.Any("error", err))
			span.RecordError(err)
			span.SetStatus(codes.Error, "Service operation failed")
			api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to generate date plan")
		}
		return
	}

	span.SetStatus(codes.Ok, "Plan returned")
	api.WriteJSONResponse(w, r, http.StatusOK, plan)
}

// OptimizeRoute handles POST /plans/optimize.
func (h *Handler) OptimizeRoute(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("PlannerHandler").Start(r.Context(), "OptimizeRoute")
	defer span.End()

	l := h.logger.With(slog.String("method", "OptimizeRoute"))

	var body struct {
		Events []types.Event `json:"events"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		l.WarnContext(ctx, "Invalid optimize request body", slog.Any("error", err))
		span.SetStatus(codes.Error, "Invalid body")
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}

	ordered := h.service.OptimizeRoute(body.Events)

	span.SetStatus(codes.Ok, "Route returned")
	api.WriteJSONResponse(w, r, http.StatusOK, map[string]any{
		"events": ordered,
	})
}
