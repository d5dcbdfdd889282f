package saved

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	"github.com/dateai/dateai-server/app/middleware"
	"github.com/dateai/dateai-server/internal/api"
	"github.com/dateai/dateai-server/internal/types"
)

type Handler struct {
	logger  *slog.Logger
	service Service
}

func NewSavedHandler(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		logger:  logger,
		service: service,
	}
}

type saveItemRequest struct {
	EntityID string          `json:"entity_id"`
	Payload  json.RawMessage `json:"payload"`
}

// SaveItem handles POST /saved/{kind}.
func (h *Handler) SaveItem(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("SavedHandler").Start(r.Context(), "SaveItem")
	defer span.End()

	l := h.logger.With(slog.String("method", "SaveItem"))

	userID, ok := requestUserID(r)
	if !ok {
		l.WarnContext(ctx, "No authenticated user in context")
		span.SetStatus(codes.Error, "Unauthenticated")
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	kind := types.SavedKind(chi.URLParam(r, "kind"))
	if !types.ValidSavedKind(kind) {
		span.SetStatus(codes.Error, "Invalid kind")
		api.ErrorResponse(w, r, http.StatusBadRequest, "Unknown saved item kind")
		return
	}

	var req saveItemRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		l.WarnContext(ctx, "Invalid request body", slog.Any("error", err))
		span.SetStatus(codes.Error, "Invalid body")
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.EntityID == "" {
		span.SetStatus(codes.Error, "Missing entity id")
		api.ErrorResponse(w, r, http.StatusBadRequest, "entity_id is required")
		return
	}

	item, err := h.service.SaveItem(ctx, userID, kind, req.EntityID, req.Payload)
	if err != nil {
		l.ErrorContext(ctx, "Failed to save item", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Service operation failed")
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to save item")
		return
	}

	span.SetStatus(codes.Ok, "Item saved")
	api.WriteJSONResponse(w, r, http.StatusCreated, item)
}

// ListItems handles GET /saved/{kind}.
func (h *Handler) ListItems(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("SavedHandler").Start(r.Context(), "ListItems")
	defer span.End()

	l := h.logger.With(slog.String("method", "ListItems"))

	userID, ok := requestUserID(r)
	if !ok {
		l.WarnContext(ctx, "No authenticated user in context")
		span.SetStatus(codes.Error, "Unauthenticated")
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	kind := types.SavedKind(chi.URLParam(r, "kind"))
	if !types.ValidSavedKind(kind) {
		span.SetStatus(codes.Error, "Invalid kind")
		api.ErrorResponse(w, r, http.StatusBadRequest, "Unknown saved item kind")
		return
	}

	items, err := h.service.ListItems(ctx, userID, kind)
	if err != nil {
		l.ErrorContext(ctx, "Failed to list saved items", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Service operation failed")
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to list saved items")
		return
	}
	if items == nil {
		items = []*types.SavedItem{}
	}

	span.SetStatus(codes.Ok, "Items listed")
	api.WriteJSONResponse(w, r, http.StatusOK, map[string][]*types.SavedItem{"items": items})
}

// DeleteItem handles DELETE /saved/{kind}/{id}.
func (h *Handler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("SavedHandler").Start(r.Context(), "DeleteItem")
	defer span.End()

	l := h.logger.With(slog.String("method", "DeleteItem"))

	userID, ok := requestUserID(r)
	if !ok {
		l.WarnContext(ctx, "No authenticated user in context")
		span.SetStatus(codes.Error, "Unauthenticated")
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	kind := types.SavedKind(chi.URLParam(r, "kind"))
	if !types.ValidSavedKind(kind) {
		span.SetStatus(codes.Error, "Invalid kind")
		api.ErrorResponse(w, r, http.StatusBadRequest, "Unknown saved item kind")
		return
	}
	entityID := chi.URLParam(r, "id")

	if err := h.service.DeleteItem(ctx, userID, kind, entityID); err != nil {
		l.ErrorContext(ctx, "Failed to delete saved item", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Service operation failed")
		api.ErrorResponse(w, r, http.StatusNotFound, "Saved item not found")
		return
	}

	span.SetStatus(codes.Ok, "Item deleted")
	w.WriteHeader(http.StatusNoContent)
}

func requestUserID(r *http.Request) (uuid.UUID, bool) {
	raw, ok := appMiddleware.GetUserIDFromContext(r.Context())
	if !ok {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
