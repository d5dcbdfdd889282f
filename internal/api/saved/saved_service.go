package saved

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/dateai/dateai-server/internal/types"
)

var _ Service = (*ServiceImpl)(nil)

type Service interface {
	SaveItem(ctx context.Context, userID uuid.UUID, kind types.SavedKind, entityID string, payload json.RawMessage) (*types.SavedItem, error)
	ListItems(ctx context.Context, userID uuid.UUID, kind types.SavedKind) ([]*types.SavedItem, error)
	DeleteItem(ctx context.Context, userID uuid.UUID, kind types.SavedKind, entityID string) error
}

type ServiceImpl struct {
	logger          *slog.Logger
	savedRepository Repository
}

// NewServiceImpl creates a new instance of ServiceImpl
func NewServiceImpl(repo Repository, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{
		logger:          logger,
		savedRepository: repo,
	}
}

// SaveItem stores one entity under the user's saved list of the given kind.
// Saving the same entity twice replaces its payload.
func (s *ServiceImpl) SaveItem(ctx context.Context, userID uuid.UUID, kind types.SavedKind, entityID string, payload json.RawMessage) (*types.SavedItem, error) {
	ctx, span := otel.Tracer("SavedService").Start(ctx, "SaveItem", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
		attribute.String("saved.kind", string(kind)),
		attribute.String("saved.entity_id", entityID),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "SaveItem"), slog.String("userID", userID.String()))

	if !types.ValidSavedKind(kind) {
		err := fmt.Errorf("invalid saved kind: %s", kind)
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid kind")
		return nil, err
	}
	if entityID == "" {
		err := fmt.Errorf("entity id is required")
		span.RecordError(err)
		span.SetStatus(codes.Error, "missing entity id")
		return nil, err
	}

	item := types.SavedItem{
		ID:       uuid.New(),
		UserID:   userID,
		Kind:     kind,
		EntityID: entityID,
		Payload:  payload,
	}
	saved, err := s.savedRepository.SaveItem(ctx, item)
	if err != nil {
		l.ErrorContext(ctx, "Failed to save item", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository save failed")
		return nil, err
	}

	l.DebugContext(ctx, "Item saved", slog.String("entityID", entityID))
	span.SetStatus(codes.Ok, "item saved")
	return &saved, nil
}

// ListItems returns the user's saved items of one kind, newest first.
func (s *ServiceImpl) ListItems(ctx context.Context, userID uuid.UUID, kind types.SavedKind) ([]*types.SavedItem, error) {
	ctx, span := otel.Tracer("SavedService").Start(ctx, "ListItems", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
		attribute.String("saved.kind", string(kind)),
	))
	defer span.End()

	if !types.ValidSavedKind(kind) {
		err := fmt.Errorf("invalid saved kind: %s", kind)
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid kind")
		return nil, err
	}

	items, err := s.savedRepository.ListItems(ctx, userID, kind)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to list saved items", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository list failed")
		return nil, err
	}
	span.SetStatus(codes.Ok, "items listed")
	return items, nil
}

// DeleteItem removes one saved entity for the user.
func (s *ServiceImpl) DeleteItem(ctx context.Context, userID uuid.UUID, kind types.SavedKind, entityID string) error {
	ctx, span := otel.Tracer("SavedService").Start(ctx, "DeleteItem", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
		attribute.String("saved.kind", string(kind)),
		attribute.String("saved.entity_id", entityID),
	))
	defer span.End()

	if !types.ValidSavedKind(kind) {
		err := fmt.Errorf("invalid saved kind: %s", kind)
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid kind")
		return err
	}

	if err := s.savedRepository.DeleteItem(ctx, userID, kind, entityID); err != nil {
		s.logger.ErrorContext(ctx, "Failed to delete saved item", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository delete failed")
		return err
	}
	span.SetStatus(codes.Ok, "item deleted")
	return nil
}
