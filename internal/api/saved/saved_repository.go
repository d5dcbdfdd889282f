package saved

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dateai/dateai-server/internal/types"
)

// DB is the subset of pgxpool.Pool the repository needs.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Ensure RepositoryImpl implements the Repository interface
var _ Repository = (*RepositoryImpl)(nil)

// RepositoryImpl struct holds the logger and database connection pool
type RepositoryImpl struct {
	logger *slog.Logger
	db     DB
}

// Repository defines the interface for saved item operations
type Repository interface {
	SaveItem(ctx context.Context, item types.SavedItem) (types.SavedItem, error)
	ListItems(ctx context.Context, userID uuid.UUID, kind types.SavedKind) ([]*types.SavedItem, error)
	DeleteItem(ctx context.Context, userID uuid.UUID, kind types.SavedKind, entityID string) error
}

func NewRepository(db DB, logger *slog.Logger) *RepositoryImpl {
	return &RepositoryImpl{
		logger: logger,
		db:     db,
	}
}

// SaveItem inserts a saved item, replacing the payload when the user already
// saved the same entity.
func (r *RepositoryImpl) SaveItem(ctx context.Context, item types.SavedItem) (types.SavedItem, error) {
	query := `
        INSERT INTO saved_items (id, user_id, kind, entity_id, payload)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (user_id, kind, entity_id)
        DO UPDATE SET payload = EXCLUDED.payload
        RETURNING id, user_id, kind, entity_id, payload, created_at
    `
	row := r.db.QueryRow(ctx, query, item.ID, item.UserID, item.Kind, item.EntityID, item.Payload)
	var saved types.SavedItem
	err := row.Scan(&saved.ID, &saved.UserID, &saved.Kind, &saved.EntityID, &saved.Payload, &saved.CreatedAt)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to save item", slog.Any("error", err))
		return types.SavedItem{}, fmt.Errorf("failed to save item: %w", err)
	}
	return saved, nil
}

// ListItems retrieves a user's saved items of one kind, newest first.
func (r *RepositoryImpl) ListItems(ctx context.Context, userID uuid.UUID, kind types.SavedKind) ([]*types.SavedItem, error) {
	query := `
        SELECT id, user_id, kind, entity_id, payload, created_at
        FROM saved_items
        WHERE user_id = $1 AND kind = $2
        ORDER BY created_at DESC
    `
	rows, err := r.db.Query(ctx, query, userID, kind)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to list saved items", slog.Any("error", err))
		return nil, fmt.Errorf("failed to list saved items: %w", err)
	}
	defer rows.Close()

	var items []*types.SavedItem
	for rows.Next() {
		var item types.SavedItem
		err := rows.Scan(&item.ID, &item.UserID, &item.Kind, &item.EntityID, &item.Payload, &item.CreatedAt)
		if err != nil {
			r.logger.ErrorContext(ctx, "Failed to scan saved item", slog.Any("error", err))
			return nil, fmt.Errorf("failed to scan saved item: %w", err)
		}
		items = append(items, &item)
	}
	if err = rows.Err(); err != nil {
		r.logger.ErrorContext(ctx, "Error iterating saved item rows", slog.Any("error", err))
		return nil, fmt.Errorf("error iterating saved item rows: %w", err)
	}
	return items, nil
}

// DeleteItem removes one saved entity for the user.
func (r *RepositoryImpl) DeleteItem(ctx context.Context, userID uuid.UUID, kind types.SavedKind, entityID string) error {
	query := `
        DELETE FROM saved_items
        WHERE user_id = $1 AND kind = $2 AND entity_id = $3
    `
	tag, err := r.db.Exec(ctx, query, userID, kind, entityID)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to delete saved item", slog.Any("error", err))
		return fmt.Errorf("failed to delete saved item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("saved item not found: %w", pgx.ErrNoRows)
	}
	return nil
}
