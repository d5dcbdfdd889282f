package saved

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dateai/dateai-server/internal/types"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSaveItemUpsertsAndReturnsRow(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewRepository(mock, discardLogger())

	userID := uuid.New()
	itemID := uuid.New()
	payload := json.RawMessage(`{"title":"Jazz Night"}`)
	createdAt := time.Now()

	mock.ExpectQuery("INSERT INTO saved_items").
		WithArgs(itemID, userID, types.SavedEvents, "ticketmaster-abc123", payload).
		WillReturnRows(pgxmock.NewRows([]string{"id", "user_id", "kind", "entity_id", "payload", "created_at"}).
			AddRow(itemID, userID, types.SavedEvents, "ticketmaster-abc123", payload, createdAt))

	saved, err := repo.SaveItem(context.Background(), types.SavedItem{
		ID:       itemID,
		UserID:   userID,
		Kind:     types.SavedEvents,
		EntityID: "ticketmaster-abc123",
		Payload:  payload,
	})
	require.NoError(t, err)

	assert.Equal(t, itemID, saved.ID)
	assert.Equal(t, types.SavedEvents, saved.Kind)
	assert.Equal(t, "ticketmaster-abc123", saved.EntityID)
	assert.JSONEq(t, `{"title":"Jazz Night"}`, string(saved.Payload))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListItemsReturnsRowsNewestFirst(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewRepository(mock, discardLogger())

	userID := uuid.New()
	newer := uuid.New()
	older := uuid.New()

	mock.ExpectQuery("SELECT id, user_id, kind, entity_id, payload, created_at").
		WithArgs(userID, types.SavedRestaurants).
		WillReturnRows(pgxmock.NewRows([]string{"id", "user_id", "kind", "entity_id", "payload", "created_at"}).
			AddRow(newer, userID, types.SavedRestaurants, "yelp-1", json.RawMessage(`{}`), time.Now()).
			AddRow(older, userID, types.SavedRestaurants, "yelp-2", json.RawMessage(`{}`), time.Now().Add(-time.Hour)))

	items, err := repo.ListItems(context.Background(), userID, types.SavedRestaurants)
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, newer, items[0].ID)
	assert.Equal(t, "yelp-1", items[0].EntityID)
	assert.Equal(t, older, items[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListItemsPropagatesQueryError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewRepository(mock, discardLogger())

	userID := uuid.New()
	mock.ExpectQuery("SELECT id, user_id, kind, entity_id, payload, created_at").
		WithArgs(userID, types.SavedPlans).
		WillReturnError(assert.AnError)

	_, err = repo.ListItems(context.Background(), userID, types.SavedPlans)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to list saved items")
}

func TestDeleteItemRemovesRow(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewRepository(mock, discardLogger())

	userID := uuid.New()
	mock.ExpectExec("DELETE FROM saved_items").
		WithArgs(userID, types.SavedEvents, "ticketmaster-abc123").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	err = repo.DeleteItem(context.Background(), userID, types.SavedEvents, "ticketmaster-abc123")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteItemMissingRowIsNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewRepository(mock, discardLogger())

	userID := uuid.New()
	mock.ExpectExec("DELETE FROM saved_items").
		WithArgs(userID, types.SavedPlans, "missing").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	err = repo.DeleteItem(context.Background(), userID, types.SavedPlans, "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "saved item not found")
}
