package saved

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dateai/dateai-server/internal/types"
)

type MockSavedRepository struct {
	mock.Mock
}

func (m *MockSavedRepository) SaveItem(ctx context.Context, item types.SavedItem) (types.SavedItem, error) {
	args := m.Called(ctx, item)
	return args.Get(0).(types.SavedItem), args.Error(1)
}

func (m *MockSavedRepository) ListItems(ctx context.Context, userID uuid.UUID, kind types.SavedKind) ([]*types.SavedItem, error) {
	args := m.Called(ctx, userID, kind)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*types.SavedItem), args.Error(1)
}

func (m *MockSavedRepository) DeleteItem(ctx context.Context, userID uuid.UUID, kind types.SavedKind, entityID string) error {
	args := m.Called(ctx, userID, kind, entityID)
	return args.Error(0)
}

func TestSaveItemRejectsInvalidKind(t *testing.T) {
	repo := new(MockSavedRepository)
	svc := NewServiceImpl(repo, discardLogger())

	_, err := svc.SaveItem(context.Background(), uuid.New(), "bookmarks", "id-1", nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid saved kind")
	repo.AssertNotCalled(t, "SaveItem", mock.Anything, mock.Anything)
}

func TestSaveItemRejectsEmptyEntityID(t *testing.T) {
	repo := new(MockSavedRepository)
	svc := NewServiceImpl(repo, discardLogger())

	_, err := svc.SaveItem(context.Background(), uuid.New(), types.SavedEvents, "", nil)

	require.Error(t, err)
	repo.AssertNotCalled(t, "SaveItem", mock.Anything, mock.Anything)
}

func TestSaveItemAssignsIDAndDelegates(t *testing.T) {
	repo := new(MockSavedRepository)
	svc := NewServiceImpl(repo, discardLogger())

	userID := uuid.New()
	payload := json.RawMessage(`{"name":"Rose's Luxury"}`)

	repo.On("SaveItem", mock.Anything, mock.MatchedBy(func(item types.SavedItem) bool {
		return item.UserID == userID &&
			item.Kind == types.SavedRestaurants &&
			item.EntityID == "yelp-42" &&
			item.ID != uuid.Nil
	})).Return(types.SavedItem{UserID: userID, Kind: types.SavedRestaurants, EntityID: "yelp-42", Payload: payload}, nil)

	saved, err := svc.SaveItem(context.Background(), userID, types.SavedRestaurants, "yelp-42", payload)

	require.NoError(t, err)
	assert.Equal(t, "yelp-42", saved.EntityID)
	repo.AssertExpectations(t)
}

func TestListItemsRejectsInvalidKind(t *testing.T) {
	repo := new(MockSavedRepository)
	svc := NewServiceImpl(repo, discardLogger())

	_, err := svc.ListItems(context.Background(), uuid.New(), "favourites")

	require.Error(t, err)
	repo.AssertNotCalled(t, "ListItems", mock.Anything, mock.Anything, mock.Anything)
}

func TestDeleteItemDelegates(t *testing.T) {
	repo := new(MockSavedRepository)
	svc := NewServiceImpl(repo, discardLogger())

	userID := uuid.New()
	repo.On("DeleteItem", mock.Anything, userID, types.SavedPlans, "plan-7").Return(nil)

	err := svc.DeleteItem(context.Background(), userID, types.SavedPlans, "plan-7")

	require.NoError(t, err)
	repo.AssertExpectations(t)
}
