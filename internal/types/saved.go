package types

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// SavedKind partitions a user's saved items.
type SavedKind string

const (
	SavedEvents      SavedKind = "events"
	SavedRestaurants SavedKind = "restaurants"
	SavedPlans       SavedKind = "plans"
)

func ValidSavedKind(k SavedKind) bool {
	switch k {
	case SavedEvents, SavedRestaurants, SavedPlans:
		return true
	}
	return false
}

// SavedItem is one persisted event, restaurant or plan. Payload holds the
// record as the client saw it; the server never reinterprets it.
type SavedItem struct {
	ID        uuid.UUID       `json:"id"`
	UserID    uuid.UUID       `json:"user_id"`
	Kind      SavedKind       `json:"kind"`
	EntityID  string          `json:"entity_id"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}
