package types

import "time"

// TransportMode selects the travel-time heuristic between plan stops.
type TransportMode string

const (
	TransportDriving TransportMode = "driving"
	TransportWalking TransportMode = "walking"
	TransportTransit TransportMode = "transit"
)

type PlanLocation struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// DatePlanRequest is the planner input. Duration is hours, Budget dollars.
type DatePlanRequest struct {
	Date          time.Time     `json:"date"`
	StartTime     string        `json:"start_time"` // "HH:MM"
	Duration      int           `json:"duration"`
	Budget        float64       `json:"budget"`
	Location      *PlanLocation `json:"location"`
	Preferences   []string      `json:"preferences,omitempty"`
	TransportMode TransportMode `json:"transport_mode"`
}

// DatePlan is an ordered stop sequence with per-leg travel minutes.
type DatePlan struct {
	Events      []Event `json:"events"`
	TotalCost   float64 `json:"total_cost"`
	TravelTimes []int   `json:"travel_times"`
}
