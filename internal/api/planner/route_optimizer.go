package planner

import (
	"github.com/dateai/dateai-server/internal/geo"
	"github.com/dateai/dateai-server/internal/types"
)

// OptimizeRoute reorders stops with a nearest-neighbor pass: the first stop
// stays fixed, and each next stop is the unvisited one closest to the last
// placed stop. Inputs with fewer than two stops come back unchanged. The
// result is a greedy approximation, not a shortest route.
func (s *ServiceImpl) OptimizeRoute(stops []types.Event) []types.Event {
	if len(stops) < 2 {
		return stops
	}

	remaining := make([]types.Event, len(stops)-1)
	copy(remaining, stops[1:])

	ordered := make([]types.Event, 0, len(stops))
	ordered = append(ordered, stops[0])

	for len(remaining) > 0 {
		last := ordered[len(ordered)-1]
		nearest := 0
		best := geo.Distance(
			last.Location.Latitude, last.Location.Longitude,
			remaining[0].Location.Latitude, remaining[0].Location.Longitude)
		for i := 1; i < len(remaining); i++ {
			d := geo.Distance(
				last.Location.Latitude, last.Location.Longitude,
				remaining[i].Location.Latitude, remaining[i].Location.Longitude)
			if d < best {
				best = d
				nearest = i
			}
		}
		ordered = append(ordered, remaining[nearest])
		remaining = append(remaining[:nearest], remaining[nearest+1:]...)
	}
	return ordered
}
