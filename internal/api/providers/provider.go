// Package providers contains one adapter per upstream event source. Every
// adapter normalizes its upstream's response shape into the canonical
// types.Event record and keeps its failures to itself: the aggregator only
// ever sees a slice of valid events or an error it will collapse to empty.
package providers

import (
	"context"
	"net/http"
	"time"

	"github.com/dateai/dateai-server/internal/types"
)

// requestTimeout bounds every upstream call, including all pages of a
// paginated fetch.
const requestTimeout = 30 * time.Second

// EventProvider is the single capability the aggregator depends on.
type EventProvider interface {
	Name() string
	Search(ctx context.Context, params types.SearchParams) ([]types.Event, error)
}

// Doer is the slice of *http.Client the adapters need, kept as an interface
// so tests can stub upstream responses.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Geocoder resolves a city name from coordinates. The RapidAPI and
// Eventbrite upstreams search by place name rather than lat/lon, so those
// adapters reverse-geocode before querying.
type Geocoder interface {
	ReverseCity(ctx context.Context, latitude, longitude float64) (string, error)
}
