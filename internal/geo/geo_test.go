package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistance(t *testing.T) {
	t.Run("same point is zero", func(t *testing.T) {
		assert.Zero(t, Distance(38.9, -77.0, 38.9, -77.0))
	})

	t.Run("symmetric", func(t *testing.T) {
		d1 := Distance(38.9072, -77.0369, 40.7128, -74.0060)
		d2 := Distance(40.7128, -74.0060, 38.9072, -77.0369)
		assert.InDelta(t, d1, d2, 1e-9)
	})

	t.Run("dc to nyc is roughly 204 miles", func(t *testing.T) {
		d := Distance(38.9072, -77.0369, 40.7128, -74.0060)
		assert.InDelta(t, 204, d, 3)
	})

	t.Run("one degree of latitude is roughly 69 miles", func(t *testing.T) {
		d := Distance(38.0, -77.0, 39.0, -77.0)
		assert.InDelta(t, 69.1, d, 0.5)
	})
}
