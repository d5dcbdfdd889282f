// Package geo holds the distance helpers shared by the provider adapters,
// the aggregator and the route optimizer.
package geo

import "math"

// EarthRadiusMiles is the radius used for all haversine math in this service.
const EarthRadiusMiles = 3959.0

// MetersPerMile converts the restaurant distance unit (meters) from miles.
const MetersPerMile = 1609.34

// Distance returns the great-circle distance in miles between two points.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusMiles * c
}

func toRad(degrees float64) float64 {
	return degrees * (math.Pi / 180)
}
