package geo

import (
	"math"

	"github.com/example/ride-hailing/internal/models"
)

// Haversine distance in meters
func Haversine(a, b models.LatLng) float64 {
	const R = 6371000.0
	toRad := func(deg float64) float64 { return deg * math.Pi / 180.0 }
	dLat := toRad(b.Lat - a.Lat)
	dLng := toRad(b.Lng - a.Lng)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(a.Lat))*math.Cos(toRad(b.Lat))*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return R * c
}

// HaversineKm is Haversine in kilometers, the unit ride estimates use.
func HaversineKm(a, b models.LatLng) float64 {
	return Haversine(a, b) / 1000.0
}
