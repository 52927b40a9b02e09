package rides

import (
	"github.com/example/ride-hailing/internal/geo"
	"github.com/example/ride-hailing/internal/models"
)

// Estimator fills in fare, distance and duration when the caller did not
// pre-compute them. Distance is straight-line km, duration minutes at a
// flat city speed, fare base plus per-km. Naive on purpose; routing engines
// are out of scope.
type Estimator struct {
	SpeedKmh  float64
	FareBase  float64
	FarePerKm float64
}

const (
	defaultSpeedKmh  = 30.0
	defaultFareBase  = 2.5
	defaultFarePerKm = 1.5
)

// Fill returns fare, distance and duration with zero inputs replaced by
// estimates. Non-zero inputs pass through untouched.
func (e Estimator) Fill(pickup, dest models.GeoPoint, fare, distance, duration float64) (float64, float64, float64) {
	speed := e.SpeedKmh
	if speed <= 0 {
		speed = defaultSpeedKmh
	}
	base := e.FareBase
	if base <= 0 {
		base = defaultFareBase
	}
	perKm := e.FarePerKm
	if perKm <= 0 {
		perKm = defaultFarePerKm
	}
	if distance == 0 {
		distance = geo.HaversineKm(pickup.LatLng(), dest.LatLng())
	}
	if duration == 0 {
		duration = distance / speed * 60.0
	}
	if fare == 0 {
		fare = base + perKm*distance
	}
	return fare, distance, duration
}
