package geo

import (
	"math"
	"testing"

	"github.com/example/ride-hailing/internal/models"
)

func TestHaversineZero(t *testing.T) {
	d := Haversine(models.LatLng{}, models.LatLng{})
	if d != 0 {
		t.Fatalf("expected 0, got %f", d)
	}
}

func TestHaversineKnownDistance(t *testing.T) {
	// one degree of latitude is ~111.2 km
	a := models.LatLng{Lat: 0, Lng: 0}
	b := models.LatLng{Lat: 1, Lng: 0}
	km := HaversineKm(a, b)
	if math.Abs(km-111.2) > 1.0 {
		t.Fatalf("expected ~111.2km, got %f", km)
	}
}
