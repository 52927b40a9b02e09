package models

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// ValidationError reports a malformed field on input. It never indicates a
// state problem; callers can treat it as a permanent client error.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// LatLng is a bare coordinate pair, used for driver location updates.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (l LatLng) Validate() error {
	if math.IsNaN(l.Lat) || math.IsInf(l.Lat, 0) || l.Lat < -90 || l.Lat > 90 {
		return invalid("lat", fmt.Sprintf("latitude %v out of range", l.Lat))
	}
	if math.IsNaN(l.Lng) || math.IsInf(l.Lng, 0) || l.Lng < -180 || l.Lng > 180 {
		return invalid("lng", fmt.Sprintf("longitude %v out of range", l.Lng))
	}
	return nil
}

// GeoPoint is a coordinate pair plus the human-readable address shown to
// riders and drivers. Pickup and destination are GeoPoints.
type GeoPoint struct {
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Address string  `json:"address"`
}

func (g GeoPoint) LatLng() LatLng { return LatLng{Lat: g.Lat, Lng: g.Lng} }

func (g GeoPoint) Validate(field string) error {
	if err := (LatLng{Lat: g.Lat, Lng: g.Lng}).Validate(); err != nil {
		return invalid(field, err.Error())
	}
	if strings.TrimSpace(g.Address) == "" {
		return invalid(field+".address", "address must not be empty")
	}
	return nil
}

// Ride is the single persisted entity: one trip request from creation to a
// terminal status. Field names and optionality are part of the wire
// contract; everything except Status, DriverID and DriverLocation is
// immutable after creation.
type Ride struct {
	ID             string    `json:"id"`
	RequesterID    string    `json:"requester_id"`
	DriverID       string    `json:"driver_id,omitempty"`
	Pickup         GeoPoint  `json:"pickup"`
	Destination    GeoPoint  `json:"destination"`
	Status         Status    `json:"status"`
	Fare           float64   `json:"fare"`
	Distance       float64   `json:"distance"`
	Duration       float64   `json:"duration"`
	CreatedAt      time.Time `json:"created_at"`
	DriverLocation *LatLng   `json:"driver_location,omitempty"`
}

// Validate checks every field a store is willing to persist. Estimates must
// already be filled in; zero is rejected here.
func (r *Ride) Validate() error {
	if r.ID == "" {
		return invalid("id", "must not be empty")
	}
	if strings.TrimSpace(r.RequesterID) == "" {
		return invalid("requester_id", "must not be empty")
	}
	if err := r.Pickup.Validate("pickup"); err != nil {
		return err
	}
	if err := r.Destination.Validate("destination"); err != nil {
		return err
	}
	if !r.Status.Valid() {
		return invalid("status", fmt.Sprintf("unknown status %q", r.Status))
	}
	for _, v := range []struct {
		name  string
		value float64
	}{{"fare", r.Fare}, {"distance", r.Distance}, {"duration", r.Duration}} {
		if math.IsNaN(v.value) || math.IsInf(v.value, 0) || v.value <= 0 {
			return invalid(v.name, "must be a positive number")
		}
	}
	if r.CreatedAt.IsZero() {
		return invalid("created_at", "must be set")
	}
	if r.DriverLocation != nil {
		if err := r.DriverLocation.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Clone returns a deep copy so store internals never leak mutable state.
func (r *Ride) Clone() *Ride {
	cp := *r
	if r.DriverLocation != nil {
		loc := *r.DriverLocation
		cp.DriverLocation = &loc
	}
	return &cp
}
