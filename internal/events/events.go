package events

import (
	"time"

	"github.com/example/ride-hailing/internal/models"
)

// Event types emitted on the ride-events topic.
const (
	TypeRideCreated    = "ride_created"
	TypeRideAccepted   = "ride_accepted"
	TypeStatusChanged  = "ride_status_changed"
	TypeDriverLocation = "driver_location"
)

// RideEvent is the wire record for every lifecycle mutation. Events are
// best-effort observability; consumers must treat the store as the source
// of truth.
type RideEvent struct {
	Type        string         `json:"type"`
	RideID      string         `json:"ride_id"`
	RequesterID string         `json:"requester_id,omitempty"`
	DriverID    string         `json:"driver_id,omitempty"`
	Status      models.Status  `json:"status,omitempty"`
	Location    *models.LatLng `json:"location,omitempty"`
	At          time.Time      `json:"at"`
}
