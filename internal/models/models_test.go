package models

import (
	"errors"
	"testing"
	"time"
)

func validRide() *Ride {
	return &Ride{
		ID:          "ride-1",
		RequesterID: "r1",
		Pickup:      GeoPoint{Lat: 0, Lng: 0, Address: "A"},
		Destination: GeoPoint{Lat: 1, Lng: 1, Address: "B"},
		Status:      StatusPending,
		Fare:        20,
		Distance:    5,
		Duration:    15,
		CreatedAt:   time.Now(),
	}
}

func TestRideValidateOK(t *testing.T) {
	if err := validRide().Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRideValidateRejects(t *testing.T) {
	cases := map[string]func(*Ride){
		"empty requester":  func(r *Ride) { r.RequesterID = "  " },
		"lat out of range": func(r *Ride) { r.Pickup.Lat = 91 },
		"lng out of range": func(r *Ride) { r.Destination.Lng = -181 },
		"empty address":    func(r *Ride) { r.Pickup.Address = "" },
		"zero fare":        func(r *Ride) { r.Fare = 0 },
		"negative dist":    func(r *Ride) { r.Distance = -1 },
		"zero duration":    func(r *Ride) { r.Duration = 0 },
		"bad status":       func(r *Ride) { r.Status = "driving" },
	}
	for name, mutate := range cases {
		r := validRide()
		mutate(r)
		err := r.Validate()
		if err == nil {
			t.Fatalf("%s: expected error", name)
		}
		var ve *ValidationError
		if !errors.As(err, &ve) {
			t.Fatalf("%s: expected ValidationError, got %T", name, err)
		}
	}
}

func TestCloneIsDeep(t *testing.T) {
	r := validRide()
	r.DriverLocation = &LatLng{Lat: 2, Lng: 3}
	cp := r.Clone()
	cp.DriverLocation.Lat = 99
	if r.DriverLocation.Lat != 2 {
		t.Fatalf("clone shares driver location")
	}
}

func TestTransitions(t *testing.T) {
	allowed := [][2]Status{
		{StatusPending, StatusAccepted},
		{StatusPending, StatusCancelled},
		{StatusAccepted, StatusInProgress},
		{StatusAccepted, StatusCancelled},
		{StatusInProgress, StatusCompleted},
		{StatusInProgress, StatusCancelled},
	}
	for _, e := range allowed {
		if !CanTransition(e[0], e[1]) {
			t.Fatalf("expected %s -> %s allowed", e[0], e[1])
		}
	}
	denied := [][2]Status{
		{StatusPending, StatusInProgress},
		{StatusPending, StatusCompleted},
		{StatusAccepted, StatusCompleted},
		{StatusCompleted, StatusInProgress},
		{StatusCompleted, StatusCancelled},
		{StatusCancelled, StatusPending},
		{StatusCancelled, StatusAccepted},
	}
	for _, e := range denied {
		if CanTransition(e[0], e[1]) {
			t.Fatalf("expected %s -> %s denied", e[0], e[1])
		}
	}
}

func TestTerminalHasNoEdges(t *testing.T) {
	all := []Status{StatusPending, StatusAccepted, StatusInProgress, StatusCompleted, StatusCancelled}
	for _, term := range []Status{StatusCompleted, StatusCancelled} {
		for _, to := range all {
			if CanTransition(term, to) {
				t.Fatalf("terminal %s must not transition to %s", term, to)
			}
		}
	}
}
