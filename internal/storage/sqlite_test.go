package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/example/ride-hailing/internal/models"
)

func newSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "rides.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteRoundTrip(t *testing.T) {
	s := newSQLite(t)
	ctx := context.Background()
	r := newRide("ride-1", time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	if err := s.Insert(ctx, r); err != nil {
		t.Fatalf("insert: %v", err)
	}
	got, err := s.Get(ctx, "ride-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.RequesterID != r.RequesterID || got.Pickup != r.Pickup || got.Destination != r.Destination {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	if got.Status != models.StatusPending || got.DriverID != "" || got.DriverLocation != nil {
		t.Fatalf("unexpected state: %+v", got)
	}
	if _, err := s.Get(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSQLiteConditionalPatch(t *testing.T) {
	s := newSQLite(t)
	ctx := context.Background()
	if err := s.Insert(ctx, newRide("ride-1", time.Now().UTC())); err != nil {
		t.Fatal(err)
	}

	pending := models.StatusPending
	accepted := models.StatusAccepted
	d1 := "d1"

	err := s.Patch(ctx, "ride-1", Patch{ExpectStatus: &pending, ExpectNoDriver: true, Status: &accepted, DriverID: &d1})
	if err != nil {
		t.Fatalf("first accept: %v", err)
	}
	// second accept loses the guard
	d2 := "d2"
	err = s.Patch(ctx, "ride-1", Patch{ExpectStatus: &pending, ExpectNoDriver: true, Status: &accepted, DriverID: &d2})
	if !errors.Is(err, ErrPrecondition) {
		t.Fatalf("expected ErrPrecondition, got %v", err)
	}
	if err := s.Patch(ctx, "missing", Patch{Status: &accepted}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	loc := models.LatLng{Lat: 0.5, Lng: 0.5}
	if err := s.Patch(ctx, "ride-1", Patch{ExpectDriverID: &d1, DriverLocation: &loc}); err != nil {
		t.Fatalf("location patch: %v", err)
	}
	got, _ := s.Get(ctx, "ride-1")
	if got.DriverID != "d1" || got.DriverLocation == nil || got.DriverLocation.Lat != 0.5 {
		t.Fatalf("unexpected state: %+v", got)
	}

	cancelled := models.StatusCancelled
	if err := s.Patch(ctx, "ride-1", Patch{Status: &cancelled, ClearDriver: true}); err != nil {
		t.Fatal(err)
	}
	got, _ = s.Get(ctx, "ride-1")
	if got.DriverID != "" || got.DriverLocation != nil || got.Status != models.StatusCancelled {
		t.Fatalf("driver not cleared: %+v", got)
	}
}

func TestSQLiteListOrder(t *testing.T) {
	s := newSQLite(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		if err := s.Insert(ctx, newRide(id, base.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatal(err)
		}
	}
	got, err := s.List(ctx, Filter{Status: models.StatusPending})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 || got[0].ID != "c" || got[2].ID != "a" {
		t.Fatalf("unexpected order: %+v", got)
	}
}
