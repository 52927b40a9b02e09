package storage

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/example/ride-hailing/internal/models"
)

func newRide(id string, created time.Time) *models.Ride {
	return &models.Ride{
		ID:          id,
		RequesterID: "r1",
		Pickup:      models.GeoPoint{Lat: 0, Lng: 0, Address: "A"},
		Destination: models.GeoPoint{Lat: 1, Lng: 1, Address: "B"},
		Status:      models.StatusPending,
		Fare:        20,
		Distance:    5,
		Duration:    15,
		CreatedAt:   created,
	}
}

func TestInsertGetRoundTrip(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	r := newRide("ride-1", time.Now())
	if err := s.Insert(ctx, r); err != nil {
		t.Fatalf("insert: %v", err)
	}
	got, err := s.Get(ctx, "ride-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.RequesterID != "r1" || got.Pickup.Address != "A" || got.Status != models.StatusPending {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	// returned copy must not alias store state
	got.Status = models.StatusCompleted
	again, _ := s.Get(ctx, "ride-1")
	if again.Status != models.StatusPending {
		t.Fatal("Get leaked mutable store state")
	}
}

func TestInsertValidates(t *testing.T) {
	s := NewMemoryStore()
	r := newRide("ride-1", time.Now())
	r.Fare = -3
	err := s.Insert(context.Background(), r)
	var ve *models.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestGetUnknown(t *testing.T) {
	s := NewMemoryStore()
	if _, err := s.Get(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPatchGuards(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	if err := s.Insert(ctx, newRide("ride-1", time.Now())); err != nil {
		t.Fatal(err)
	}

	accepted := models.StatusAccepted
	pending := models.StatusPending
	d1 := "d1"

	if err := s.Patch(ctx, "missing", Patch{Status: &accepted}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	// guard matches: pending -> accepted with driver bound
	err := s.Patch(ctx, "ride-1", Patch{ExpectStatus: &pending, ExpectNoDriver: true, Status: &accepted, DriverID: &d1})
	if err != nil {
		t.Fatalf("patch: %v", err)
	}
	// guard no longer matches
	err = s.Patch(ctx, "ride-1", Patch{ExpectStatus: &pending, Status: &accepted})
	if !errors.Is(err, ErrPrecondition) {
		t.Fatalf("expected ErrPrecondition, got %v", err)
	}
	r, _ := s.Get(ctx, "ride-1")
	if r.Status != models.StatusAccepted || r.DriverID != "d1" {
		t.Fatalf("unexpected state: %+v", r)
	}
}

func TestPatchClearDriver(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	r := newRide("ride-1", time.Now())
	r.Status = models.StatusAccepted
	r.DriverID = "d1"
	r.DriverLocation = &models.LatLng{Lat: 2, Lng: 3}
	if err := s.Insert(ctx, r); err != nil {
		t.Fatal(err)
	}
	cancelled := models.StatusCancelled
	if err := s.Patch(ctx, "ride-1", Patch{Status: &cancelled, ClearDriver: true}); err != nil {
		t.Fatal(err)
	}
	got, _ := s.Get(ctx, "ride-1")
	if got.DriverID != "" || got.DriverLocation != nil {
		t.Fatalf("driver not cleared: %+v", got)
	}
}

func TestConcurrentConditionalPatchSingleWinner(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	if err := s.Insert(ctx, newRide("ride-1", time.Now())); err != nil {
		t.Fatal(err)
	}

	pending := models.StatusPending
	accepted := models.StatusAccepted

	const contenders = 32
	var wg sync.WaitGroup
	wins := make(chan string, contenders)
	for i := 0; i < contenders; i++ {
		driver := string(rune('a' + i))
		wg.Add(1)
		go func() {
			defer wg.Done()
			d := driver
			err := s.Patch(ctx, "ride-1", Patch{ExpectStatus: &pending, ExpectNoDriver: true, Status: &accepted, DriverID: &d})
			if err == nil {
				wins <- d
			} else if !errors.Is(err, ErrPrecondition) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()
	close(wins)
	var winners []string
	for w := range wins {
		winners = append(winners, w)
	}
	if len(winners) != 1 {
		t.Fatalf("expected exactly one winner, got %d", len(winners))
	}
	r, _ := s.Get(ctx, "ride-1")
	if r.DriverID != winners[0] {
		t.Fatalf("driver %q does not match winner %q", r.DriverID, winners[0])
	}
}

func TestListFilterAndOrder(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	base := time.Now()
	for i, id := range []string{"old", "mid", "new"} {
		r := newRide(id, base.Add(time.Duration(i)*time.Second))
		if id == "mid" {
			r.RequesterID = "r2"
		}
		if err := s.Insert(ctx, r); err != nil {
			t.Fatal(err)
		}
	}
	all, err := s.List(ctx, Filter{Status: models.StatusPending})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 || all[0].ID != "new" || all[2].ID != "old" {
		t.Fatalf("unexpected order: %+v", all)
	}
	mine, err := s.List(ctx, Filter{RequesterID: "r2"})
	if err != nil {
		t.Fatal(err)
	}
	if len(mine) != 1 || mine[0].ID != "mid" {
		t.Fatalf("unexpected filter result: %+v", mine)
	}
	none, err := s.List(ctx, Filter{DriverID: "d9"})
	if err != nil {
		t.Fatal(err)
	}
	if len(none) != 0 {
		t.Fatalf("expected empty, got %+v", none)
	}
}
