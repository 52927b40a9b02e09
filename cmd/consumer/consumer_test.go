package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/ride-hailing/internal/models"
)

// fakeIndex fails the first failures calls, then succeeds.
type fakeIndex struct {
	failures int
	calls    int
}

func (f *fakeIndex) Upsert(ctx context.Context, driverID string, loc models.LatLng) error {
	f.calls++
	if f.calls <= f.failures {
		return errors.New("redis down")
	}
	return nil
}

func TestApplyWithRetrySucceedsAfterRetries(t *testing.T) {
	f := &fakeIndex{failures: 2}
	loc := models.LatLng{Lat: 1, Lng: 2}
	start := time.Now()
	if err := applyWithRetry(context.Background(), f, "d1", loc, 3, 10*time.Millisecond); err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if f.calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", f.calls)
	}
	if time.Since(start) < 10*time.Millisecond {
		t.Fatal("expected at least one backoff")
	}
}

func TestApplyWithRetryFailsWhenExhausted(t *testing.T) {
	f := &fakeIndex{failures: 5}
	loc := models.LatLng{Lat: 1, Lng: 2}
	if err := applyWithRetry(context.Background(), f, "d1", loc, 3, time.Millisecond); err == nil {
		t.Fatal("expected error after retries")
	}
	if f.calls != 3 {
		t.Fatalf("expected exactly 3 attempts, got %d", f.calls)
	}
}
