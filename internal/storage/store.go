package storage

import (
	"context"
	"errors"

	"github.com/example/ride-hailing/internal/models"
)

var (
	// ErrNotFound is returned when the ride id is unknown to the store.
	ErrNotFound = errors.New("ride not found")
	// ErrPrecondition is returned when a Patch guard does not match the
	// stored record. The record is left untouched.
	ErrPrecondition = errors.New("ride precondition failed")
)

// Patch is a partial update applied to one ride as a single indivisible
// step. The Expect* fields are guards checked inside the same step; a
// failed guard yields ErrPrecondition. This is the primitive that makes
// accept a true compare-and-swap instead of read-then-write.
type Patch struct {
	ExpectStatus   *models.Status
	ExpectDriverID *string
	ExpectNoDriver bool

	Status         *models.Status
	DriverID       *string
	ClearDriver    bool
	DriverLocation *models.LatLng
}

// Filter selects rides for List. Zero values match everything; results are
// always ordered newest-first.
type Filter struct {
	Status      models.Status
	RequesterID string
	DriverID    string
}

// RideStore is durable keyed storage for rides with per-record atomicity.
// No implementation offers multi-record transactions; the lifecycle service
// does not need them.
type RideStore interface {
	Insert(ctx context.Context, r *models.Ride) error
	Get(ctx context.Context, id string) (*models.Ride, error)
	Patch(ctx context.Context, id string, p Patch) error
	List(ctx context.Context, f Filter) ([]*models.Ride, error)
}

// check evaluates p's guards against the current record.
func (p Patch) check(r *models.Ride) error {
	if p.ExpectStatus != nil && r.Status != *p.ExpectStatus {
		return ErrPrecondition
	}
	if p.ExpectNoDriver && r.DriverID != "" {
		return ErrPrecondition
	}
	if p.ExpectDriverID != nil && r.DriverID != *p.ExpectDriverID {
		return ErrPrecondition
	}
	return nil
}

// apply writes p's updates onto r. Guards must have been checked first.
func (p Patch) apply(r *models.Ride) {
	if p.Status != nil {
		r.Status = *p.Status
	}
	if p.DriverID != nil {
		r.DriverID = *p.DriverID
	}
	if p.ClearDriver {
		r.DriverID = ""
		r.DriverLocation = nil
	}
	if p.DriverLocation != nil {
		loc := *p.DriverLocation
		r.DriverLocation = &loc
	}
}

func (f Filter) matches(r *models.Ride) bool {
	if f.Status != "" && r.Status != f.Status {
		return false
	}
	if f.RequesterID != "" && r.RequesterID != f.RequesterID {
		return false
	}
	if f.DriverID != "" && r.DriverID != f.DriverID {
		return false
	}
	return true
}
