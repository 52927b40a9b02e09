package rides

import (
	"context"

	"github.com/example/ride-hailing/internal/models"
	"github.com/example/ride-hailing/internal/storage"
)

// Query views: pure reads over store state at the instant of the call,
// newest-first. Nothing here mutates or caches; presentation surfaces poll
// these on their own cadence.

// Pending returns every ride still waiting for a driver.
func (s *Service) Pending(ctx context.Context) ([]*models.Ride, error) {
	return s.Store.List(ctx, storage.Filter{Status: models.StatusPending})
}

// ByID returns a single ride or ErrNotFound.
func (s *Service) ByID(ctx context.Context, rideID string) (*models.Ride, error) {
	return s.Store.Get(ctx, rideID)
}

// ByRequester returns all rides booked by a requester.
func (s *Service) ByRequester(ctx context.Context, requesterID string) ([]*models.Ride, error) {
	return s.Store.List(ctx, storage.Filter{RequesterID: requesterID})
}

// ByDriver returns all rides bound to a driver.
func (s *Service) ByDriver(ctx context.Context, driverID string) ([]*models.Ride, error) {
	return s.Store.List(ctx, storage.Filter{DriverID: driverID})
}
