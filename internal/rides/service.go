package rides

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/example/ride-hailing/internal/events"
	"github.com/example/ride-hailing/internal/models"
	"github.com/example/ride-hailing/internal/observability"
	"github.com/example/ride-hailing/internal/storage"
)

// EventSink receives a lifecycle event after each successful mutation.
type EventSink interface {
	Publish(ctx context.Context, ev events.RideEvent) error
}

// LocationIndex mirrors driver positions into a side index.
type LocationIndex interface {
	Upsert(ctx context.Context, driverID string, loc models.LatLng) error
}

// Payments runs the fare hold/capture/release flow around the lifecycle.
type Payments interface {
	Hold(ctx context.Context, fare float64, customerID string) (string, error)
	Capture(ctx context.Context, paymentIntentID string) error
	Release(ctx context.Context, paymentIntentID string) error
}

// Service enforces the ride state machine on top of a RideStore. It runs no
// goroutines of its own; all concurrency comes from callers, and every
// guarded mutation is a single conditional patch in the store. Events,
// location index and payments are optional best-effort collaborators that
// never gate the state change.
type Service struct {
	Store     storage.RideStore
	Events    EventSink
	Locations LocationIndex
	Payments  Payments
	Logger    *slog.Logger
	Estimates Estimator

	// Now and NewID exist for deterministic tests.
	Now   func() time.Time
	NewID func() string

	mu    sync.Mutex
	holds map[string]string // ride id -> payment intent id
}

func NewService(store storage.RideStore, logger *slog.Logger) *Service {
	return &Service{Store: store, Logger: logger}
}

func (s *Service) clock() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

func (s *Service) nextID() string {
	if s.NewID != nil {
		return s.NewID()
	}
	return uuid.NewString()
}

func (s *Service) log() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

// CreateRequest carries everything a requester supplies when booking.
// Zero-valued estimates are filled in by the Estimator.
type CreateRequest struct {
	RequesterID string
	Pickup      models.GeoPoint
	Destination models.GeoPoint
	Fare        float64
	Distance    float64
	Duration    float64
}

// Create validates the request, inserts a pending ride and returns it. The
// record is visible to the query views as soon as Create returns.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*models.Ride, error) {
	if strings.TrimSpace(req.RequesterID) == "" {
		return nil, &models.ValidationError{Field: "requester_id", Reason: "must not be empty"}
	}
	if err := req.Pickup.Validate("pickup"); err != nil {
		return nil, err
	}
	if err := req.Destination.Validate("destination"); err != nil {
		return nil, err
	}
	fare, distance, duration := s.Estimates.Fill(req.Pickup, req.Destination, req.Fare, req.Distance, req.Duration)
	ride := &models.Ride{
		ID:          s.nextID(),
		RequesterID: req.RequesterID,
		Pickup:      req.Pickup,
		Destination: req.Destination,
		Status:      models.StatusPending,
		Fare:        fare,
		Distance:    distance,
		Duration:    duration,
		CreatedAt:   s.clock(),
	}
	if err := s.Store.Insert(ctx, ride); err != nil {
		return nil, err
	}
	observability.RidesCreated.Inc()
	s.holdFare(ctx, ride)
	s.publish(ctx, events.RideEvent{
		Type:        events.TypeRideCreated,
		RideID:      ride.ID,
		RequesterID: ride.RequesterID,
		Status:      ride.Status,
	})
	return ride.Clone(), nil
}

// Accept binds driverID to a pending ride as one compare-and-swap. With
// concurrent accepts exactly one driver wins; losers get ErrConflict when
// the ride went to another driver, ErrInvalidTransition when it had already
// moved past accepted.
func (s *Service) Accept(ctx context.Context, rideID, driverID string) (*models.Ride, error) {
	if strings.TrimSpace(driverID) == "" {
		return nil, &models.ValidationError{Field: "driver_id", Reason: "must not be empty"}
	}
	pending := models.StatusPending
	accepted := models.StatusAccepted
	err := s.Store.Patch(ctx, rideID, storage.Patch{
		ExpectStatus:   &pending,
		ExpectNoDriver: true,
		Status:         &accepted,
		DriverID:       &driverID,
	})
	switch {
	case err == nil:
	case isNotFound(err):
		return nil, fmt.Errorf("accept ride %s: %w", rideID, ErrNotFound)
	case isPrecondition(err):
		cur, gerr := s.Store.Get(ctx, rideID)
		if gerr != nil {
			return nil, gerr
		}
		if cur.Status == models.StatusAccepted {
			observability.AcceptConflicts.Inc()
			return nil, fmt.Errorf("ride %s: %w", rideID, ErrConflict)
		}
		return nil, fmt.Errorf("ride %s is %s: %w", rideID, cur.Status, ErrInvalidTransition)
	default:
		return nil, err
	}
	observability.RidesAccepted.Inc()
	s.publish(ctx, events.RideEvent{
		Type:     events.TypeRideAccepted,
		RideID:   rideID,
		DriverID: driverID,
		Status:   models.StatusAccepted,
	})
	return s.Store.Get(ctx, rideID)
}

// UpdateDriverLocation patches the ride's driver location. Only the bound
// driver may write it, and only while the ride is accepted or in progress.
func (s *Service) UpdateDriverLocation(ctx context.Context, rideID, driverID string, loc models.LatLng) (*models.Ride, error) {
	if err := loc.Validate(); err != nil {
		return nil, err
	}
	ride, err := s.Store.Get(ctx, rideID)
	if err != nil {
		return nil, err
	}
	if ride.Status == models.StatusPending || ride.Status.Terminal() {
		return nil, fmt.Errorf("ride %s is %s: %w", rideID, ride.Status, ErrInvalidTransition)
	}
	if ride.DriverID != driverID {
		return nil, fmt.Errorf("driver %s is not bound to ride %s: %w", driverID, rideID, ErrForbidden)
	}
	err = s.Store.Patch(ctx, rideID, storage.Patch{
		ExpectDriverID: &driverID,
		DriverLocation: &loc,
	})
	switch {
	case err == nil:
	case isNotFound(err):
		return nil, fmt.Errorf("ride %s: %w", rideID, ErrNotFound)
	case isPrecondition(err):
		// the ride was cancelled out from under the driver
		return nil, fmt.Errorf("ride %s no longer bound to %s: %w", rideID, driverID, ErrInvalidTransition)
	default:
		return nil, err
	}
	observability.LocationUpdates.Inc()
	if s.Locations != nil {
		if lerr := s.Locations.Upsert(ctx, driverID, loc); lerr != nil {
			s.log().Warn("location index update failed", "driver_id", driverID, "error", lerr)
		}
	}
	s.publish(ctx, events.RideEvent{
		Type:     events.TypeDriverLocation,
		RideID:   rideID,
		DriverID: driverID,
		Location: &loc,
	})
	return s.Store.Get(ctx, rideID)
}

// Advance performs the expectedCurrent -> next transition as a conditional
// patch. Any edge not in the transition table fails before touching the
// store.
func (s *Service) Advance(ctx context.Context, rideID string, expectedCurrent, next models.Status) (*models.Ride, error) {
	if !expectedCurrent.Valid() || !next.Valid() {
		return nil, &models.ValidationError{Field: "status", Reason: "unknown status value"}
	}
	if !models.CanTransition(expectedCurrent, next) {
		return nil, fmt.Errorf("%s -> %s: %w", expectedCurrent, next, ErrInvalidTransition)
	}
	if next == models.StatusAccepted {
		// the pending -> accepted edge binds a driver and only Accept
		// may take it
		return nil, fmt.Errorf("%s -> %s requires a driver: %w", expectedCurrent, next, ErrInvalidTransition)
	}
	patch := storage.Patch{ExpectStatus: &expectedCurrent, Status: &next}
	if next == models.StatusCancelled {
		patch.ClearDriver = true
	}
	err := s.Store.Patch(ctx, rideID, patch)
	switch {
	case err == nil:
	case isNotFound(err):
		return nil, fmt.Errorf("advance ride %s: %w", rideID, ErrNotFound)
	case isPrecondition(err):
		cur, gerr := s.Store.Get(ctx, rideID)
		if gerr != nil {
			return nil, gerr
		}
		return nil, fmt.Errorf("ride %s is %s, not %s: %w", rideID, cur.Status, expectedCurrent, ErrInvalidTransition)
	default:
		return nil, err
	}
	observability.StatusTransitions.WithLabelValues(string(next)).Inc()
	s.settleFare(ctx, rideID, next)
	s.publish(ctx, events.RideEvent{
		Type:   events.TypeStatusChanged,
		RideID: rideID,
		Status: next,
	})
	return s.Store.Get(ctx, rideID)
}

// cancelRetries bounds the read-check-patch loop in Cancel when the record
// moves concurrently.
const cancelRetries = 3

// Cancel moves a non-terminal ride to cancelled. Only the requester or the
// bound driver may cancel. The driver binding is cleared so cancelled rides
// never carry a driver id.
func (s *Service) Cancel(ctx context.Context, rideID, actorID string) (*models.Ride, error) {
	if strings.TrimSpace(actorID) == "" {
		return nil, &models.ValidationError{Field: "actor_id", Reason: "must not be empty"}
	}
	cancelled := models.StatusCancelled
	for attempt := 0; attempt < cancelRetries; attempt++ {
		ride, err := s.Store.Get(ctx, rideID)
		if err != nil {
			return nil, err
		}
		if ride.Status.Terminal() {
			return nil, fmt.Errorf("ride %s is %s: %w", rideID, ride.Status, ErrInvalidTransition)
		}
		if actorID != ride.RequesterID && (ride.DriverID == "" || actorID != ride.DriverID) {
			return nil, fmt.Errorf("actor %s: %w", actorID, ErrForbidden)
		}
		current := ride.Status
		err = s.Store.Patch(ctx, rideID, storage.Patch{
			ExpectStatus: &current,
			Status:       &cancelled,
			ClearDriver:  true,
		})
		if isPrecondition(err) {
			continue // record moved, re-read and re-check
		}
		if err != nil {
			return nil, err
		}
		observability.StatusTransitions.WithLabelValues(string(cancelled)).Inc()
		s.settleFare(ctx, rideID, cancelled)
		s.publish(ctx, events.RideEvent{
			Type:   events.TypeStatusChanged,
			RideID: rideID,
			Status: cancelled,
		})
		return s.Store.Get(ctx, rideID)
	}
	return nil, fmt.Errorf("cancel ride %s kept losing to concurrent updates: %w", rideID, ErrConflict)
}

// holdFare places a manual-capture hold for the fare estimate. Failures are
// logged, never surfaced; payment processing is not part of the contract.
func (s *Service) holdFare(ctx context.Context, ride *models.Ride) {
	if s.Payments == nil {
		return
	}
	intentID, err := s.Payments.Hold(ctx, ride.Fare, ride.RequesterID)
	if err != nil {
		s.log().Warn("fare hold failed", "ride_id", ride.ID, "error", err)
		return
	}
	s.mu.Lock()
	if s.holds == nil {
		s.holds = make(map[string]string)
	}
	s.holds[ride.ID] = intentID
	s.mu.Unlock()
}

// settleFare captures the hold on completion and releases it on cancel.
func (s *Service) settleFare(ctx context.Context, rideID string, status models.Status) {
	if s.Payments == nil || !status.Terminal() {
		return
	}
	s.mu.Lock()
	intentID, ok := s.holds[rideID]
	delete(s.holds, rideID)
	s.mu.Unlock()
	if !ok {
		return
	}
	var err error
	if status == models.StatusCompleted {
		err = s.Payments.Capture(ctx, intentID)
	} else {
		err = s.Payments.Release(ctx, intentID)
	}
	if err != nil {
		s.log().Warn("fare settlement failed", "ride_id", rideID, "status", status, "error", err)
	}
}

func (s *Service) publish(ctx context.Context, ev events.RideEvent) {
	if s.Events == nil {
		return
	}
	ev.At = s.clock()
	if err := s.Events.Publish(ctx, ev); err != nil {
		s.log().Warn("event publish failed", "type", ev.Type, "ride_id", ev.RideID, "error", err)
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, storage.ErrNotFound)
}

func isPrecondition(err error) bool {
	return errors.Is(err, storage.ErrPrecondition)
}
