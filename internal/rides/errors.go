package rides

import (
	"errors"

	"github.com/example/ride-hailing/internal/storage"
)

// Error taxonomy returned to collaborators. Validation failures carry a
// *models.ValidationError; everything else matches one of these sentinels
// via errors.Is. The service never retries on the caller's behalf.
var (
	// ErrNotFound: the referenced ride does not exist.
	ErrNotFound = storage.ErrNotFound
	// ErrConflict: lost a concurrent accept race; another driver holds
	// the ride.
	ErrConflict = errors.New("ride already accepted by another driver")
	// ErrInvalidTransition: the ride's status does not permit the
	// requested operation.
	ErrInvalidTransition = errors.New("invalid ride status transition")
	// ErrForbidden: the acting party has no rights over this ride.
	ErrForbidden = errors.New("actor may not modify this ride")
)
