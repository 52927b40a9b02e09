package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/example/ride-hailing/internal/models"
	"github.com/example/ride-hailing/internal/rides"
)

type createRideRequest struct {
	RequesterID string          `json:"requester_id"`
	Pickup      models.GeoPoint `json:"pickup"`
	Destination models.GeoPoint `json:"destination"`
	Fare        float64         `json:"fare"`
	Distance    float64         `json:"distance"`
	Duration    float64         `json:"duration"`
}

type acceptRideRequest struct {
	DriverID string `json:"driver_id"`
}

type driverLocationRequest struct {
	DriverID string  `json:"driver_id"`
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
}

type rideStatusRequest struct {
	Status  string `json:"status"`
	ActorID string `json:"actor_id"`
}

func (s *Server) handleCreateRide(w http.ResponseWriter, r *http.Request) {
	var req createRideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, &models.ValidationError{Field: "body", Reason: err.Error()})
		return
	}
	ride, err := s.rides.Create(r.Context(), rides.CreateRequest{
		RequesterID: req.RequesterID,
		Pickup:      req.Pickup,
		Destination: req.Destination,
		Fare:        req.Fare,
		Distance:    req.Distance,
		Duration:    req.Duration,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.watch.Broadcast(ride.ID, ride)
	s.writeJSON(w, http.StatusCreated, map[string]string{"ride_id": ride.ID})
}

func (s *Server) handleAcceptRide(w http.ResponseWriter, r *http.Request) {
	var req acceptRideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, &models.ValidationError{Field: "body", Reason: err.Error()})
		return
	}
	ride, err := s.rides.Accept(r.Context(), mux.Vars(r)["ride_id"], req.DriverID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.watch.Broadcast(ride.ID, ride)
	s.writeJSON(w, http.StatusOK, ride)
}

func (s *Server) handleDriverLocation(w http.ResponseWriter, r *http.Request) {
	var req driverLocationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, &models.ValidationError{Field: "body", Reason: err.Error()})
		return
	}
	ride, err := s.rides.UpdateDriverLocation(r.Context(), mux.Vars(r)["ride_id"], req.DriverID,
		models.LatLng{Lat: req.Lat, Lng: req.Lng})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.watch.Broadcast(ride.ID, ride)
	s.writeJSON(w, http.StatusOK, ride)
}

// expectedBefore maps an advance target to the only status it may leave
// from, so the wire operation can stay "set status X" while the service
// still runs a guarded transition.
var expectedBefore = map[models.Status]models.Status{
	models.StatusInProgress: models.StatusAccepted,
	models.StatusCompleted:  models.StatusInProgress,
}

func (s *Server) handleRideStatus(w http.ResponseWriter, r *http.Request) {
	var req rideStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, &models.ValidationError{Field: "body", Reason: err.Error()})
		return
	}
	rideID := mux.Vars(r)["ride_id"]
	next := models.Status(req.Status)

	var (
		ride *models.Ride
		err  error
	)
	switch {
	case next == models.StatusCancelled:
		ride, err = s.rides.Cancel(r.Context(), rideID, req.ActorID)
	case expectedBefore[next] != "":
		ride, err = s.rides.Advance(r.Context(), rideID, expectedBefore[next], next)
	default:
		err = &models.ValidationError{Field: "status", Reason: "cannot move a ride to " + req.Status}
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.watch.Broadcast(ride.ID, ride)
	s.writeJSON(w, http.StatusOK, ride)
}

func (s *Server) handlePendingRides(w http.ResponseWriter, r *http.Request) {
	list, err := s.rides.Pending(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleGetRide(w http.ResponseWriter, r *http.Request) {
	ride, err := s.rides.ByID(r.Context(), mux.Vars(r)["ride_id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, ride)
}

func (s *Server) handleRequesterRides(w http.ResponseWriter, r *http.Request) {
	list, err := s.rides.ByRequester(r.Context(), mux.Vars(r)["user_id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleDriverRides(w http.ResponseWriter, r *http.Request) {
	list, err := s.rides.ByDriver(r.Context(), mux.Vars(r)["driver_id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, list)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encode response", "error", err)
	}
}

// writeError maps the service taxonomy onto HTTP codes: validation 400,
// forbidden 403, not found 404, conflict 409, invalid transition 422.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	var ve *models.ValidationError
	switch {
	case errors.As(err, &ve):
		status = http.StatusBadRequest
	case errors.Is(err, rides.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, rides.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, rides.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, rides.ErrInvalidTransition):
		status = http.StatusUnprocessableEntity
	default:
		s.logger.Error("internal error", "path", r.URL.Path, "error", err)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
