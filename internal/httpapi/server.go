package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/example/ride-hailing/internal/rides"
)

// Server exposes the ride lifecycle and query views over HTTP. The polling
// endpoints are the contract; the websocket watch is a convenience feed on
// top of the same store state.
type Server struct {
	rides  *rides.Service
	watch  *watchHub
	logger *slog.Logger
	mux    *mux.Router
}

func New(svc *rides.Service, logger *slog.Logger) *Server {
	s := &Server{
		rides:  svc,
		watch:  newWatchHub(logger),
		logger: logger,
		mux:    mux.NewRouter(),
	}
	s.registerMiddleware()
	s.routes()
	return s
}

func (s *Server) routes() {
	api := s.mux.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/rides", s.handleCreateRide).Methods("POST")
	// register before the {ride_id} routes so "pending" is not taken as an id
	api.HandleFunc("/rides/pending", s.handlePendingRides).Methods("GET")
	api.HandleFunc("/rides/{ride_id}", s.handleGetRide).Methods("GET")
	api.HandleFunc("/rides/{ride_id}/accept", s.handleAcceptRide).Methods("POST")
	api.HandleFunc("/rides/{ride_id}/location", s.handleDriverLocation).Methods("POST")
	api.HandleFunc("/rides/{ride_id}/status", s.handleRideStatus).Methods("POST")
	api.HandleFunc("/users/{user_id}/rides", s.handleRequesterRides).Methods("GET")
	api.HandleFunc("/drivers/{driver_id}/rides", s.handleDriverRides).Methods("GET")

	s.mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}).Methods("GET")
	s.mux.Handle("/metrics", promhttp.Handler())
	s.mux.HandleFunc("/ws/rides/{ride_id}", s.handleWatch)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.mux.ServeHTTP(w, r) }
