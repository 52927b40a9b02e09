package httpapi

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/example/ride-hailing/internal/models"
)

var upgrader = websocket.Upgrader{}

// wsSession serializes writes to one websocket connection.
type wsSession struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (s *wsSession) send(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(v)
}

// watchHub fans ride snapshots out to websocket watchers of that ride.
// Watching is optional sugar over polling: a dropped watcher loses nothing
// it cannot re-read from the query views.
type watchHub struct {
	mu       sync.RWMutex
	watchers map[string]map[*wsSession]struct{}
	logger   *slog.Logger
}

func newWatchHub(logger *slog.Logger) *watchHub {
	return &watchHub{watchers: make(map[string]map[*wsSession]struct{}), logger: logger}
}

func (h *watchHub) add(rideID string, sess *wsSession) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.watchers[rideID] == nil {
		h.watchers[rideID] = make(map[*wsSession]struct{})
	}
	h.watchers[rideID][sess] = struct{}{}
}

func (h *watchHub) remove(rideID string, sess *wsSession) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.watchers[rideID], sess)
	if len(h.watchers[rideID]) == 0 {
		delete(h.watchers, rideID)
	}
}

// Broadcast sends the fresh snapshot to every watcher of the ride. Failed
// sends are logged and the watcher is left to notice on its read side.
func (h *watchHub) Broadcast(rideID string, ride *models.Ride) {
	h.mu.RLock()
	sessions := make([]*wsSession, 0, len(h.watchers[rideID]))
	for sess := range h.watchers[rideID] {
		sessions = append(sessions, sess)
	}
	h.mu.RUnlock()
	for _, sess := range sessions {
		if err := sess.send(ride); err != nil {
			h.logger.Warn("watch send failed", "ride_id", rideID, "error", err)
		}
	}
}

func (s *Server) handleWatch(w http.ResponseWriter, r *http.Request) {
	rideID := mux.Vars(r)["ride_id"]
	ride, err := s.rides.ByID(r.Context(), rideID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	sess := &wsSession{conn: conn}
	s.watch.add(rideID, sess)
	defer func() {
		s.watch.remove(rideID, sess)
		conn.Close()
	}()

	// current snapshot first so the watcher never starts blind
	if err := sess.send(ride); err != nil {
		return
	}
	// hold the connection open; watchers only read
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
