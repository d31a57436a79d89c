package ws

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/ewilliams-labs/jamhub/internal/core/services"
	"github.com/ewilliams-labs/jamhub/internal/protocol"
)

// Server upgrades connections and runs the per-connection read loop. Each
// connection joins exactly one area: the participant becomes an occupant for
// the lifetime of the connection and receives that area's broadcasts.
type Server struct {
	registry *services.AreaRegistry
	hub      *Hub
	upgrader websocket.Upgrader
}

// NewServer builds the websocket endpoint over the given registry and hub.
func NewServer(registry *services.AreaRegistry, hub *Hub) *Server {
	return &Server{
		registry: registry,
		hub:      hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// HandleConnection serves GET /areas/{area}/connect?participant=NAME.
func (s *Server) HandleConnection(w http.ResponseWriter, r *http.Request, areaID string) {
	participant := r.URL.Query().Get("participant")
	if participant == "" {
		http.Error(w, "participant is required", http.StatusBadRequest)
		return
	}

	area, ok := s.registry.Get(areaID)
	if !ok {
		http.Error(w, "area not found", http.StatusNotFound)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("failed to upgrade", "err", err)
		return
	}
	defer conn.Close()

	sess := newSession(participant, areaID)
	s.hub.register(sess)
	area.AddOccupant(participant)
	slog.Info("participant connected", "area", areaID, "participant", participant)

	defer func() {
		area.RemoveOccupant(participant)
		s.hub.unregister(sess)
		slog.Info("participant disconnected", "area", areaID, "participant", participant)
	}()

	// Writer pump: the read loop below never writes to the conn itself. The
	// pump closes the conn on exit so a hub-side teardown also ends the read
	// loop.
	pumpDone := make(chan struct{})
	go func() {
		defer close(pumpDone)
		defer conn.Close()
		for {
			select {
			case msg := <-sess.send:
				if err := conn.WriteJSON(msg); err != nil {
					slog.Warn("failed to write to session", "area", areaID, "participant", participant, "err", err)
					return
				}
			case <-sess.done:
				return
			}
		}
	}()

	// Initial snapshot so late joiners do not wait for the next mutation.
	model := area.Model()
	sess.send <- protocol.ServerMessage{Kind: protocol.KindAreaUpdate, Area: &model}

	for {
		var env protocol.Envelope
		if err := conn.ReadJSON(&env); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("read failed", "area", areaID, "participant", participant, "err", err)
			}
			break
		}
		s.dispatch(sess, participant, env)
	}

	s.hub.unregister(sess)
	<-pumpDone
}

// dispatch decodes and executes one command, then returns the correlated
// response to the sender. Broadcasts triggered by the command flow through
// the hub independently.
func (s *Server) dispatch(sess *session, participant string, env protocol.Envelope) {
	resp := protocol.Response{CommandID: env.CommandID, AreaID: env.AreaID}

	cmd, err := env.Decode()
	if err == nil {
		// Deliberately not tied to the connection's lifetime: a command from
		// a client that disconnects mid-flight still completes.
		resp.SavedSongs, err = s.registry.HandleCommand(context.Background(), env.AreaID, participant, cmd)
	}
	if err != nil {
		resp.Error = err.Error()
		resp.SavedSongs = nil
	}
	s.hub.respond(sess, resp)
}
