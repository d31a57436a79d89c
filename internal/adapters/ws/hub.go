// Package ws carries the area command protocol over websockets: clients send
// tagged command envelopes, the server returns one correlated response per
// command to the sender, and every mutation fans a full area snapshot out to
// all connections subscribed to that area.
package ws

import (
	"log/slog"
	"sync"
	"time"

	"github.com/ewilliams-labs/jamhub/internal/core/domain"
	"github.com/ewilliams-labs/jamhub/internal/core/ports"
	"github.com/ewilliams-labs/jamhub/internal/protocol"
)

const (
	sendBufferSize        = 32
	defaultRespondTimeout = 5 * time.Second
)

// session is one connected client: its outbound message channel and the area
// it subscribed to. The send channel is never closed; done signals teardown
// so senders and the writer pump can bail out without racing a close.
type session struct {
	participant string
	areaID      string
	send        chan protocol.ServerMessage
	done        chan struct{}
}

func newSession(participant, areaID string) *session {
	return &session{
		participant: participant,
		areaID:      areaID,
		send:        make(chan protocol.ServerMessage, sendBufferSize),
		done:        make(chan struct{}),
	}
}

// Hub tracks live sessions and implements the broadcaster port. Broadcast
// delivery to a session is non-blocking: a session whose buffer is full
// misses the snapshot and catches up on the next broadcast or an explicit
// queue refresh.
type Hub struct {
	mu             sync.RWMutex
	sessions       map[*session]struct{}
	respondTimeout time.Duration
}

var _ ports.Broadcaster = (*Hub)(nil)

// NewHub builds an empty hub.
func NewHub() *Hub {
	return &Hub{
		sessions:       make(map[*session]struct{}),
		respondTimeout: defaultRespondTimeout,
	}
}

func (h *Hub) register(s *session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sessions[s] = struct{}{}
}

func (h *Hub) unregister(s *session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.sessions[s]; ok {
		delete(h.sessions, s)
		close(s.done)
	}
}

// BroadcastAreaUpdate pushes the snapshot to every session subscribed to the
// area, including the one whose command caused it.
func (h *Hub) BroadcastAreaUpdate(model domain.AreaModel) {
	msg := protocol.ServerMessage{Kind: protocol.KindAreaUpdate, Area: &model}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for s := range h.sessions {
		if s.areaID != model.ID {
			continue
		}
		select {
		case s.send <- msg:
		default:
			slog.Warn("dropping area update for slow session", "area", model.ID, "participant", s.participant)
		}
	}
}

// respond delivers a correlated command response to a single session. Unlike
// broadcasts, a response is never silently dropped: the sender is blocked
// waiting on it. A full buffer gets a bounded wait; a session that still
// cannot take its response is torn down so the client sees a closed
// connection instead of a response that never comes.
func (h *Hub) respond(s *session, resp protocol.Response) {
	msg := protocol.ServerMessage{Kind: protocol.KindCommandResponse, Response: &resp}

	select {
	case s.send <- msg:
		return
	case <-s.done:
		return
	default:
	}

	timer := time.NewTimer(h.respondTimeout)
	defer timer.Stop()
	select {
	case s.send <- msg:
	case <-s.done:
	case <-timer.C:
		slog.Warn("closing session that cannot take its command response", "area", s.areaID, "participant", s.participant)
		h.unregister(s)
	}
}
