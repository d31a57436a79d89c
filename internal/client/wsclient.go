package client

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/ewilliams-labs/jamhub/internal/core/domain"
	"github.com/ewilliams-labs/jamhub/internal/protocol"
)

// ErrConnClosed is returned for commands issued after the connection ended.
var ErrConnClosed = errors.New("area connection closed")

// Conn is a websocket connection to one area on the authoritative server.
// It routes correlated command responses back to their callers and forwards
// area broadcasts to the update callback.
type Conn struct {
	ws      *websocket.Conn
	writeMu sync.Mutex

	pendingMu sync.Mutex
	pending   map[string]chan protocol.Response
	closed    chan struct{}
	closeOnce sync.Once

	onUpdate func(domain.AreaModel)
}

var _ CommandSender = (*Conn)(nil)

// Dial connects the participant to the area at baseURL (http or https; the
// scheme is rewritten for the websocket handshake). onUpdate is invoked from
// the read loop for every broadcast snapshot, in arrival order.
func Dial(ctx context.Context, baseURL, areaID, participant string, onUpdate func(domain.AreaModel)) (*Conn, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("area client: invalid base url: %w", err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return nil, fmt.Errorf("area client: unsupported scheme %q", u.Scheme)
	}
	u = u.JoinPath("areas", areaID, "connect")
	q := u.Query()
	q.Set("participant", participant)
	u.RawQuery = q.Encode()

	ws, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("area client: dial failed: %w", err)
	}

	c := &Conn{
		ws:       ws,
		pending:  make(map[string]chan protocol.Response),
		closed:   make(chan struct{}),
		onUpdate: onUpdate,
	}
	go c.readLoop()
	return c, nil
}

// Close tears the connection down. In-flight commands fail with ErrConnClosed;
// the authoritative state they may have mutated is unaffected.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return c.ws.Close()
}

func (c *Conn) readLoop() {
	defer c.Close()
	for {
		var msg protocol.ServerMessage
		if err := c.ws.ReadJSON(&msg); err != nil {
			return
		}
		switch msg.Kind {
		case protocol.KindCommandResponse:
			if msg.Response == nil {
				continue
			}
			c.pendingMu.Lock()
			ch, ok := c.pending[msg.Response.CommandID]
			if ok {
				delete(c.pending, msg.Response.CommandID)
			}
			c.pendingMu.Unlock()
			if ok {
				ch <- *msg.Response
			}
		case protocol.KindAreaUpdate:
			if msg.Area != nil && c.onUpdate != nil {
				c.onUpdate(*msg.Area)
			}
		}
	}
}

// SendCommand issues one command and waits for its correlated response.
func (c *Conn) SendCommand(ctx context.Context, areaID string, cmd protocol.Command) (protocol.Response, error) {
	commandID := uuid.NewString()
	reply := make(chan protocol.Response, 1)

	c.pendingMu.Lock()
	c.pending[commandID] = reply
	c.pendingMu.Unlock()

	env := protocol.Encode(commandID, areaID, cmd)
	c.writeMu.Lock()
	err := c.ws.WriteJSON(env)
	c.writeMu.Unlock()
	if err != nil {
		c.forget(commandID)
		return protocol.Response{}, fmt.Errorf("area client: write failed: %w", err)
	}

	select {
	case resp := <-reply:
		return resp, nil
	case <-c.closed:
		c.forget(commandID)
		return protocol.Response{}, ErrConnClosed
	case <-ctx.Done():
		c.forget(commandID)
		return protocol.Response{}, ctx.Err()
	}
}

func (c *Conn) forget(commandID string) {
	c.pendingMu.Lock()
	delete(c.pending, commandID)
	c.pendingMu.Unlock()
}
