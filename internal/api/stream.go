package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/talgya/hexworld/internal/engine"
)

// Websocket settings.
const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	streamBuffer   = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// streamCommand is a client message on the stream socket.
// Only sockets opened with the admin bearer token may send commands.
type streamCommand struct {
	Action      string          `json:"action"` // place, remove, move
	Coord       coordJSON       `json:"coord"`
	Origin      coordJSON       `json:"origin"`
	Destination coordJSON       `json:"destination"`
	Tile        json.RawMessage `json:"tile,omitempty"`
}

// streamMessage is everything the server writes to the socket.
type streamMessage struct {
	Type  string        `json:"type"` // event, ack, error
	Event *engine.Event `json:"event,omitempty"`
	Data  any           `json:"data,omitempty"`
	Error string        `json:"error,omitempty"`
}

// streamClient pumps world events out and commands in for one socket.
type streamClient struct {
	srv    *Server
	conn   *websocket.Conn
	send   chan streamMessage
	events <-chan engine.Event
	admin  bool
}

// handleStream upgrades GET /api/v1/stream to a websocket.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	admin := s.checkBearerToken(r)
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "error", err)
		return
	}

	events, unsubscribe := s.World.Subscribe(streamBuffer)
	c := &streamClient{
		srv:    s,
		conn:   conn,
		send:   make(chan streamMessage, streamBuffer),
		events: events,
		admin:  admin,
	}
	slog.Info("stream client connected", "remote", r.RemoteAddr, "admin", admin)

	done := make(chan struct{})
	go c.writePump(done)
	c.readPump()
	close(done)
	unsubscribe()
	slog.Info("stream client disconnected", "remote", r.RemoteAddr)
}

// readPump decodes commands until the socket closes.
func (c *streamClient) readPump() {
	defer c.conn.Close()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		slog.Warn("failed to set read deadline", "error", err)
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var cmd streamCommand
		if err := c.conn.ReadJSON(&cmd); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Warn("stream read error", "error", err)
			}
			return
		}

		reply := c.handle(cmd)
		select {
		case c.send <- reply:
		default:
			slog.Debug("stream reply dropped", "action", cmd.Action)
		}
	}
}

// handle applies one command and builds the reply.
func (c *streamClient) handle(cmd streamCommand) streamMessage {
	if !c.admin {
		return streamMessage{Type: "error", Error: "unauthorized"}
	}
	data, err := c.apply(cmd)
	if err != nil {
		return streamMessage{Type: "error", Error: err.Error()}
	}
	return streamMessage{Type: "ack", Data: data}
}

func (c *streamClient) apply(cmd streamCommand) (any, error) {
	w := c.srv.World
	switch cmd.Action {
	case "place":
		var req placeRequest
		if err := json.Unmarshal(cmd.Tile, &req); err != nil {
			return nil, fmt.Errorf("invalid tile: %w", err)
		}
		ev, err := req.event()
		if err != nil {
			return nil, err
		}
		return w.Place(ev)

	case "remove":
		coord, err := cmd.Coord.cube()
		if err != nil {
			return nil, err
		}
		if !w.Remove(engine.RemoveEvent{Coord: coord}) {
			return nil, engine.ErrTileNotFound
		}
		return coord, nil

	case "move":
		origin, err1 := cmd.Origin.cube()
		destination, err2 := cmd.Destination.cube()
		if err := errors.Join(err1, err2); err != nil {
			return nil, err
		}
		return w.Move(engine.MoveEvent{Origin: origin, Destination: destination})
	}
	return nil, fmt.Errorf("unknown action %q", cmd.Action)
}

// writePump forwards world events and replies to the socket, with pings.
func (c *streamClient) writePump(done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	write := func(msg streamMessage) bool {
		if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
			return false
		}
		if err := c.conn.WriteJSON(msg); err != nil {
			slog.Debug("stream write failed", "error", err)
			return false
		}
		return true
	}

	for {
		select {
		case <-done:
			return
		case ev, ok := <-c.events:
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if !write(streamMessage{Type: "event", Event: &ev}) {
				return
			}
		case msg := <-c.send:
			if !write(msg) {
				return
			}
		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
