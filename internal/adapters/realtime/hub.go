// Package realtime pushes bracket views to websocket clients, one room per
// tournament.
package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/okian/bracketd/internal/domain/types"
	"github.com/okian/bracketd/pkg/logger"
	"github.com/okian/bracketd/pkg/metrics"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512

	defaultSendBuffer      = 16
	defaultBroadcastBuffer = 256
)

// MessageBracket is the type of a message carrying a BracketView.
const MessageBracket = "bracket"

// Message is the envelope written to clients.
type Message struct {
	Type         string `json:"type"`
	TournamentID string `json:"tournament_id"`
	Payload      any    `json:"payload"`
}

// Snapshotter supplies the current view sent to a client when it connects.
type Snapshotter interface {
	Bracket(ctx context.Context, tournamentID string) (types.BracketView, error)
}

// SnapshotterFunc adapts a function to Snapshotter.
type SnapshotterFunc func(ctx context.Context, tournamentID string) (types.BracketView, error)

// Bracket calls f.
func (f SnapshotterFunc) Bracket(ctx context.Context, tournamentID string) (types.BracketView, error) {
	return f(ctx, tournamentID)
}

type roomMessage struct {
	room string
	seq  uint64
	data []byte
}

// Hub fans bracket views out to the clients subscribed to a tournament.
// Room membership is owned by the Run goroutine.
type Hub struct {
	register   chan *client
	unregister chan *client
	broadcast  chan roomMessage
	stopped    chan struct{}

	rooms   map[string]map[*client]struct{}
	clients atomic.Int64

	upgrader   websocket.Upgrader
	snapshot   Snapshotter
	sendBuffer int
	logger     logger.Logger
}

// NewHub creates a hub. Call Run before serving clients.
func NewHub(opts ...Option) *Hub {
	h := &Hub{
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan roomMessage, defaultBroadcastBuffer),
		stopped:    make(chan struct{}),
		rooms:      make(map[string]map[*client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		sendBuffer: defaultSendBuffer,
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.logger == nil {
		h.logger = logger.Get().Named("realtime")
	}
	return h
}

// Run serves registrations and broadcasts until ctx is done, then closes
// every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.stopped)

	for {
		select {
		case <-ctx.Done():
			for _, room := range h.rooms {
				for c := range room {
					close(c.send)
				}
			}
			h.rooms = make(map[string]map[*client]struct{})
			h.setClients(0)
			return

		case c := <-h.register:
			room, ok := h.rooms[c.room]
			if !ok {
				room = make(map[*client]struct{})
				h.rooms[c.room] = room
			}
			room[c] = struct{}{}
			h.setClients(h.clients.Load() + 1)
			h.logger.Debug(ctx, "client joined", logger.String("tournament_id", c.room), logger.Int("room_size", len(room)))

		case c := <-h.unregister:
			room, ok := h.rooms[c.room]
			if !ok {
				continue
			}
			if _, ok := room[c]; !ok {
				continue
			}
			delete(room, c)
			close(c.send)
			if len(room) == 0 {
				delete(h.rooms, c.room)
			}
			h.setClients(h.clients.Load() - 1)

		case m := <-h.broadcast:
			for c := range h.rooms[m.room] {
				// a client never moves back to an older view
				if m.seq <= c.seq {
					continue
				}
				c.seq = m.seq
				select {
				case c.send <- m.data:
				default:
					metrics.RecordWSDropped()
				}
			}
		}
	}
}

func (h *Hub) setClients(n int64) {
	h.clients.Store(n)
	metrics.UpdateWSClients(int(n))
}

// ClientCount returns the number of connected clients across all rooms.
func (h *Hub) ClientCount() int { return int(h.clients.Load()) }

// Publish queues view for every client of its tournament. It never blocks:
// when the hub is saturated the view is dropped, and the next one replaces it.
func (h *Hub) Publish(view types.BracketView) {
	data, err := json.Marshal(Message{Type: MessageBracket, TournamentID: view.TournamentID, Payload: view})
	if err != nil {
		h.logger.Error(context.Background(), "marshal bracket view", logger.Error(err))
		return
	}
	select {
	case h.broadcast <- roomMessage{room: view.TournamentID, seq: view.Sequence, data: data}:
	case <-h.stopped:
	default:
		metrics.RecordWSDropped()
	}
}

// ServeWS upgrades the request and subscribes the connection to tournamentID.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, tournamentID string) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		h.logger.Warn(r.Context(), "websocket upgrade failed", logger.String("tournament_id", tournamentID), logger.Error(err))
		return
	}

	c := &client{hub: h, conn: conn, room: tournamentID, send: make(chan []byte, h.sendBuffer)}

	if h.snapshot != nil {
		view, err := h.snapshot.Bracket(r.Context(), tournamentID)
		if err == nil {
			if data, err := json.Marshal(Message{Type: MessageBracket, TournamentID: tournamentID, Payload: view}); err == nil {
				c.send <- data
				c.seq = view.Sequence
			}
		}
	}

	select {
	case h.register <- c:
	case <-h.stopped:
		_ = conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}

type client struct {
	hub  *Hub
	conn *websocket.Conn
	room string
	send chan []byte
	seq  uint64 // last sequence queued; owned by Run once registered
}

// readPump discards client messages and keeps the pong deadline fresh.
func (c *client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.stopped:
		}
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Debug(context.Background(), "websocket read failed", logger.String("tournament_id", c.room), logger.Error(err))
			}
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
			metrics.RecordWSMessage()

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
