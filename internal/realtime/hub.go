package realtime

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/maisha0055/Shohojogi-sub000/internal/presence"
	"github.com/maisha0055/Shohojogi-sub000/internal/utils"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	sendBufferSize = 32
)

// Conn is one live client connection. Frames are queued on a buffered
// channel; a full buffer drops the frame rather than blocking the sender.
type Conn struct {
	ID       string
	Identity string
	Role     string

	ws        *websocket.Conn
	send      chan []byte
	closeOnce sync.Once
	done      chan struct{}
}

func NewConn(id, identity, role string, ws *websocket.Conn) *Conn {
	return &Conn{
		ID:       id,
		Identity: identity,
		Role:     role,
		ws:       ws,
		send:     make(chan []byte, sendBufferSize),
		done:     make(chan struct{}),
	}
}

// enqueue hands a frame to the write pump without blocking. Returns false
// when the connection is gone or its buffer is full.
func (c *Conn) enqueue(frame []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

func (c *Conn) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		if c.ws != nil {
			_ = c.ws.Close()
		}
	})
}

// writePump drains the send channel onto the websocket and keeps the peer
// alive with pings. Runs in its own goroutine per connection.
func (c *Conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case frame := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.close()
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}
		case <-c.done:
			return
		}
	}
}

// Hub owns every live connection, the per-identity private channels, and
// fan-out over the presence registry's category partitions. Delivery is
// fire-and-forget: a failure to reach one connection never aborts delivery
// to the rest and never surfaces to the triggering request.
type Hub struct {
	mu         sync.Mutex
	conns      map[string]*Conn
	byIdentity map[string]map[string]*Conn

	registry *presence.Registry
}

func NewHub(registry *presence.Registry) *Hub {
	return &Hub{
		conns:      make(map[string]*Conn),
		byIdentity: make(map[string]map[string]*Conn),
		registry:   registry,
	}
}

func (h *Hub) Add(c *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.conns[c.ID] = c
	set, ok := h.byIdentity[c.Identity]
	if !ok {
		set = make(map[string]*Conn)
		h.byIdentity[c.Identity] = set
	}
	set[c.ID] = c
}

// Remove closes and forgets the connection. Idempotent.
func (h *Hub) Remove(connID string) {
	h.mu.Lock()
	c, ok := h.conns[connID]
	if ok {
		delete(h.conns, connID)
		if set, ok := h.byIdentity[c.Identity]; ok {
			delete(set, connID)
			if len(set) == 0 {
				delete(h.byIdentity, c.Identity)
			}
		}
	}
	h.mu.Unlock()

	if ok {
		c.close()
	}
}

// SendToIdentity delivers one frame to every live connection of a logical
// identity (a user may hold several). Returns the number of connections
// the frame was queued for; zero recipients is not an error.
func (h *Hub) SendToIdentity(identity string, kind EventKind, payload any) int {
	frame, err := marshalFrame(kind, payload)
	if err != nil {
		utils.Logger.WithError(err).Errorf("Failed to marshal %s frame", kind)
		return 0
	}

	h.mu.Lock()
	targets := make([]*Conn, 0, len(h.byIdentity[identity]))
	for _, c := range h.byIdentity[identity] {
		targets = append(targets, c)
	}
	h.mu.Unlock()

	delivered := 0
	for _, c := range targets {
		if c.enqueue(frame) {
			delivered++
		} else {
			utils.Logger.Warnf("Dropped %s frame for identity %s (conn %s)", kind, identity, c.ID)
		}
	}
	return delivered
}

// BroadcastToCategory fans the frame out to the current members of the
// category partition and returns the number of distinct workers reached.
// Stale registry entries whose connection is already gone are skipped.
func (h *Hub) BroadcastToCategory(categoryID uuid.UUID, kind EventKind, payload any) int {
	frame, err := marshalFrame(kind, payload)
	if err != nil {
		utils.Logger.WithError(err).Errorf("Failed to marshal %s frame", kind)
		return 0
	}

	members := h.registry.MembersOf(categoryID)

	h.mu.Lock()
	type target struct {
		conn     *Conn
		workerID uuid.UUID
	}
	targets := make([]target, 0, len(members))
	for _, m := range members {
		if c, ok := h.conns[m.ConnID]; ok {
			targets = append(targets, target{conn: c, workerID: m.WorkerID})
		}
	}
	h.mu.Unlock()

	reached := make(map[uuid.UUID]bool)
	for _, t := range targets {
		if t.conn.enqueue(frame) {
			reached[t.workerID] = true
		} else {
			utils.Logger.Warnf("Dropped %s frame for worker %s (conn %s)", kind, t.workerID, t.conn.ID)
		}
	}
	return len(reached)
}

// OnlineWorkers returns the distinct workers currently inside a category
// partition with a live connection.
func (h *Hub) OnlineWorkers(categoryID uuid.UUID) []uuid.UUID {
	members := h.registry.MembersOf(categoryID)

	h.mu.Lock()
	defer h.mu.Unlock()

	seen := make(map[uuid.UUID]bool)
	var out []uuid.UUID
	for _, m := range members {
		if _, ok := h.conns[m.ConnID]; !ok {
			continue
		}
		if !seen[m.WorkerID] {
			seen[m.WorkerID] = true
			out = append(out, m.WorkerID)
		}
	}
	return out
}

// ConnsOfIdentity snapshots the live connections for one identity.
func (h *Hub) ConnsOfIdentity(identity string) []*Conn {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]*Conn, 0, len(h.byIdentity[identity]))
	for _, c := range h.byIdentity[identity] {
		out = append(out, c)
	}
	return out
}
