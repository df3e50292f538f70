package ws

import (
	"sync"

	"github.com/rafaeljonasferreira-web/presence-dashboard/internal/domain"
)

type Conn interface {
	Send(msg Message) error
	Close() error
	ID() string
}

// Hub is the transport-level connection registry: every open connection plus
// a per-room grouping used to scope room-update events. Room membership here
// mirrors the ledger's view; the hub only answers "who do I deliver to".
type Hub struct {
	mu       sync.RWMutex
	conns    map[Conn]struct{}
	rooms    map[string]map[Conn]struct{} // room name -> set of connections
	connRoom map[Conn]string
}

func NewHub() *Hub {
	return &Hub{
		conns:    make(map[Conn]struct{}),
		rooms:    make(map[string]map[Conn]struct{}),
		connRoom: make(map[Conn]string),
	}
}

func (h *Hub) Add(c Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.conns[c] = struct{}{}
}

// Remove drops the connection from the registry and from its room set.
func (h *Hub) Remove(c Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.leaveRoomLocked(c)
	delete(h.conns, c)
}

// JoinRoom moves the connection into room, leaving its previous room set
// first. One atomic replace, matching the ledger's at-most-one-room rule.
func (h *Hub) JoinRoom(c Conn, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.leaveRoomLocked(c)

	rs, ok := h.rooms[room]
	if !ok {
		rs = make(map[Conn]struct{})
		h.rooms[room] = rs
	}
	rs[c] = struct{}{}
	h.connRoom[c] = room
}

func (h *Hub) LeaveRoom(c Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.leaveRoomLocked(c)
}

func (h *Hub) leaveRoomLocked(c Conn) {
	room, ok := h.connRoom[c]
	if !ok {
		return
	}

	delete(h.connRoom, c)
	if rs, ok := h.rooms[room]; ok {
		delete(rs, c)
		if len(rs) == 0 {
			delete(h.rooms, room)
		}
	}
}

// Broadcast delivers msg to every current occupant of room.
func (h *Hub) Broadcast(room string, msg Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if rs, ok := h.rooms[room]; ok {
		for c := range rs {
			_ = c.Send(msg) // best-effort
		}
	}
}

// BroadcastAll pushes a dashboard snapshot to every open connection,
// whether or not it occupies a room. Implements service.Publisher.
func (h *Hub) BroadcastAll(snap domain.Snapshot) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	msg := Message{Event: EventDashboardUpdate, Payload: snap}
	for c := range h.conns {
		_ = c.Send(msg) // best-effort
	}
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.conns)
}
