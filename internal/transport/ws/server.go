package ws

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rafaeljonasferreira-web/presence-dashboard/internal/domain"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// PresenceLedger is the slice of the membership ledger the lifecycle handler
// needs: it is the only mutator of presence state.
type PresenceLedger interface {
	Register(id string)
	Unregister(id string) (domain.RoomStat, bool, error)
	Join(id, room string) (domain.RoomStat, error)
	Leave(id string) (domain.RoomStat, bool)
	TotalConnections() int
}

// Server binds websocket lifecycle signals (connect, join-room, leave-room,
// disconnect) to ledger mutations and emits the associated acknowledgements.
type Server struct {
	upgrader websocket.Upgrader
	hub      *Hub
	ledger   PresenceLedger

	pingEvery time.Duration
}

func NewServer(hub *Hub, ledger PresenceLedger) *Server {
	return &Server{
		hub:    hub,
		ledger: ledger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		pingEvery: 15 * time.Second,
	}
}

// WS endpoint: GET /ws
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("ws upgrade failed", "err", err)
		return
	}

	c := newWSConn(conn, uuid.NewString())

	s.ledger.Register(c.id)
	s.hub.Add(c)
	slog.Info("user connected", "conn", c.id, "total_users", s.ledger.TotalConnections())

	if err := c.Send(Message{Event: EventConnected, Payload: ConnectedPayload{UserID: c.id}}); err != nil {
		slog.Debug("ws connected ack failed", "conn", c.id, "err", err)
	}

	go s.writeLoop(c)
	s.readLoop(c)

	s.hub.Remove(c)

	vacated, hadRoom, err := s.ledger.Unregister(c.id)
	if err != nil {
		slog.Warn("ws unregister failed", "conn", c.id, "err", err)
	}
	if hadRoom {
		s.hub.Broadcast(vacated.Name, Message{
			Event:   EventRoomUpdate,
			Payload: RoomPayload{Room: vacated.Name, UserCount: vacated.Count},
		})
	}
	slog.Info("user disconnected", "conn", c.id, "total_users", s.ledger.TotalConnections())

	if err := c.Close(); err != nil {
		slog.Debug("ws close failed", "conn", c.id, "err", err)
	}
}

func (s *Server) readLoop(c *wsConn) {
	defer func() { _ = c.Close() }()

	c.conn.SetReadLimit(1 << 16)
	_ = c.conn.SetReadDeadline(time.Now().Add(2 * s.pingEvery))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(2 * s.pingEvery))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			break
		}
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}

		switch msg.Event {
		case EventJoinRoom:
			room, _ := msg.Payload.(string)
			s.handleJoin(c, room)
		case EventLeaveRoom:
			s.handleLeave(c)
		default:
			// ignore
		}
	}
}

// handleJoin performs the leave-then-join replace and notifies the new room.
// Empty and whitespace-only names are dropped with no ack, per the protocol.
func (s *Server) handleJoin(c *wsConn, room string) {
	if strings.TrimSpace(room) == "" {
		return
	}

	stat, err := s.ledger.Join(c.id, room)
	if err != nil {
		slog.Debug("ws join rejected", "conn", c.id, "room", room, "err", err)
		return
	}

	s.hub.JoinRoom(c, room)

	if err := c.Send(Message{
		Event:   EventRoomJoined,
		Payload: RoomPayload{Room: stat.Name, UserCount: stat.Count},
	}); err != nil {
		slog.Debug("ws room-joined ack failed", "conn", c.id, "err", err)
	}

	s.hub.Broadcast(stat.Name, Message{
		Event:   EventRoomUpdate,
		Payload: RoomPayload{Room: stat.Name, UserCount: stat.Count},
	})

	slog.Info("user joined room", "conn", c.id, "room", stat.Name, "user_count", stat.Count)
}

// handleLeave vacates the current room, if any, and notifies the remaining
// occupants. Leaving with no room is a no-op with no notification.
func (s *Server) handleLeave(c *wsConn) {
	stat, ok := s.ledger.Leave(c.id)
	if !ok {
		return
	}

	s.hub.LeaveRoom(c)

	s.hub.Broadcast(stat.Name, Message{
		Event:   EventRoomUpdate,
		Payload: RoomPayload{Room: stat.Name, UserCount: stat.Count},
	})

	slog.Info("user left room", "conn", c.id, "room", stat.Name, "user_count", stat.Count)
}

func (s *Server) writeLoop(c *wsConn) {
	ticker := time.NewTicker(s.pingEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_ = c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
		case <-c.closed:
			return
		}
	}
}

// wsConn wraps a websocket connection with serialized writes. The channel
// acts as the send mutex so writes never interleave between goroutines.
type wsConn struct {
	conn      *websocket.Conn
	id        string
	sendMu    chan struct{}
	closed    chan struct{}
	closeOnce sync.Once
}

func newWSConn(c *websocket.Conn, id string) *wsConn {
	return &wsConn{
		conn:   c,
		id:     id,
		sendMu: make(chan struct{}, 1),
		closed: make(chan struct{}),
	}
}

func (c *wsConn) Send(msg Message) error {
	c.sendMu <- struct{}{}
	defer func() { <-c.sendMu }()
	_ = c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))

	return c.conn.WriteJSON(msg)
}

func (c *wsConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closed)
		err = c.conn.Close()
	})

	return err
}

func (c *wsConn) ID() string { return c.id }
