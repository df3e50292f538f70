package ws

// Event names of the dashboard protocol.
const (
	// server -> client
	EventConnected       = "connected"        // ack carrying the assigned connection id
	EventRoomJoined      = "room-joined"      // ack to the joining client only
	EventRoomUpdate      = "room-update"      // occupancy change, scoped to one room
	EventDashboardUpdate = "dashboard-update" // periodic aggregate snapshot, all clients

	// client -> server
	EventJoinRoom  = "join-room"  // payload: room name string
	EventLeaveRoom = "leave-room" // no payload
)

type Message struct {
	Event   string `json:"event"`
	Payload any    `json:"payload,omitempty"`
}

type ConnectedPayload struct {
	UserID string `json:"userId"`
}

type RoomPayload struct {
	Room      string `json:"room"`
	UserCount int    `json:"userCount"`
}
