package pubsub

// Channel naming conventions for the room directory.
const (
	// ChannelRoomLobby carries room lifecycle events addressed to
	// listing subscribers (the real-time gateway fans them out).
	ChannelRoomLobby = "rooms:lobby"
)

// Event types published on the lobby channel.
const (
	EventRoomCreated = "room_created"
)
