package service

// Event types pushed to connected clients
const (
	EventNewMessage  = "new_message"
	EventGroupHealth = "group_health"
	EventIcebreakers = "icebreakers"
)

// Broadcaster pushes realtime events to users' open connections (avoids import cycle)
type Broadcaster interface {
	SendToUsers(userIDs []string, msgType string, payload interface{})
}
