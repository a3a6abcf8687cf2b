package realtime

import (
	"time"

	"github.com/avennor/go-collab-backend/internal/domain"
)

// Outbound envelope type tags.
const (
	EventConnectionEstablished = "connection_established"
	EventGroupJoined           = "group_joined"
	EventGroupLeft             = "group_left"
	EventNotification          = "notification"
	EventMessage               = "message"
)

// Envelope is the common prefix of every outbound frame: a self-describing
// type tag and an ISO-8601 timestamp. Concrete events embed it and add their
// own fields.
type Envelope struct {
	Type      string `json:"type"`
	Timestamp string `json:"timestamp"`
}

func stamp(eventType string) Envelope {
	return Envelope{
		Type:      eventType,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// ConnectionEstablished acknowledges a newly registered connection to its
// owning user.
type ConnectionEstablished struct {
	Envelope
	ConnectionID string `json:"connectionId"`
	UserID       int64  `json:"userId"`
}

// NewConnectionEstablished builds the registration acknowledgment event.
func NewConnectionEstablished(connectionID string, userID int64) ConnectionEstablished {
	return ConnectionEstablished{
		Envelope:     stamp(EventConnectionEstablished),
		ConnectionID: connectionID,
		UserID:       userID,
	}
}

// GroupEvent acknowledges a group membership change to the connection that
// requested it.
type GroupEvent struct {
	Envelope
	Group string `json:"group"`
}

// NewGroupJoined builds the join acknowledgment for group.
func NewGroupJoined(group string) GroupEvent {
	return GroupEvent{Envelope: stamp(EventGroupJoined), Group: group}
}

// NewGroupLeft builds the leave acknowledgment for group.
func NewGroupLeft(group string) GroupEvent {
	return GroupEvent{Envelope: stamp(EventGroupLeft), Group: group}
}

// NotificationEvent carries a notification to a connected user.
type NotificationEvent struct {
	Envelope
	Title            string `json:"title"`
	Body             string `json:"body"`
	NotificationType string `json:"notificationType"`
	Data             string `json:"data,omitempty"`
}

// NewNotificationEvent builds a notification frame.
func NewNotificationEvent(title, body string, typ domain.NotificationType, data string) NotificationEvent {
	return NotificationEvent{
		Envelope:         stamp(EventNotification),
		Title:            title,
		Body:             body,
		NotificationType: string(typ),
		Data:             data,
	}
}

// MessageEvent carries a persisted chat message to its recipient(s).
type MessageEvent struct {
	Envelope
	Message *domain.Message `json:"message"`
}

// NewMessageEvent builds a message frame for m.
func NewMessageEvent(m *domain.Message) MessageEvent {
	return MessageEvent{Envelope: stamp(EventMessage), Message: m}
}
