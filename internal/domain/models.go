// Package domain defines the persistence models for messages, pending
// notifications, and users. These types are mapped with GORM and form the
// data layer consumed by the realtime delivery subsystem.
package domain

import (
	"time"
)

// BroadcastReceiverID is the sentinel receiver meaning "everyone": a message
// addressed to it is flagged global and fanned out instead of being delivered
// to a single user.
const BroadcastReceiverID int64 = 0

// Message represents a chat message exchanged between two users, or a global
// announcement when ReceiverID is the broadcast sentinel.
//
// Fields:
//   - ID: auto-incremented primary key assigned by the store on insert.
//   - SenderID / ReceiverID: user identifiers; ReceiverID 0 means global.
//   - Content: full text content of the message.
//   - Type: application-level message kind (e.g. "chat", "announcement").
//   - Department: optional department tag for routed announcements.
//   - Global: set when the message targets the broadcast sentinel.
//   - Read / Delivered: delivery bookkeeping flags.
//   - IdempotencyKey: unique per sender; collapses duplicate create requests
//     into the originally persisted row.
type Message struct {
	ID             uint      `json:"id"              gorm:"primaryKey;autoIncrement"`
	SenderID       int64     `json:"sender_id"       gorm:"not null;index;uniqueIndex:ux_msg_sender_key,priority:1"`
	ReceiverID     int64     `json:"receiver_id"     gorm:"not null;index"`
	Content        string    `json:"content"         gorm:"type:text;not null"`
	Type           string    `json:"type"            gorm:"type:varchar(32);not null;default:'chat'"`
	Department     string    `json:"department,omitempty" gorm:"type:varchar(64)"`
	Global         bool      `json:"global"`
	Read           bool      `json:"read"`
	Delivered      bool      `json:"delivered"`
	IdempotencyKey string    `json:"-"               gorm:"type:varchar(200);not null;uniqueIndex:ux_msg_sender_key,priority:2"`
	CreatedAt      time.Time `json:"created_at"`
}

// TableName returns the database table name for Message.
func (Message) TableName() string { return "messages" }

// Notification is the durable fallback for users with no live connection at
// send time. Rows are created by the notification service and drained when
// the client fetches its pending notifications.
type Notification struct {
	ID        uint             `json:"id"         gorm:"primaryKey;autoIncrement"`
	UserID    int64            `json:"user_id"    gorm:"not null;index"`
	Title     string           `json:"title"      gorm:"type:varchar(255);not null"`
	Body      string           `json:"body"       gorm:"type:text;not null"`
	Type      NotificationType `json:"type"       gorm:"type:varchar(16);not null;default:'Info'"`
	Data      string           `json:"data,omitempty" gorm:"type:text"`
	Read      bool             `json:"read"`
	CreatedAt time.Time        `json:"created_at"`
}

// TableName returns the database table name for Notification.
func (Notification) TableName() string { return "notifications" }

// User is the minimal identity record this subsystem needs: existence checks
// before message creation and display names for notification titles. Account
// management lives elsewhere.
type User struct {
	ID          int64     `json:"id"           gorm:"primaryKey"`
	DisplayName string    `json:"display_name" gorm:"type:varchar(128);not null"`
	Department  string    `json:"department,omitempty" gorm:"type:varchar(64)"`
	CreatedAt   time.Time `json:"created_at"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }
