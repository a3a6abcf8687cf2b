// Package services – NotificationService
//
// This file implements the notification-dispatch collaborator: delivery over
// the live connection when the target user is online, or a durable pending
// row when they are not. The scheduler's send-notification jobs and the
// message ingestion flow both land here.
package services

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/avennor/go-collab-backend/internal/domain"
	"github.com/avennor/go-collab-backend/internal/realtime"
)

// Presence answers whether a user currently holds live connections. The
// realtime registry satisfies it.
type Presence interface {
	ConnectionsOf(userID int64) []string
}

// RealtimeSender fans a frame out to a user's connections. The broadcaster
// satisfies it.
type RealtimeSender interface {
	SendToUser(userID int64, message any)
}

// NotificationRepo defines the persistence contract for the offline
// fallback.
type NotificationRepo interface {
	CreateNotification(ctx context.Context, db *gorm.DB, n *domain.Notification) error
	ListPendingNotifications(ctx context.Context, db *gorm.DB, userID int64) ([]domain.Notification, error)
	MarkNotificationRead(ctx context.Context, db *gorm.DB, id uint, userID int64) error
}

// MessageMarker flags a message row as delivered. The message repository
// satisfies it.
type MessageMarker interface {
	MarkDelivered(ctx context.Context, db *gorm.DB, id uint) error
}

// NotificationService routes notifications by presence.
type NotificationService struct {
	DB       *gorm.DB
	Repo     NotificationRepo
	Presence Presence
	Sender   RealtimeSender
	Messages MessageMarker
}

// Notify delivers a notification to userID: over the broadcaster when at
// least one connection is live, into the pending store otherwise.
func (s *NotificationService) Notify(ctx context.Context, userID int64, title, body string, typ domain.NotificationType, data string) error {
	if len(s.Presence.ConnectionsOf(userID)) > 0 {
		s.Sender.SendToUser(userID, realtime.NewNotificationEvent(title, body, typ, data))
		return nil
	}
	n := &domain.Notification{
		UserID:    userID,
		Title:     title,
		Body:      body,
		Type:      typ,
		Data:      data,
		CreatedAt: time.Now().UTC(),
	}
	return s.Repo.CreateNotification(ctx, s.DB, n)
}

// DeliverMessage announces a freshly committed chat message to its receiver.
// An online receiver gets the full message frame over their connections and
// the row is flagged delivered; an offline receiver gets a pending
// notification row carrying the message content instead.
func (s *NotificationService) DeliverMessage(ctx context.Context, m *domain.Message, title string) error {
	if len(s.Presence.ConnectionsOf(m.ReceiverID)) > 0 {
		s.Sender.SendToUser(m.ReceiverID, realtime.NewMessageEvent(m))
		if err := s.Messages.MarkDelivered(ctx, s.DB, m.ID); err != nil {
			return err
		}
		m.Delivered = true
		return nil
	}
	n := &domain.Notification{
		UserID:    m.ReceiverID,
		Title:     title,
		Body:      m.Content,
		Type:      domain.NotificationMessage,
		CreatedAt: time.Now().UTC(),
	}
	return s.Repo.CreateNotification(ctx, s.DB, n)
}

// ListPending returns the user's unread pending notifications, oldest first.
func (s *NotificationService) ListPending(ctx context.Context, userID int64) ([]domain.Notification, error) {
	return s.Repo.ListPendingNotifications(ctx, s.DB, userID)
}

// MarkRead flags one pending notification as read.
func (s *NotificationService) MarkRead(ctx context.Context, id uint, userID int64) error {
	return s.Repo.MarkNotificationRead(ctx, s.DB, id, userID)
}
