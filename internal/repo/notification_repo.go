// Package repo implements the persistence collaborator consumed by the
// delivery subsystem. This file provides repository functions for the
// Notification model: the durable fallback for users who are offline when a
// notification is sent.
package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/avennor/go-collab-backend/internal/domain"
)

// CreateNotification inserts a pending notification row.
func CreateNotification(ctx context.Context, db *gorm.DB, n *domain.Notification) error {
	return db.WithContext(ctx).Create(n).Error
}

// ListPendingNotifications returns the unread notifications for a user,
// oldest first.
func ListPendingNotifications(ctx context.Context, db *gorm.DB, userID int64) ([]domain.Notification, error) {
	var out []domain.Notification
	err := db.WithContext(ctx).
		Where("user_id = ? AND read = ?", userID, false).
		Order("created_at ASC, id ASC").
		Find(&out).Error
	return out, err
}

// MarkNotificationRead flags one of the user's notifications as read.
// Unknown ids surface as ErrNotFound.
func MarkNotificationRead(ctx context.Context, db *gorm.DB, id uint, userID int64) error {
	res := db.WithContext(ctx).
		Model(&domain.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("read", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
