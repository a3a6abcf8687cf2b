// Package repo implements the persistence collaborator consumed by the
// delivery subsystem. This file provides repository functions for the
// Message model, including the idempotency-key lookup used to collapse
// duplicate create requests.
package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/avennor/go-collab-backend/internal/domain"
)

// CreateMessage inserts a new message row, assigning its id. A unique
// violation on (sender_id, idempotency_key) surfaces as ErrDuplicate so the
// caller can return the originally persisted row instead.
func CreateMessage(ctx context.Context, db *gorm.DB, m *domain.Message) error {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	if err := db.WithContext(ctx).Create(m).Error; err != nil {
		// glebarez/sqlite often returns plain-text errors for UNIQUE violations.
		low := strings.ToLower(err.Error())
		if errors.Is(err, gorm.ErrDuplicatedKey) ||
			strings.Contains(low, "unique constraint failed") ||
			strings.Contains(low, "constraint failed: unique") {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// FindByIdempotencyKey returns the message the sender previously created
// under key, or ErrNotFound.
func FindByIdempotencyKey(ctx context.Context, db *gorm.DB, key string, senderID int64) (*domain.Message, error) {
	var m domain.Message
	err := db.WithContext(ctx).
		Where("sender_id = ? AND idempotency_key = ?", senderID, key).
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// MarkDelivered flags a message as delivered to its recipient.
func MarkDelivered(ctx context.Context, db *gorm.DB, id uint) error {
	return db.WithContext(ctx).
		Model(&domain.Message{}).
		Where("id = ?", id).
		Update("delivered", true).Error
}
