// Package repo implements the persistence collaborator consumed by the
// delivery subsystem. This file provides the identity lookups the ingestion
// path needs: existence checks and display names.
package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/avennor/go-collab-backend/internal/domain"
)

// CreateUser inserts a user row. Used by bootstrap seeding and tests;
// account management proper lives outside this subsystem.
func CreateUser(ctx context.Context, db *gorm.DB, u *domain.User) error {
	return db.WithContext(ctx).Create(u).Error
}

// UserExists reports whether a user row with id exists.
func UserExists(ctx context.Context, db *gorm.DB, id int64) (bool, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&domain.User{}).
		Where("id = ?", id).
		Count(&count).Error
	return count > 0, err
}

// UserDisplayName returns the display name for id, or ErrNotFound.
func UserDisplayName(ctx context.Context, db *gorm.DB, id int64) (string, error) {
	var u domain.User
	err := db.WithContext(ctx).Select("display_name").Where("id = ?", id).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return u.DisplayName, nil
}
