// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for notifications
// and registered push devices.
package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hajeen-app/go-care-backend/internal/domain"
)

// CreateNotification inserts a durable notification row for userID.
func CreateNotification(ctx context.Context, db *gorm.DB, userID, title, body, category string, messageID *string) (*domain.Notification, error) {
	n := &domain.Notification{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     title,
		Body:      body,
		Category:  category,
		MessageID: messageID,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(n).Error; err != nil {
		return nil, err
	}
	return n, nil
}

// CountNotifications returns the total notifications for pagination.
func CountNotifications(ctx context.Context, db *gorm.DB, userID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.Notification{}).
		Where("user_id = ?", userID).
		Count(&total).Error
	return total, err
}

// ListNotificationsPage returns a page of the user's notifications, newest first.
func ListNotificationsPage(ctx context.Context, db *gorm.DB, userID string, offset, limit int) ([]domain.Notification, error) {
	var out []domain.Notification
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc, id desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// MarkNotificationRead sets the read flag on one of the user's notifications.
// Returns ErrNotFound if the row is missing or owned by someone else.
func MarkNotificationRead(ctx context.Context, db *gorm.DB, id, userID string) error {
	res := db.WithContext(ctx).
		Model(&domain.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("read", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// UpsertPushDevice registers a push token for userID or refreshes its
// last-seen time when the token is already registered.
func UpsertPushDevice(ctx context.Context, db *gorm.DB, userID, token, platform string) (*domain.PushDevice, error) {
	now := time.Now().UTC()

	var existing domain.PushDevice
	err := db.WithContext(ctx).
		Where("user_id = ? AND token = ?", userID, token).
		First(&existing).Error
	if err == nil {
		uerr := db.WithContext(ctx).
			Model(&domain.PushDevice{}).
			Where("id = ?", existing.ID).
			Updates(map[string]any{"last_seen_at": now, "platform": platform}).Error
		if uerr != nil {
			return nil, uerr
		}
		existing.LastSeenAt = now
		existing.Platform = platform
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	d := &domain.PushDevice{
		ID:         uuid.NewString(),
		UserID:     userID,
		Token:      token,
		Platform:   platform,
		LastSeenAt: now,
		CreatedAt:  now,
	}
	if cerr := db.WithContext(ctx).Create(d).Error; cerr != nil {
		return nil, cerr
	}
	return d, nil
}

// ListPushDevices returns all registered devices for userID.
func ListPushDevices(ctx context.Context, db *gorm.DB, userID string) ([]domain.PushDevice, error) {
	var out []domain.PushDevice
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at asc").
		Find(&out).Error
	return out, err
}
