// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for users and
// guardian profiles.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When a record is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hajeen-app/go-care-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// GetUserByPhone fetches a user by phone number, or ErrNotFound.
func GetUserByPhone(ctx context.Context, db *gorm.DB, phone string) (*domain.User, error) {
	var u domain.User
	if err := db.WithContext(ctx).Where("phone_number = ?", phone).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// GetUser fetches a user by ID, or ErrNotFound.
func GetUser(ctx context.Context, db *gorm.DB, id string) (*domain.User, error) {
	var u domain.User
	if err := db.WithContext(ctx).Where("id = ?", id).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// CreateUser inserts a new user row with a generated UUID and UTC timestamp.
func CreateUser(ctx context.Context, db *gorm.DB, phone, role string) (*domain.User, error) {
	u := &domain.User{
		ID:          uuid.NewString(),
		PhoneNumber: phone,
		Role:        role,
		IsActive:    true,
		CreatedAt:   time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(u).Error; err != nil {
		return nil, err
	}
	return u, nil
}

// SetUserOTP stores (or clears, with "") the user's pending one-time code.
func SetUserOTP(ctx context.Context, db *gorm.DB, userID, otp string) error {
	res := db.WithContext(ctx).
		Model(&domain.User{}).
		Where("id = ?", userID).
		Update("otp", otp)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// CreateGuardian inserts a guardian profile for userID.
func CreateGuardian(ctx context.Context, db *gorm.DB, userID string) (*domain.Guardian, error) {
	g := &domain.Guardian{
		ID:        uuid.NewString(),
		UserID:    userID,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(g).Error; err != nil {
		return nil, err
	}
	return g, nil
}

// GetGuardianByUser fetches the guardian profile owned by userID, or ErrNotFound.
func GetGuardianByUser(ctx context.Context, db *gorm.DB, userID string) (*domain.Guardian, error) {
	var g domain.Guardian
	if err := db.WithContext(ctx).Where("user_id = ?", userID).First(&g).Error; err != nil {
		return nil, err
	}
	return &g, nil
}

// GetGuardian fetches a guardian by ID with its user preloaded, or ErrNotFound.
func GetGuardian(ctx context.Context, db *gorm.DB, id string) (*domain.Guardian, error) {
	var g domain.Guardian
	if err := db.WithContext(ctx).Preload("User").Where("id = ?", id).First(&g).Error; err != nil {
		return nil, err
	}
	return &g, nil
}
