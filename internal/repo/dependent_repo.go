// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for dependents and
// their device registration bindings.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hajeen-app/go-care-backend/internal/domain"
)

// CreateDependent inserts a new dependent owned by guardianID.
func CreateDependent(ctx context.Context, db *gorm.DB, guardianID, name, disabilityType, controlMethod string) (*domain.Dependent, error) {
	d := &domain.Dependent{
		ID:             uuid.NewString(),
		GuardianID:     guardianID,
		Name:           name,
		DisabilityType: disabilityType,
		ControlMethod:  controlMethod,
		CreatedAt:      time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(d).Error; err != nil {
		return nil, err
	}
	return d, nil
}

// GetDependent fetches a dependent by ID, or ErrNotFound.
func GetDependent(ctx context.Context, db *gorm.DB, id string) (*domain.Dependent, error) {
	var d domain.Dependent
	if err := db.WithContext(ctx).Where("id = ?", id).First(&d).Error; err != nil {
		return nil, err
	}
	return &d, nil
}

// GetDependentByRegistrationID resolves a device identifier to its owning
// dependent, or ErrNotFound when the device is unknown.
func GetDependentByRegistrationID(ctx context.Context, db *gorm.DB, registrationID string) (*domain.Dependent, error) {
	var d domain.Dependent
	if err := db.WithContext(ctx).Where("registration_id = ?", registrationID).First(&d).Error; err != nil {
		return nil, err
	}
	return &d, nil
}

// ListDependents returns all dependents owned by guardianID, newest first.
func ListDependents(ctx context.Context, db *gorm.DB, guardianID string) ([]domain.Dependent, error) {
	var out []domain.Dependent
	err := db.WithContext(ctx).
		Where("guardian_id = ?", guardianID).
		Order("created_at desc").
		Find(&out).Error
	return out, err
}

// BindRegistrationID attaches a device identifier to the dependent, clearing
// any previous holder first. Clear-then-set runs in one transaction so two
// dependents can never claim the same device, not even transiently.
func BindRegistrationID(ctx context.Context, db *gorm.DB, dependentID, registrationID string) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&domain.Dependent{}).
			Where("registration_id = ? AND id <> ?", registrationID, dependentID).
			Update("registration_id", nil).Error; err != nil {
			return err
		}
		res := tx.Model(&domain.Dependent{}).
			Where("id = ?", dependentID).
			Update("registration_id", registrationID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}
