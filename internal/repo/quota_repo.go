// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the quota
// configuration and per-guardian quota records.
//
// The mutation helpers here are single-statement conditional UPDATEs built
// with gorm.Expr. The GuardianQuota row is the contention point between live
// dispatch traffic and the scheduled cycle jobs; doing increment-and-compare
// in one statement lets the database serialize concurrent writers, so the
// usage counter never loses updates and the expiry flag flips exactly once.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/hajeen-app/go-care-backend/internal/domain"
)

// GetActiveQuotaConfig returns the config currently in effect (highest ID),
// or ErrNotFound when none has been created yet.
func GetActiveQuotaConfig(ctx context.Context, db *gorm.DB) (*domain.QuotaConfig, error) {
	var cfg domain.QuotaConfig
	if err := db.WithContext(ctx).Order("id desc").First(&cfg).Error; err != nil {
		return nil, err
	}
	return &cfg, nil
}

// CreateQuotaConfig inserts a new config version.
func CreateQuotaConfig(ctx context.Context, db *gorm.DB, maxPerCycle int) (*domain.QuotaConfig, error) {
	cfg := &domain.QuotaConfig{
		MaxMessagesPerCycle: maxPerCycle,
		CreatedAt:           time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(cfg).Error; err != nil {
		return nil, err
	}
	return cfg, nil
}

// UpdateQuotaConfigMax persists a new maximum on an existing config row.
func UpdateQuotaConfigMax(ctx context.Context, db *gorm.DB, configID uint, newMax int) error {
	res := db.WithContext(ctx).
		Model(&domain.QuotaConfig{}).
		Where("id = ?", configID).
		Update("max_messages_per_cycle", newMax)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// SetPendingIncrement stores a queued next-cycle top-up on the config.
func SetPendingIncrement(ctx context.Context, db *gorm.DB, configID uint, diff int) error {
	return db.WithContext(ctx).
		Model(&domain.QuotaConfig{}).
		Where("id = ?", configID).
		Update("pending_increment", diff).Error
}

// GetGuardianQuota fetches the quota record for guardianID with its bound
// config preloaded, or ErrNotFound.
func GetGuardianQuota(ctx context.Context, db *gorm.DB, guardianID string) (*domain.GuardianQuota, error) {
	var q domain.GuardianQuota
	if err := db.WithContext(ctx).Preload("Config").Where("guardian_id = ?", guardianID).First(&q).Error; err != nil {
		return nil, err
	}
	return &q, nil
}

// CreateGuardianQuota inserts a quota record bound to configID. A unique
// index on guardian_id makes concurrent creation attempts safe: the loser
// gets a constraint error the caller can treat as "already exists".
func CreateGuardianQuota(ctx context.Context, db *gorm.DB, guardianID string, configID uint) (*domain.GuardianQuota, error) {
	q := &domain.GuardianQuota{
		GuardianID: guardianID,
		ConfigID:   configID,
		CreatedAt:  time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(q).Error; err != nil {
		return nil, err
	}
	return q, nil
}

// IncrementUsage adds one to the guardian's usage counter and, in the same
// statement, sets expired_notified when this increment reaches max for the
// first time. Returns the resulting counter value and whether this call was
// the one that crossed the threshold.
func IncrementUsage(ctx context.Context, db *gorm.DB, guardianID string, max int) (used int, crossed bool, err error) {
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&domain.GuardianQuota{}).
			Where("guardian_id = ?", guardianID).
			Updates(map[string]any{
				"messages_used":    gorm.Expr("messages_used + 1"),
				"expired_notified": gorm.Expr("CASE WHEN messages_used + 1 >= ? THEN 1 ELSE expired_notified END", max),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		var q domain.GuardianQuota
		if err := tx.Where("guardian_id = ?", guardianID).First(&q).Error; err != nil {
			return err
		}
		used = q.MessagesUsed
		crossed = used == max
		return nil
	})
	return used, crossed, err
}

// ListExpiredUnnotified returns quota records whose usage has reached the
// bound config's maximum but have not been notified yet.
func ListExpiredUnnotified(ctx context.Context, db *gorm.DB) ([]domain.GuardianQuota, error) {
	var out []domain.GuardianQuota
	err := db.WithContext(ctx).
		Preload("Config").
		Joins("JOIN quota_configs ON quota_configs.id = guardian_quotas.config_id").
		Where("guardian_quotas.messages_used >= quota_configs.max_messages_per_cycle").
		Where("guardian_quotas.expired_notified = ?", false).
		Find(&out).Error
	return out, err
}

// MarkExpiredNotified sets the expiry flag only if it is still clear, so
// concurrent scans notify at most once. Returns whether this call won.
func MarkExpiredNotified(ctx context.Context, db *gorm.DB, quotaID uint) (bool, error) {
	res := db.WithContext(ctx).
		Model(&domain.GuardianQuota{}).
		Where("id = ? AND expired_notified = ?", quotaID, false).
		Update("expired_notified", true)
	return res.RowsAffected > 0, res.Error
}

// ListQuotasForCycle returns all quota records with configs preloaded,
// ordered by ID for deterministic scheduled processing.
func ListQuotasForCycle(ctx context.Context, db *gorm.DB) ([]domain.GuardianQuota, error) {
	var out []domain.GuardianQuota
	err := db.WithContext(ctx).Preload("Config").Order("id asc").Find(&out).Error
	return out, err
}

// ResetQuota zeroes the usage counter and clears the expiry flag, but only
// when the record still has something to reset. Returns whether a reset
// happened, which gates the renewal notification on a same-day double run.
func ResetQuota(ctx context.Context, db *gorm.DB, quotaID uint) (bool, error) {
	res := db.WithContext(ctx).
		Model(&domain.GuardianQuota{}).
		Where("id = ? AND (messages_used > 0 OR expired_notified = ?)", quotaID, true).
		Updates(map[string]any{
			"messages_used":    0,
			"expired_notified": false,
		})
	return res.RowsAffected > 0, res.Error
}

// GrantHeadroom lowers the usage counter by diff, clamped at zero, for every
// quota bound to configID. Lower "used" is how extra allowance is granted
// mid-cycle: remaining = newMax - used grows by diff. The expiry flag is
// cleared in the same statement for any record whose usage lands below
// newMax, keeping the notified-implies-exhausted invariant intact.
func GrantHeadroom(ctx context.Context, db *gorm.DB, configID uint, diff, newMax int) (int64, error) {
	res := db.WithContext(ctx).
		Model(&domain.GuardianQuota{}).
		Where("config_id = ?", configID).
		Updates(map[string]any{
			"messages_used":    gorm.Expr("MAX(messages_used - ?, 0)", diff),
			"expired_notified": gorm.Expr("CASE WHEN MAX(messages_used - ?, 0) >= ? THEN expired_notified ELSE 0 END", diff, newMax),
		})
	return res.RowsAffected, res.Error
}
