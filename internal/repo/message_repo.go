// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Message model.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hajeen-app/go-care-backend/internal/domain"
)

// CreateMessage inserts a new message row.
func CreateMessage(db *gorm.DB, guardianID, dependentID string, guardianPhraseID *uint, isEmergency, isSMS, isVoice bool) (*domain.Message, error) {
	m := &domain.Message{
		ID:               uuid.NewString(),
		GuardianID:       guardianID,
		DependentID:      dependentID,
		GuardianPhraseID: guardianPhraseID,
		IsEmergency:      isEmergency,
		IsSMS:            isSMS,
		IsVoice:          isVoice,
		CreatedAt:        time.Now().UTC(),
	}
	return m, db.Create(m).Error
}

// GetMessage fetches a message by ID.
func GetMessage(ctx context.Context, db *gorm.DB, id string) (*domain.Message, error) {
	var m domain.Message
	if err := db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

// ListMessagesSince returns a guardian's messages created at or after the
// given instant, newest first, with dependent and phrase preloaded. An empty
// dependentID means all dependents.
func ListMessagesSince(ctx context.Context, db *gorm.DB, guardianID, dependentID string, since time.Time) ([]domain.Message, error) {
	q := db.WithContext(ctx).
		Preload("Dependent").
		Preload("GuardianPhrase.Phrase").
		Where("guardian_id = ? AND created_at >= ?", guardianID, since)
	if dependentID != "" {
		q = q.Where("dependent_id = ?", dependentID)
	}
	var out []domain.Message
	err := q.Order("created_at desc, id desc").Find(&out).Error
	return out, err
}

// ListMessagesBefore mirrors ListMessagesSince for the older half of the feed.
func ListMessagesBefore(ctx context.Context, db *gorm.DB, guardianID, dependentID string, before time.Time) ([]domain.Message, error) {
	q := db.WithContext(ctx).
		Preload("Dependent").
		Preload("GuardianPhrase.Phrase").
		Where("guardian_id = ? AND created_at < ?", guardianID, before)
	if dependentID != "" {
		q = q.Where("dependent_id = ?", dependentID)
	}
	var out []domain.Message
	err := q.Order("created_at desc, id desc").Find(&out).Error
	return out, err
}

// MarkMessagesSeen flags a guardian's unseen messages as seen, optionally
// scoped to one dependent, and returns how many rows changed.
func MarkMessagesSeen(ctx context.Context, db *gorm.DB, guardianID, dependentID string) (int64, error) {
	q := db.WithContext(ctx).
		Model(&domain.Message{}).
		Where("guardian_id = ? AND is_seen = ?", guardianID, false)
	if dependentID != "" {
		q = q.Where("dependent_id = ?", dependentID)
	}
	res := q.Update("is_seen", true)
	return res.RowsAffected, res.Error
}

// CountMessages uses a raw COUNT so a missing table surfaces as an error.
func CountMessages(ctx context.Context, db *gorm.DB, guardianID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Raw("SELECT COUNT(*) FROM messages WHERE guardian_id = ? AND deleted_at IS NULL", guardianID).Scan(&total).Error
	return total, err
}

// MessagesStats returns the message count and the newest created_at for a
// guardian's feed. Used by the handler layer to build weak ETags.
func MessagesStats(ctx context.Context, db *gorm.DB, guardianID string) (int64, *time.Time, error) {
	total, err := CountMessages(ctx, db, guardianID)
	if err != nil {
		return 0, nil, err
	}
	if total == 0 {
		return 0, nil, nil
	}
	var maxTS time.Time
	err = db.WithContext(ctx).
		Raw("SELECT MAX(created_at) FROM messages WHERE guardian_id = ? AND deleted_at IS NULL", guardianID).
		Scan(&maxTS).Error
	if err != nil {
		return total, nil, err
	}
	return total, &maxTS, nil
}
