// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the phrase
// catalog and per-guardian phrase selections.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/hajeen-app/go-care-backend/internal/domain"
)

// CreatePhrase inserts a catalog phrase.
func CreatePhrase(ctx context.Context, db *gorm.DB, labelAR, labelEN string) (*domain.Phrase, error) {
	p := &domain.Phrase{
		LabelAR:   labelAR,
		LabelEN:   labelEN,
		Active:    true,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(p).Error; err != nil {
		return nil, err
	}
	return p, nil
}

// ListPhrases returns catalog phrases, optionally only active ones.
func ListPhrases(ctx context.Context, db *gorm.DB, activeOnly bool) ([]domain.Phrase, error) {
	q := db.WithContext(ctx).Order("id asc")
	if activeOnly {
		q = q.Where("active = ?", true)
	}
	var out []domain.Phrase
	err := q.Find(&out).Error
	return out, err
}

// CountPhrasesByIDs returns how many of the given catalog phrase IDs exist.
func CountPhrasesByIDs(ctx context.Context, db *gorm.DB, ids []uint) (int64, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.Phrase{}).
		Where("id IN ?", ids).
		Count(&n).Error
	return n, err
}

// GetGuardianPhrase fetches one selection row with its phrase preloaded,
// enforcing ownership: the row must belong to guardianID.
func GetGuardianPhrase(ctx context.Context, db *gorm.DB, id uint, guardianID string) (*domain.GuardianPhrase, error) {
	var gp domain.GuardianPhrase
	err := db.WithContext(ctx).
		Preload("Phrase").
		Where("id = ? AND guardian_id = ?", id, guardianID).
		First(&gp).Error
	if err != nil {
		return nil, err
	}
	return &gp, nil
}

// ListGuardianPhrases returns all of a guardian's selections with phrases.
func ListGuardianPhrases(ctx context.Context, db *gorm.DB, guardianID string) ([]domain.GuardianPhrase, error) {
	var out []domain.GuardianPhrase
	err := db.WithContext(ctx).
		Preload("Phrase").
		Where("guardian_id = ?", guardianID).
		Order("id asc").
		Find(&out).Error
	return out, err
}

// ReplaceGuardianPhrases makes the guardian's selection set equal to phraseIDs:
// de-selected rows are deleted, newly selected ones inserted, kept ones left
// untouched. Runs in one transaction so the set never half-applies.
func ReplaceGuardianPhrases(ctx context.Context, db *gorm.DB, guardianID string, phraseIDs []uint) ([]domain.GuardianPhrase, error) {
	want := make(map[uint]struct{}, len(phraseIDs))
	for _, id := range phraseIDs {
		want[id] = struct{}{}
	}

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current []domain.GuardianPhrase
		if err := tx.Where("guardian_id = ?", guardianID).Find(&current).Error; err != nil {
			return err
		}
		have := make(map[uint]struct{}, len(current))
		for _, gp := range current {
			have[gp.PhraseID] = struct{}{}
			if _, keep := want[gp.PhraseID]; !keep {
				if err := tx.Delete(&domain.GuardianPhrase{}, gp.ID).Error; err != nil {
					return err
				}
			}
		}
		for id := range want {
			if _, ok := have[id]; ok {
				continue
			}
			gp := &domain.GuardianPhrase{
				GuardianID: guardianID,
				PhraseID:   id,
				CreatedAt:  time.Now().UTC(),
			}
			if err := tx.Create(gp).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ListGuardianPhrases(ctx, db, guardianID)
}
