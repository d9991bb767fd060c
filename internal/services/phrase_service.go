// Package services – PhraseService
//
// Administrators curate the global phrase catalog; guardians pick the subset
// their dependents' devices can send. Selection is a replace-set upsert: the
// submitted id list becomes the guardian's whole selection in one shot.
package services

import (
	"context"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/gorm"

	"github.com/hajeen-app/go-care-backend/internal/domain"
	"github.com/hajeen-app/go-care-backend/internal/repo"
)

// PhraseService manages the phrase catalog and guardian selections.
type PhraseService struct {
	DB *gorm.DB
}

// CreateCatalogPhrase inserts an admin-curated phrase. The English label is
// normalized to title case for consistent device display.
func (s *PhraseService) CreateCatalogPhrase(ctx context.Context, labelAR, labelEN string) (*domain.Phrase, error) {
	labelAR = strings.TrimSpace(labelAR)
	labelEN = cases.Title(language.English).String(strings.TrimSpace(labelEN))
	return repo.CreatePhrase(ctx, s.DB, labelAR, labelEN)
}

// ListCatalog returns catalog phrases; activeOnly hides retired entries.
func (s *PhraseService) ListCatalog(ctx context.Context, activeOnly bool) ([]domain.Phrase, error) {
	return repo.ListPhrases(ctx, s.DB, activeOnly)
}

// SelectPhrases replaces the guardian's phrase selection with phraseIDs.
// Every id must reference an existing catalog phrase.
func (s *PhraseService) SelectPhrases(ctx context.Context, guardianID string, phraseIDs []uint) ([]domain.GuardianPhrase, error) {
	if len(phraseIDs) > 0 {
		// Dedupe before the existence check so repeats don't fail it.
		seen := make(map[uint]struct{}, len(phraseIDs))
		uniq := phraseIDs[:0]
		for _, id := range phraseIDs {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			uniq = append(uniq, id)
		}
		phraseIDs = uniq

		n, err := repo.CountPhrasesByIDs(ctx, s.DB, phraseIDs)
		if err != nil {
			return nil, err
		}
		if n != int64(len(phraseIDs)) {
			return nil, ErrPhraseNotFound
		}
	}
	return repo.ReplaceGuardianPhrases(ctx, s.DB, guardianID, phraseIDs)
}

// ListSelections returns the guardian's current phrase selection.
func (s *PhraseService) ListSelections(ctx context.Context, guardianID string) ([]domain.GuardianPhrase, error) {
	return repo.ListGuardianPhrases(ctx, s.DB, guardianID)
}
