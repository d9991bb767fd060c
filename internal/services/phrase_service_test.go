package services

import (
	"context"
	"errors"
	"testing"

	"github.com/hajeen-app/go-care-backend/internal/repo"
)

func TestCreateCatalogPhrase_NormalizesEnglishLabel(t *testing.T) {
	db := newSvcDB(t)
	svc := &PhraseService{DB: db}

	p, err := svc.CreateCatalogPhrase(context.Background(), "  أريد الماء ", "i want water")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if p.LabelAR != "أريد الماء" {
		t.Fatalf("labelAR = %q", p.LabelAR)
	}
	if p.LabelEN != "I Want Water" {
		t.Fatalf("labelEN = %q, want title case", p.LabelEN)
	}
}

func TestSelectPhrases_ReplaceSet(t *testing.T) {
	db := newSvcDB(t)
	ctx := context.Background()
	svc := &PhraseService{DB: db}
	g := mkGuardian(t, db, "+966503000001")

	var ids []uint
	for _, label := range []string{"جائع", "عطشان", "متعب"} {
		p, err := repo.CreatePhrase(ctx, db, label, label)
		if err != nil {
			t.Fatalf("create phrase: %v", err)
		}
		ids = append(ids, p.ID)
	}

	sels, err := svc.SelectPhrases(ctx, g.ID, []uint{ids[0], ids[1]})
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(sels) != 2 {
		t.Fatalf("selections = %d, want 2", len(sels))
	}

	// A second submission replaces the whole set, not appends to it.
	sels, err = svc.SelectPhrases(ctx, g.ID, []uint{ids[1], ids[2]})
	if err != nil {
		t.Fatalf("reselect: %v", err)
	}
	got := map[uint]bool{}
	for _, s := range sels {
		got[s.PhraseID] = true
	}
	if len(got) != 2 || !got[ids[1]] || !got[ids[2]] {
		t.Fatalf("selection after replace = %v, want {%d,%d}", got, ids[1], ids[2])
	}

	stored, err := svc.ListSelections(ctx, g.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(stored) != 2 {
		t.Fatalf("stored selections = %d, want 2", len(stored))
	}
}

func TestSelectPhrases_DedupesAndValidates(t *testing.T) {
	db := newSvcDB(t)
	ctx := context.Background()
	svc := &PhraseService{DB: db}
	g := mkGuardian(t, db, "+966503000002")

	p, err := repo.CreatePhrase(ctx, db, "جائع", "Hungry")
	if err != nil {
		t.Fatalf("create phrase: %v", err)
	}

	sels, err := svc.SelectPhrases(ctx, g.ID, []uint{p.ID, p.ID, p.ID})
	if err != nil {
		t.Fatalf("select with repeats: %v", err)
	}
	if len(sels) != 1 {
		t.Fatalf("selections = %d, want deduped 1", len(sels))
	}

	if _, err := svc.SelectPhrases(ctx, g.ID, []uint{p.ID, 9999}); !errors.Is(err, ErrPhraseNotFound) {
		t.Fatalf("err = %v, want ErrPhraseNotFound", err)
	}
}

func TestSelectPhrases_EmptyClearsSelection(t *testing.T) {
	db := newSvcDB(t)
	ctx := context.Background()
	svc := &PhraseService{DB: db}
	g := mkGuardian(t, db, "+966503000003")

	p, err := repo.CreatePhrase(ctx, db, "جائع", "Hungry")
	if err != nil {
		t.Fatalf("create phrase: %v", err)
	}
	if _, err := svc.SelectPhrases(ctx, g.ID, []uint{p.ID}); err != nil {
		t.Fatalf("select: %v", err)
	}

	sels, err := svc.SelectPhrases(ctx, g.ID, nil)
	if err != nil {
		t.Fatalf("clear: %v", err)
	}
	if len(sels) != 0 {
		t.Fatalf("selections after clear = %d, want 0", len(sels))
	}
}
