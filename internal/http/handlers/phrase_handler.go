// Phrase HTTP handlers.
//
// This file exposes the phrase catalog and per-guardian selections:
//   - GET  /phrases            (catalog listing for pickers)
//   - POST /admin/phrases      (admins add catalog entries)
//   - GET  /guardian/phrases   (current selections)
//   - PUT  /guardian/phrases   (replace the selection set)
//
// Selections are replace-set semantics: the submitted ids become the
// guardian's full selection; anything de-selected disappears from the device.
package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/hajeen-app/go-care-backend/internal/domain"
	"github.com/hajeen-app/go-care-backend/internal/services"
)

//
// DTOs
//

// CreatePhraseRequest is the JSON payload for adding a catalog phrase.
type CreatePhraseRequest struct {
	LabelAR string `json:"label_ar" binding:"required,min=1,max=100"`
	LabelEN string `json:"label_en" binding:"required,min=1,max=100"`
}

// PhraseResponse is the JSON envelope for a single catalog phrase.
type PhraseResponse struct {
	Phrase *domain.Phrase `json:"phrase"`
}

// ListPhrasesResponse is the JSON envelope for the catalog listing.
type ListPhrasesResponse struct {
	Phrases []domain.Phrase `json:"phrases"`
}

// SelectPhrasesRequest replaces the guardian's selection set.
type SelectPhrasesRequest struct {
	PhraseIDs []uint `json:"phrase_ids" binding:"required"`
}

// SelectionsResponse is the JSON envelope for a guardian's selections.
type SelectionsResponse struct {
	Selections []domain.GuardianPhrase `json:"selections"`
}

//
// Handlers
//

// ListPhrases returns the phrase catalog. Inactive entries are included only
// when all=true, so guardian pickers see the curated set by default.
func (h *Handlers) ListPhrases(c *gin.Context) {
	activeOnly := !strings.EqualFold(c.Query("all"), "true")
	items, err := h.phraseSvc.ListCatalog(c.Request.Context(), activeOnly)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, ListPhrasesResponse{Phrases: items})
}

// CreatePhrase adds a new catalog phrase (admin only; enforced by route
// middleware).
func (h *Handlers) CreatePhrase(c *gin.Context) {
	var req CreatePhraseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "label_ar and label_en required")
		return
	}

	p, err := h.phraseSvc.CreateCatalogPhrase(c.Request.Context(), strings.TrimSpace(req.LabelAR), strings.TrimSpace(req.LabelEN))
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeCreateFailed, err.Error())
		return
	}
	ok(c, http.StatusCreated, PhraseResponse{Phrase: p})
}

// ListSelections returns the guardian's current phrase selections.
func (h *Handlers) ListSelections(c *gin.Context) {
	gid, proceed := h.guardianID(c)
	if !proceed {
		return
	}

	items, err := h.phraseSvc.ListSelections(c.Request.Context(), gid)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, SelectionsResponse{Selections: items})
}

// SelectPhrases replaces the guardian's selection set with the submitted
// phrase ids.
func (h *Handlers) SelectPhrases(c *gin.Context) {
	gid, proceed := h.guardianID(c)
	if !proceed {
		return
	}

	var req SelectPhrasesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "phrase_ids required")
		return
	}

	items, err := h.phraseSvc.SelectPhrases(c.Request.Context(), gid, req.PhraseIDs)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrPhraseNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "one or more phrases do not exist")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}
	ok(c, http.StatusOK, SelectionsResponse{Selections: items})
}
