// Quota HTTP handlers.
//
// This file exposes quota reads for guardians and the administrative raise
// flow:
//   - GET  /guardian/quota        (current usage snapshot)
//   - POST /admin/quota-config    (create the initial config)
//   - PUT  /admin/quota-config    (raise the maximum, now and/or next cycle)
//
// Raising the maximum persists the new value on the active config first and
// then fans the difference out to guardians according to the requested mode.
// Lowering the maximum is rejected; history stays monotone.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hajeen-app/go-care-backend/internal/domain"
	"github.com/hajeen-app/go-care-backend/internal/repo"
	"github.com/hajeen-app/go-care-backend/internal/services"
)

//
// DTOs
//

// QuotaSnapshotResponse is the guardian-facing quota view.
type QuotaSnapshotResponse struct {
	Used      int  `json:"used"`
	Max       int  `json:"max"`
	Remaining int  `json:"remaining"`
	Expired   bool `json:"expired"`
}

// CreateQuotaConfigRequest seeds the app-wide quota configuration.
type CreateQuotaConfigRequest struct {
	MaxMessagesPerCycle int `json:"max_messages_per_cycle" binding:"required,min=1"`
}

// UpdateQuotaConfigRequest raises the app-wide maximum. At least one of the
// apply flags must be set for the change to reach existing guardians.
type UpdateQuotaConfigRequest struct {
	MaxMessagesPerCycle int  `json:"max_messages_per_cycle" binding:"required,min=2"`
	ApplyNow            bool `json:"apply_now"`
	ApplyNextCycle      bool `json:"apply_next_cycle"`
}

// QuotaConfigResponse is the JSON envelope for the active configuration.
type QuotaConfigResponse struct {
	Config *domain.QuotaConfig `json:"config"`
}

//
// Handlers
//

// GetQuota returns the authenticated guardian's quota snapshot, provisioning
// the record lazily when it does not exist yet.
func (h *Handlers) GetQuota(c *gin.Context) {
	ctx := c.Request.Context()
	gid, proceed := h.guardianID(c)
	if !proceed {
		return
	}

	q, err := h.quotaSvc.Snapshot(ctx, gid)
	if errors.Is(err, services.ErrQuotaRecordNotFound) {
		// Accounts created before the first config get their record here.
		if err := h.quotaSvc.EnsureQuotaRecord(ctx, gid); err != nil {
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
			return
		}
		q, err = h.quotaSvc.Snapshot(ctx, gid)
		if errors.Is(err, services.ErrQuotaRecordNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "quota is not configured yet")
			return
		}
	}
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}

	max := q.Config.MaxMessagesPerCycle
	ok(c, http.StatusOK, QuotaSnapshotResponse{
		Used:      q.MessagesUsed,
		Max:       max,
		Remaining: q.Remaining(max),
		Expired:   q.MessagesUsed >= max,
	})
}

// CreateQuotaConfig creates a new quota configuration version. The newest
// config is the active one; guardians registered afterwards bind to it.
func (h *Handlers) CreateQuotaConfig(c *gin.Context) {
	var req CreateQuotaConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "max_messages_per_cycle must be >= 1")
		return
	}

	cfg, err := repo.CreateQuotaConfig(c.Request.Context(), h.db, req.MaxMessagesPerCycle)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeCreateFailed, err.Error())
		return
	}
	ok(c, http.StatusCreated, QuotaConfigResponse{Config: cfg})
}

// UpdateQuotaConfig raises the active configuration's maximum and applies the
// difference to guardians immediately, at the next cycle, or both.
func (h *Handlers) UpdateQuotaConfig(c *gin.Context) {
	ctx := c.Request.Context()

	var req UpdateQuotaConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "max_messages_per_cycle must be >= 2")
		return
	}
	if !req.ApplyNow && !req.ApplyNextCycle {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "at least one of apply_now, apply_next_cycle must be set")
		return
	}

	cfg, err := repo.GetActiveQuotaConfig(ctx, h.db)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "no quota configuration exists")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	oldMax := cfg.MaxMessagesPerCycle
	if req.MaxMessagesPerCycle <= oldMax {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "new maximum must exceed the current one")
		return
	}

	// Persist the raise before fanning it out; the service relies on the
	// stored value at cycle boundaries.
	if err := repo.UpdateQuotaConfigMax(ctx, h.db, cfg.ID, req.MaxMessagesPerCycle); err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}

	err = h.quotaSvc.ApplyAdminIncrement(ctx, req.MaxMessagesPerCycle, oldMax, services.IncrementMode{
		ApplyNow:       req.ApplyNow,
		ApplyNextCycle: req.ApplyNextCycle,
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidIncrement):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		case errors.Is(err, services.ErrNoQuotaConfig):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "no quota configuration exists")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}

	cfg, err = repo.GetActiveQuotaConfig(ctx, h.db)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, QuotaConfigResponse{Config: cfg})
}
