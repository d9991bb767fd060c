// Dependent HTTP handlers.
//
// This file exposes dependent management for guardians:
//   - POST /guardian/dependents              (create)
//   - GET  /guardian/dependents              (list)
//   - PUT  /guardian/dependents/:id/device   (bind a device registration id)
//
// Binding a device is a rebind by design: if the registration id is already
// attached to another dependent, it moves atomically to the new one.
package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/hajeen-app/go-care-backend/internal/domain"
	"github.com/hajeen-app/go-care-backend/internal/repo"
)

//
// DTOs
//

// CreateDependentRequest is the JSON payload for registering a dependent.
type CreateDependentRequest struct {
	Name           string `json:"name"            binding:"required,min=1,max=255"`
	DisabilityType string `json:"disability_type" binding:"omitempty,oneof=motor verbal cognitive visual hearing other"`
	ControlMethod  string `json:"control_method"  binding:"required,oneof=eye eye_lip"`
}

// BindDeviceRequest attaches a device registration id to a dependent.
type BindDeviceRequest struct {
	RegistrationID string `json:"registration_id" binding:"required,min=1,max=255"`
}

// DependentResponse is the JSON envelope for a single dependent.
type DependentResponse struct {
	Dependent *domain.Dependent `json:"dependent"`
}

// ListDependentsResponse is the JSON envelope for the dependents listing.
type ListDependentsResponse struct {
	Dependents []domain.Dependent `json:"dependents"`
}

//
// Handlers
//

// CreateDependent registers a new dependent under the authenticated guardian.
func (h *Handlers) CreateDependent(c *gin.Context) {
	gid, proceed := h.guardianID(c)
	if !proceed {
		return
	}

	var req CreateDependentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "name and control_method required")
		return
	}
	if req.DisabilityType == "" {
		req.DisabilityType = "other"
	}

	d, err := repo.CreateDependent(c.Request.Context(), h.db, gid, strings.TrimSpace(req.Name), req.DisabilityType, req.ControlMethod)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeCreateFailed, err.Error())
		return
	}
	ok(c, http.StatusCreated, DependentResponse{Dependent: d})
}

// ListDependents returns all dependents of the authenticated guardian.
func (h *Handlers) ListDependents(c *gin.Context) {
	gid, proceed := h.guardianID(c)
	if !proceed {
		return
	}

	items, err := repo.ListDependents(c.Request.Context(), h.db, gid)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, ListDependentsResponse{Dependents: items})
}

// BindDevice attaches a device registration id to one of the guardian's
// dependents, stealing it from any previous holder in the same transaction.
func (h *Handlers) BindDevice(c *gin.Context) {
	ctx := c.Request.Context()
	gid, proceed := h.guardianID(c)
	if !proceed {
		return
	}

	dependentID := c.Param("id")
	if _, err := uuid.Parse(dependentID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "dependent id must be a UUID")
		return
	}

	var req BindDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "registration_id required")
		return
	}

	// Ownership check before touching the binding.
	d, err := repo.GetDependent(ctx, h.db, dependentID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "dependent not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	if d.GuardianID != gid {
		fail(c, http.StatusForbidden, ErrCodeForbidden, "dependent belongs to another guardian")
		return
	}

	if err := repo.BindRegistrationID(ctx, h.db, dependentID, strings.TrimSpace(req.RegistrationID)); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "dependent not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}

	d, err = repo.GetDependent(ctx, h.db, dependentID)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, DependentResponse{Dependent: d})
}
