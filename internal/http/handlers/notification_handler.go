// Notification HTTP handlers.
//
// This file exposes the in-app notification feed and push-device
// registration:
//   - GET  /notifications            (paginated feed, newest first)
//   - PUT  /notifications/:id/read   (mark one as read)
//   - POST /devices                  (register or refresh a push token)
//
// The notification rows are the durable record; push delivery is best effort
// and never reflected here.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/hajeen-app/go-care-backend/internal/domain"
	"github.com/hajeen-app/go-care-backend/internal/repo"
	"github.com/hajeen-app/go-care-backend/internal/utils"
)

//
// DTOs
//

// ListNotificationsResponse contains a page of notifications and pagination
// metadata.
type ListNotificationsResponse struct {
	Notifications []domain.Notification `json:"notifications"`
	Pagination    Pagination            `json:"pagination"`
}

// RegisterDeviceRequest registers a push token for the authenticated user.
type RegisterDeviceRequest struct {
	Token    string `json:"token"    binding:"required,min=1,max=512"`
	Platform string `json:"platform" binding:"omitempty,oneof=android ios web"`
}

// RegisterDeviceResponse is the JSON envelope for a registered push device.
type RegisterDeviceResponse struct {
	Device *domain.PushDevice `json:"device"`
}

// clampNotifPagination parses page/page_size from query parameters, applies
// sane defaults and caps, and returns the validated (page, pageSize).
func clampNotifPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page = utils.AtoiDefault(c.Query("page"), defaultPage)
	if page < 1 {
		page = 1
	}
	pageSize = utils.AtoiDefault(c.Query("page_size"), defaultPageSize)
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return
}

//
// Handlers
//

// ListNotifications returns the authenticated user's notification feed,
// newest first.
func (h *Handlers) ListNotifications(c *gin.Context) {
	ctx := c.Request.Context()
	uid := userID(c)
	if uid == "" {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "authentication required")
		return
	}

	page, pageSize := clampNotifPagination(c)

	total, err := repo.CountNotifications(ctx, h.db, uid)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	items, err := repo.ListNotificationsPage(ctx, h.db, uid, (page-1)*pageSize, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	ok(c, http.StatusOK, ListNotificationsResponse{
		Notifications: items,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	})
}

// MarkNotificationRead flips one of the user's notifications to read.
func (h *Handlers) MarkNotificationRead(c *gin.Context) {
	uid := userID(c)
	if uid == "" {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "authentication required")
		return
	}

	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "notification id must be a UUID")
		return
	}

	if err := repo.MarkNotificationRead(c.Request.Context(), h.db, id, uid); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "notification not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	noContent(c)
}

// RegisterDevice stores (or refreshes) a push token for the authenticated
// user so future notifications reach the device.
func (h *Handlers) RegisterDevice(c *gin.Context) {
	uid := userID(c)
	if uid == "" {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "authentication required")
		return
	}

	var req RegisterDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "token required")
		return
	}
	if req.Platform == "" {
		req.Platform = "android"
	}

	d, err := repo.UpsertPushDevice(c.Request.Context(), h.db, uid, req.Token, req.Platform)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeCreateFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, RegisterDeviceResponse{Device: d})
}
