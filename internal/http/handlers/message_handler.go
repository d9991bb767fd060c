// Message HTTP handlers.
//
// This file exposes the message endpoints:
//   - POST /device/messages            (dependent device dispatches an event)
//   - GET  /guardian/messages          (guardian feed, new/previous split, ETag)
//   - POST /guardian/messages/seen     (mark the feed as seen)
//
// The dispatch endpoint is unauthenticated: devices identify themselves by
// registration id and the pipeline resolves (and rejects) unknown devices.
// Persistence wins over side effects, so a 200 here means the message row is
// durable even when its pushes or SMS relay failed.
package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hajeen-app/go-care-backend/internal/domain"
	"github.com/hajeen-app/go-care-backend/internal/repo"
	"github.com/hajeen-app/go-care-backend/internal/services"
)

// recentWindow separates the feed into "new" and "previous" buckets.
const recentWindow = 10 * time.Minute

//
// DTOs
//

// DeviceMessageRequest is the raw payload sent by a dependent-side device.
type DeviceMessageRequest struct {
	// RegistrationID identifies the physical device.
	RegistrationID string `json:"registration_id" binding:"required,min=1"`
	// PhraseID references a guardian phrase selection; required unless the
	// event is an emergency.
	PhraseID *uint `json:"phrase_id"`
	IsSMS    bool  `json:"is_sms"`
	IsVoice  bool  `json:"is_voice"`
	// IsEmergency marks a distress signal; it bypasses phrase selection.
	IsEmergency bool `json:"is_emergency"`
}

// DeviceMessageResponse is the JSON envelope for a dispatched message.
type DeviceMessageResponse struct {
	Message *domain.Message `json:"message"`
}

// MessageFeedResponse splits the guardian feed into recent and older
// messages.
type MessageFeedResponse struct {
	New      []domain.Message `json:"new"`
	Previous []domain.Message `json:"previous"`
}

// MarkSeenRequest optionally narrows the mark-seen sweep to one dependent.
type MarkSeenRequest struct {
	DependentID string `json:"dependent_id"`
}

// MarkSeenResponse reports how many messages were flipped to seen.
type MarkSeenResponse struct {
	Updated int64 `json:"updated"`
}

//
// Handlers
//

// PostDeviceMessage runs the dispatch pipeline for one device event.
func (h *Handlers) PostDeviceMessage(c *gin.Context) {
	var req DeviceMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "registration_id required")
		return
	}

	m, err := h.dispatchSvc.Dispatch(c.Request.Context(), services.DeviceEvent{
		RegistrationID: req.RegistrationID,
		PhraseID:       req.PhraseID,
		IsSMS:          req.IsSMS,
		IsVoice:        req.IsVoice,
		IsEmergency:    req.IsEmergency,
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrMissingRegistrationID),
			errors.Is(err, services.ErrEmergencyWithPhrase),
			errors.Is(err, services.ErrPhraseRequired),
			errors.Is(err, services.ErrConflictingFlags):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		case errors.Is(err, services.ErrUnknownDevice):
			fail(c, http.StatusNotFound, ErrCodeUnknownDevice, "no dependent is bound to this device")
		case errors.Is(err, services.ErrForeignPhrase):
			fail(c, http.StatusForbidden, ErrCodeForbidden, "phrase does not belong to this guardian")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeDispatchFailed, err.Error())
		}
		return
	}

	ok(c, http.StatusOK, DeviceMessageResponse{Message: m})
}

// GetMessageFeed returns the guardian's messages split into a "new" bucket
// (received within the last ten minutes) and a "previous" bucket. An optional
// dependent_id query narrows the feed to one dependent.
func (h *Handlers) GetMessageFeed(c *gin.Context) {
	ctx := c.Request.Context()
	gid, proceed := h.guardianID(c)
	if !proceed {
		return
	}
	dependentID := c.Query("dependent_id")

	// ETag pre-check (best effort).
	if count, maxTS, err := repo.MessagesStats(ctx, h.db, gid); err == nil {
		var ts int64
		if maxTS != nil {
			ts = maxTS.Unix()
		}
		etag := fmt.Sprintf(`W/"messages:%s:%d:%d"`, gid, count, ts)
		c.Header("ETag", etag)
		if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
			c.Status(http.StatusNotModified)
			return
		}
	}

	cutoff := time.Now().UTC().Add(-recentWindow)
	fresh, err := repo.ListMessagesSince(ctx, h.db, gid, dependentID, cutoff)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	older, err := repo.ListMessagesBefore(ctx, h.db, gid, dependentID, cutoff)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}

	ok(c, http.StatusOK, MessageFeedResponse{New: fresh, Previous: older})
}

// MarkMessagesSeen flips unseen messages to seen for the guardian, optionally
// scoped to one dependent.
func (h *Handlers) MarkMessagesSeen(c *gin.Context) {
	gid, proceed := h.guardianID(c)
	if !proceed {
		return
	}

	var req MarkSeenRequest
	// Body is optional; an empty body sweeps all dependents.
	_ = c.ShouldBindJSON(&req)

	n, err := repo.MarkMessagesSeen(c.Request.Context(), h.db, gid, req.DependentID)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, MarkSeenResponse{Updated: n})
}
