// Package handlers provides HTTP handler implementations for the public API.
//
// Handlers are transport-thin: they validate and normalize inputs, delegate
// to application services, and translate service results (including sentinel
// errors) into HTTP responses. Business rules live in internal/services; the
// repository is touched directly only for simple read paths such as feeds and
// profile lookups.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/hajeen-app/go-care-backend/internal/domain"
	"github.com/hajeen-app/go-care-backend/internal/repo"
	"github.com/hajeen-app/go-care-backend/internal/services"
)

//
// Service contracts (context-aware)
//

// AuthService defines the phone login flow consumed by HTTP handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type AuthService interface {
	// StartPhoneLogin upserts the account and sends an OTP over SMS.
	StartPhoneLogin(ctx context.Context, phone string) (*domain.User, error)
	// VerifyOTP checks the pending code and returns the user with a token.
	VerifyOTP(ctx context.Context, phone, code string) (*domain.User, string, error)
}

// DispatchService turns raw device events into persisted messages.
type DispatchService interface {
	Dispatch(ctx context.Context, ev services.DeviceEvent) (*domain.Message, error)
}

// QuotaService exposes quota reads and administrative raises.
type QuotaService interface {
	// Snapshot returns the guardian's current quota record.
	Snapshot(ctx context.Context, guardianID string) (*domain.GuardianQuota, error)
	// ApplyAdminIncrement reacts to the global maximum being raised.
	ApplyAdminIncrement(ctx context.Context, newMax, oldMax int, mode services.IncrementMode) error
	// EnsureQuotaRecord provisions the guardian's record when absent.
	EnsureQuotaRecord(ctx context.Context, guardianID string) error
}

// PhraseService manages the phrase catalog and per-guardian selections.
type PhraseService interface {
	CreateCatalogPhrase(ctx context.Context, labelAR, labelEN string) (*domain.Phrase, error)
	ListCatalog(ctx context.Context, activeOnly bool) ([]domain.Phrase, error)
	SelectPhrases(ctx context.Context, guardianID string, phraseIDs []uint) ([]domain.GuardianPhrase, error)
	ListSelections(ctx context.Context, guardianID string) ([]domain.GuardianPhrase, error)
}

//
// Handler wiring
//

// Handlers groups the HTTP endpoints for authentication, message dispatch,
// feeds, phrases, quota administration, and notifications. Simple read paths
// go straight to the repository via the shared DB handle.
type Handlers struct {
	db          *gorm.DB
	authSvc     AuthService
	dispatchSvc DispatchService
	quotaSvc    QuotaService
	phraseSvc   PhraseService
}

// New constructs and returns a Handlers instance bound to the given services.
func New(db *gorm.DB, authSvc AuthService, dispatchSvc DispatchService, quotaSvc QuotaService, phraseSvc PhraseService) *Handlers {
	return &Handlers{
		db:          db,
		authSvc:     authSvc,
		dispatchSvc: dispatchSvc,
		quotaSvc:    quotaSvc,
		phraseSvc:   phraseSvc,
	}
}

// userID extracts the authenticated user id from Gin context (set by the
// auth middleware). If absent, it falls back to "X-User-ID" header (tests use
// it). It never touches c.Request if it's nil.
func userID(c *gin.Context) string {
	if v, ok := c.Get("userID"); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	if c != nil && c.Request != nil {
		if h := strings.TrimSpace(c.GetHeader("X-User-ID")); h != "" {
			return h
		}
	}
	return ""
}

// guardianID resolves the guardian profile for the authenticated user. A
// missing profile (dependent or admin token on a guardian endpoint) maps to
// 403; other failures to 500. The bool result reports whether the request
// may proceed.
func (h *Handlers) guardianID(c *gin.Context) (string, bool) {
	uid := userID(c)
	if uid == "" {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "authentication required")
		return "", false
	}
	g, err := repo.GetGuardianByUser(c.Request.Context(), h.db, uid)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			fail(c, http.StatusForbidden, ErrCodeForbidden, "guardian profile required")
			return "", false
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return "", false
	}
	return g.ID, true
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}
