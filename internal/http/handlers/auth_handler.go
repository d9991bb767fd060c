// Authentication HTTP handlers.
//
// This file exposes the phone-number + OTP login flow:
//   - POST /auth/login       (upsert account, send OTP over SMS)
//   - POST /auth/verify-otp  (check code, issue access token)
//
// Handlers are transport-thin: phone numbers are normalized here, the actual
// account provisioning and token issuance live in the auth service.
package handlers

import (
	"errors"
	"net/http"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/hajeen-app/go-care-backend/internal/domain"
	"github.com/hajeen-app/go-care-backend/internal/services"
)

//
// DTOs
//

// LoginRequest is the JSON payload starting a phone login.
type LoginRequest struct {
	// PhoneNumber in international form, e.g. +9665xxxxxxxx.
	PhoneNumber string `json:"phone_number" binding:"required,min=7,max=17"`
}

// LoginResponse acknowledges that an OTP has been dispatched.
type LoginResponse struct {
	PhoneNumber string `json:"phone_number"`
	OTPSent     bool   `json:"otp_sent"`
}

// VerifyOTPRequest is the JSON payload completing a phone login.
type VerifyOTPRequest struct {
	PhoneNumber string `json:"phone_number" binding:"required,min=7,max=17"`
	OTP         string `json:"otp"          binding:"required,min=4,max=6"`
}

// VerifyOTPResponse carries the issued access token and the account.
type VerifyOTPResponse struct {
	Token string       `json:"token"`
	User  *domain.User `json:"user"`
}

// phoneRE accepts an optional leading + followed by 7 to 16 digits.
var phoneRE = regexp.MustCompile(`^\+?[0-9]{7,16}$`)

// normalizePhone strips whitespace and validates the number shape. It returns
// the cleaned value and whether it is acceptable.
func normalizePhone(raw string) (string, bool) {
	s := strings.ReplaceAll(strings.TrimSpace(raw), " ", "")
	if !phoneRE.MatchString(s) {
		return "", false
	}
	return s, true
}

//
// Handlers
//

// Login starts a phone login: the account is created on first contact and a
// one-time code is sent to the number over SMS.
func (h *Handlers) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "phone_number required")
		return
	}
	phone, valid := normalizePhone(req.PhoneNumber)
	if !valid {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "phone_number must be 7-16 digits with optional leading +")
		return
	}

	user, err := h.authSvc.StartPhoneLogin(c.Request.Context(), phone)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrUserBlocked):
			fail(c, http.StatusForbidden, ErrCodeUserBlocked, "account is blocked")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}

	ok(c, http.StatusOK, LoginResponse{PhoneNumber: user.PhoneNumber, OTPSent: true})
}

// VerifyOTP completes a phone login by checking the pending code and
// returning a signed access token.
func (h *Handlers) VerifyOTP(c *gin.Context) {
	var req VerifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "phone_number and otp required")
		return
	}
	phone, valid := normalizePhone(req.PhoneNumber)
	if !valid {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "phone_number must be 7-16 digits with optional leading +")
		return
	}

	user, token, err := h.authSvc.VerifyOTP(c.Request.Context(), phone, strings.TrimSpace(req.OTP))
	if err != nil {
		switch {
		case errors.Is(err, services.ErrUserNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "no account for this phone number")
		case errors.Is(err, services.ErrUserBlocked):
			fail(c, http.StatusForbidden, ErrCodeUserBlocked, "account is blocked")
		case errors.Is(err, services.ErrInvalidOTP):
			fail(c, http.StatusUnauthorized, ErrCodeInvalidOTP, "invalid or expired code")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}

	ok(c, http.StatusOK, VerifyOTPResponse{Token: token, User: user})
}
