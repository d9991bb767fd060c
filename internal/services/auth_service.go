// Package services – AuthService
//
// This file implements phone-number + OTP authentication. Logging in upserts
// the account by phone, provisions the guardian profile on first contact
// (including the quota record hook), and sends a short-lived code over SMS.
// Verifying the code clears it and issues a signed JWT access token. The core
// pipeline never authenticates anything itself; it receives the identity this
// service resolves.
package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/hajeen-app/go-care-backend/internal/domain"
	"github.com/hajeen-app/go-care-backend/internal/repo"
	"github.com/hajeen-app/go-care-backend/internal/sms"
)

// AuthService implements phone login and OTP verification.
type AuthService struct {
	DB      *gorm.DB
	Quota   *QuotaService
	Gateway sms.Gateway

	JWTSecret   []byte
	TokenTTL    time.Duration
	SenderLabel string
}

// Claims is the JWT payload carried by access tokens.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// StartPhoneLogin upserts the user for the phone number, provisions the
// guardian profile and quota record on first login, and sends an OTP via the
// SMS gateway. Gateway failure does not abort the login; the code is stored
// and the client may retry delivery.
func (s *AuthService) StartPhoneLogin(ctx context.Context, phone string) (*domain.User, error) {
	user, err := repo.GetUserByPhone(ctx, s.DB, phone)
	if errors.Is(err, repo.ErrNotFound) {
		user, err = repo.CreateUser(ctx, s.DB, phone, domain.RoleGuardian)
		if err != nil {
			return nil, err
		}
		guardian, gerr := repo.CreateGuardian(ctx, s.DB, user.ID)
		if gerr != nil {
			return nil, gerr
		}
		// Explicit post-creation hook: quota record creation is visible here
		// instead of hiding behind a persistence signal.
		if qerr := s.Quota.EnsureQuotaRecord(ctx, guardian.ID); qerr != nil {
			log.Error().Err(qerr).Str("guardian_id", guardian.ID).Msg("quota record creation deferred")
		}
	} else if err != nil {
		return nil, err
	}

	if user.IsBlocked {
		return nil, ErrUserBlocked
	}

	code, err := generateOTP()
	if err != nil {
		return nil, err
	}
	if err := repo.SetUserOTP(ctx, s.DB, user.ID, code); err != nil {
		return nil, err
	}
	user.OTP = code

	body := fmt.Sprintf("عزيزنا العميل،\nكود التحقق الخاص بكم هو %s", code)
	res, serr := s.Gateway.Send(ctx, []string{user.PhoneNumber}, body, s.SenderLabel)
	switch {
	case serr != nil:
		log.Error().Err(serr).Str("user_id", user.ID).Msg("otp sms transport failure")
	case !res.Success:
		log.Warn().Str("user_id", user.ID).Str("provider_error", res.Error).Msg("otp sms rejected by provider")
	}

	return user, nil
}

// VerifyOTP checks the pending code for the phone number, clears it, and
// returns the user together with a signed access token.
func (s *AuthService) VerifyOTP(ctx context.Context, phone, code string) (*domain.User, string, error) {
	user, err := repo.GetUserByPhone(ctx, s.DB, phone)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, "", ErrUserNotFound
	}
	if err != nil {
		return nil, "", err
	}
	if user.IsBlocked {
		return nil, "", ErrUserBlocked
	}
	if user.OTP == "" || user.OTP != code {
		return nil, "", ErrInvalidOTP
	}
	if err := repo.SetUserOTP(ctx, s.DB, user.ID, ""); err != nil {
		return nil, "", err
	}

	token, err := s.issueToken(user)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// issueToken signs a JWT for the user with the configured TTL.
func (s *AuthService) issueToken(u *domain.User) (string, error) {
	now := time.Now().UTC()
	ttl := s.TokenTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	claims := Claims{
		Role: u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString(s.JWTSecret)
}

// ParseToken validates a signed access token and returns its claims.
func (s *AuthService) ParseToken(raw string) (*Claims, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.JWTSecret, nil
	})
	if err != nil {
		return nil, err
	}
	return &claims, nil
}

// generateOTP returns a 4-digit numeric code from crypto/rand.
func generateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(9000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%04d", n.Int64()+1000), nil
}
