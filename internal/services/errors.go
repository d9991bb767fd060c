// Package services defines the business logic for quota accounting, message
// dispatch, notifications, phrases, and phone authentication. This file
// centralizes common service-level error values so that they can be
// consistently returned by service methods and checked by callers.
//
// These errors are intended for internal use by the service layer and
// translation into user-facing messages or HTTP status codes should be
// performed at the handler layer.
package services

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// Dispatch-related errors.
var (
	// ErrMissingRegistrationID is returned when a device event arrives
	// without a device identifier.
	ErrMissingRegistrationID = errors.New("registration_id is required")

	// ErrUnknownDevice indicates that no dependent is bound to the supplied
	// registration id.
	ErrUnknownDevice = errors.New("unknown device")

	// ErrEmergencyWithPhrase is returned when an emergency event also carries
	// a phrase reference; emergency messages bypass phrase selection.
	ErrEmergencyWithPhrase = errors.New("emergency messages must not carry a phrase")

	// ErrPhraseRequired is returned when a non-emergency event has no phrase
	// reference.
	ErrPhraseRequired = errors.New("phrase_id is required for non-emergency messages")

	// ErrForeignPhrase indicates the referenced phrase selection does not
	// belong to the resolved guardian.
	ErrForeignPhrase = errors.New("phrase does not belong to this guardian")

	// ErrConflictingFlags is returned when a message is marked both SMS and
	// voice.
	ErrConflictingFlags = errors.New("a message cannot be both SMS and voice")
)

// Quota-related errors.
var (
	// ErrNoQuotaConfig signals that no quota configuration exists yet. It is
	// a deferred state rather than a failure: enforcement silently resumes
	// once an administrator creates the config.
	ErrNoQuotaConfig = errors.New("no quota config exists")

	// ErrQuotaRecordNotFound indicates the guardian has no quota record.
	ErrQuotaRecordNotFound = errors.New("guardian quota record not found")

	// ErrInvalidIncrement is returned when an admin increment request is not
	// a raise (new max must exceed old max, both >= 1).
	ErrInvalidIncrement = errors.New("increment requires new_max > old_max >= 1")
)

// Auth-related errors.
var (
	// ErrUserBlocked is returned when a blocked account attempts to log in.
	ErrUserBlocked = errors.New("user account is blocked")

	// ErrInvalidOTP is returned when the supplied one-time code does not
	// match the pending code for the phone number.
	ErrInvalidOTP = errors.New("invalid otp")

	// ErrUserNotFound indicates no account exists for the phone number.
	ErrUserNotFound = errors.New("user not found")
)

// Phrase-related errors.
var (
	// ErrPhraseNotFound indicates one or more referenced catalog phrases do
	// not exist.
	ErrPhraseNotFound = errors.New("phrase not found")

	// ErrGuardianProfileMissing is returned when an operation requiring a
	// guardian profile is attempted by a user without one.
	ErrGuardianProfileMissing = errors.New("guardian profile not found")
)

// isDuplicate attempts to detect unique-constraint violations across drivers
// that may not map to gorm.ErrDuplicatedKey.
func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	// SQLite typically: "UNIQUE constraint failed"
	// Postgres typically: "duplicate key value violates unique constraint"
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key")
}
