// Package services – DispatchService
//
// This file implements the message dispatch pipeline: a raw device event is
// validated and classified, resolved to its dependent and guardian, persisted
// as a Message, counted against the guardian's quota, and announced through
// the notification channel and (for SMS-flagged events) the external SMS
// gateway.
//
// Ordering is the contract: the Message row commits before any side effect is
// attempted, so a crash mid-dispatch always leaves a queryable message behind.
// Everything after persistence is soft: quota tracking gaps, push failures,
// and gateway rejections are observed, never propagated. The pipeline also
// deliberately does not deduplicate rapid-fire retries from a device; each
// accepted event becomes its own Message row.
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/hajeen-app/go-care-backend/internal/domain"
	"github.com/hajeen-app/go-care-backend/internal/repo"
	"github.com/hajeen-app/go-care-backend/internal/sms"
)

// DeviceEvent is the raw inbound payload from a dependent-side device.
type DeviceEvent struct {
	RegistrationID string
	PhraseID       *uint
	IsSMS          bool
	IsVoice        bool
	IsEmergency    bool
}

// DispatchService turns device events into persisted messages plus their
// downstream effects.
type DispatchService struct {
	DB       *gorm.DB
	Quota    *QuotaService
	Notifier Notifier
	Gateway  sms.Gateway

	// SenderLabel is the approved SMS sender name for the relay channel.
	SenderLabel string
}

// Dispatch runs the full pipeline for one device event and returns the
// persisted message. Validation and resolution failures abort before any
// persistence; once the message row is committed the operation succeeds
// regardless of notification or SMS outcome.
func (s *DispatchService) Dispatch(ctx context.Context, ev DeviceEvent) (*domain.Message, error) {
	tr := otel.Tracer("services/DispatchService")
	ctx, span := tr.Start(ctx, "Dispatch",
		trace.WithAttributes(
			attribute.Bool("event.emergency", ev.IsEmergency),
			attribute.Bool("event.sms", ev.IsSMS),
			attribute.Bool("event.voice", ev.IsVoice),
		),
	)
	defer span.End()

	// Validate shape before touching storage.
	if ev.RegistrationID == "" {
		dispatchRejected.WithLabelValues("missing_registration_id").Inc()
		return nil, ErrMissingRegistrationID
	}
	if ev.IsSMS && ev.IsVoice {
		dispatchRejected.WithLabelValues("conflicting_flags").Inc()
		return nil, ErrConflictingFlags
	}

	// Resolve the device to its dependent, and thus the guardian.
	dependent, err := repo.GetDependentByRegistrationID(ctx, s.DB, ev.RegistrationID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			dispatchRejected.WithLabelValues("unknown_device").Inc()
			return nil, ErrUnknownDevice
		}
		return nil, err
	}

	// Classify: emergency carries no phrase; anything else requires a phrase
	// owned by the resolved guardian.
	var phrase *domain.GuardianPhrase
	if ev.IsEmergency {
		if ev.PhraseID != nil {
			dispatchRejected.WithLabelValues("emergency_with_phrase").Inc()
			return nil, ErrEmergencyWithPhrase
		}
	} else {
		if ev.PhraseID == nil {
			dispatchRejected.WithLabelValues("phrase_required").Inc()
			return nil, ErrPhraseRequired
		}
		phrase, err = repo.GetGuardianPhrase(ctx, s.DB, *ev.PhraseID, dependent.GuardianID)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				dispatchRejected.WithLabelValues("foreign_phrase").Inc()
				return nil, ErrForeignPhrase
			}
			return nil, err
		}
	}

	// Persist. From here on the dispatch has succeeded.
	msg, err := repo.CreateMessage(s.DB.WithContext(ctx), dependent.GuardianID, dependent.ID, ev.PhraseID, ev.IsEmergency, ev.IsSMS, ev.IsVoice)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("message.id", msg.ID))
	dispatchTotal.WithLabelValues(categoryLabel(ev.IsEmergency)).Inc()

	// Quota: both emergency and canned messages consume one unit. A missing
	// config or a tracking error never undoes the dispatch.
	if _, qerr := s.Quota.RecordUsage(ctx, dependent.GuardianID); qerr != nil {
		log.Error().Err(qerr).Str("guardian_id", dependent.GuardianID).Str("message_id", msg.ID).Msg("quota tracking failed after dispatch")
	}

	title, body := composeMessageText(dependent.Name, ev.IsEmergency, phrase)
	category := domain.NotifCategoryNewMessage
	if ev.IsEmergency {
		category = domain.NotifCategoryEmergency
	}

	guardian, gerr := repo.GetGuardian(ctx, s.DB, dependent.GuardianID)
	if gerr != nil {
		log.Error().Err(gerr).Str("message_id", msg.ID).Msg("guardian lookup failed after dispatch; notification skipped")
		return msg, nil
	}

	if _, nerr := s.Notifier.Notify(ctx, guardian.UserID, title, body, category, &msg.ID); nerr != nil {
		log.Error().Err(nerr).Str("message_id", msg.ID).Msg("notification failed after dispatch")
	}

	// Supplementary SMS relay. The primary channel already delivered; a
	// gateway failure is observability, not an error.
	if ev.IsSMS && guardian.User.PhoneNumber != "" {
		s.relaySMS(ctx, guardian.User.PhoneNumber, body, msg.ID)
	}

	return msg, nil
}

// relaySMS forwards the composed body to the external gateway.
func (s *DispatchService) relaySMS(ctx context.Context, phone, body, messageID string) {
	res, err := s.Gateway.Send(ctx, []string{phone}, body, s.SenderLabel)
	switch {
	case err != nil:
		smsRelayOutcomes.WithLabelValues("transport_error").Inc()
		log.Error().Err(err).Str("message_id", messageID).Msg("sms relay transport failure")
	case !res.Success:
		smsRelayOutcomes.WithLabelValues("provider_error").Inc()
		log.Warn().Str("message_id", messageID).Str("provider_error", res.Error).Msg("sms relay rejected by provider")
	default:
		smsRelayOutcomes.WithLabelValues("ok").Inc()
	}
}

// composeMessageText builds the notification title and body from the
// dependent's name and the classified category.
func composeMessageText(dependentName string, emergency bool, phrase *domain.GuardianPhrase) (title, body string) {
	if emergency {
		title = fmt.Sprintf("رسالة طارئة من %s", dependentName)
		return title, title
	}
	label := phrase.Phrase.LabelAR
	title = fmt.Sprintf("%s من %s", label, dependentName)
	body = fmt.Sprintf("%s\nمن %s\nتطبيق هجين", label, dependentName)
	return title, body
}

func categoryLabel(emergency bool) string {
	if emergency {
		return "emergency"
	}
	return "canned_phrase"
}
