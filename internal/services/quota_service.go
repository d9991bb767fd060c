// Package services – QuotaService
//
// This file implements the guardian monthly message quota ledger: lazy
// creation of quota records, atomic usage accounting with exactly-once expiry
// notification, the scheduled expiry scan, the monthly cycle reset, and
// administrative top-ups with apply-now / apply-next-cycle semantics.
//
// The ledger is the single writer-of-record for the usage counter. All
// counter mutations go through the conditional-update helpers in repo, so
// concurrent device events, scans, and admin operations serialize on the row
// rather than on process-local state.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/hajeen-app/go-care-backend/internal/domain"
	"github.com/hajeen-app/go-care-backend/internal/repo"
)

// Notification copy for quota lifecycle events. The product ships in Arabic.
const (
	titlePackageExpired = "انتهت الباقة الشهرية"
	bodyPackageExpired  = "لقد استهلكت كل الرسائل المسموح بها لهذا الشهر."
	titlePackageRenewed = "تم تجديد الباقة الشهرية"
)

// Notifier is the notification channel contract the ledger depends on.
type Notifier interface {
	Notify(ctx context.Context, userID, title, body, category string, messageID *string) (*domain.Notification, error)
}

// QuotaService owns per-guardian monthly usage against the active config.
type QuotaService struct {
	DB       *gorm.DB
	Notifier Notifier
}

// UsageResult reports the outcome of one usage increment.
type UsageResult struct {
	// Used is the counter value after the increment. Zero when tracking was
	// skipped because no config exists.
	Used int
	// Expired reports whether the guardian is at or over the allotment.
	Expired bool
	// Tracked is false when no quota config exists yet and the increment was
	// silently skipped.
	Tracked bool
}

// EnsureQuotaRecord idempotently creates a quota record for guardianID bound
// to the currently active config. It is a no-op when the record already
// exists, and a deferred no-op when no config exists yet; RecordUsage retries
// the creation on first use.
func (s *QuotaService) EnsureQuotaRecord(ctx context.Context, guardianID string) error {
	tr := otel.Tracer("services/QuotaService")
	ctx, span := tr.Start(ctx, "EnsureQuotaRecord",
		trace.WithAttributes(attribute.String("guardian.id", guardianID)),
	)
	defer span.End()

	if _, err := repo.GetGuardianQuota(ctx, s.DB, guardianID); err == nil {
		return nil
	} else if !errors.Is(err, repo.ErrNotFound) {
		return err
	}

	cfg, err := repo.GetActiveQuotaConfig(ctx, s.DB)
	if errors.Is(err, repo.ErrNotFound) {
		// Not an error: the product cannot enforce a quota that has not been
		// configured. Reconciled lazily once a config appears.
		log.Info().Str("guardian_id", guardianID).Msg("no quota config yet, deferring quota record creation")
		return nil
	}
	if err != nil {
		return err
	}

	if _, err := repo.CreateGuardianQuota(ctx, s.DB, guardianID, cfg.ID); err != nil {
		// A concurrent creator winning the unique index race is fine.
		if isDuplicate(err) {
			return nil
		}
		return err
	}
	return nil
}

// RecordUsage counts one dispatched message against guardianID. The record
// is created lazily when missing; when no config exists the increment is
// skipped with a log line rather than an error. When the increment crosses
// the allotment for the first time, the expiry notification is sent exactly
// once; the flag flips in the same statement as the counter.
func (s *QuotaService) RecordUsage(ctx context.Context, guardianID string) (UsageResult, error) {
	tr := otel.Tracer("services/QuotaService")
	ctx, span := tr.Start(ctx, "RecordUsage",
		trace.WithAttributes(attribute.String("guardian.id", guardianID)),
	)
	defer span.End()

	q, err := repo.GetGuardianQuota(ctx, s.DB, guardianID)
	if errors.Is(err, repo.ErrNotFound) {
		if err := s.EnsureQuotaRecord(ctx, guardianID); err != nil {
			return UsageResult{}, err
		}
		q, err = repo.GetGuardianQuota(ctx, s.DB, guardianID)
		if errors.Is(err, repo.ErrNotFound) {
			// Still no record means no config exists: skip tracking.
			log.Warn().Str("guardian_id", guardianID).Msg("quota tracking skipped: no quota config")
			return UsageResult{Tracked: false}, nil
		}
	}
	if err != nil {
		return UsageResult{}, err
	}

	max := q.Config.MaxMessagesPerCycle
	used, crossed, err := repo.IncrementUsage(ctx, s.DB, guardianID, max)
	if err != nil {
		return UsageResult{}, err
	}

	if crossed {
		guardian, gerr := repo.GetGuardian(ctx, s.DB, guardianID)
		if gerr != nil {
			log.Error().Err(gerr).Str("guardian_id", guardianID).Msg("expiry notification skipped: guardian lookup failed")
		} else if _, nerr := s.Notifier.Notify(ctx, guardian.UserID, titlePackageExpired, bodyPackageExpired, domain.NotifCategoryPackageExpired, nil); nerr != nil {
			// The flag is already set; the daily scan will not retry this
			// guardian. Surface loudly.
			log.Error().Err(nerr).Str("guardian_id", guardianID).Msg("expiry notification failed")
		} else {
			quotaExpiryNotices.Inc()
		}
	}

	return UsageResult{Used: used, Expired: used >= max, Tracked: true}, nil
}

// ScanAndNotifyExpired finds exhausted quota records that have not been
// notified and notifies each owning user exactly once. Safe to run
// repeatedly: already-notified records are skipped, and the flag update is
// conditional so overlapping scans cannot double-notify.
func (s *QuotaService) ScanAndNotifyExpired(ctx context.Context) (int, error) {
	tr := otel.Tracer("services/QuotaService")
	ctx, span := tr.Start(ctx, "ScanAndNotifyExpired")
	defer span.End()

	expired, err := repo.ListExpiredUnnotified(ctx, s.DB)
	if err != nil {
		return 0, err
	}

	notified := 0
	for _, q := range expired {
		won, err := repo.MarkExpiredNotified(ctx, s.DB, q.ID)
		if err != nil {
			return notified, err
		}
		if !won {
			continue
		}
		guardian, gerr := repo.GetGuardian(ctx, s.DB, q.GuardianID)
		if gerr != nil {
			log.Error().Err(gerr).Str("guardian_id", q.GuardianID).Msg("expiry scan: guardian lookup failed")
			continue
		}
		if _, nerr := s.Notifier.Notify(ctx, guardian.UserID, titlePackageExpired, bodyPackageExpired, domain.NotifCategoryPackageExpired, nil); nerr != nil {
			log.Error().Err(nerr).Str("guardian_id", q.GuardianID).Msg("expiry scan: notification failed")
			continue
		}
		quotaExpiryNotices.Inc()
		notified++
	}
	return notified, nil
}

// ResetCycle performs the monthly renewal. It only proceeds when now falls on
// day 1 of the month (the scheduler fires daily and passes the clock). For
// each quota record it zeroes usage, clears the expiry flag, and announces
// the renewed allotment. A record that is already pristine is skipped
// entirely, so a second run on the same day sends no redundant renewals.
// Any pending next-cycle increment on the active config is consumed and
// zeroed; after a reset the allotment already reflects the raised maximum,
// the grant exists to clamp records the reset did not touch.
func (s *QuotaService) ResetCycle(ctx context.Context, now time.Time) (int, error) {
	tr := otel.Tracer("services/QuotaService")
	ctx, span := tr.Start(ctx, "ResetCycle")
	defer span.End()

	if now.Day() != 1 {
		return 0, nil
	}

	quotas, err := repo.ListQuotasForCycle(ctx, s.DB)
	if err != nil {
		return 0, err
	}

	renewed := 0
	for _, q := range quotas {
		did, err := repo.ResetQuota(ctx, s.DB, q.ID)
		if err != nil {
			return renewed, err
		}
		if !did {
			continue
		}
		guardian, gerr := repo.GetGuardian(ctx, s.DB, q.GuardianID)
		if gerr != nil {
			log.Error().Err(gerr).Str("guardian_id", q.GuardianID).Msg("cycle reset: guardian lookup failed")
			continue
		}
		body := fmt.Sprintf("تم تجديد رصيد رسائلك إلى %d رسالة.", q.Config.MaxMessagesPerCycle)
		if _, nerr := s.Notifier.Notify(ctx, guardian.UserID, titlePackageRenewed, body, domain.NotifCategoryPackageRenewed, nil); nerr != nil {
			log.Error().Err(nerr).Str("guardian_id", q.GuardianID).Msg("cycle reset: notification failed")
			continue
		}
		renewed++
	}

	// Consume any queued next-cycle top-up.
	cfg, err := repo.GetActiveQuotaConfig(ctx, s.DB)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return renewed, nil
		}
		return renewed, err
	}
	if cfg.PendingIncrement > 0 {
		if _, err := repo.GrantHeadroom(ctx, s.DB, cfg.ID, cfg.PendingIncrement, cfg.MaxMessagesPerCycle); err != nil {
			return renewed, err
		}
		if err := repo.SetPendingIncrement(ctx, s.DB, cfg.ID, 0); err != nil {
			return renewed, err
		}
		log.Info().Int("increment", cfg.PendingIncrement).Msg("pending quota increment applied at cycle boundary")
	}

	return renewed, nil
}

// IncrementMode selects how an administrative raise reaches guardians.
type IncrementMode struct {
	ApplyNow       bool
	ApplyNextCycle bool
}

// ApplyAdminIncrement reacts to the global maximum being raised from oldMax
// to newMax. Only positive diffs act. ApplyNow grants the diff immediately by
// lowering every bound guardian's used counter (clamped at zero, expiry flags
// cleared where usage drops under the new max); ApplyNextCycle queues the
// diff on the config for the next ResetCycle to consume. Both modes may apply
// independently. The caller persists newMax on the config before calling.
func (s *QuotaService) ApplyAdminIncrement(ctx context.Context, newMax, oldMax int, mode IncrementMode) error {
	tr := otel.Tracer("services/QuotaService")
	ctx, span := tr.Start(ctx, "ApplyAdminIncrement",
		trace.WithAttributes(
			attribute.Int("quota.old_max", oldMax),
			attribute.Int("quota.new_max", newMax),
		),
	)
	defer span.End()

	if oldMax < 1 || newMax <= oldMax {
		return ErrInvalidIncrement
	}
	diff := newMax - oldMax

	cfg, err := repo.GetActiveQuotaConfig(ctx, s.DB)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrNoQuotaConfig
		}
		return err
	}

	if mode.ApplyNow {
		affected, err := repo.GrantHeadroom(ctx, s.DB, cfg.ID, diff, newMax)
		if err != nil {
			return err
		}
		log.Info().Int("diff", diff).Int64("guardians", affected).Msg("quota increment applied immediately")
	}
	if mode.ApplyNextCycle {
		if err := repo.SetPendingIncrement(ctx, s.DB, cfg.ID, diff); err != nil {
			return err
		}
		log.Info().Int("diff", diff).Msg("quota increment queued for next cycle")
	}
	return nil
}

// Snapshot returns the guardian's quota state for profile/API serialization.
func (s *QuotaService) Snapshot(ctx context.Context, guardianID string) (*domain.GuardianQuota, error) {
	q, err := repo.GetGuardianQuota(ctx, s.DB, guardianID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrQuotaRecordNotFound
	}
	return q, err
}
