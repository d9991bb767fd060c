// Package services – NotifyService
//
// This file implements the notification channel: one logical notification is
// persisted as a durable row first, then pushed best-effort to every device
// the user has registered. The row is the source of truth for the in-app
// listing; pushes are fire-and-forget relative to it, and a failure on one
// device never affects another.
package services

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/hajeen-app/go-care-backend/internal/domain"
	"github.com/hajeen-app/go-care-backend/internal/push"
	"github.com/hajeen-app/go-care-backend/internal/repo"
)

// NotifyService persists notifications and fans them out to push devices.
type NotifyService struct {
	DB     *gorm.DB
	Pusher push.Sender
}

// Notify records a notification for userID and attempts delivery to each of
// the user's registered devices. The returned Notification is always the
// persisted row; push outcomes are logged only. An emergency category
// requests high-priority delivery from the push provider.
func (s *NotifyService) Notify(ctx context.Context, userID, title, body, category string, messageID *string) (*domain.Notification, error) {
	tr := otel.Tracer("services/NotifyService")
	ctx, span := tr.Start(ctx, "Notify",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.String("notification.category", category),
		),
	)
	defer span.End()

	// Durability first: the row must exist even if no device is registered
	// or every push fails.
	n, err := repo.CreateNotification(ctx, s.DB, userID, title, body, category, messageID)
	if err != nil {
		return nil, err
	}

	devices, err := repo.ListPushDevices(ctx, s.DB, userID)
	if err != nil {
		log.Warn().Err(err).Str("user_id", userID).Msg("push device lookup failed; notification persisted")
		return n, nil
	}
	if len(devices) == 0 {
		return n, nil
	}

	data := map[string]string{
		"notification_id": n.ID,
		"type":            category,
	}
	if messageID != nil {
		data["message_id"] = *messageID
	}
	high := category == domain.NotifCategoryEmergency

	// Devices are independent; push to all of them concurrently. Failures
	// are swallowed after logging.
	var wg sync.WaitGroup
	for _, d := range devices {
		wg.Add(1)
		go func(d domain.PushDevice) {
			defer wg.Done()
			if perr := s.Pusher.Send(ctx, d.Token, title, body, data, high); perr != nil {
				log.Warn().
					Err(perr).
					Str("user_id", userID).
					Str("device_id", d.ID).
					Str("category", category).
					Msg("push delivery failed")
				notifyPushFailures.WithLabelValues(category).Inc()
			}
		}(d)
	}
	wg.Wait()

	return n, nil
}
