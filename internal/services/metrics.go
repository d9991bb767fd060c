// Package services – Prometheus collectors for business-level outcomes.
//
// The HTTP middleware already measures transport traffic; the collectors here
// track what the transport numbers cannot show: how dispatched events
// classify, and how often the soft delivery channels (push, SMS relay) fail
// without failing the operation.
package services

import "github.com/prometheus/client_golang/prometheus"

var (
	// dispatchTotal counts accepted dispatches by message category.
	dispatchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatch_messages_total",
			Help: "Total number of successfully dispatched messages.",
		},
		[]string{"category"},
	)

	// dispatchRejected counts validation rejections by reason.
	dispatchRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatch_rejected_total",
			Help: "Total number of rejected device events.",
		},
		[]string{"reason"},
	)

	// notifyPushFailures counts per-device push delivery failures.
	notifyPushFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notify_push_failures_total",
			Help: "Total number of failed per-device push attempts.",
		},
		[]string{"category"},
	)

	// smsRelayOutcomes counts supplementary SMS relay attempts by outcome.
	smsRelayOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sms_relay_total",
			Help: "Total number of SMS relay attempts by outcome.",
		},
		[]string{"outcome"},
	)

	// quotaExpiryNotices counts package-expired notifications sent.
	quotaExpiryNotices = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "quota_expiry_notifications_total",
			Help: "Total number of package-expired notifications sent.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		dispatchTotal,
		dispatchRejected,
		notifyPushFailures,
		smsRelayOutcomes,
		quotaExpiryNotices,
	)
}
