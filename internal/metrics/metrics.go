package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	MessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wabridge_messages_total",
			Help: "Messages lifecycle counter by direction and status",
		},
		[]string{"direction", "status"},
	)

	TransportAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wabridge_transport_attempts_total",
			Help: "Outbound transport attempts by transport and outcome",
		},
		[]string{"transport", "outcome"}, // cloud_api|deeplink , ok|error
	)

	RateLimitDenialsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wabridge_rate_limit_denials_total",
			Help: "Send admissions denied by rate window",
		},
		[]string{"window"}, // hourly|daily
	)

	WebhookEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wabridge_webhook_events_total",
			Help: "Inbound webhook events by kind and outcome",
		},
		[]string{"kind", "outcome"}, // status|inbound_message|template_status|unknown , ok|error|duplicate
	)
)

func MustRegister(r prometheus.Registerer) {
	r.MustRegister(
		MessagesTotal,
		TransportAttemptsTotal,
		RateLimitDenialsTotal,
		WebhookEventsTotal,
	)
}
