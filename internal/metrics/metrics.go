package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	SendsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campgw_sends_total",
			Help: "Campaign send attempts by result",
		},
		[]string{"result"}, // sent|failed
	)

	ActiveCampaigns = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "campgw_active_campaigns",
			Help: "Campaign dispatch workers currently running",
		},
	)

	NotificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campgw_notifications_total",
			Help: "Notifications published to the bus by type",
		},
		[]string{"type"},
	)

	GatewaySessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "campgw_gateway_sessions",
			Help: "WebSocket sessions currently connected",
		},
	)

	EventsIngested = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campgw_events_ingested_total",
			Help: "Domain events consumed from Kafka by outcome",
		},
		[]string{"outcome"}, // ok|poison|error
	)
)

func MustRegister(r prometheus.Registerer) {
	r.MustRegister(
		SendsTotal,
		ActiveCampaigns,
		NotificationsTotal,
		GatewaySessions,
		EventsIngested,
	)
}
