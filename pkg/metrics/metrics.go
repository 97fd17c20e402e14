package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	ActiveConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{Namespace: "naskah", Name: "active_connections", Help: "Number of open websocket connections."},
	)
	ActiveSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{Namespace: "naskah", Name: "active_sessions", Help: "Number of documents with at least one connected participant."},
	)
	RelayedEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "naskah", Name: "relayed_events_total", Help: "Events fanned out to session peers, by event type."},
		[]string{"type"},
	)
	DroppedEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "naskah", Name: "dropped_events_total", Help: "Inbound events dropped by the coordinator, by reason."},
		[]string{"reason"},
	)
	DocumentWrites = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "naskah", Name: "document_writes_total", Help: "Document store writes issued by the coordinator, by kind and result."},
		[]string{"kind", "result"},
	)
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "naskah", Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "naskah", Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
		[]string{"limiter"},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(ActiveConnections)
	reg.MustRegister(ActiveSessions)
	reg.MustRegister(RelayedEvents)
	reg.MustRegister(DroppedEvents)
	reg.MustRegister(DocumentWrites)
	reg.MustRegister(RateLimitAllowed)
	reg.MustRegister(RateLimitRejected)
}
