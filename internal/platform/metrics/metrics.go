package metrics

import (
	"linkup/internal/core/domain"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "linkup"

// Metrics groups the realtime collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	reg           *prometheus.Registry
	connections   prometheus.Gauge
	onlineUsers   prometheus.Gauge
	announcements prometheus.Counter
	deliveries    *prometheus.CounterVec
	pushFailures  *prometheus.CounterVec
	handshakes    *prometheus.CounterVec
}

func New(reg *prometheus.Registry) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		reg: reg,
		connections: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ws_connections",
			Help:      "Live WebSocket connections held by the registry.",
		}),
		onlineUsers: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "online_users",
			Help:      "Users with at least one live connection.",
		}),
		announcements: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "presence_announcements_total",
			Help:      "Roster broadcasts issued.",
		}),
		deliveries: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deliveries_total",
			Help:      "Message routing attempts by outcome.",
		}, []string{"outcome"}),
		pushFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "push_failures_total",
			Help:      "Per-connection pushes that failed or timed out.",
		}, []string{"event"}),
		handshakes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ws_handshakes_total",
			Help:      "WebSocket handshakes by result.",
		}, []string{"result"}),
	}
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

func (m *Metrics) SetRegistrySize(connections, users int) {
	if m == nil {
		return
	}
	m.connections.Set(float64(connections))
	m.onlineUsers.Set(float64(users))
}

func (m *Metrics) IncAnnouncements() {
	if m == nil {
		return
	}
	m.announcements.Inc()
}

func (m *Metrics) ObserveDelivery(r domain.DeliveryReport) {
	if m == nil {
		return
	}
	m.deliveries.WithLabelValues(DeliveryOutcome(r)).Inc()
}

func (m *Metrics) IncPushFailure(event string) {
	if m == nil {
		return
	}
	m.pushFailures.WithLabelValues(event).Inc()
}

func (m *Metrics) IncHandshake(result string) {
	if m == nil {
		return
	}
	m.handshakes.WithLabelValues(result).Inc()
}

func DeliveryOutcome(r domain.DeliveryReport) string {
	switch {
	case r.Offline:
		return "offline"
	case r.Failed == 0:
		return "delivered"
	case r.Delivered == 0:
		return "failed"
	default:
		return "partial"
	}
}
