package metrics

import (
	"linkup/internal/core/domain"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMetrics_RecordsRealtimeCounters(t *testing.T) {
	req := require.New(t)
	m := New(prometheus.NewRegistry())

	m.SetRegistrySize(3, 2)
	m.IncAnnouncements()
	m.ObserveDelivery(domain.DeliveryReport{Handles: 2, Delivered: 1, Failed: 1})
	m.ObserveDelivery(domain.DeliveryReport{Offline: true})
	m.IncPushFailure(domain.TypeMessageNew)

	req.Equal(3.0, testutil.ToFloat64(m.connections))
	req.Equal(2.0, testutil.ToFloat64(m.onlineUsers))
	req.Equal(1.0, testutil.ToFloat64(m.announcements))
	req.Equal(1.0, testutil.ToFloat64(m.deliveries.WithLabelValues("partial")))
	req.Equal(1.0, testutil.ToFloat64(m.deliveries.WithLabelValues("offline")))
	req.Equal(1.0, testutil.ToFloat64(m.pushFailures.WithLabelValues(domain.TypeMessageNew)))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	require.NotPanics(t, func() {
		m.SetRegistrySize(1, 1)
		m.IncAnnouncements()
		m.ObserveDelivery(domain.DeliveryReport{})
		m.IncPushFailure("x")
		m.IncHandshake("ok")
	})
}

func TestDeliveryOutcome(t *testing.T) {
	req := require.New(t)
	req.Equal("offline", DeliveryOutcome(domain.DeliveryReport{Offline: true}))
	req.Equal("delivered", DeliveryOutcome(domain.DeliveryReport{Handles: 2, Delivered: 2}))
	req.Equal("failed", DeliveryOutcome(domain.DeliveryReport{Handles: 1, Failed: 1}))
}
