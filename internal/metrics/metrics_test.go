package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveSweep("ok", 150*time.Millisecond)
	m.ObserveSweep("skipped", 0)
	m.AddExpired(3)
	m.IncNotification("sent")
	m.IncNotification("sent")
	m.IncNotification("failed")
	m.IncClaimLost()
	m.IncProposal("created")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.SweepsTotal.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SweepsTotal.WithLabelValues("skipped")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.SlotsExpired))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.NotificationsTotal.WithLabelValues("sent")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.NotificationsTotal.WithLabelValues("failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ClaimsLost))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ProposalsTotal.WithLabelValues("created")))
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveSweep("ok", time.Second)
		m.AddExpired(1)
		m.IncNotification("sent")
		m.IncClaimLost()
		m.IncProposal("validated")
	})
}
