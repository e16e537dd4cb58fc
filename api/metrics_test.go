package api

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type alertRecorder struct {
	mu     sync.Mutex
	alerts []AlertEvent
}

func (r *alertRecorder) record(e AlertEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alerts = append(r.alerts, e)
}

func (r *alertRecorder) snapshot() []AlertEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]AlertEvent(nil), r.alerts...)
}

func TestLoginFailureSpikeAlert(t *testing.T) {
	var rec alertRecorder
	collector := newMetricsCollector(rec.record)
	collector.loginFailures.threshold = 5

	for i := 0; i < 4; i++ {
		collector.recordEvent(AuditLoginFailure)
	}
	assert.Empty(t, rec.snapshot(), "no alert below threshold")

	collector.recordEvent(AuditLoginFailure)
	alerts := rec.snapshot()
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertLoginFailureSpike, alerts[0].Type)
	assert.Equal(t, 5, alerts[0].Count)
	assert.Equal(t, 5, alerts[0].Threshold)

	// The counter restarts after an alert.
	collector.recordEvent(AuditLoginFailure)
	assert.Len(t, rec.snapshot(), 1)
}

func TestAccessDeniedSpikeCountsGateAndPumpRejections(t *testing.T) {
	var rec alertRecorder
	collector := newMetricsCollector(rec.record)
	collector.accessDenied.threshold = 3

	collector.recordEvent(AuditAccessDenied)
	collector.recordEvent(AuditPumpRejected)
	collector.recordEvent(AuditLoginSuccess)
	assert.Empty(t, rec.snapshot())

	collector.recordEvent(AuditAccessDenied)
	alerts := rec.snapshot()
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertAccessDeniedSpike, alerts[0].Type)
}

func TestMetricsSlidingWindowExpiry(t *testing.T) {
	var rec alertRecorder
	collector := newMetricsCollector(rec.record)
	collector.loginFailures.threshold = 3
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	collector.now = func() time.Time { return now }

	collector.recordEvent(AuditLoginFailure)
	collector.recordEvent(AuditLoginFailure)
	now = now.Add(defaultLoginFailureWindow + time.Second)
	collector.recordEvent(AuditLoginFailure)

	assert.Empty(t, rec.snapshot(), "old failures fall out of the window")
}

func TestMetricsNoAlertWithoutCallback(t *testing.T) {
	collector := newMetricsCollector(nil)
	collector.recordEvent(AuditLoginFailure)
}

func TestMetricsNilCollector(t *testing.T) {
	var collector *metricsCollector
	collector.recordEvent(AuditLoginFailure)
}
