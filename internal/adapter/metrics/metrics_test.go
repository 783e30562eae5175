package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestGatewayMetrics(t *testing.T) {
	m := NewGatewayMetrics(prometheus.NewRegistry())

	m.AuthDecision("tenant", "allowed")
	m.AuthDecision("tenant", "allowed")
	m.AuditEntry("dropped")

	if got := testutil.ToFloat64(m.AuthDecisions.WithLabelValues("tenant", "allowed")); got != 2 {
		t.Errorf("expected 2 allowed tenant decisions, got %v", got)
	}
	if got := testutil.ToFloat64(m.AuditEntries.WithLabelValues("dropped")); got != 1 {
		t.Errorf("expected 1 dropped audit entry, got %v", got)
	}
}

func TestGatewayMetrics_NilReceiver(t *testing.T) {
	var m *GatewayMetrics
	m.AuthDecision("admin", "forbidden")
	m.AuditEntry("written")
}
