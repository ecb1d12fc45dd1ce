package middleware_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/meszmate/imap-flow/middleware"
)

func counterValue(t *testing.T, vec *prometheus.CounterVec, label string) float64 {
	t.Helper()
	m := &dto.Metric{}
	c, err := vec.GetMetricWithLabelValues(label)
	if err != nil {
		t.Fatalf("GetMetricWithLabelValues: %v", err)
	}
	if err := c.(prometheus.Metric).Write(m); err != nil {
		t.Fatalf("Write: %v", err)
	}
	return m.GetCounter().GetValue()
}

func TestMetrics_RegistersExpectedFamilies(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := middleware.NewMetrics(reg)

	c := newTestConn(t)
	c.AddInterceptor(m)

	progress(t, c, "A001 NOOP")
	progress(t, c, "A002 NOOP")
	progress(t, c, "A003 CAPABILITY")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	found := map[string]bool{}
	for _, mf := range mfs {
		found[mf.GetName()] = true
	}
	for _, name := range []string{
		"imapflow_server_commands_total",
		"imapflow_server_command_errors_total",
		"imapflow_server_active_commands",
		"imapflow_server_command_duration_seconds",
	} {
		if !found[name] {
			t.Fatalf("expected metric %q to be registered, have %v", name, found)
		}
	}
}

func TestMetrics_StateGatingRejectionCountsAsError(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := middleware.NewMetrics(reg)

	c := newTestConn(t)
	c.AddInterceptor(m)

	// SELECT before LOGIN is rejected by state gating in handleCommand
	// before ever reaching cmdSelect, which does set cmdErr/After.
	progress(t, c, `A001 SELECT "INBOX"`)

	if got := counterValue(t, m.CommandErrorsVec(), "SELECT"); got != 1 {
		t.Fatalf("expected 1 SELECT error, got %v", got)
	}
}
