package session

import (
	"context"
	"expvar"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestExpvarMetricsRecorderExports(t *testing.T) {
	rec := NewExpvarMetricsRecorder("")
	if rec.Name() == "" {
		t.Fatalf("expected generated name")
	}
	if expvar.Get(rec.Name()) == nil {
		t.Fatalf("recorder not published")
	}
	ctx := context.Background()
	rec.Observe(ctx, "load_and_randomize", true, 20*time.Millisecond)
	rec.Observe(ctx, "load_and_randomize", false, 5*time.Millisecond)
	rec.Observe(ctx, "", true, time.Millisecond) // ignored

	snap := rec.Snapshot()
	if snap.DurationsMS["load_and_randomize"] < 24 {
		t.Fatalf("durations %v", snap.DurationsMS)
	}
	if snap.Results["load_and_randomize"]["success"] != 1 || snap.Results["load_and_randomize"]["error"] != 1 {
		t.Fatalf("results %v", snap.Results)
	}
}

func TestPrometheusMetricsRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec, err := NewPrometheusMetricsRecorder(reg)
	if err != nil {
		t.Fatalf("NewPrometheusMetricsRecorder: %v", err)
	}
	ctx := context.Background()
	rec.Observe(ctx, "record_trial", true, 3*time.Millisecond)
	rec.Observe(ctx, "record_trial", false, time.Millisecond)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	names := make(map[string]bool, len(families))
	for _, mf := range families {
		names[mf.GetName()] = true
	}
	if !names["stimcore_session_operation_duration_seconds"] {
		t.Fatalf("missing duration metric: %v", names)
	}
	if !names["stimcore_session_operation_results_total"] {
		t.Fatalf("missing results metric: %v", names)
	}
}

func TestPrometheusRecorderDoubleRegisterFails(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := NewPrometheusMetricsRecorder(reg); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if _, err := NewPrometheusMetricsRecorder(reg); err == nil {
		t.Fatalf("expected duplicate registration error")
	}
}
