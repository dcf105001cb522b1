package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.opentelemetry.io/otel/trace"
)

func TestClassifyDBErr(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"unique", &pgconn.PgError{Code: "23505"}, "unique_violation"},
		{"other pg", &pgconn.PgError{Code: "42P01"}, "pg_42P01"},
		{"deadline", context.DeadlineExceeded, "timeout"},
		{"connection", errors.New("connection refused"), "connection"},
		{"unknown", errors.New("boom"), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classifyDBErr(tt.err); got != tt.want {
				t.Fatalf("got %q want %q", got, tt.want)
			}
		})
	}
}

func TestObserveDB_CountsErrors(t *testing.T) {
	p := NewProm(prometheus.NewRegistry())

	err := p.ObserveDB("users.insert", func() error { return &pgconn.PgError{Code: "23505"} })
	if err == nil {
		t.Fatalf("expected error to be returned untouched")
	}

	got := testutil.ToFloat64(p.DbErrorsTotal.WithLabelValues("users.insert", "unique_violation"))
	if got != 1 {
		t.Fatalf("errors_total: got %v want 1", got)
	}
}

func TestObserve_NilPromIsSafe(t *testing.T) {
	var p *Prom

	called := false
	if err := p.ObserveDB("op", func() error { called = true; return nil }); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if !called {
		t.Fatalf("fn should still run on nil prom")
	}

	p.ObserveCacheLookup("weather", "hit")
	p.ObserveUpstream("/weather.json", "ok", time.Millisecond)
	p.ObserveWarm("weather:all", "ok", time.Millisecond)
}

func TestWarmMetrics_Snapshot(t *testing.T) {
	m := NewWarmMetrics()
	m.IncRuns()
	m.IncOK()
	m.IncFailed()
	m.IncSkipped()
	m.ObserveDuration(10 * time.Millisecond)
	m.ObserveDuration(30 * time.Millisecond)

	s := m.Snapshot()
	if s.Runs != 1 || s.OK != 1 || s.Failed != 1 || s.Skipped != 1 {
		t.Fatalf("unexpected counters: %+v", s)
	}
	if s.AverageDuration != 20*time.Millisecond {
		t.Fatalf("avg: got %s", s.AverageDuration)
	}
	if s.MaxDuration != 30*time.Millisecond {
		t.Fatalf("max: got %s", s.MaxDuration)
	}
}

func TestTraceHandler_AddsTraceIDs(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewTraceHandler(slog.NewJSONHandler(&buf, nil)))

	traceID, _ := trace.TraceIDFromHex("0102030405060708090a0b0c0d0e0f10")
	spanID, _ := trace.SpanIDFromHex("0102030405060708")
	sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID, TraceFlags: trace.FlagsSampled})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	log.InfoContext(ctx, "hello")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if rec["trace_id"] != traceID.String() {
		t.Fatalf("trace_id: got %v", rec["trace_id"])
	}
	if rec["span_id"] != spanID.String() {
		t.Fatalf("span_id: got %v", rec["span_id"])
	}
	if rec["sampled"] != true {
		t.Fatalf("sampled: got %v", rec["sampled"])
	}
}

func TestNewLogger_ServiceAttrsAndLevel(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger(&buf, "prod", "chileapi-warmer")

	log.Debug("hidden")
	if buf.Len() != 0 {
		t.Fatalf("debug logged outside dev: %s", buf.String())
	}

	log.Info("warm run")
	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if rec["service"] != "chileapi-warmer" || rec["env"] != "prod" {
		t.Fatalf("record: %v", rec)
	}
	if _, ok := rec["trace_id"]; ok {
		t.Fatalf("trace_id without a span: %v", rec)
	}
}
