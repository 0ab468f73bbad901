package metrics

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestOutcome(t *testing.T) {
	m := New()
	m.Outcome("build_failed")
	m.Outcome("build_failed")
	m.Outcome("promoted")

	if v := testutil.ToFloat64(m.Outcomes.WithLabelValues("build_failed")); v != 2 {
		t.Errorf("build_failed = %v, want 2", v)
	}
	if v := testutil.ToFloat64(m.Outcomes.WithLabelValues("promoted")); v != 1 {
		t.Errorf("promoted = %v, want 1", v)
	}
}

func TestTickDone(t *testing.T) {
	m := New()
	at := time.Unix(1_700_000_000, 0)
	m.TickDone(at, nil)
	m.TickDone(at, errors.New("pm2 down"))

	if v := testutil.ToFloat64(m.Ticks); v != 2 {
		t.Errorf("ticks = %v, want 2", v)
	}
	if v := testutil.ToFloat64(m.TickErrors); v != 1 {
		t.Errorf("tick errors = %v, want 1", v)
	}
	if v := testutil.ToFloat64(m.LastTick); v != 1_700_000_000 {
		t.Errorf("last tick = %v", v)
	}
}

func TestHandler_ExposesMetrics(t *testing.T) {
	m := New()
	m.Incidents.Inc()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	if rec.Code != 200 {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "autopilot_incidents_total 1") {
		t.Errorf("missing counter in body:\n%s", rec.Body.String())
	}
}

func TestServe_StopsOnCancel(t *testing.T) {
	m := New()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Serve(ctx, "127.0.0.1:0") }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Serve: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}
