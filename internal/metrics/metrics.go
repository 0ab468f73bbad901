package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "autopilot"

// #region metrics

// Metrics holds the loop's Prometheus collectors on a private registry.
type Metrics struct {
	Registry *prometheus.Registry

	Ticks      prometheus.Counter
	TickErrors prometheus.Counter
	Incidents  prometheus.Counter
	// Outcomes counts finished attempt phases by action label.
	Outcomes  *prometheus.CounterVec
	Rollbacks prometheus.Counter
	LastTick  prometheus.Gauge
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		Registry: reg,
		Ticks: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "ticks_total",
			Help: "Loop ticks executed.",
		}),
		TickErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "tick_errors_total",
			Help: "Ticks that ended with an error.",
		}),
		Incidents: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "incidents_total",
			Help: "New incident fingerprints detected.",
		}),
		Outcomes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "attempt_outcomes_total",
			Help: "Remediation attempt outcomes by action.",
		}, []string{"action"}),
		Rollbacks: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "rollbacks_total",
			Help: "Hard resets to the incident baseline.",
		}),
		LastTick: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "last_tick_timestamp_seconds",
			Help: "Unix time of the last completed tick.",
		}),
	}
}

// Outcome increments the counter for one action.
func (m *Metrics) Outcome(action string) {
	m.Outcomes.WithLabelValues(action).Inc()
}

// TickDone records a finished tick.
func (m *Metrics) TickDone(at time.Time, err error) {
	m.Ticks.Inc()
	if err != nil {
		m.TickErrors.Inc()
	}
	m.LastTick.Set(float64(at.Unix()))
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// #endregion metrics

// #region server

// Serve listens on addr until ctx is done, then shuts down gracefully.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return fmt.Errorf("metrics listener %s: %w", addr, err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("metrics shutdown: %w", err)
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// #endregion server
