// Copyright 2025 James Ross
package obs

import (
	"fmt"
	"net/http"

	"github.com/blockprover/orchestrator/internal/config"
	"github.com/prometheus/client_golang/prometheus"
	promhttp "github.com/prometheus/client_golang/prometheus/promhttp"
)

// All of these are write-only from the core's perspective (spec §9): the
// core registers and increments/sets them, it never reads them back to make
// a decision. The core packages do not expose /metrics; StartHTTPServer and
// StartMetricsServer in this package do, for the reference binary.
var (
	QueueDepth = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "orch_queue_depth",
		Help: "Current scheduler queue depth by priority class",
	}, []string{"priority"})

	InFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "orch_in_flight",
		Help: "Number of requests currently occupying a worker slot",
	})

	AdmissionTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orch_admission_total",
		Help: "Admission outcomes by action kind and result",
	}, []string{"action", "outcome"})

	PoolWriteFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orch_pool_write_failures_total",
		Help: "Total number of failed Pool writes",
	})

	TransitionRejected = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orch_transition_rejected_total",
		Help: "Total number of status transitions rejected as illegal",
	})

	WorkerResultTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orch_worker_result_total",
		Help: "Worker completions by proof type and outcome",
	}, []string{"proof_type", "outcome"})

	CircuitBreakerState = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "orch_circuit_breaker_state",
		Help: "0 Closed, 1 HalfOpen, 2 Open, per proof type",
	}, []string{"proof_type"})

	CircuitBreakerTrips = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orch_circuit_breaker_trips_total",
		Help: "Count of times a proof type's circuit breaker transitioned to Open",
	}, []string{"proof_type"})

	PausedGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "orch_paused",
		Help: "1 if the orchestrator is currently paused, else 0",
	})

	JanitorPruned = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orch_janitor_pruned_total",
		Help: "Total number of terminal pool entries pruned by the janitor",
	})

	PoolOccupancy = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "orch_pool_occupancy",
		Help: "Pool entry count by status kind, as of the last janitor sweep",
	}, []string{"status"})
)

func init() {
	prometheus.MustRegister(
		QueueDepth, InFlight, AdmissionTotal, PoolWriteFailures, TransitionRejected,
		WorkerResultTotal, CircuitBreakerState, CircuitBreakerTrips, PausedGauge, JanitorPruned,
		PoolOccupancy,
	)
}

// StartMetricsServer exposes /metrics and returns a server for controlled shutdown.
func StartMetricsServer(cfg *config.Config) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: fmt.Sprintf(":%d", cfg.Observability.MetricsPort), Handler: mux}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
