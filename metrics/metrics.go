// Package metrics defines the Prometheus instruments for the attestation
// backend and the standalone listener that serves them. Metrics are exposed
// on a separate port so the public API surface stays minimal.
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// FinalizeAttempts counts finalize outcomes by result label.
	FinalizeAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "suirify_finalize_attempts_total",
		Help: "Finalize attempts by outcome",
	}, []string{"outcome"})

	// GuardRejections counts mints blocked by the consumption guard.
	GuardRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "suirify_guard_rejections_total",
		Help: "Mints rejected by the consumption guard, by namespace",
	}, []string{"namespace"})

	// IndexerReconciliations counts consumption marks made by the indexer.
	IndexerReconciliations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "suirify_indexer_reconciliations_total",
		Help: "Consumption marks written by the event indexer, by namespace",
	}, []string{"namespace"})

	// VerificationSessions counts verification session outcomes.
	VerificationSessions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "suirify_verification_sessions_total",
		Help: "Verification sessions by outcome",
	}, []string{"outcome"})

	// LedgerCallDuration observes ledger RPC latencies.
	LedgerCallDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "suirify_ledger_call_duration_seconds",
		Help:    "Latency of ledger RPC calls",
		Buckets: prometheus.DefBuckets,
	}, []string{"method"})
)

// Finalize outcome labels.
const (
	OutcomeMinted          = "minted"
	OutcomeDuplicate       = "duplicate"
	OutcomeNoRequest       = "no_request"
	OutcomeSessionMissing  = "session_missing"
	OutcomeWalletUnbound   = "wallet_unbound"
	OutcomeInFlight        = "in_flight"
	OutcomeUpstreamFailure = "upstream_failure"
)

// Server serves the Prometheus scrape endpoint on its own listener.
type Server struct {
	srv *http.Server
}

// New creates a metrics server bound to addr.
func New(addr string) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// ListenAndServe blocks serving scrapes until Shutdown.
func (s *Server) ListenAndServe() error {
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("metrics server failed: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
