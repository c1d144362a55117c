// Package httpserver exposes the attestation backend over HTTP: the public
// verification and mint endpoints, the key-gated admin surface, and the
// operational endpoints (liveness, readiness, drain, pprof). Prometheus
// metrics are served from a separate listener.
package httpserver
