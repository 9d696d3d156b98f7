// Package server provides the HTTP guard server for admission checks.
//
// The server exposes:
//   - POST /v1/check: evaluate an admission decision for a subject
//   - GET /healthz: liveness probe
//   - GET /metrics: Prometheus metrics (when enabled)
//
// Allowed decisions return 200; denied decisions return 429 with a
// Retry-After header derived from the decision. The decision body is
// returned in both cases so callers can inspect the reason.
package server
