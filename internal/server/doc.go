// Package server serves a read-only HTTP view of the contribution log.
//
// Routes:
//
//	GET /v1/healthz   backend reachability
//	GET /v1/address   derived log address and bump
//	GET /v1/log       the whole log, no pagination
//	GET /metrics      Prometheus exposition
//
// Example:
//
//	s := server.New(l, reg, logger)
//	_ = s.ListenAndServe(ctx, ":8080")
package server
