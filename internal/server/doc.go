// Package server implements the HTTP server using Echo framework.
//
// Routes: WebSocket endpoint (/ws), health probes, Prometheus metrics, and a
// read-only API for message history and runtime stats.
package server
