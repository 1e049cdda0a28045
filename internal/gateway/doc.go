// Package gateway is the WebSocket edge: it upgrades HTTP requests,
// runs the per-client read pump, and owns the per-connection writer
// goroutines that the relay engine delivers through.
package gateway
