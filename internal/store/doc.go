// Package store provides append-only message persistence.
//
// Three backends implement domain.MessageStore: an in-memory ring buffer
// (default, also the test double), a Redis stream, and a Postgres table.
// BreakerStore wraps any backend with a circuit breaker so a dead store fails
// broadcasts fast instead of stalling the relay.
package store
