// Package relay implements the broadcast fanout engine using the actor pattern.
//
// The Engine scores and persists each accepted message, then fans it out to a
// point-in-time registry snapshot. Uses single goroutine + command channel (no
// mutexes); per-connection deliveries run concurrently with a bounded timeout,
// and terminal failures prune the registry.
package relay
