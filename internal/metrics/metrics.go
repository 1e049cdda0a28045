package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry metrics
var (
	// RegistryConnections tracks the current number of live connections.
	RegistryConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "registry_connections",
			Help: "Current number of registered connections",
		},
	)
)

// Relay engine metrics
var (
	// RelayBroadcastDuration tracks end-to-end broadcast latency (persist + fanout).
	RelayBroadcastDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "relay_broadcast_duration_seconds",
			Help:    "Broadcast duration from acceptance to aggregated delivery report",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
	)

	// RelayDeliveriesTotal tracks per-connection delivery attempts by outcome.
	RelayDeliveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_deliveries_total",
			Help: "Delivery attempts by outcome (delivered/transient_failure/terminal_failure)",
		},
		[]string{"outcome"},
	)

	// RelayPrunedConnectionsTotal tracks connections removed after terminal delivery failures.
	RelayPrunedConnectionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_pruned_connections_total",
			Help: "Connections pruned from the registry after terminal delivery failures",
		},
	)

	// RelayPersistenceFailuresTotal tracks broadcasts aborted by the message store.
	RelayPersistenceFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_persistence_failures_total",
			Help: "Broadcasts aborted because the message store append failed",
		},
	)

	// RelayCommandChannelDepth tracks current engine command channel depth.
	RelayCommandChannelDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "relay_command_channel_depth",
			Help: "Current relay engine command channel depth",
		},
	)

	// RelayPanicsTotal tracks engine panic recoveries.
	RelayPanicsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_panics_total",
			Help: "Total relay engine panic recoveries",
		},
	)

	// RelayStopTimeoutsTotal tracks engine stops that exceeded the timeout.
	RelayStopTimeoutsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_stop_timeouts_total",
			Help: "Relay engine stops that exceeded the shutdown timeout",
		},
	)
)

// Gateway metrics
var (
	// GatewayConnectedClients tracks WebSocket clients with a live writer.
	GatewayConnectedClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gateway_connected_clients",
			Help: "Current number of connected WebSocket clients",
		},
	)

	// GatewayConnectionRejectionsTotal tracks connections rejected by limits.
	GatewayConnectionRejectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_connection_rejections_total",
			Help: "WebSocket connections rejected by limit checks, by reason",
		},
		[]string{"reason"},
	)

	// GatewayPingFailuresTotal tracks keepalive ping write failures.
	GatewayPingFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gateway_ping_failures_total",
			Help: "Keepalive ping writes that failed",
		},
	)

	// GatewayIdleDisconnectsTotal tracks connections dropped for inactivity.
	GatewayIdleDisconnectsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gateway_idle_disconnects_total",
			Help: "Connections dropped after exceeding the idle timeout",
		},
	)

	// GatewayMessageSendDuration tracks single WebSocket write latency.
	GatewayMessageSendDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gateway_message_send_duration_seconds",
			Help:    "WebSocket message write duration",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5},
		},
	)
)

// Message store metrics
var (
	// StoreAppendDuration tracks message store append latency by backend.
	StoreAppendDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "store_append_duration_seconds",
			Help:    "Message store append duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"backend"},
	)

	// StoreAppendErrorsTotal tracks failed appends by backend.
	StoreAppendErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "store_append_errors_total",
			Help: "Message store append failures",
		},
		[]string{"backend"},
	)

	// StoreCircuitBreakerState tracks breaker state (0=closed, 1=half-open, 2=open).
	StoreCircuitBreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "store_circuit_breaker_state",
			Help: "Message store circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
	)
)
