package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/Shivam13602/Chatpulse/internal/domain"
	"github.com/Shivam13602/Chatpulse/internal/logging"
	"github.com/Shivam13602/Chatpulse/internal/metrics"
	"github.com/Shivam13602/Chatpulse/internal/registry"
)

const (
	commandBufferSize = 256
	commandTimeout    = 5 * time.Second
	appendTimeout     = 2 * time.Second
	stopTimeout       = 10 * time.Second

	defaultDeliveryTimeout = 3 * time.Second
)

// relayCmd is the command interface for the Engine actor.
type relayCmd interface{ isRelayCmd() }

type baseRelayCmd struct{}

func (baseRelayCmd) isRelayCmd() {}

type broadcastCmd struct {
	baseRelayCmd
	senderID     string
	text         string
	replyChannel chan broadcastResult
	// abandoned is set by the caller when it stops waiting for the reply.
	// A command found abandoned before processing starts is skipped whole:
	// nothing persisted, nothing delivered.
	abandoned *atomic.Bool
}

type ephemeralCmd struct {
	baseRelayCmd
	senderID string
	kind     string
	fields   map[string]string
}

type stopCmd struct {
	baseRelayCmd
}

type broadcastResult struct {
	message *domain.Message
	report  *domain.DeliveryReport
	err     error
}

// Engine is the broadcast fanout core. A single goroutine consumes commands,
// so broadcasts are serialized: persisted order always matches delivery
// order. Per-connection deliveries within one broadcast run concurrently,
// bounding the worst case to one delivery timeout regardless of peer count.
type Engine struct {
	cmdCh           chan relayCmd
	clock           clockwork.Clock
	registry        *registry.Registry
	store           domain.MessageStore
	scorer          domain.Scorer
	deliverer       domain.Deliverer
	deliveryTimeout time.Duration
	done            chan struct{}
}

// Option tweaks engine construction.
type Option func(*Engine)

// WithDeliveryTimeout bounds each per-connection delivery attempt.
func WithDeliveryTimeout(d time.Duration) Option {
	return func(e *Engine) { e.deliveryTimeout = d }
}

// NewEngine creates a relay engine and starts its actor goroutine.
// The deliverer is the gateway adapter's push primitive; its outcome
// classification drives registry pruning.
func NewEngine(reg *registry.Registry, store domain.MessageStore, scorer domain.Scorer, deliverer domain.Deliverer, clock clockwork.Clock, opts ...Option) *Engine {
	e := &Engine{
		cmdCh:           make(chan relayCmd, commandBufferSize),
		clock:           clock,
		registry:        reg,
		store:           store,
		scorer:          scorer,
		deliverer:       deliverer,
		deliveryTimeout: defaultDeliveryTimeout,
		done:            make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	go e.run()
	return e
}

// Broadcast accepts a message from senderID, scores and persists it, then
// delivers it to every registered connection, including the sender. Terminal
// delivery failures prune the target connection.
//
// Returns ErrEmptyMessage for blank text (nothing persisted, nothing
// delivered) and *PersistenceError when the store append fails (nothing
// delivered, safe to retry the whole call). If the caller stops waiting
// (context cancelled, reply timeout) before processing starts, the queued
// command is skipped entirely; a command already being processed runs to
// completion, so a timeout error means the outcome is unknown, not that the
// broadcast was rolled back.
func (e *Engine) Broadcast(ctx context.Context, senderID, text string) (*domain.Message, *domain.DeliveryReport, error) {
	cmd := broadcastCmd{
		senderID:     senderID,
		text:         text,
		replyChannel: make(chan broadcastResult, 1),
		abandoned:    &atomic.Bool{},
	}

	select {
	case e.cmdCh <- cmd:
	case <-ctx.Done():
		return nil, nil, fmt.Errorf("broadcast not accepted: %w", ctx.Err())
	}

	// Timeout prevents blocking forever if the engine is stuck.
	timer := e.clock.NewTimer(commandTimeout + e.deliveryTimeout)
	defer timer.Stop()

	select {
	case result := <-cmd.replyChannel:
		return result.message, result.report, result.err
	case <-ctx.Done():
		cmd.abandoned.Store(true)
		return nil, nil, fmt.Errorf("broadcast abandoned: %w", ctx.Err())
	case <-timer.Chan():
		cmd.abandoned.Store(true)
		return nil, nil, fmt.Errorf("broadcast timed out after %v", commandTimeout+e.deliveryTimeout)
	}
}

// BroadcastEphemeral fans out a transient frame (typing notices, peer
// join/leave) to every registered connection except the sender. Nothing is
// scored or persisted; terminal failures still prune.
func (e *Engine) BroadcastEphemeral(senderID, kind string, fields map[string]string) {
	select {
	case e.cmdCh <- ephemeralCmd{senderID: senderID, kind: kind, fields: fields}:
	default:
		// Ephemeral frames are droppable under load; audited messages are not.
		slog.Warn("Dropping ephemeral frame, command channel full", "kind", kind)
	}
}

// Stop shuts down the engine. Blocks until the actor goroutine has exited or
// the stop timeout is reached. Safe to call even if the actor already exited
// with a full command channel.
func (e *Engine) Stop() {
	timer := e.clock.NewTimer(stopTimeout)
	defer timer.Stop()

	select {
	case e.cmdCh <- stopCmd{}:
	case <-e.done:
		slog.Info("Relay engine already stopped")
		return
	case <-timer.Chan():
		slog.Warn("Relay engine stop timeout exceeded", "timeout", stopTimeout)
		metrics.RelayStopTimeoutsTotal.Inc()
		return
	}

	select {
	case <-e.done:
		slog.Info("Relay engine stopped gracefully")
	case <-timer.Chan():
		slog.Warn("Relay engine stop timeout exceeded", "timeout", stopTimeout)
		metrics.RelayStopTimeoutsTotal.Inc()
	}
}

func (e *Engine) run() {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Relay engine panic recovered", "panic", r)
			metrics.RelayPanicsTotal.Inc()
		}
	}()
	defer close(e.done)

	depthTicker := e.clock.NewTicker(1 * time.Second)
	defer depthTicker.Stop()

	for {
		select {
		case <-depthTicker.Chan():
			depth := len(e.cmdCh)
			metrics.RelayCommandChannelDepth.Set(float64(depth))
			if depth > commandBufferSize*4/5 {
				slog.Warn("Relay command channel near capacity", "depth", depth, "capacity", commandBufferSize)
			}

		case cmd := <-e.cmdCh:
			switch c := cmd.(type) {
			case broadcastCmd:
				e.handleBroadcast(c)
			case ephemeralCmd:
				e.handleEphemeral(c)
			case stopCmd:
				return
			default:
				slog.Warn("Relay engine received unknown command type", "command_type", fmt.Sprintf("%T", cmd))
			}
		}
	}
}

func (e *Engine) handleBroadcast(c broadcastCmd) {
	if c.abandoned.Load() {
		slog.Debug("Skipping abandoned broadcast", "sender_id", c.senderID)
		return
	}

	start := e.clock.Now()
	defer func() {
		metrics.RelayBroadcastDuration.Observe(e.clock.Since(start).Seconds())
	}()

	if strings.TrimSpace(c.text) == "" {
		c.replyChannel <- broadcastResult{err: domain.ErrEmptyMessage}
		return
	}

	msg := &domain.Message{
		ID:        uuid.New(),
		SenderID:  c.senderID,
		Text:      c.text,
		Sentiment: e.scorer.Score(c.text),
		Timestamp: e.clock.Now(),
	}

	// Persist before any delivery: a recorded-but-undelivered message is
	// recoverable, a delivered-but-unrecorded one is not auditable.
	ctx, cancel := context.WithTimeout(context.Background(), appendTimeout)
	err := e.store.Append(ctx, msg)
	cancel()
	if err != nil {
		logging.WithMessage(msg.ID.String()).Error("Message store append failed", "error", err)
		metrics.RelayPersistenceFailuresTotal.Inc()
		c.replyChannel <- broadcastResult{err: &domain.PersistenceError{Err: err}}
		return
	}

	payload, err := json.Marshal(domain.Envelope{
		Schema: domain.SchemaVersion,
		Type:   domain.FrameMessage,
		Data:   msg,
	})
	if err != nil {
		c.replyChannel <- broadcastResult{err: fmt.Errorf("marshal broadcast payload: %w", err)}
		return
	}

	report := e.fanout(payload, "")
	slog.Debug("Broadcast complete",
		"message_id", msg.ID.String(),
		"sender_id", c.senderID,
		"delivered", report.Delivered,
		"transient", report.Transient,
		"pruned", report.Pruned,
	)
	c.replyChannel <- broadcastResult{message: msg, report: report}
}

func (e *Engine) handleEphemeral(c ephemeralCmd) {
	data := map[string]string{"senderId": c.senderID}
	for k, v := range c.fields {
		data[k] = v
	}

	payload, err := json.Marshal(domain.Envelope{
		Schema: domain.SchemaVersion,
		Type:   c.kind,
		Data:   data,
	})
	if err != nil {
		slog.Error("Failed to marshal ephemeral payload", "kind", c.kind, "error", err)
		return
	}

	e.fanout(payload, c.senderID)
}

// fanout delivers payload to every connection in a fresh registry snapshot,
// skipping excludeID when non-empty. It waits for all outcomes; pruning
// decisions depend on knowing each one.
func (e *Engine) fanout(payload []byte, excludeID string) *domain.DeliveryReport {
	snapshot := e.registry.Snapshot()
	report := &domain.DeliveryReport{}

	type delivery struct {
		connectionID string
		outcome      domain.DeliveryOutcome
	}

	results := make(chan delivery, len(snapshot))
	attempts := 0
	for _, conn := range snapshot {
		if conn.ID == excludeID {
			continue
		}
		attempts++
		go func(id string) {
			ctx, cancel := context.WithTimeout(context.Background(), e.deliveryTimeout)
			defer cancel()
			results <- delivery{connectionID: id, outcome: e.deliverer.Deliver(ctx, id, payload)}
		}(conn.ID)
	}

	for range attempts {
		d := <-results
		metrics.RelayDeliveriesTotal.WithLabelValues(d.outcome.String()).Inc()

		switch d.outcome {
		case domain.Delivered:
			report.Delivered++
		case domain.TransientFailure:
			report.Transient++
			logging.WithConnection(d.connectionID).Warn("Transient delivery failure, connection kept")
		case domain.TerminalFailure:
			report.Pruned++
			report.PrunedIDs = append(report.PrunedIDs, d.connectionID)
			e.registry.Remove(d.connectionID)
			metrics.RelayPrunedConnectionsTotal.Inc()
			logging.WithConnection(d.connectionID).Info("Pruned dead connection after terminal delivery failure")
		}
	}

	return report
}
