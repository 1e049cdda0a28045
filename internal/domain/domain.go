package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// --- Model types ---

// Connection is one live peer link. The id is assigned by the gateway at
// connect time and treated as opaque everywhere else.
type Connection struct {
	ID             string
	ConnectedAt    time.Time
	LastActivityAt time.Time
	Metadata       map[string]string
}

// Message is one broadcast unit. Immutable once persisted.
type Message struct {
	ID        uuid.UUID `json:"messageId"`
	SenderID  string    `json:"senderId"`
	Text      string    `json:"text"`
	Sentiment int       `json:"sentiment"`
	Timestamp time.Time `json:"timestamp"`
}

// DeliveryOutcome classifies a single delivery attempt to one connection.
type DeliveryOutcome int

const (
	// Delivered means the payload was handed to the peer's writer.
	Delivered DeliveryOutcome = iota
	// TransientFailure means delivery failed in a way that may self-resolve
	// (timeout, full buffer). The connection is kept.
	TransientFailure
	// TerminalFailure means the peer is verifiably gone. The connection is
	// pruned from the registry.
	TerminalFailure
)

func (o DeliveryOutcome) String() string {
	switch o {
	case Delivered:
		return "delivered"
	case TransientFailure:
		return "transient_failure"
	case TerminalFailure:
		return "terminal_failure"
	default:
		return "unknown"
	}
}

// DeliveryReport aggregates the per-connection outcomes of one broadcast.
type DeliveryReport struct {
	Delivered int
	Transient int
	Pruned    int
	PrunedIDs []string
}

// --- Wire format ---

// SchemaVersion identifies the wire payload layout. Bump only on breaking
// changes to Envelope or its data shapes.
const SchemaVersion = 1

// Frame types carried in Envelope.Type.
const (
	FrameMessage    = "message"
	FrameTyping     = "typing"
	FramePeerJoined = "peer_joined"
	FramePeerLeft   = "peer_left"
	FrameConnected  = "connected"
	FrameAck        = "ack"
	FrameError      = "error"
)

// Envelope is the serialized broadcast unit sent to peers. The field names
// must stay stable for the lifetime of a deployment.
type Envelope struct {
	Schema int    `json:"schema"`
	Type   string `json:"type"`
	Data   any    `json:"data"`
}

// --- Interfaces ---

// Scorer computes a sentiment score for message text. Implementations must be
// pure and deterministic.
type Scorer interface {
	Score(text string) int
}

// MessageStore is the append-only persistence for accepted messages.
// Retention and expiry are store-level concerns.
type MessageStore interface {
	Append(ctx context.Context, msg *Message) error
	Recent(ctx context.Context, limit int) ([]Message, error)
}

// Deliverer pushes a serialized payload to one connection and reports what
// happened. It is the only party that knows the transport-level cause, so the
// transient/terminal classification lives behind this interface.
type Deliverer interface {
	Deliver(ctx context.Context, connectionID string, payload []byte) DeliveryOutcome
}
