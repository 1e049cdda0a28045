package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/Shivam13602/Chatpulse/internal/domain"
	"github.com/Shivam13602/Chatpulse/internal/logging"
	"github.com/Shivam13602/Chatpulse/internal/metrics"
)

const frameSendTimeout = 2 * time.Second

// Relay is the slice of the fanout engine the gateway needs.
type Relay interface {
	Broadcast(ctx context.Context, senderID, text string) (*domain.Message, *domain.DeliveryReport, error)
	BroadcastEphemeral(senderID, kind string, fields map[string]string)
}

// Registry is the slice of the connection registry the gateway needs.
type Registry interface {
	Add(id string, metadata map[string]string) (domain.Connection, error)
	Remove(id string) bool
	Touch(id string)
}

// Handler upgrades HTTP requests to WebSocket sessions and runs the read
// pump for each client. Outbound delivery goes through Peers.
type Handler struct {
	upgrader websocket.Upgrader
	registry Registry
	peers    *Peers
	relay    Relay
	limits   *ConnectionLimits
}

func NewHandler(registry Registry, peers *Peers, relay Relay, limits *ConnectionLimits) *Handler {
	return &Handler{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		registry: registry,
		peers:    peers,
		relay:    relay,
		limits:   limits,
	}
}

// HandleWebSocket is the echo handler for the /ws endpoint. It blocks for
// the lifetime of the client session.
func (h *Handler) HandleWebSocket(c echo.Context) error {
	ip := c.RealIP()

	ok, reason := h.limits.Acquire(ip)
	if !ok {
		metrics.GatewayConnectionRejectionsTotal.WithLabelValues(string(reason)).Inc()
		slog.Warn("Connection rejected", "ip", ip, "reason", reason)
		return c.JSON(http.StatusTooManyRequests, map[string]string{
			"error":  "connection limit reached",
			"reason": string(reason),
		})
	}

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.limits.Release(ip)
		return fmt.Errorf("upgrading websocket: %w", err)
	}

	id := uuid.NewString()
	metadata := sessionMetadata(c)

	// Writer first, registry second: once the id is registered a concurrent
	// fanout may deliver to it, and a registered id without a writer would be
	// classified terminal and pruned.
	h.peers.Attach(id, conn)

	if _, err := h.registry.Add(id, metadata); err != nil {
		// uuid collision, practically unreachable
		logging.WithConnection(id).Error("Failed to register connection", "error", err)
		h.peers.Detach(id)
		h.limits.Release(ip)
		return nil
	}

	logging.WithConnection(id).Info("Client connected", "ip", ip, "username", metadata["username"])

	h.sendFrame(id, domain.FrameConnected, connectedData{ConnectionID: id})
	h.relay.BroadcastEphemeral(id, domain.FramePeerJoined, metadata)

	h.readPump(c.Request().Context(), id, conn)

	// Mirror of connect: unregister before the writer goes away so no fanout
	// can observe a registered id without a writer.
	h.registry.Remove(id)
	h.peers.Detach(id)
	h.limits.Release(ip)
	h.relay.BroadcastEphemeral(id, domain.FramePeerLeft, metadata)
	logging.WithConnection(id).Info("Client disconnected")

	return nil
}

// readPump reads frames until the connection closes and dispatches them.
func (h *Handler) readPump(ctx context.Context, id string, conn *websocket.Conn) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logging.WithConnection(id).Debug("Read failed", "error", err)
			}
			return
		}

		h.registry.Touch(id)

		var frame clientFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			h.sendError(id, "malformed frame, expected JSON with an action field")
			continue
		}

		switch frame.Action {
		case actionSendMessage:
			h.handleSendMessage(ctx, id, frame.Data)
		case actionTyping:
			h.handleTyping(id, frame.Data)
		default:
			h.sendError(id, fmt.Sprintf("unsupported action %q", frame.Action))
		}
	}
}

func (h *Handler) handleSendMessage(ctx context.Context, id string, data json.RawMessage) {
	var payload sendMessageData
	if err := json.Unmarshal(data, &payload); err != nil {
		h.sendError(id, "malformed sendMessage data")
		return
	}

	msg, report, err := h.relay.Broadcast(ctx, id, payload.Text)
	switch {
	case err == nil:
		h.sendFrame(id, domain.FrameAck, ackData{
			MessageID: msg.ID.String(),
			Sentiment: msg.Sentiment,
			Delivered: report.Delivered,
		})
	case errors.Is(err, domain.ErrEmptyMessage):
		h.sendError(id, "message text is required")
	default:
		var persistErr *domain.PersistenceError
		if errors.As(err, &persistErr) {
			logging.WithConnection(id).Error("Failed to persist message", "error", err)
			h.sendError(id, "failed to store message, try again")
			return
		}
		logging.WithConnection(id).Error("Broadcast failed", "error", err)
		h.sendError(id, "broadcast failed")
	}
}

func (h *Handler) handleTyping(id string, data json.RawMessage) {
	var payload typingData
	if err := json.Unmarshal(data, &payload); err != nil {
		h.sendError(id, "malformed typing data")
		return
	}

	h.relay.BroadcastEphemeral(id, domain.FrameTyping, map[string]string{
		"isTyping": strconv.FormatBool(payload.IsTyping),
	})
}

// sendFrame delivers a frame to a single client, bypassing the fanout engine.
func (h *Handler) sendFrame(id, frameType string, data any) {
	payload, err := json.Marshal(domain.Envelope{
		Schema: domain.SchemaVersion,
		Type:   frameType,
		Data:   data,
	})
	if err != nil {
		slog.Error("Failed to marshal frame", "type", frameType, "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), frameSendTimeout)
	defer cancel()
	h.peers.Deliver(ctx, id, payload)
}

func (h *Handler) sendError(id, reason string) {
	h.sendFrame(id, domain.FrameError, errorData{
		Reason:           reason,
		SupportedActions: supportedActions,
	})
}

// sessionMetadata extracts optional client-provided attributes from the
// upgrade request.
func sessionMetadata(c echo.Context) map[string]string {
	metadata := make(map[string]string)
	if username := c.QueryParam("username"); username != "" {
		metadata["username"] = username
	}
	if client := c.QueryParam("client"); client != "" {
		metadata["client"] = client
	}
	if len(metadata) == 0 {
		return nil
	}
	return metadata
}
