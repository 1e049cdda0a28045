package gateway

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"

	"github.com/Shivam13602/Chatpulse/internal/domain"
	"github.com/Shivam13602/Chatpulse/internal/metrics"
)

const (
	writeDeadline     = 5 * time.Second
	pingInterval      = 30 * time.Second
	pongDeadline      = 60 * time.Second
	idleTimeout       = 5 * time.Minute
	idleWarningTime   = 4 * time.Minute
	messageBufferSize = 16
)

// clientWriter owns all writes to one WebSocket connection. A single
// goroutine drains the send channel, so delivery and keepalive writes never
// race on the socket.
type clientWriter struct {
	connection    *websocket.Conn
	clock         clockwork.Clock
	sendChannel   chan []byte
	doneChannel   chan struct{}
	stopOnce      sync.Once
	wg            sync.WaitGroup
	lastActivity  time.Time
	activityMutex sync.Mutex
	warningSent   bool
}

func newClientWriter(connection *websocket.Conn, clock clockwork.Clock) *clientWriter {
	cw := &clientWriter{
		connection:   connection,
		clock:        clock,
		sendChannel:  make(chan []byte, messageBufferSize),
		doneChannel:  make(chan struct{}),
		lastActivity: clock.Now(),
	}
	cw.configurePongHandler()
	cw.wg.Add(1)
	go cw.run()
	return cw
}

// enqueue hands a payload to the writer and classifies the attempt. A closed
// writer proves the peer is gone; a buffer that stays full past the caller's
// deadline is a slow peer, not a dead one.
func (cw *clientWriter) enqueue(ctx context.Context, payload []byte) domain.DeliveryOutcome {
	select {
	case <-cw.doneChannel:
		return domain.TerminalFailure
	default:
	}

	select {
	case cw.sendChannel <- payload:
		return domain.Delivered
	case <-cw.doneChannel:
		return domain.TerminalFailure
	case <-ctx.Done():
		return domain.TransientFailure
	}
}

func (cw *clientWriter) run() {
	ticker := cw.clock.NewTicker(pingInterval)
	defer ticker.Stop()
	defer cw.wg.Done()

	for {
		select {
		case msg, ok := <-cw.sendChannel:
			if !ok {
				return
			}
			start := cw.clock.Now()
			cw.updateWriteDeadline()
			if err := cw.connection.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
			metrics.GatewayMessageSendDuration.Observe(cw.clock.Since(start).Seconds())
		case <-ticker.Chan():
			if cw.checkIdleTimeout() {
				metrics.GatewayIdleDisconnectsTotal.Inc()
				return
			}

			cw.updateWriteDeadline()
			if err := cw.connection.WriteMessage(websocket.PingMessage, nil); err != nil {
				metrics.GatewayPingFailuresTotal.Inc()
				return
			}
		case <-cw.doneChannel:
			return
		}
	}
}

func (cw *clientWriter) stop() {
	cw.stopOnce.Do(func() {
		close(cw.doneChannel)
		_ = cw.connection.Close()
	})
	cw.wg.Wait()
}

// stopGraceful sends a WebSocket close frame with reason before closing.
func (cw *clientWriter) stopGraceful(reason string) {
	cw.stopOnce.Do(func() {
		close(cw.doneChannel)

		// Wait for the run goroutine so the close frame write cannot race
		// with an in-flight message write.
		cw.wg.Wait()

		closeMsg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason)
		cw.updateWriteDeadline()
		_ = cw.connection.WriteMessage(websocket.CloseMessage, closeMsg)
		_ = cw.connection.Close()
	})
}

func (cw *clientWriter) configurePongHandler() {
	cw.updateReadDeadline()
	cw.connection.SetPongHandler(func(string) error {
		cw.updateReadDeadline()
		cw.recordActivity()
		return nil
	})
}

func (cw *clientWriter) updateWriteDeadline() {
	_ = cw.connection.SetWriteDeadline(cw.clock.Now().Add(writeDeadline))
}

func (cw *clientWriter) updateReadDeadline() {
	_ = cw.connection.SetReadDeadline(cw.clock.Now().Add(pongDeadline))
}

func (cw *clientWriter) recordActivity() {
	cw.activityMutex.Lock()
	defer cw.activityMutex.Unlock()
	cw.lastActivity = cw.clock.Now()
	cw.warningSent = false
}

// checkIdleTimeout reports whether the connection should be terminated, and
// warns the peer one minute before that happens.
func (cw *clientWriter) checkIdleTimeout() bool {
	cw.activityMutex.Lock()
	idleDuration := cw.clock.Since(cw.lastActivity)
	warningSent := cw.warningSent
	cw.activityMutex.Unlock()

	if idleDuration >= idleTimeout {
		return true
	}

	if !warningSent && idleDuration >= idleWarningTime {
		warning := []byte(`{"schema":1,"type":"warning","data":{"reason":"Connection idle. Will disconnect if no activity within 1 minute."}}`)
		cw.updateWriteDeadline()
		if err := cw.connection.WriteMessage(websocket.TextMessage, warning); err == nil {
			cw.activityMutex.Lock()
			cw.warningSent = true
			cw.activityMutex.Unlock()
		}
	}

	return false
}
