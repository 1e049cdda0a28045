package gateway

import (
	"context"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"

	"github.com/Shivam13602/Chatpulse/internal/domain"
	"github.com/Shivam13602/Chatpulse/internal/metrics"
)

// Peers maps connection ids to their writers and is the relay engine's
// delivery primitive. It deliberately knows nothing about the registry: the
// registry owns membership, Peers owns sockets.
type Peers struct {
	clock clockwork.Clock

	mu      sync.RWMutex
	writers map[string]*clientWriter
}

func NewPeers(clock clockwork.Clock) *Peers {
	return &Peers{
		clock:   clock,
		writers: make(map[string]*clientWriter),
	}
}

// Attach starts a writer for the connection and tracks it under id. A writer
// already present under the same id is stopped before being replaced, so its
// goroutine and socket never leak.
func (p *Peers) Attach(id string, conn *websocket.Conn) {
	cw := newClientWriter(conn, p.clock)

	p.mu.Lock()
	displaced, exists := p.writers[id]
	p.writers[id] = cw
	metrics.GatewayConnectedClients.Set(float64(len(p.writers)))
	p.mu.Unlock()

	if exists {
		displaced.stop()
	}
}

// Detach stops the writer and forgets the connection. Safe to call for
// unknown ids.
func (p *Peers) Detach(id string) {
	p.mu.Lock()
	cw, exists := p.writers[id]
	if exists {
		delete(p.writers, id)
	}
	metrics.GatewayConnectedClients.Set(float64(len(p.writers)))
	p.mu.Unlock()

	if exists {
		cw.stop()
	}
}

// Deliver implements domain.Deliverer. An id without a writer means the peer
// session no longer exists: terminal by definition.
func (p *Peers) Deliver(ctx context.Context, connectionID string, payload []byte) domain.DeliveryOutcome {
	p.mu.RLock()
	cw, exists := p.writers[connectionID]
	p.mu.RUnlock()

	if !exists {
		return domain.TerminalFailure
	}
	return cw.enqueue(ctx, payload)
}

// Count returns the number of attached peers.
func (p *Peers) Count() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.writers)
}

// CloseAll gracefully closes every peer with the given reason. Used at
// shutdown.
func (p *Peers) CloseAll(reason string) {
	p.mu.Lock()
	writers := make([]*clientWriter, 0, len(p.writers))
	for id, cw := range p.writers {
		writers = append(writers, cw)
		delete(p.writers, id)
	}
	metrics.GatewayConnectedClients.Set(0)
	p.mu.Unlock()

	for _, cw := range writers {
		cw.stopGraceful(reason)
	}
}
