package registry

import (
	"sync"

	"github.com/jonboulle/clockwork"

	"github.com/Shivam13602/Chatpulse/internal/domain"
	"github.com/Shivam13602/Chatpulse/internal/metrics"
)

// Registry is the single owner of the live connection set. All methods are
// safe for concurrent use; structural mutation is serialized against Snapshot
// with a RWMutex.
type Registry struct {
	clock clockwork.Clock

	mu    sync.RWMutex
	conns map[string]*domain.Connection
	order []string
}

func New(clock clockwork.Clock) *Registry {
	return &Registry{
		clock: clock,
		conns: make(map[string]*domain.Connection),
	}
}

// Add inserts a new connection with both timestamps set to now. Returns
// ErrDuplicateConnection if the id is already present; the original entry is
// left untouched.
func (r *Registry) Add(id string, metadata map[string]string) (domain.Connection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.conns[id]; exists {
		return domain.Connection{}, domain.ErrDuplicateConnection
	}

	now := r.clock.Now()
	conn := &domain.Connection{
		ID:             id,
		ConnectedAt:    now,
		LastActivityAt: now,
		Metadata:       copyMetadata(metadata),
	}
	r.conns[id] = conn
	r.order = append(r.order, id)
	metrics.RegistryConnections.Set(float64(len(r.conns)))

	return copyConnection(conn), nil
}

// Remove deletes the connection if present and reports whether it existed.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.conns[id]; !exists {
		return false
	}

	delete(r.conns, id)
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	metrics.RegistryConnections.Set(float64(len(r.conns)))
	return true
}

// Touch updates the activity timestamp. A connection may be pruned between
// message receipt and Touch, so a missing id is a no-op, not an error.
func (r *Registry) Touch(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if conn, exists := r.conns[id]; exists {
		conn.LastActivityAt = r.clock.Now()
	}
}

// Snapshot returns a point-in-time copy of all live connections in insertion
// order. The copy is safe to iterate while the registry keeps mutating;
// callers must not depend on the ordering.
func (r *Registry) Snapshot() []domain.Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Connection, 0, len(r.conns))
	for _, id := range r.order {
		if conn, exists := r.conns[id]; exists {
			out = append(out, copyConnection(conn))
		}
	}
	return out
}

// Len returns the current number of live connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

func copyConnection(conn *domain.Connection) domain.Connection {
	out := *conn
	out.Metadata = copyMetadata(conn.Metadata)
	return out
}

func copyMetadata(metadata map[string]string) map[string]string {
	if len(metadata) == 0 {
		return nil
	}
	out := make(map[string]string, len(metadata))
	for k, v := range metadata {
		out[k] = v
	}
	return out
}
