package store

import (
	"context"
	"sync"

	"github.com/Shivam13602/Chatpulse/internal/domain"
	"github.com/Shivam13602/Chatpulse/internal/metrics"
)

const defaultMemoryCapacity = 1000

// MemoryStore keeps the most recent messages in a bounded in-memory buffer.
// Suitable for single-instance deployments and tests; restarts lose history,
// which the relay core explicitly tolerates.
type MemoryStore struct {
	mu       sync.Mutex
	capacity int
	messages []domain.Message
}

// NewMemoryStore creates a store retaining at most capacity messages.
// A non-positive capacity falls back to the default.
func NewMemoryStore(capacity int) *MemoryStore {
	if capacity <= 0 {
		capacity = defaultMemoryCapacity
	}
	return &MemoryStore{capacity: capacity}
}

func (s *MemoryStore) Append(_ context.Context, msg *domain.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages = append(s.messages, *msg)
	if len(s.messages) > s.capacity {
		s.messages = s.messages[len(s.messages)-s.capacity:]
	}
	metrics.StoreAppendDuration.WithLabelValues("memory").Observe(0)
	return nil
}

// Recent returns up to limit messages, newest first.
func (s *MemoryStore) Recent(_ context.Context, limit int) ([]domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 || limit > len(s.messages) {
		limit = len(s.messages)
	}

	out := make([]domain.Message, 0, limit)
	for i := len(s.messages) - 1; i >= len(s.messages)-limit; i-- {
		out = append(out, s.messages[i])
	}
	return out, nil
}
