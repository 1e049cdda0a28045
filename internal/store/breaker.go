package store

import (
	"context"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"

	"github.com/Shivam13602/Chatpulse/internal/domain"
	"github.com/Shivam13602/Chatpulse/internal/metrics"
)

const (
	breakerFailureThreshold = 5
	breakerOpenDuration     = 30 * time.Second
)

// BreakerStore wraps a MessageStore with a circuit breaker. Once the backend
// fails repeatedly, appends fail immediately instead of each broadcast paying
// the full store timeout.
type BreakerStore struct {
	inner   domain.MessageStore
	breaker *gobreaker.CircuitBreaker
}

func NewBreakerStore(inner domain.MessageStore) *BreakerStore {
	settings := gobreaker.Settings{
		Name:    "message-store",
		Timeout: breakerOpenDuration,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerFailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("Message store circuit breaker state change",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
			metrics.StoreCircuitBreakerState.Set(breakerStateValue(to))
		},
	}
	return &BreakerStore{inner: inner, breaker: gobreaker.NewCircuitBreaker(settings)}
}

func (s *BreakerStore) Append(ctx context.Context, msg *domain.Message) error {
	_, err := s.breaker.Execute(func() (any, error) {
		return nil, s.inner.Append(ctx, msg)
	})
	return err
}

func (s *BreakerStore) Recent(ctx context.Context, limit int) ([]domain.Message, error) {
	result, err := s.breaker.Execute(func() (any, error) {
		return s.inner.Recent(ctx, limit)
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Message), nil
}

// Ping bypasses the breaker so readiness probes observe the real backend.
func (s *BreakerStore) Ping(ctx context.Context) error {
	if pinger, ok := s.inner.(interface{ Ping(context.Context) error }); ok {
		return pinger.Ping(ctx)
	}
	return nil
}

func breakerStateValue(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
