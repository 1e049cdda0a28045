package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Shivam13602/Chatpulse/internal/domain"
	"github.com/Shivam13602/Chatpulse/internal/metrics"
)

const createMessagesTable = `
CREATE TABLE IF NOT EXISTS messages (
	id         UUID PRIMARY KEY,
	sender_id  TEXT NOT NULL,
	text       TEXT NOT NULL,
	sentiment  INT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
)`

// PostgresStore appends messages to a single append-only table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// ConnectPostgres creates a pgx pool from a connection URL and verifies it.
func ConnectPostgres(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return pool, nil
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Init creates the messages table if it does not exist.
func (s *PostgresStore) Init(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, createMessagesTable); err != nil {
		return fmt.Errorf("failed to create messages table: %w", err)
	}
	return nil
}

func (s *PostgresStore) Append(ctx context.Context, msg *domain.Message) error {
	start := time.Now()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO messages (id, sender_id, text, sentiment, created_at) VALUES ($1, $2, $3, $4, $5)`,
		msg.ID, msg.SenderID, msg.Text, msg.Sentiment, msg.Timestamp,
	)

	metrics.StoreAppendDuration.WithLabelValues("postgres").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.StoreAppendErrorsTotal.WithLabelValues("postgres").Inc()
		return fmt.Errorf("insert message failed: %w", err)
	}
	return nil
}

// Recent returns up to limit messages, newest first.
func (s *PostgresStore) Recent(ctx context.Context, limit int) ([]domain.Message, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, sender_id, text, sentiment, created_at FROM messages ORDER BY created_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query recent messages failed: %w", err)
	}
	defer rows.Close()

	var out []domain.Message
	for rows.Next() {
		var msg domain.Message
		if err := rows.Scan(&msg.ID, &msg.SenderID, &msg.Text, &msg.Sentiment, &msg.Timestamp); err != nil {
			return nil, fmt.Errorf("scan message row failed: %w", err)
		}
		out = append(out, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate message rows failed: %w", err)
	}
	return out, nil
}

// Ping verifies the database connection for readiness probes.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}
