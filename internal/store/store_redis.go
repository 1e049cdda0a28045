package store

import (
	"context"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/Shivam13602/Chatpulse/internal/domain"
	"github.com/Shivam13602/Chatpulse/internal/metrics"
	"github.com/google/uuid"
)

const (
	defaultStreamKey    = "chatrelay:messages"
	defaultStreamMaxLen = 10000
)

// RedisStore appends messages to a capped Redis stream. XADD gives the
// append-only semantics directly; MAXLEN ~ keeps trimming cheap.
type RedisStore struct {
	rdb    *goredis.Client
	key    string
	maxLen int64
}

// NewRedisClient creates a go-redis client from a URL (e.g.
// "redis://localhost:6379") and verifies the connection.
func NewRedisClient(ctx context.Context, redisURL string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	rdb := goredis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return rdb, nil
}

func NewRedisStore(rdb *goredis.Client) *RedisStore {
	return &RedisStore{rdb: rdb, key: defaultStreamKey, maxLen: defaultStreamMaxLen}
}

func (s *RedisStore) Append(ctx context.Context, msg *domain.Message) error {
	start := time.Now()
	err := s.rdb.XAdd(ctx, &goredis.XAddArgs{
		Stream: s.key,
		MaxLen: s.maxLen,
		Approx: true,
		Values: map[string]any{
			"id":        msg.ID.String(),
			"sender_id": msg.SenderID,
			"text":      msg.Text,
			"sentiment": msg.Sentiment,
			"ts":        msg.Timestamp.UnixMilli(),
		},
	}).Err()

	metrics.StoreAppendDuration.WithLabelValues("redis").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.StoreAppendErrorsTotal.WithLabelValues("redis").Inc()
		return fmt.Errorf("xadd to %s failed: %w", s.key, err)
	}
	return nil
}

// Recent returns up to limit messages, newest first.
func (s *RedisStore) Recent(ctx context.Context, limit int) ([]domain.Message, error) {
	entries, err := s.rdb.XRevRangeN(ctx, s.key, "+", "-", int64(limit)).Result()
	if err != nil {
		return nil, fmt.Errorf("xrevrange on %s failed: %w", s.key, err)
	}

	out := make([]domain.Message, 0, len(entries))
	for _, entry := range entries {
		msg, err := messageFromStream(entry.Values)
		if err != nil {
			return nil, fmt.Errorf("malformed stream entry %s: %w", entry.ID, err)
		}
		out = append(out, msg)
	}
	return out, nil
}

// Ping verifies the Redis connection for readiness probes.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

func messageFromStream(values map[string]any) (domain.Message, error) {
	var msg domain.Message

	id, err := uuid.Parse(stringValue(values["id"]))
	if err != nil {
		return msg, fmt.Errorf("invalid message id: %w", err)
	}

	sentiment, err := strconv.Atoi(stringValue(values["sentiment"]))
	if err != nil {
		return msg, fmt.Errorf("invalid sentiment: %w", err)
	}

	tsMillis, err := strconv.ParseInt(stringValue(values["ts"]), 10, 64)
	if err != nil {
		return msg, fmt.Errorf("invalid timestamp: %w", err)
	}

	msg.ID = id
	msg.SenderID = stringValue(values["sender_id"])
	msg.Text = stringValue(values["text"])
	msg.Sentiment = sentiment
	msg.Timestamp = time.UnixMilli(tsMillis).UTC()
	return msg, nil
}

func stringValue(v any) string {
	s, _ := v.(string)
	return s
}
