package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shivam13602/Chatpulse/internal/config"
	"github.com/Shivam13602/Chatpulse/internal/domain"
	"github.com/Shivam13602/Chatpulse/internal/gateway"
	"github.com/Shivam13602/Chatpulse/internal/registry"
	"github.com/Shivam13602/Chatpulse/internal/relay"
	"github.com/Shivam13602/Chatpulse/internal/sentiment"
	"github.com/Shivam13602/Chatpulse/internal/store"
)

func testConfig() *config.Config {
	return &config.Config{
		AppEnv:              "development",
		Port:                "0",
		StoreBackend:        config.BackendMemory,
		MessageHistoryLimit: 10,
		DeliveryTimeout:     time.Second,
		MaxConnections:      100,
		MaxConnectionsPerIP: 100,
		ConnRatePerSecond:   1000,
		ConnRateBurst:       1000,
	}
}

func newTestServerWithStore(t *testing.T, st domain.MessageStore) *Server {
	t.Helper()

	clock := clockwork.NewRealClock()
	reg := registry.New(clock)
	peers := gateway.NewPeers(clock)
	engine := relay.NewEngine(reg, st, sentiment.NewDefaultScorer(), peers, clock)
	t.Cleanup(engine.Stop)

	cfg := testConfig()
	limits := gateway.NewConnectionLimits(cfg.MaxConnections, cfg.MaxConnectionsPerIP, cfg.ConnRatePerSecond, cfg.ConnRateBurst)
	ws := gateway.NewHandler(reg, peers, engine, limits)

	return NewServer(cfg, ws, st, reg, peers, clock)
}

func doRequest(srv *Server, method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHandleLiveness(t *testing.T) {
	srv := newTestServerWithStore(t, store.NewMemoryStore(10))

	rec := doRequest(srv, http.MethodGet, "/health/live")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "ok", body["status"])
	assert.Contains(t, body, "uptime")
}

func TestHandleReadiness_MemoryStore(t *testing.T) {
	srv := newTestServerWithStore(t, store.NewMemoryStore(10))

	rec := doRequest(srv, http.MethodGet, "/health/ready")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ready", decodeBody(t, rec)["status"])
}

type unreachableStore struct {
	domain.MessageStore
}

func (unreachableStore) Ping(context.Context) error {
	return errors.New("connection refused")
}

func TestHandleReadiness_StoreDown(t *testing.T) {
	srv := newTestServerWithStore(t, unreachableStore{store.NewMemoryStore(10)})

	rec := doRequest(srv, http.MethodGet, "/health/ready")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "unhealthy", body["status"])
	assert.Equal(t, "store", body["failed_check"])
}

func TestHandleVersion(t *testing.T) {
	srv := newTestServerWithStore(t, store.NewMemoryStore(10))

	rec := doRequest(srv, http.MethodGet, "/version")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Contains(t, body, "version")
	assert.Contains(t, body, "go_version")
}

func TestHandleRecentMessages(t *testing.T) {
	st := store.NewMemoryStore(10)
	srv := newTestServerWithStore(t, st)

	for _, text := range []string{"first", "second", "third"} {
		msg := domain.Message{ID: uuid.New(), SenderID: "sender", Text: text, Timestamp: time.Now()}
		require.NoError(t, st.Append(context.Background(), &msg))
	}

	rec := doRequest(srv, http.MethodGet, "/api/messages")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, float64(3), body["count"])

	messages, ok := body["messages"].([]any)
	require.True(t, ok)
	require.Len(t, messages, 3)

	// newest first
	first, ok := messages[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "third", first["text"])
}

func TestHandleRecentMessages_LimitClamped(t *testing.T) {
	st := store.NewMemoryStore(20)
	srv := newTestServerWithStore(t, st)

	for i := 0; i < 15; i++ {
		msg := domain.Message{ID: uuid.New(), SenderID: "sender", Text: "hello", Timestamp: time.Now()}
		require.NoError(t, st.Append(context.Background(), &msg))
	}

	// configured maximum is 10
	rec := doRequest(srv, http.MethodGet, "/api/messages?limit=100")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(10), decodeBody(t, rec)["count"])

	rec = doRequest(srv, http.MethodGet, "/api/messages?limit=2")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(2), decodeBody(t, rec)["count"])
}

func TestHandleRecentMessages_InvalidLimit(t *testing.T) {
	srv := newTestServerWithStore(t, store.NewMemoryStore(10))

	for _, limit := range []string{"abc", "-1", "0"} {
		rec := doRequest(srv, http.MethodGet, "/api/messages?limit="+limit)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	}
}

type failingStore struct {
	domain.MessageStore
}

func (failingStore) Recent(context.Context, int) ([]domain.Message, error) {
	return nil, errors.New("backend gone")
}

func TestHandleRecentMessages_StoreError(t *testing.T) {
	srv := newTestServerWithStore(t, failingStore{store.NewMemoryStore(10)})

	rec := doRequest(srv, http.MethodGet, "/api/messages")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHandleStats(t *testing.T) {
	srv := newTestServerWithStore(t, store.NewMemoryStore(10))

	rec := doRequest(srv, http.MethodGet, "/api/stats")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, float64(0), body["connections"])
	assert.Equal(t, float64(0), body["peers"])
	assert.Equal(t, config.BackendMemory, body["store_backend"])
}
