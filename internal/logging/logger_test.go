package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// capture routes the default logger into a buffer for the duration of a test.
func capture(t *testing.T) *bytes.Buffer {
	t.Helper()

	var buf bytes.Buffer
	prev := slog.Default()
	prevLogger := Logger
	Logger = nil
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	t.Cleanup(func() {
		slog.SetDefault(prev)
		Logger = prevLogger
	})
	return &buf
}

func lastRecord(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	return record
}

func TestWithConnection(t *testing.T) {
	buf := capture(t)

	WithConnection("conn-42").Info("client connected", "ip", "10.0.0.1")

	record := lastRecord(t, buf)
	assert.Equal(t, "conn-42", record["connection_id"])
	assert.Equal(t, "10.0.0.1", record["ip"])
	assert.Equal(t, "client connected", record["msg"])
}

func TestWithMessage(t *testing.T) {
	buf := capture(t)

	WithMessage("msg-7").Error("append failed")

	record := lastRecord(t, buf)
	assert.Equal(t, "msg-7", record["message_id"])
}

func TestWithError(t *testing.T) {
	buf := capture(t)

	WithError(errors.New("connection refused")).Error("dial failed")

	record := lastRecord(t, buf)
	assert.Equal(t, "connection refused", record["error"])
}

func TestInitLogger_LevelParsing(t *testing.T) {
	prevLogger := Logger
	prevDefault := slog.Default()
	t.Cleanup(func() {
		Logger = prevLogger
		slog.SetDefault(prevDefault)
	})

	InitLogger("error", "json")
	assert.False(t, Logger.Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, Logger.Enabled(context.Background(), slog.LevelError))

	InitLogger("debug", "text")
	assert.True(t, Logger.Enabled(context.Background(), slog.LevelDebug))

	// unknown level falls back to info
	InitLogger("chatty", "text")
	assert.False(t, Logger.Enabled(context.Background(), slog.LevelDebug))
	assert.True(t, Logger.Enabled(context.Background(), slog.LevelInfo))
}
