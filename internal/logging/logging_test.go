package logging

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMultiHandlerFansOutByLevel(t *testing.T) {
	var infoBuf, errBuf bytes.Buffer
	info := slog.NewJSONHandler(&infoBuf, &slog.HandlerOptions{Level: slog.LevelInfo})
	errOnly := slog.NewJSONHandler(&errBuf, &slog.HandlerOptions{Level: slog.LevelError})

	logger := slog.New(NewMultiHandler(info, errOnly))
	logger.Info("order created", "order_id", "o-1")
	logger.Error("payment verify failed", "reference", "AGR_1")

	assert.Contains(t, infoBuf.String(), "order created")
	assert.Contains(t, infoBuf.String(), "payment verify failed")
	assert.NotContains(t, errBuf.String(), "order created")
	assert.Contains(t, errBuf.String(), "payment verify failed")
}

func TestMultiHandlerEnabled(t *testing.T) {
	errOnly := slog.NewJSONHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelError})
	h := NewMultiHandler(errOnly)

	assert.False(t, h.Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, h.Enabled(context.Background(), slog.LevelError))
}

func TestToSystemLogMapsKnownAttrs(t *testing.T) {
	rec := slog.NewRecord(time.Now(), slog.LevelError, "webhook rejected", 0)
	rec.AddAttrs(
		slog.String("reference", "AGR_1_abcd"),
		slog.String("error", "bad signature"),
		slog.Float64("latency_ms", 12.6),
		slog.String("ip", "10.0.0.1"),
	)

	entry := toSystemLog(rec, []slog.Attr{slog.String("request_id", "req-1")})

	assert.Equal(t, "ERROR", entry.Level)
	assert.Equal(t, "req-1", entry.RequestID)
	assert.Equal(t, "AGR_1_abcd", entry.Reference)
	assert.Equal(t, "bad signature", entry.Error)
	assert.Equal(t, 13, entry.LatencyMs)
	require.NotNil(t, entry.Extra)
	assert.JSONEq(t, `{"ip":"10.0.0.1"}`, string(entry.Extra))
}
