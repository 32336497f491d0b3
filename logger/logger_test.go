package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/kylerivers/47-industries-admin/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestInitializeWithWriter_TeesJSON(t *testing.T) {
	var buf bytes.Buffer
	log, err := logger.InitializeWithWriter("production", &buf)
	require.NoError(t, err)

	log.Info("refund issued", zap.String("order_number", "ORD-240101-abc123"))
	_ = log.Sync()

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "refund issued", entry["msg"])
	assert.Equal(t, "ORD-240101-abc123", entry["order_number"])
	assert.Contains(t, entry, "timestamp")
}

func TestFor_AddsRequestID(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	base := zap.New(core)

	ctx := logger.WithRequestID(context.Background(), "req-42")
	logger.For(ctx, base).Info("hello")
	logger.For(context.Background(), base).Info("bare")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "req-42", entries[0].ContextMap()[logger.RequestIDKey])
	assert.NotContains(t, entries[1].ContextMap(), logger.RequestIDKey)
}
