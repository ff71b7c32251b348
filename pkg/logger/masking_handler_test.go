package logger

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func captureHandler() (*bytes.Buffer, slog.Handler) {
	var buf bytes.Buffer
	return &buf, slog.NewJSONHandler(&buf, nil)
}

func TestMaskingHandler_MasksSensitiveAttrs(t *testing.T) {
	buf, inner := captureHandler()
	log := slog.New(NewMaskingHandler(inner))

	log.Info("redis connected",
		slog.String("password", "hunter2"),
		slog.String("Token", "abcdef"),
		slog.String("dsn", "postgres://user:pw@host/db"),
	)

	out := buf.String()
	assert.NotContains(t, out, "hunter2")
	assert.NotContains(t, out, "abcdef")
	assert.NotContains(t, out, "postgres://")
	assert.Contains(t, out, "***")
}

func TestMaskingHandler_LeavesOtherAttrsIntact(t *testing.T) {
	buf, inner := captureHandler()
	log := slog.New(NewMaskingHandler(inner))

	log.Info("balance changed",
		slog.String("guild_id", "g1"),
		slog.Int64("amount", 250),
	)

	out := buf.String()
	assert.Contains(t, out, "g1")
	assert.Contains(t, out, "250")
	assert.NotContains(t, out, "***")
}

func TestMaskingHandler_WithAttrsMasks(t *testing.T) {
	buf, inner := captureHandler()
	log := slog.New(NewMaskingHandler(inner)).With(slog.String("api_key", "k-123"))

	log.Info("startup")

	out := buf.String()
	assert.NotContains(t, out, "k-123")
	assert.Contains(t, out, "***")
}

func TestWithCorrelationID(t *testing.T) {
	ctx := WithCorrelationID(context.Background(), "corr-1")
	assert.Equal(t, "corr-1", CorrelationIDFromContext(ctx))

	// Empty id generates one instead of storing nothing.
	generated := CorrelationIDFromContext(WithCorrelationID(context.Background(), ""))
	assert.NotEmpty(t, generated)

	assert.Empty(t, CorrelationIDFromContext(context.Background()))
}
