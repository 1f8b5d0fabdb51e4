package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pearch001/fulus-pay-ai-assistant-sub004/internal/server/reqctx"
)

func TestNew_AddsScopeAttributes(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Output: &buf, Level: "info", Format: "json"})
	require.NoError(t, err)

	ctx := reqctx.WithScope(context.Background(), reqctx.Scope{CorrelationID: "corr-1", AdminID: "admin-1"})
	logger.InfoContext(ctx, "message sent")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "corr-1", record["correlation_id"])
	assert.Equal(t, "admin-1", record["admin_id"])
}

func TestNew_NoScope(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Output: &buf, Format: "text"})
	require.NoError(t, err)

	logger.With("component", "test").InfoContext(context.Background(), "hello")

	line := buf.String()
	assert.Contains(t, line, "component=test")
	assert.NotContains(t, line, "correlation_id")
}

func TestNew_Level(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Output: &buf, Level: "warn"})
	require.NoError(t, err)

	logger.Info("dropped")
	logger.Warn("kept")

	assert.Equal(t, 1, strings.Count(buf.String(), "\n"))
	assert.Contains(t, buf.String(), "kept")
}

func TestNew_InvalidConfig(t *testing.T) {
	_, err := New(Config{Level: "loud"})
	assert.Error(t, err)

	_, err = New(Config{Format: "xml"})
	assert.Error(t, err)
}
