package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diagnosis/taskmanager/pkg/logger"
)

func TestInfoContextCarriesContextKeys(t *testing.T) {
	var buf bytes.Buffer
	prev := logger.Default()
	logger.SetDefault(logger.New(&buf, "info"))
	t.Cleanup(func() { logger.SetDefault(prev) })

	ctx := context.WithValue(context.Background(), logger.RequestIDKey, "req-1")
	ctx = context.WithValue(ctx, logger.UserIDKey, int64(42))
	ctx = context.WithValue(ctx, logger.ServiceKey, "api")

	logger.InfoContext(ctx, "task created", "task_id", 7)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "task created", line["msg"])
	assert.Equal(t, "req-1", line["request_id"])
	assert.EqualValues(t, 42, line["user_id"])
	assert.Equal(t, "api", line["service"])
	assert.EqualValues(t, 7, line["task_id"])
}

func TestDebugSuppressedAtInfoLevel(t *testing.T) {
	var buf bytes.Buffer
	prev := logger.Default()
	logger.SetDefault(logger.New(&buf, ""))
	t.Cleanup(func() { logger.SetDefault(prev) })

	logger.Debug("hidden")
	assert.Empty(t, buf.String())

	logger.SetDefault(logger.New(&buf, "debug"))
	logger.Debug("shown")
	assert.Contains(t, buf.String(), "shown")
}
