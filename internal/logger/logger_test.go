package logger

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

func TestNewLevels(t *testing.T) {
	ctx := context.Background()
	assert.True(t, New("local", &bytes.Buffer{}).Enabled(ctx, slog.LevelDebug))
	assert.True(t, New("dev", &bytes.Buffer{}).Enabled(ctx, slog.LevelDebug))
	assert.False(t, New("prod", &bytes.Buffer{}).Enabled(ctx, slog.LevelDebug))
	assert.False(t, New("staging", &bytes.Buffer{}).Enabled(ctx, slog.LevelDebug))
}

func TestErrAttr(t *testing.T) {
	var buf bytes.Buffer
	New("prod", &buf).Error("booking failed", Err(errors.New("lock timeout")))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "lock timeout", line["error"])
	assert.Equal(t, "booking failed", line["msg"])
}
