package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerToLevels(t *testing.T) {
	var buf bytes.Buffer
	l := NewLoggerTo(&buf, "warn", "text")
	l.Info("hidden")
	l.Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestJSONWithComponent(t *testing.T) {
	var buf bytes.Buffer
	WithComponent(NewLoggerTo(&buf, "info", "json"), "compositor").Info("chunk done", "frames", 50)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "compositor", rec["component"])
	assert.Equal(t, "chunk done", rec["msg"])
	assert.EqualValues(t, 50, rec["frames"])
}

func TestOrDiscard(t *testing.T) {
	assert.NotPanics(t, func() { OrDiscard(nil).Error("dropped") })
	assert.False(t, OrDiscard(nil).Enabled(t.Context(), 12))
}
