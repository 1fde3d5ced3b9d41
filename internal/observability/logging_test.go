package observability

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/cory-johannsen/survivors/internal/config"
)

func TestNewLogger_Formats(t *testing.T) {
	for _, format := range []string{"json", "console"} {
		logger, err := NewLogger(config.LoggingConfig{Level: "info", Format: format}, "simserver")
		require.NoError(t, err, format)
		assert.False(t, logger.Core().Enabled(zapcore.DebugLevel), "%s: debug is below info", format)
		assert.True(t, logger.Core().Enabled(zapcore.InfoLevel))
	}
}

func TestNewLogger_DebugEnablesDebug(t *testing.T) {
	logger, err := NewLogger(config.LoggingConfig{Level: "debug", Format: "console"}, "")
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))
}

func TestNewLogger_Rejects(t *testing.T) {
	_, err := NewLogger(config.LoggingConfig{Level: "trace", Format: "json"}, "headless")
	assert.ErrorContains(t, err, "trace")
	_, err = NewLogger(config.LoggingConfig{Level: "info", Format: "xml"}, "headless")
	assert.ErrorContains(t, err, "xml")
}

func TestSessionLogger_TagsFields(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	SessionLogger(zap.New(core), "alice", "s-1").Info("joined")
	SessionLogger(zap.New(core), "bob", "").Info("loading")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, map[string]any{"profile": "alice", "session": "s-1"}, entries[0].ContextMap())
	assert.Equal(t, map[string]any{"profile": "bob"}, entries[1].ContextMap())
}
