package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/nodeflow-go/pkg/config"
)

func TestNew(t *testing.T) {
	t.Run("falls back to info on unknown level", func(t *testing.T) {
		l := New(config.LoggerConfig{Level: "loud", Format: "json", Output: "stdout"})
		require.NotNil(t, l)
		assert.True(t, l.Zap().Core().Enabled(zapcore.InfoLevel))
		assert.False(t, l.Zap().Core().Enabled(zapcore.DebugLevel))
	})

	t.Run("console format", func(t *testing.T) {
		l := New(config.LoggerConfig{Level: "debug", Format: "console"})
		require.NotNil(t, l)
		assert.True(t, l.Zap().Core().Enabled(zapcore.DebugLevel))
	})
}

func TestWithKeepsInterface(t *testing.T) {
	l := NewNop().With("component", "test")
	require.NotNil(t, l)
	l.Info("message", "key", "value")
}
