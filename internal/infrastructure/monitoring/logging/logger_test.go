package logging

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestFieldConstructors(t *testing.T) {
	assert.Equal(t, Field{Key: "k", Value: "v"}, String("k", "v"))
	assert.Equal(t, Field{Key: "n", Value: 7}, Int("n", 7))
	assert.Equal(t, Field{Key: "f", Value: 1.5}, Float64("f", 1.5))
	assert.Equal(t, Field{Key: "b", Value: true}, Bool("b", true))
	assert.Equal(t, Field{Key: "d", Value: time.Second}, Duration("d", time.Second))
	assert.Equal(t, Field{Key: "error", Value: "<nil>"}, Err(nil))
}

func TestZapLogger_EmitsFields(t *testing.T) {
	core, observed := observer.New(zapcore.DebugLevel)
	log := NewLoggerFromCore(core)

	log.Info("cluster query complete",
		String("strategy", "grid"),
		Int("features", 12),
	)

	entries := observed.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "cluster query complete", entries[0].Message)
	fields := entries[0].ContextMap()
	assert.Equal(t, "grid", fields["strategy"])
	assert.Equal(t, int64(12), fields["features"])
}

func TestZapLogger_WithAndNamed(t *testing.T) {
	core, observed := observer.New(zapcore.DebugLevel)
	log := NewLoggerFromCore(core).Named("api").With(String("component", "map"))

	log.Warn("slow aggregation")

	entries := observed.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "api", entries[0].LoggerName)
	assert.Equal(t, "map", entries[0].ContextMap()["component"])
}

func TestNewLogger_Defaults(t *testing.T) {
	log, err := NewLogger(Config{})
	require.NoError(t, err)
	require.NotNil(t, log)
}

func TestNopLogger(t *testing.T) {
	log := NewNopLogger()
	// Must not panic, and chaining keeps returning a usable logger.
	log.With(String("a", "b")).Named("x").Info("ignored")
}
