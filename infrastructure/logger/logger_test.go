package logger

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newObserved(level zapcore.Level) (*Logger, *observer.ObservedLogs) {
	core, logs := observer.New(level)
	return &Logger{Logger: zap.New(core), config: DefaultConfig()}, logs
}

func TestNewRejectsBadLevel(t *testing.T) {
	_, err := New(Config{Level: "loud", Outputs: []string{"stdout"}})
	assert.Error(t, err)
}

func TestNewWithRotatingFile(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.Outputs = []string{"file"}
	cfg.OutputFile = filepath.Join(dir, "stats.log")
	cfg.ErrorFile = filepath.Join(dir, "stats_errors.log")
	l, err := New(cfg)
	require.NoError(t, err)
	l.Info("hello")
	assert.NoError(t, l.Close())
}

func TestLogFeedFields(t *testing.T) {
	l, logs := newObserved(zapcore.DebugLevel)
	l.LogFeed("binance_trades", "connected", map[string]interface{}{"attempt": 1})

	entries := logs.FilterMessage("feed_state").All()
	require.Len(t, entries, 1)
	ctx := entries[0].ContextMap()
	assert.Equal(t, "binance_trades", ctx["source"])
	assert.Equal(t, "connected", ctx["state"])
	assert.Equal(t, 0, logs.FilterMessage("log_schema_violation").Len())
}

func TestLogEventSchemaViolation(t *testing.T) {
	l, logs := newObserved(zapcore.DebugLevel)
	l.LogVWAP("BTCUSDT", map[string]interface{}{"vwap": 1.0})
	assert.Equal(t, 1, logs.FilterMessage("log_schema_violation").Len())
	assert.Equal(t, 1, logs.FilterMessage("vwap_update").Len())
}

func TestLogTickRespectsLevel(t *testing.T) {
	l, logs := newObserved(zapcore.InfoLevel)
	l.LogTick("BTCUSDT", map[string]interface{}{
		"price": 1.0, "delta": 1.0, "cumulativeDelta": 1.0, "imbalanceRatio": 0.5,
	})
	assert.Equal(t, 0, logs.Len())
}

func TestLogError(t *testing.T) {
	l, logs := newObserved(zapcore.DebugLevel)
	l.LogError(errors.New("boom"), map[string]interface{}{"symbol": "ETHUSDT"})
	entries := logs.FilterMessage("error_event").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "boom", entries[0].ContextMap()["error"])
}
