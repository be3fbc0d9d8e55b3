package logging

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestZapLogger_LevelsAndFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := NewZapLogger(zap.New(core))
	ctx := context.Background()

	log.Debug(ctx, "dbg", "a", 1)
	log.Info(ctx, "inf", "b", 2)
	log.Warn(ctx, "wrn", "c", 3)
	log.Error(ctx, "err", "d", 4)

	entries := logs.AllUntimed()
	require.Len(t, entries, 4)

	want := []struct {
		level zapcore.Level
		msg   string
		key   string
	}{
		{zapcore.DebugLevel, "dbg", "a"},
		{zapcore.InfoLevel, "inf", "b"},
		{zapcore.WarnLevel, "wrn", "c"},
		{zapcore.ErrorLevel, "err", "d"},
	}
	for i, w := range want {
		assert.Equal(t, w.level, entries[i].Level)
		assert.Equal(t, w.msg, entries[i].Message)
		assert.Contains(t, entries[i].ContextMap(), w.key)
	}
}

func TestZapLogger_With_AddsFields(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	log := NewZapLogger(zap.New(core)).With("component", "session")

	log.Info(context.Background(), "hello", "k", "v")

	entries := logs.AllUntimed()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "session", fields["component"])
	assert.Equal(t, "v", fields["k"])
}

func TestNew_Backends(t *testing.T) {
	var buf bytes.Buffer

	l, err := New("slog", "debug", &buf)
	require.NoError(t, err)
	l.Debug(context.Background(), "slog-debug")
	assert.Contains(t, buf.String(), "msg=slog-debug")

	buf.Reset()
	l, err = New("zap", "info", &buf)
	require.NoError(t, err)
	l.Debug(context.Background(), "hidden")
	l.Info(context.Background(), "zap-info", "k", "v")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "zap-info")

	buf.Reset()
	l, err = New("", "", &buf)
	require.NoError(t, err)
	l.Info(context.Background(), "default")
	assert.Contains(t, buf.String(), "level=INFO")
}

func TestNew_Errors(t *testing.T) {
	_, err := New("logrus", "info", &bytes.Buffer{})
	require.Error(t, err)

	_, err = New("slog", "loud", &bytes.Buffer{})
	require.Error(t, err)

	_, err = New("zap", "loud", &bytes.Buffer{})
	require.Error(t, err)
}

func TestNop_DoesNotPanic(t *testing.T) {
	l := Nop()
	l.Info(context.Background(), "x")
	l.With("a", 1).Error(context.Background(), "y")
}
