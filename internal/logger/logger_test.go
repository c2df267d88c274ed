package logger

import (
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observe(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	previous := Get()
	SetLogger(zap.New(core))
	t.Cleanup(func() { SetLogger(previous) })
	return logs
}

func TestLevels(t *testing.T) {
	logs := observe(t)

	Info("info message", Fields{"request_id": "req-1"})
	Warn("warn message", nil)
	Debug("debug message", Fields{"n": 3})
	Error("error message", errors.New("boom"), Fields{"model": "openai:gpt-4o-mini"})

	entries := logs.All()
	require.Len(t, entries, 4)

	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, "req-1", entries[0].ContextMap()["request_id"])
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, zapcore.DebugLevel, entries[2].Level)
	assert.Equal(t, zapcore.ErrorLevel, entries[3].Level)
	assert.Equal(t, "boom", entries[3].ContextMap()["error"])
	assert.Equal(t, "openai:gpt-4o-mini", entries[3].ContextMap()["model"])
}

func TestWithContext(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("POST", "/api/outline/generate", nil)
	c.Set("request_id", "abc")
	c.Set("user_id", "user-1")

	fields := WithContext(c)
	assert.Equal(t, "abc", fields["request_id"])
	assert.Equal(t, "POST", fields["method"])
	assert.Equal(t, "/api/outline/generate", fields["path"])
	assert.Equal(t, "user-1", fields["user_id"])
}

func TestToZapFieldsSorted(t *testing.T) {
	fields := toZapFields(Fields{"b": 1, "a": 2, "c": 3})
	require.Len(t, fields, 3)
	assert.Equal(t, "a", fields[0].Key)
	assert.Equal(t, "b", fields[1].Key)
	assert.Equal(t, "c", fields[2].Key)
	assert.Nil(t, toZapFields(nil))
}

func TestInitialize(t *testing.T) {
	previous := Get()
	t.Cleanup(func() { SetLogger(previous) })

	require.NoError(t, Initialize("production", "debug"))
	assert.True(t, Get().Core().Enabled(zapcore.DebugLevel))

	require.NoError(t, Initialize("development", "not-a-level"))
	assert.False(t, Get().Core().Enabled(zapcore.DebugLevel))
	assert.True(t, Get().Core().Enabled(zapcore.InfoLevel))
}
