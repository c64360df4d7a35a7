package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew(t *testing.T) {
	l, err := New(Config{})
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zapcore.InfoLevel))
	assert.False(t, l.Core().Enabled(zapcore.DebugLevel))

	l, err = New(Config{Level: "debug", Encoding: "console", Development: true})
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zapcore.DebugLevel))

	_, err = New(Config{Level: "loud"})
	assert.Error(t, err)
}

func TestFromContext(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	base := zap.New(core)

	ctx := WithSession(context.Background(), "sess-1")
	ctx = WithOperation(ctx, "encode_categorical")
	ctx = context.WithValue(ctx, RequestIDKey, "req-9")

	FromContext(ctx, base).Info("encoded")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "sess-1", fields["session_id"])
	assert.Equal(t, "encode_categorical", fields["operation"])
	assert.Equal(t, "req-9", fields["request_id"])
}

func TestFromContextWithoutValues(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	FromContext(context.Background(), zap.New(core)).Info("plain")

	require.Equal(t, 1, logs.Len())
	assert.Empty(t, logs.All()[0].Context)
}

func TestOrDefault(t *testing.T) {
	l := zap.NewNop()
	assert.Same(t, l, OrDefault(l))
	assert.NotNil(t, OrDefault(nil))
}
