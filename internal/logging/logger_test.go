package logging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/fyrsmithlabs/medichat/internal/config"
)

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger(NewDefaultConfig(), nil)
	require.NoError(t, err)
	assert.NotNil(t, logger.Underlying())
	assert.NoError(t, logger.Sync())
}

func TestNewLogger_InvalidConfig(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Format = "xml"
	_, err := NewLogger(cfg, nil)
	assert.Error(t, err)

	cfg = NewDefaultConfig()
	cfg.Output.Stdout = false
	_, err = NewLogger(cfg, nil)
	assert.Error(t, err)
}

func TestFromAppConfig(t *testing.T) {
	cfg, err := FromAppConfig(config.LoggingConfig{Level: "trace", Format: "console", Sampling: true}, false)
	require.NoError(t, err)
	assert.Equal(t, TraceLevel, cfg.Level)
	assert.Equal(t, "console", cfg.Format)
	assert.True(t, cfg.Sampling.Enabled)

	_, err = FromAppConfig(config.LoggingConfig{Level: "loud"}, false)
	assert.Error(t, err)
}

func TestLogger_ContextFields(t *testing.T) {
	tl := NewTestLogger()

	ctx := WithSessionID(context.Background(), "sess-1")
	ctx = WithRequestID(ctx, "req-9")
	tl.Info(ctx, "question answered", zap.Int("chunks", 4))

	tl.AssertLogged(t, zapcore.InfoLevel, "question answered")
	tl.AssertField(t, "question answered", "session.id", "sess-1")
	tl.AssertField(t, "question answered", "request.id", "req-9")
}

func TestLogger_TraceCorrelation(t *testing.T) {
	tl := NewTestLogger()

	traceID, _ := trace.TraceIDFromHex("0102030405060708090a0b0c0d0e0f10")
	spanID, _ := trace.SpanIDFromHex("0102030405060708")
	sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	tl.Debug(ctx, "searching index")
	tl.AssertField(t, "searching index", "trace_id", traceID.String())
}

func TestLogger_TraceLevel(t *testing.T) {
	tl := NewTestLogger()
	tl.Trace(context.Background(), "vector detail")
	tl.AssertLogged(t, TraceLevel, "vector detail")

	lvl, err := LevelFromString("trace")
	require.NoError(t, err)
	assert.Equal(t, TraceLevel, lvl)
}

func TestContext_EmptyIDsIgnored(t *testing.T) {
	ctx := WithSessionID(context.Background(), "")
	assert.Empty(t, SessionIDFromContext(ctx))
	assert.Empty(t, ContextFields(ctx))
}

func TestFromContext(t *testing.T) {
	assert.NotNil(t, FromContext(context.Background()))

	tl := NewTestLogger()
	ctx := WithLogger(context.Background(), tl.Logger)
	assert.Same(t, tl.Logger, FromContext(ctx))
}

func TestRedactingEncoder(t *testing.T) {
	enc, err := NewRedactingEncoder(newEncoder("json"), NewDefaultConfig().Redaction)
	require.NoError(t, err)

	buf, err := enc.EncodeEntry(zapcore.Entry{Message: "calling model"}, []zapcore.Field{
		zap.String("api_key", "sk-live-abcdefghijklmnop"),
		zap.String("header", "Bearer abc.def"),
		zap.String("model", "gpt-oss-20b"),
	})
	require.NoError(t, err)

	out := buf.String()
	assert.NotContains(t, out, "sk-live-abcdefghijklmnop")
	assert.NotContains(t, out, "abc.def")
	assert.Contains(t, out, "gpt-oss-20b")
}

func TestSecretField(t *testing.T) {
	f := Secret("password", config.Secret("hunter2"))
	assert.Equal(t, "[REDACTED:7]", f.String)
}

func TestSampledCore_ErrorsNeverDropped(t *testing.T) {
	core, observed := observer.New(zapcore.DebugLevel)
	cfg := NewDefaultConfig().Sampling
	cfg.Enabled = true
	cfg.Initial = 1
	cfg.Thereafter = 0

	logger := zap.New(newSampledCore(core, cfg))
	for i := 0; i < 5; i++ {
		logger.Info("repeated")
		logger.Error("failure")
	}

	assert.Equal(t, 1, observed.FilterMessage("repeated").Len())
	assert.Equal(t, 5, observed.FilterMessage("failure").Len())
}
