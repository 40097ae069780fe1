package logger

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func bufferLogger() (*zap.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
		zapcore.AddSync(&buf),
		zapcore.DebugLevel,
	)
	return zap.New(core), &buf
}

func TestFromContext(t *testing.T) {
	base, _ := bufferLogger()

	assert.Same(t, base, FromContext(WithContext(context.Background(), base)))
	assert.NotNil(t, FromContext(context.Background()))

	wrong := context.WithValue(context.Background(), LoggerKey, "not a logger")
	assert.NotPanics(t, func() { FromContext(wrong).Info("ignored") })
}

func TestContextChaining(t *testing.T) {
	base, buf := bufferLogger()
	ctx := context.Background()

	ctx, l := WithRequestID(ctx, base, "req-1")
	ctx, l = WithTenantID(ctx, l, "3f2b1c9e-tenant")
	ctx, l = WithProvider(ctx, l, "parasut")

	assert.Equal(t, "req-1", GetRequestID(ctx))
	assert.Equal(t, "3f2b1c9e-tenant", GetTenantID(ctx))
	assert.Equal(t, "parasut", GetProvider(ctx))
	assert.Same(t, l, FromContext(ctx))

	l.Info("chained")
	out := buf.String()
	assert.Contains(t, out, `"request_id":"req-1"`)
	assert.Contains(t, out, `"tenant_id":"3f2b1c9e-tenant"`)
	assert.Contains(t, out, `"provider":"parasut"`)
}

func TestGetters_Empty(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, GetRequestID(ctx))
	assert.Empty(t, GetTenantID(ctx))
	assert.Empty(t, GetProvider(ctx))
}

func spanContext(t *testing.T) context.Context {
	t.Helper()
	traceID, err := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	require.NoError(t, err)
	spanID, err := trace.SpanIDFromHex("00f067aa0ba902b7")
	require.NoError(t, err)
	sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID, TraceFlags: trace.FlagsSampled})
	return trace.ContextWithSpanContext(context.Background(), sc)
}

func TestWithTraceContext(t *testing.T) {
	base, buf := bufferLogger()

	assert.Same(t, base, WithTraceContext(context.Background(), base))

	WithTraceContext(spanContext(t), base).Info("traced")
	assert.Contains(t, buf.String(), `"trace_id":"4bf92f3577b34da6a3ce929d0e0e4736"`)
	assert.Contains(t, buf.String(), `"span_id":"00f067aa0ba902b7"`)
}

func TestContextLogger_EnrichesFromContext(t *testing.T) {
	base, buf := bufferLogger()

	ctx := spanContext(t)
	ctx = context.WithValue(ctx, TenantIDKey, "tenant-9")
	ctx = context.WithValue(ctx, ProviderKey, "kargo")
	ctx = WithContext(ctx, base)

	L(ctx).With(zap.String("tracking_number", "TN1")).Warn("label not ready")

	out := buf.String()
	assert.Contains(t, out, `"msg":"label not ready"`)
	assert.Contains(t, out, `"tenant_id":"tenant-9"`)
	assert.Contains(t, out, `"provider":"kargo"`)
	assert.Contains(t, out, `"tracking_number":"TN1"`)
	assert.Contains(t, out, `"trace_id":"4bf92f3577b34da6a3ce929d0e0e4736"`)
	assert.NotContains(t, out, `"request_id"`)
}

func TestContextLogger_NilLogger(t *testing.T) {
	cl := WithLogger(context.Background(), nil)
	assert.NotPanics(t, func() {
		cl.Info("dropped")
		cl.With(zap.Int("n", 1)).Error("dropped")
	})
}
