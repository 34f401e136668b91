package logging

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap/zapcore"
)

func TestContextFields_Empty(t *testing.T) {
	assert.Empty(t, ContextFields(context.Background()))
}

func TestContextFields_TraceCorrelation(t *testing.T) {
	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	tl := NewTestLogger()
	tl.Info(ctx, "scheduled")

	tl.AssertField(t, "scheduled", "trace_id", "4bf92f3577b34da6a3ce929d0e0e4736")
	tl.AssertField(t, "scheduled", "span_id", "00f067aa0ba902b7")
}

func TestWithConversationID_Sanitizes(t *testing.T) {
	ctx := WithConversationID(context.Background(), "  row-12\n")
	assert.Equal(t, "row-12", ConversationIDFromContext(ctx))

	long := strings.Repeat("x", 500)
	ctx = WithConversationID(context.Background(), long)
	assert.Len(t, ConversationIDFromContext(ctx), maxIDLen)
}

func TestWithIDs_EmptyLeavesContext(t *testing.T) {
	base := context.Background()

	assert.Equal(t, base, WithConversationID(base, "   "))
	assert.Equal(t, base, WithRequestID(base, ""))
	assert.Equal(t, base, WithBookingKey(base, "\x00\x01"))
}

func TestContextFields_AllIDs(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-1")
	ctx = WithConversationID(ctx, "conv-1")
	ctx = WithBookingKey(ctx, "key-1")

	tl := NewTestLogger()
	tl.Warn(ctx, "retrying")

	tl.AssertLogged(t, zapcore.WarnLevel, "retrying")
	entries := tl.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "req-1", fields["request.id"])
	assert.Equal(t, "conv-1", fields["conversation.id"])
	assert.Equal(t, "key-1", fields["booking.key"])
}
