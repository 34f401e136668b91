package logging

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const maxIDLen = 128

type conversationCtxKey struct{}
type requestCtxKey struct{}
type bookingCtxKey struct{}

// ContextFields extracts correlation data from ctx.
func ContextFields(ctx context.Context) []zap.Field {
	fields := make([]zap.Field, 0, 6)

	if span := trace.SpanFromContext(ctx); span.SpanContext().IsValid() {
		sc := span.SpanContext()
		fields = append(fields,
			zap.String("trace_id", sc.TraceID().String()),
			zap.String("span_id", sc.SpanID().String()),
		)
	}
	if id := ConversationIDFromContext(ctx); id != "" {
		fields = append(fields, zap.String("conversation.id", id))
	}
	if id := RequestIDFromContext(ctx); id != "" {
		fields = append(fields, zap.String("request.id", id))
	}
	if key := BookingKeyFromContext(ctx); key != "" {
		fields = append(fields, zap.String("booking.key", key))
	}
	return fields
}

// sanitizeID bounds the length of an identifier and strips control
// characters. IDs come from CSV rows and request headers, so they are
// cleaned rather than rejected.
func sanitizeID(id string) string {
	id = strings.ToValidUTF8(strings.TrimSpace(id), "")
	id = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, id)
	if len(id) > maxIDLen {
		id = strings.ToValidUTF8(id[:maxIDLen], "")
	}
	return id
}

// WithConversationID tags ctx with the conversation being processed.
// An ID that is empty after sanitizing leaves ctx unchanged.
func WithConversationID(ctx context.Context, id string) context.Context {
	if id = sanitizeID(id); id == "" {
		return ctx
	}
	return context.WithValue(ctx, conversationCtxKey{}, id)
}

// ConversationIDFromContext returns the conversation ID or "".
func ConversationIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(conversationCtxKey{}).(string)
	return id
}

// WithRequestID tags ctx with an inbound request ID.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id = sanitizeID(id); id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestCtxKey{}, id)
}

// RequestIDFromContext returns the request ID or "".
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestCtxKey{}).(string)
	return id
}

// WithBookingKey tags ctx with a scheduling idempotency key.
func WithBookingKey(ctx context.Context, key string) context.Context {
	if key = sanitizeID(key); key == "" {
		return ctx
	}
	return context.WithValue(ctx, bookingCtxKey{}, key)
}

// BookingKeyFromContext returns the idempotency key or "".
func BookingKeyFromContext(ctx context.Context) string {
	key, _ := ctx.Value(bookingCtxKey{}).(string)
	return key
}
