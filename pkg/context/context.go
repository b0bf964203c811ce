// Package context carries per-invocation tracing values for log output.
package context

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type ctxKey int

// Context keys for invocation tracing
const (
	invocationIDKey ctxKey = iota
	operationKey
	channelKey
	startTimeKey
)

// WithInvocationID adds an invocation ID to the context
func WithInvocationID(parent context.Context, id string) context.Context {
	if id == "" {
		id = GenerateInvocationID()
	}
	return context.WithValue(parent, invocationIDKey, id)
}

// GetInvocationID retrieves the invocation ID from context
func GetInvocationID(ctx context.Context) string {
	if id, ok := ctx.Value(invocationIDKey).(string); ok && id != "" {
		return id
	}
	return ""
}

// WithOperation adds an operation name (clean, export, publish...) to the context
func WithOperation(parent context.Context, operation string) context.Context {
	return context.WithValue(parent, operationKey, operation)
}

// GetOperation retrieves the operation name from context
func GetOperation(ctx context.Context) string {
	if op, ok := ctx.Value(operationKey).(string); ok {
		return op
	}
	return ""
}

// WithChannel adds the channel being processed to the context
func WithChannel(parent context.Context, channel string) context.Context {
	return context.WithValue(parent, channelKey, channel)
}

// GetChannel retrieves the channel from context
func GetChannel(ctx context.Context) string {
	if ch, ok := ctx.Value(channelKey).(string); ok {
		return ch
	}
	return ""
}

// WithStartTime adds the operation start time to the context
func WithStartTime(parent context.Context, startTime time.Time) context.Context {
	return context.WithValue(parent, startTimeKey, startTime)
}

// GetDuration calculates the duration since the start time in context.
// It returns zero when no start time was recorded.
func GetDuration(ctx context.Context) time.Duration {
	if t, ok := ctx.Value(startTimeKey).(time.Time); ok {
		return time.Since(t)
	}
	return 0
}

// GenerateInvocationID creates a new unique invocation ID
func GenerateInvocationID() string {
	return "run_" + uuid.New().String()
}

// EnrichContext stamps a fresh invocation with an ID and start time
func EnrichContext(parent context.Context) context.Context {
	ctx := parent
	if GetInvocationID(ctx) == "" {
		ctx = WithInvocationID(ctx, GenerateInvocationID())
	}
	return WithStartTime(ctx, time.Now())
}
