package trace

import (
	"context"

	"github.com/google/uuid"
)

// HeaderName trace ID 的 HTTP header / MQ header 名称
const HeaderName = "X-Trace-ID"

type ctxKey struct{}

// GenerateTraceID 生成一个新的 trace ID
func GenerateTraceID() string {
	return uuid.NewString()
}

// FromContext 从 context 中获取 trace_id
func FromContext(ctx context.Context) string {
	if traceID, ok := ctx.Value(ctxKey{}).(string); ok {
		return traceID
	}
	return ""
}

// WithContext 将 trace_id 添加到 context 中
func WithContext(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, ctxKey{}, traceID)
}

// Ensure 返回带 trace_id 的 context；已有则沿用，headerValue 非空则采用，否则新生成
func Ensure(ctx context.Context, headerValue string) (context.Context, string) {
	if id := FromContext(ctx); id != "" {
		return ctx, id
	}
	id := headerValue
	if id == "" {
		id = GenerateTraceID()
	}
	return WithContext(ctx, id), id
}
