// Package requestctx carries request-scoped values shared by middleware,
// handlers and services without import cycles between them.
package requestctx

import (
	"context"

	"go.uber.org/zap"
)

// key is typed per value so two keys with the same name never collide.
type key[T any] struct{ name string }

var (
	loggerKey   = key[*zap.Logger]{"logger"}
	traceKey    = key[TraceInfo]{"trace"}
	clientIPKey = key[string]{"client_ip"}
)

var noopLogger = zap.NewNop()

// TraceInfo is the trace metadata extracted for the current request.
type TraceInfo struct {
	TraceID   string
	SpanID    string
	Sampled   bool
	ProjectID string
}

func with[T any](ctx context.Context, k key[T], value T) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, k, value)
}

func get[T any](ctx context.Context, k key[T]) (T, bool) {
	var zero T
	if ctx == nil {
		return zero, false
	}
	value, ok := ctx.Value(k).(T)
	return value, ok
}

// WithLogger stores logger on ctx. A nil logger stores the shared no-op logger.
func WithLogger(ctx context.Context, logger *zap.Logger) context.Context {
	if logger == nil {
		logger = noopLogger
	}
	return with(ctx, loggerKey, logger)
}

// Logger returns the request logger, or a no-op logger when none was stored.
func Logger(ctx context.Context) *zap.Logger {
	if logger, ok := get(ctx, loggerKey); ok && logger != nil {
		return logger
	}
	return noopLogger
}

// NoopLogger is the logger returned by Logger when the context carries none.
func NoopLogger() *zap.Logger { return noopLogger }

func WithTrace(ctx context.Context, info TraceInfo) context.Context {
	return with(ctx, traceKey, info)
}

func Trace(ctx context.Context) (TraceInfo, bool) {
	return get(ctx, traceKey)
}

// TraceID is a shortcut for Trace(ctx).TraceID.
func TraceID(ctx context.Context) string {
	info, _ := get(ctx, traceKey)
	return info.TraceID
}

// WithClientIP records the resolved client address of the request.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return with(ctx, clientIPKey, ip)
}

// ClientIP returns the address stored by WithClientIP, or "".
func ClientIP(ctx context.Context) string {
	ip, _ := get(ctx, clientIPKey)
	return ip
}
