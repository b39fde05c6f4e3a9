package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

type contextKey string

const TraceIDKey contextKey = "trace_id"

const TraceHeader = "X-Trace-ID"

// RoundTripperFunc adapts a function to http.RoundTripper.
type RoundTripperFunc func(*http.Request) (*http.Response, error)

func (f RoundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

// TraceID stamps every outgoing request with X-Trace-ID. The id comes from
// the request context when a caller set one, otherwise a fresh one is made.
func TraceID(next http.RoundTripper) http.RoundTripper {
	return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
		if r.Header.Get(TraceHeader) != "" {
			return next.RoundTrip(r)
		}

		traceID := GetTraceID(r.Context())
		if traceID == "" {
			traceID = uuid.New().String()
		}

		r = r.Clone(WithTraceID(r.Context(), traceID))
		r.Header.Set(TraceHeader, traceID)

		return next.RoundTrip(r)
	})
}

func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, TraceIDKey, traceID)
}

// EnsureTraceID returns ctx carrying a trace id, generating one if needed.
func EnsureTraceID(ctx context.Context) (context.Context, string) {
	if traceID := GetTraceID(ctx); traceID != "" {
		return ctx, traceID
	}
	traceID := uuid.New().String()
	return WithTraceID(ctx, traceID), traceID
}

func GetTraceID(ctx context.Context) string {
	if traceID, ok := ctx.Value(TraceIDKey).(string); ok {
		return traceID
	}
	return ""
}
