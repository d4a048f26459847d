package authclient

import "context"

type requestIDContextKey struct{}

// WithRequestID attaches a request identifier to ctx. The Gateway sends it
// in the request ID header instead of generating a new one, and audit events
// record it.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDContextKey{}, requestID)
}

// RequestIDFromContext returns the identifier set by WithRequestID, or "".
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(requestIDContextKey{}).(string)
	return id
}
