package retrieval

import "context"

type requestIDKey struct{}

// ContextWithRequestID attaches a request ID that RetrieveAndOptionallyRerank reuses
// instead of generating one.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext returns the request ID stored in ctx, or "".
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
