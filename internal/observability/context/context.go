package context

import "context"

type requestIDKey struct{}
type datasetIDKey struct{}

// WithRequestID stores the request identifier on the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// RequestIDFromContext returns the request identifier, or "" when absent.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(requestIDKey{}).(string); ok {
		return v
	}
	return ""
}

// WithDatasetID stores the dataset identifier on the context.
func WithDatasetID(ctx context.Context, datasetID string) context.Context {
	if datasetID == "" {
		return ctx
	}
	return context.WithValue(ctx, datasetIDKey{}, datasetID)
}

// DatasetIDFromContext returns the dataset identifier, or "" when absent.
func DatasetIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(datasetIDKey{}).(string); ok {
		return v
	}
	return ""
}
