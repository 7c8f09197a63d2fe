package reqctx

import (
	"context"
	"time"
)

type metaKey struct{}
type claimsKey struct{}

// RequestMeta carries the attributes middleware records for every
// inbound HTTP request.
type RequestMeta struct {
	// RequestID is a UUID v4, either propagated from the X-Request-ID
	// header or minted by the middleware.
	RequestID string

	// ClientIP is the caller's address, honoring X-Forwarded-For.
	ClientIP string

	// UserAgent is the raw User-Agent header value.
	UserAgent string

	// RequestedAt is when the server accepted the request.
	RequestedAt time.Time
}

// WithRequestMeta returns a context carrying meta.
func WithRequestMeta(ctx context.Context, meta *RequestMeta) context.Context {
	return context.WithValue(ctx, metaKey{}, meta)
}

// RequestMetaFromContext returns the metadata stored by the request ID
// middleware. The second return is false when the context never passed
// through that middleware.
func RequestMetaFromContext(ctx context.Context) (*RequestMeta, bool) {
	meta, ok := ctx.Value(metaKey{}).(*RequestMeta)
	return meta, ok && meta != nil
}

// RequestIDFromContext returns the current request ID, or the empty
// string outside a request.
func RequestIDFromContext(ctx context.Context) string {
	if meta, ok := RequestMetaFromContext(ctx); ok {
		return meta.RequestID
	}
	return ""
}
