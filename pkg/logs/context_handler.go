package logs

import (
	"context"
	"log/slog"

	"github.com/oveliahealth/ovelia_backend/pkg/reqctx"
)

// contextHandler tags each record with the request ID and user ID found
// on the context, so service-layer lines correlate with access logs and
// audit entries without every call site threading them through.
type contextHandler struct {
	inner slog.Handler
}

func withRequestAttrs(h slog.Handler) slog.Handler {
	return &contextHandler{inner: h}
}

func (c *contextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return c.inner.Enabled(ctx, level)
}

func (c *contextHandler) Handle(ctx context.Context, r slog.Record) error {
	if rid := reqctx.RequestIDFromContext(ctx); rid != "" {
		r.AddAttrs(slog.String("request_id", rid))
	}
	if userID, ok := reqctx.UserIDFromContext(ctx); ok {
		r.AddAttrs(slog.String("user_id", userID.String()))
	}
	return c.inner.Handle(ctx, r)
}

func (c *contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &contextHandler{inner: c.inner.WithAttrs(attrs)}
}

func (c *contextHandler) WithGroup(name string) slog.Handler {
	return &contextHandler{inner: c.inner.WithGroup(name)}
}
