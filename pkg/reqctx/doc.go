// Package reqctx carries request-scoped values through context.Context.
//
// HTTP middleware stores a RequestMeta for every request and, once a
// token has been verified, the AuthClaims extracted from it. Code below
// the transport layer reads both back through the typed accessors here
// instead of touching fiber locals, so services, the audit logger, and
// the slog handler stay transport-agnostic.
//
//	meta, ok := reqctx.RequestMetaFromContext(ctx)
//	if claims := reqctx.ClaimsFromContext(ctx); claims != nil {
//	    userID := claims.GetUserID()
//	    ...
//	}
package reqctx
