package reqctx

import (
	"context"

	"github.com/google/uuid"
)

// AuthClaims is the view of a verified token the rest of the codebase
// consumes. Keeping it an interface means nothing below the auth
// middleware has to import the token implementation.
type AuthClaims interface {
	GetUserID() uuid.UUID
	GetSessionID() *uuid.UUID
	GetTokenType() string
	IsExpired() bool
}

// WithClaims returns a context carrying verified claims.
func WithClaims(ctx context.Context, claims AuthClaims) context.Context {
	return context.WithValue(ctx, claimsKey{}, claims)
}

// ClaimsFromContext returns the claims attached by the auth middleware,
// or nil for unauthenticated requests.
func ClaimsFromContext(ctx context.Context) AuthClaims {
	claims, _ := ctx.Value(claimsKey{}).(AuthClaims)
	return claims
}

// UserIDFromContext returns the authenticated user's ID, or uuid.Nil
// and false when no claims are present.
func UserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	claims := ClaimsFromContext(ctx)
	if claims == nil {
		return uuid.Nil, false
	}
	return claims.GetUserID(), true
}
