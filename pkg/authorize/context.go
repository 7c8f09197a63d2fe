package authorize

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/oveliahealth/ovelia_backend/pkg/reqctx"
)

// ErrNoSubjectInContext is returned when authorization is attempted on
// a context carrying no verified claims.
var ErrNoSubjectInContext = errors.New("authorize: no subject in context")

// SubjectFromContext derives the casbin subject from the claims the
// auth middleware attached to the request context.
func SubjectFromContext(ctx context.Context) (GroupSubject, error) {
	claims := reqctx.ClaimsFromContext(ctx)
	if claims == nil {
		return "", ErrNoSubjectInContext
	}
	userID := claims.GetUserID()
	if userID == uuid.Nil {
		return "", ErrNoSubjectInContext
	}
	return GroupSubject(userID.String()), nil
}
