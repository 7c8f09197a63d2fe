package middleware

import (
	"errors"

	"github.com/gofiber/fiber/v3"

	"github.com/oveliahealth/ovelia_backend/pkg/authorize"
)

const LocalsClinicID = "clinic_id"

// RequirePermission enforces resource/action access for the subject the
// auth middleware put on the request context. The domain is the clinic
// resolved by ClinicContext when present, otherwise sys.
func RequirePermission(auth authorize.IAuthorization, resource authorize.Resource, action authorize.Action) fiber.Handler {
	return func(c fiber.Ctx) error {
		subject, err := authorize.SubjectFromContext(c.Context())
		if err != nil {
			return fiber.ErrUnauthorized
		}

		domain := authorize.DomainSys
		if cid, ok := c.Locals(LocalsClinicID).(string); ok && cid != "" {
			domain = authorize.ClinicDomain(cid)
		}

		if err := auth.MustEnforce(c.Context(), subject, domain, resource, action); err != nil {
			if errors.Is(err, authorize.ErrForbidden) {
				return fiber.ErrForbidden
			}
			return err
		}

		return c.Next()
	}
}
