package middleware

import (
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/oveliahealth/ovelia_backend/internal/model"
	pasetotoken "github.com/oveliahealth/ovelia_backend/pkg/paseto"
)

// ClinicHeader reads the clinic ID from the X-Clinic-ID header (used for
// non-nested routes like /clients, /appointments, /documents that are
// clinic-scoped). It validates the clinic is active and that the
// authenticated user is an active member. On success it sets the same
// Locals keys as ClinicContext so RequirePermission works identically for
// both entry paths.
func ClinicHeader(db *gorm.DB) fiber.Handler {
	return func(c fiber.Ctx) error {
		idStr := c.Get("X-Clinic-ID")
		if idStr == "" {
			return fiber.NewError(fiber.StatusBadRequest, "X-Clinic-ID header is required")
		}
		clinicID, err := uuid.Parse(idStr)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid X-Clinic-ID value")
		}

		var count int64
		if err := db.WithContext(c.Context()).
			Model(&model.Clinic{}).
			Where("id = ? AND is_active = ?", clinicID, true).
			Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return fiber.ErrNotFound
		}

		claims, ok := pasetotoken.ClaimsFromFiber(c)
		if !ok {
			return fiber.ErrUnauthorized
		}

		var m model.ClinicMember
		err = db.WithContext(c.Context()).
			Where("clinic_id = ? AND user_id = ? AND is_active = ?", clinicID, claims.UserID, true).
			First(&m).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return fiber.ErrForbidden
		case err != nil:
			return err
		}

		c.Locals(LocalsClinicID, clinicID.String())
		c.Locals(LocalsMemberRole, string(m.Role))
		c.Locals(LocalsMemberID, m.ID.String())
		return c.Next()
	}
}
