package middleware

import (
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/oveliahealth/ovelia_backend/internal/model"
	pasetotoken "github.com/oveliahealth/ovelia_backend/pkg/paseto"
)

const (
	LocalsMemberRole = "member_role"
	LocalsMemberID   = "member_id"
)

// ClinicContext reads the clinic ID from the :id URL param, validates the
// clinic exists and is active, and stores the clinic_id in Locals for
// downstream handlers and RBAC. When the request is authenticated it also
// records the caller's member role.
func ClinicContext(db *gorm.DB) fiber.Handler {
	return func(c fiber.Ctx) error {
		clinicID, err := uuid.Parse(c.Params("id"))
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid clinic id")
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

		c.Locals(LocalsClinicID, clinicID.String())

		if claims, ok := pasetotoken.ClaimsFromFiber(c); ok {
			var m model.ClinicMember
			err := db.WithContext(c.Context()).
				Where("clinic_id = ? AND user_id = ? AND is_active = ?", clinicID, claims.UserID, true).
				First(&m).Error
			if err == nil {
				c.Locals(LocalsMemberRole, string(m.Role))
				c.Locals(LocalsMemberID, m.ID.String())
			}
		}

		return c.Next()
	}
}
