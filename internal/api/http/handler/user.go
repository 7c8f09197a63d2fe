package handler

import (
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/oveliahealth/ovelia_backend/internal/service/user"
)

// UserHandler serves account self-management plus the admin-only
// suspend and reactivate switches.
type UserHandler struct {
	svc user.Service
}

func NewUserHandler(svc user.Service) *UserHandler {
	return &UserHandler{svc: svc}
}

func mapUserError(c fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, user.ErrUserNotFound):
		return notFound(c, err.Error())
	case errors.Is(err, user.ErrWrongPassword),
		errors.Is(err, user.ErrPasswordTooShort),
		errors.Is(err, user.ErrInvalidPhone):
		return badRequest(c, err.Error())
	default:
		return internalError(c)
	}
}

// GET /users/me
func (h *UserHandler) GetMe(c fiber.Ctx) error {
	userID, authed := callerID(c)
	if !authed {
		return unauthorized(c)
	}

	u, err := h.svc.GetByID(c.Context(), userID)
	if err != nil {
		return mapUserError(c, err)
	}
	return ok(c, u)
}

// PATCH /users/me
func (h *UserHandler) UpdateMe(c fiber.Ctx) error {
	userID, authed := callerID(c)
	if !authed {
		return unauthorized(c)
	}

	var body struct {
		FirstName *string `json:"first_name"`
		LastName  *string `json:"last_name"`
		Phone     *string `json:"phone"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}

	u, err := h.svc.UpdateProfile(c.Context(), userID, user.UpdateProfileRequest{
		FirstName: body.FirstName,
		LastName:  body.LastName,
		Phone:     body.Phone,
	})
	if err != nil {
		return mapUserError(c, err)
	}
	return ok(c, u)
}

// POST /users/me/password
func (h *UserHandler) ChangePassword(c fiber.Ctx) error {
	userID, authed := callerID(c)
	if !authed {
		return unauthorized(c)
	}

	var body struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	if body.CurrentPassword == "" || body.NewPassword == "" {
		return badRequest(c, "current_password and new_password are required")
	}

	if err := h.svc.ChangePassword(c.Context(), userID, body.CurrentPassword, body.NewPassword); err != nil {
		return mapUserError(c, err)
	}
	return noContent(c)
}

// GET /users/me/clinics
func (h *UserHandler) MyClinics(c fiber.Ctx) error {
	userID, authed := callerID(c)
	if !authed {
		return unauthorized(c)
	}

	clinics, err := h.svc.Clinics(c.Context(), userID)
	if err != nil {
		return internalError(c)
	}
	return ok(c, clinics)
}

// POST /users/:id/suspend
func (h *UserHandler) Suspend(c fiber.Ctx) error {
	target, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid user id")
	}

	if err := h.svc.Suspend(c.Context(), target); err != nil {
		return mapUserError(c, err)
	}
	return noContent(c)
}

// POST /users/:id/reactivate
func (h *UserHandler) Reactivate(c fiber.Ctx) error {
	target, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid user id")
	}

	if err := h.svc.Reactivate(c.Context(), target); err != nil {
		return mapUserError(c, err)
	}
	return noContent(c)
}
