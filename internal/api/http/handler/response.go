package handler

import (
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/oveliahealth/ovelia_backend/internal/api/http/middleware"
	pasetotoken "github.com/oveliahealth/ovelia_backend/pkg/paseto"
)

// callerID returns the authenticated user behind the request. The second
// return is false when no verified claims are attached, meaning the route
// was mounted without AuthRequired in front of it.
func callerID(c fiber.Ctx) (uuid.UUID, bool) {
	claims, valid := pasetotoken.ClaimsFromFiber(c)
	if !valid {
		return uuid.Nil, false
	}
	return claims.UserID, true
}

// Success payloads travel in a data envelope, errors in an error envelope.

func payload(c fiber.Ctx, status int, data any) error {
	return c.Status(status).JSON(fiber.Map{"data": data})
}

func ok(c fiber.Ctx, data any) error      { return payload(c, fiber.StatusOK, data) }
func created(c fiber.Ctx, data any) error { return payload(c, fiber.StatusCreated, data) }

func noContent(c fiber.Ctx) error {
	return c.SendStatus(fiber.StatusNoContent)
}

// fail writes the error envelope. The request ID is echoed so a caller
// can quote the exact failure when reporting a problem.
func fail(c fiber.Ctx, status int, msg string) error {
	body := fiber.Map{"error": msg}
	if rid, ok := middleware.RequestIDFromFiber(c); ok {
		body["request_id"] = rid
	}
	return c.Status(status).JSON(body)
}

func badRequest(c fiber.Ctx, msg string) error {
	return fail(c, fiber.StatusBadRequest, msg)
}

func unauthorized(c fiber.Ctx) error {
	return fail(c, fiber.StatusUnauthorized, "unauthorized")
}

func forbidden(c fiber.Ctx) error {
	return fail(c, fiber.StatusForbidden, "forbidden")
}

func notFound(c fiber.Ctx, msg string) error {
	return fail(c, fiber.StatusNotFound, msg)
}

func conflict(c fiber.Ctx, msg string) error {
	return fail(c, fiber.StatusConflict, msg)
}

func tooManyRequests(c fiber.Ctx, msg string) error {
	return fail(c, fiber.StatusTooManyRequests, msg)
}

func internalError(c fiber.Ctx) error {
	return fail(c, fiber.StatusInternalServerError, "internal server error")
}
