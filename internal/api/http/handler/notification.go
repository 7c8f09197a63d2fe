package handler

import (
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/oveliahealth/ovelia_backend/internal/service/notification"
)

// NotificationHandler serves the per-user notification feed.
type NotificationHandler struct {
	svc notification.Service
}

func NewNotificationHandler(svc notification.Service) *NotificationHandler {
	return &NotificationHandler{svc: svc}
}

func mapNotificationError(c fiber.Ctx, err error) error {
	if errors.Is(err, notification.ErrNotFound) {
		return notFound(c, err.Error())
	}
	return internalError(c)
}

// GET /notifications
func (h *NotificationHandler) List(c fiber.Ctx) error {
	userID, authed := callerID(c)
	if !authed {
		return unauthorized(c)
	}

	var q struct {
		Page       int  `query:"page"`
		PerPage    int  `query:"per_page"`
		UnreadOnly bool `query:"unread_only"`
	}
	_ = c.Bind().Query(&q)

	notifs, err := h.svc.List(c.Context(), userID, q.UnreadOnly, q.Page, q.PerPage)
	if err != nil {
		return mapNotificationError(c, err)
	}
	return ok(c, notifs)
}

// GET /notifications/unread-count
func (h *NotificationHandler) UnreadCount(c fiber.Ctx) error {
	userID, authed := callerID(c)
	if !authed {
		return unauthorized(c)
	}

	count, err := h.svc.UnreadCount(c.Context(), userID)
	if err != nil {
		return mapNotificationError(c, err)
	}
	return ok(c, fiber.Map{"count": count})
}

// POST /notifications/:id/read
func (h *NotificationHandler) MarkRead(c fiber.Ctx) error {
	userID, authed := callerID(c)
	if !authed {
		return unauthorized(c)
	}

	notifID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid notification id")
	}

	if err := h.svc.MarkRead(c.Context(), userID, notifID); err != nil {
		return mapNotificationError(c, err)
	}
	return noContent(c)
}

// POST /notifications/read-all
func (h *NotificationHandler) MarkAllRead(c fiber.Ctx) error {
	userID, authed := callerID(c)
	if !authed {
		return unauthorized(c)
	}

	if err := h.svc.MarkAllRead(c.Context(), userID); err != nil {
		return mapNotificationError(c, err)
	}
	return noContent(c)
}
