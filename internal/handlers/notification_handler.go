package handlers

import (
	"github.com/ahmetcoskunkizilkaya/agroconnect-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/agroconnect-backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

type NotificationHandler struct {
	notificationService *services.NotificationService
}

func NewNotificationHandler(notificationService *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{notificationService: notificationService}
}

func (h *NotificationHandler) List(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return fail(c, err)
	}
	var f dto.NotificationFilter
	if err := parseQuery(c, &f); err != nil {
		return fail(c, err)
	}

	page, err := h.notificationService.List(userID, f)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, page)
}

func (h *NotificationHandler) MarkRead(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return fail(c, err)
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return fail(c, err)
	}

	if err := h.notificationService.MarkRead(userID, id); err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.Map{"id": id, "is_read": true})
}

func (h *NotificationHandler) MarkAllRead(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return fail(c, err)
	}

	n, err := h.notificationService.MarkAllRead(userID)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.Map{"updated": n})
}
