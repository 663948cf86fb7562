package handlers

import (
	"github.com/ahmetcoskunkizilkaya/agroconnect-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/agroconnect-backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

type ModerationHandler struct {
	moderationService *services.ModerationService
}

func NewModerationHandler(moderationService *services.ModerationService) *ModerationHandler {
	return &ModerationHandler{moderationService: moderationService}
}

func (h *ModerationHandler) CreateReport(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return fail(c, err)
	}
	var req dto.CreateReportRequest
	if err := parseBody(c, &req); err != nil {
		return fail(c, err)
	}

	report, err := h.moderationService.CreateReport(userID, &req)
	if err != nil {
		return fail(c, err)
	}
	return created(c, report)
}

func (h *ModerationHandler) BlockUser(c *fiber.Ctx) error {
	blockerID, err := currentUser(c)
	if err != nil {
		return fail(c, err)
	}
	var req dto.BlockUserRequest
	if err := parseBody(c, &req); err != nil {
		return fail(c, err)
	}

	if err := h.moderationService.BlockUser(blockerID, req.BlockedID); err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.Map{"message": "User blocked successfully"})
}

func (h *ModerationHandler) UnblockUser(c *fiber.Ctx) error {
	blockerID, err := currentUser(c)
	if err != nil {
		return fail(c, err)
	}
	blockedID, err := paramUUID(c, "id")
	if err != nil {
		return fail(c, err)
	}

	if err := h.moderationService.UnblockUser(blockerID, blockedID); err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.Map{"message": "User unblocked successfully"})
}

func (h *ModerationHandler) ListBlocked(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return fail(c, err)
	}

	ids, err := h.moderationService.BlockedIDs(userID)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.Map{"blocked_ids": ids})
}
