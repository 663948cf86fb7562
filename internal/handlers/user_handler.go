package handlers

import (
	"github.com/ahmetcoskunkizilkaya/agroconnect-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/agroconnect-backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

type UserHandler struct {
	userService *services.UserService
}

func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

func (h *UserHandler) GetPublic(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return fail(c, err)
	}

	user, err := h.userService.GetPublic(id)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, user)
}

func (h *UserHandler) GetProfile(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return fail(c, err)
	}

	profile, err := h.userService.GetProfile(userID)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, profile)
}

func (h *UserHandler) UpdateProfile(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return fail(c, err)
	}
	var req dto.UpdateProfileRequest
	if err := parseBody(c, &req); err != nil {
		return fail(c, err)
	}

	profile, err := h.userService.UpdateProfile(userID, &req)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, profile)
}
