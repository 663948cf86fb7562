package handlers

import (
	"github.com/ahmetcoskunkizilkaya/agroconnect-backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

// SettingsHandler serves the public runtime configuration. Writes go through
// the admin handler so they are audited.
type SettingsHandler struct {
	settingsService *services.SettingsService
}

func NewSettingsHandler(settingsService *services.SettingsService) *SettingsHandler {
	return &SettingsHandler{settingsService: settingsService}
}

func (h *SettingsHandler) Public(c *fiber.Ctx) error {
	values, err := h.settingsService.Public()
	if err != nil {
		return fail(c, err)
	}
	c.Set(fiber.HeaderCacheControl, "public, max-age=60")
	return ok(c, values)
}
