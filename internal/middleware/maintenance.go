package middleware

import (
	"strings"

	"github.com/ahmetcoskunkizilkaya/agroconnect-backend/internal/dto"
	"github.com/gofiber/fiber/v2"
)

type MaintenanceChecker interface {
	MaintenanceMode() bool
}

// Maintenance answers 503 while maintenance_mode is on. Health, config,
// auth, admin and the payment webhook stay reachable.
func Maintenance(checker MaintenanceChecker) fiber.Handler {
	open := []string{"/api/health", "/api/config", "/api/auth/", "/api/admin/", "/api/payments/webhook/"}
	return func(c *fiber.Ctx) error {
		if !checker.MaintenanceMode() {
			return c.Next()
		}
		path := c.Path()
		for _, p := range open {
			if strings.HasPrefix(path, p) {
				return c.Next()
			}
		}
		return c.Status(fiber.StatusServiceUnavailable).JSON(dto.Fail("Marketplace is under maintenance"))
	}
}
