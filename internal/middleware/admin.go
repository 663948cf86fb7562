package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/ahmetcoskunkizilkaya/agroconnect-backend/internal/authctx"
	"github.com/ahmetcoskunkizilkaya/agroconnect-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/agroconnect-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/agroconnect-backend/internal/models"
	"github.com/gofiber/fiber/v2"
)

// AdminRequired admits a request when any of these hold:
//  1. the X-Admin-Token header matches ADMIN_TOKEN
//  2. the token email is listed in ADMIN_EMAILS
//  3. the loaded account has the ADMIN role
func AdminRequired(cfg *config.Config) fiber.Handler {
	adminEmails := parseCSV(cfg.AdminEmails)

	return func(c *fiber.Ctx) error {
		if cfg.AdminToken != "" {
			header := c.Get("X-Admin-Token")
			if header != "" && subtle.ConstantTimeCompare([]byte(header), []byte(cfg.AdminToken)) == 1 {
				return c.Next()
			}
		}

		if authctx.GetRole(c) == models.RoleAdmin {
			return c.Next()
		}
		if email := authctx.GetEmail(c); email != "" && contains(adminEmails, strings.ToLower(email)) {
			return c.Next()
		}

		return c.Status(fiber.StatusForbidden).JSON(dto.Fail("Admin access required"))
	}
}

func parseCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.ToLower(strings.TrimSpace(p))
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func contains(list []string, val string) bool {
	for _, item := range list {
		if item == val {
			return true
		}
	}
	return false
}
