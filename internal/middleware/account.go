package middleware

import (
	"github.com/ahmetcoskunkizilkaya/agroconnect-backend/internal/authctx"
	"github.com/ahmetcoskunkizilkaya/agroconnect-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/agroconnect-backend/internal/models"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// LoadAccount runs after JWTProtected. It rejects tokens whose account has
// been deleted, deactivated or suspended since the token was issued.
func LoadAccount(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := authctx.GetUserID(c)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.Fail("Authentication required"))
		}

		var user models.User
		if err := db.Select("id", "email", "role", "is_active", "is_suspended").
			Where("id = ?", userID).Take(&user).Error; err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.Fail("Invalid or inactive account"))
		}
		if !user.CanSignIn() {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.Fail("Invalid or inactive account"))
		}

		c.Locals(authctx.AccountKey, &user)
		authctx.SetRole(c, user.Role)
		return c.Next()
	}
}

// RequireRole allows the request through only for the given roles.
func RequireRole(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		role := authctx.GetRole(c)
		if role == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.Fail("Authentication required"))
		}
		for _, r := range roles {
			if r == role {
				return c.Next()
			}
		}
		return c.Status(fiber.StatusForbidden).JSON(dto.Fail("Insufficient permissions"))
	}
}
