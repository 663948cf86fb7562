package authctx

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	// TokenKey is where the jwt middleware stores the parsed token.
	TokenKey = "user"
	// AccountKey holds the *models.User loaded by middleware.LoadAccount.
	AccountKey = "account"
	roleKey    = "role"
)

var ErrNoToken = errors.New("invalid token in context")

// GetUserID extracts the user UUID from JWT claims in context.
func GetUserID(c *fiber.Ctx) (uuid.UUID, error) {
	claims, err := claimsOf(c)
	if err != nil {
		return uuid.Nil, err
	}
	sub, ok := claims["sub"].(string)
	if !ok {
		return uuid.Nil, errors.New("missing sub claim")
	}
	return uuid.Parse(sub)
}

// GetRole prefers the role of the freshly loaded account over the one baked
// into the token, so a role change takes effect before the token expires.
func GetRole(c *fiber.Ctx) string {
	if role, ok := c.Locals(roleKey).(string); ok && role != "" {
		return role
	}
	claims, err := claimsOf(c)
	if err != nil {
		return ""
	}
	role, _ := claims["role"].(string)
	return role
}

// GetEmail returns the email claim, or "" when absent.
func GetEmail(c *fiber.Ctx) string {
	claims, err := claimsOf(c)
	if err != nil {
		return ""
	}
	email, _ := claims["email"].(string)
	return email
}

func SetRole(c *fiber.Ctx, role string) {
	c.Locals(roleKey, role)
}

func claimsOf(c *fiber.Ctx) (jwt.MapClaims, error) {
	token, ok := c.Locals(TokenKey).(*jwt.Token)
	if !ok || token == nil {
		return nil, ErrNoToken
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("invalid claims")
	}
	return claims, nil
}
