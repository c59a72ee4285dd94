package utils

import (
	"errors"

	"custody/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetLedgerClaims extracts the caller claims from the Fiber context.
// It returns an error if the claims are missing or of an invalid type.
func GetLedgerClaims(c *fiber.Ctx) (*models.LedgerClaims, error) {
	v := c.Locals("claims")
	if v == nil {
		return nil, errors.New("claims not found in context")
	}

	claims, ok := v.(*models.LedgerClaims)
	if !ok {
		return nil, errors.New("invalid claims type")
	}
	return claims, nil
}
