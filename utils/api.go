package utils

import (
	fiber "github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/pyq-archive/database"
)

// MakeHTTPHandleFunc binds a store-aware handler to a plain fiber handler
func MakeHTTPHandleFunc(handler func(c *fiber.Ctx, store database.Storage) error, store database.Storage) func(c *fiber.Ctx) error {
	return func(c *fiber.Ctx) error {
		if err := handler(c, store); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		}
		return nil
	}
}
