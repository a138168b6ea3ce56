package handlers

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/pyq-archive/database"
	"github.com/sahilchouksey/pyq-archive/utils/response"
)

// HandleCheckHealth reports whether the database answers a ping
func HandleCheckHealth(c *fiber.Ctx, store database.Storage) error {
	if err := store.HealthCheck(); err != nil {
		log.Printf("[HEALTH] Database ping failed: %v", err)
		return response.ServiceUnavailable(c, "Database unavailable")
	}
	return c.JSON(fiber.Map{"status": "ok"})
}
