package admin

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/pyq-archive/database"
	"github.com/sahilchouksey/pyq-archive/services"
	"github.com/sahilchouksey/pyq-archive/utils/response"
)

// GetDashboard retrieves archive-wide counts, recent questions and top courses
// GET /api/admin/dashboard
func GetDashboard(c *fiber.Ctx, store database.Storage) error {
	dashboard, err := services.NewCatalogService(store.DB()).Dashboard(c.UserContext())
	if err != nil {
		log.Printf("[ADMIN] Dashboard failed: %v", err)
		return response.InternalServerError(c, "Failed to load dashboard")
	}

	return response.SuccessWithMessage(c, "Dashboard retrieved successfully", dashboard)
}
