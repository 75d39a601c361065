package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/prepnest/prepnest-api/database"
	"github.com/prepnest/prepnest-api/services/realtime"
)

// HandleCheckHealth reports process and database health
func HandleCheckHealth(store *database.GORMStore, hub *realtime.Hub) fiber.Handler {
	return func(c *fiber.Ctx) error {
		dbStatus := "ok"
		status := fiber.StatusOK
		if err := store.HealthCheck(); err != nil {
			dbStatus = "unreachable"
			status = fiber.StatusServiceUnavailable
		}

		return c.Status(status).JSON(fiber.Map{
			"status":          dbStatus,
			"connected_users": hub.ConnectedUsers(),
		})
	}
}
