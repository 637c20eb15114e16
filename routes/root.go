package routes

import (
	"github.com/gofiber/fiber/v2"

	"todo-backend/config"
)

func RootRouter() *Router {
	return &Router{
		Routes: []Route{
			{Method: fiber.MethodGet, Path: "/health", Summary: "Health Check", Handler: handleHealth},
			{Method: fiber.MethodGet, Path: "/", Summary: "Root", Handler: handleRoot},
		},
	}
}

func handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "healthy"})
}

func handleRoot(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"message": config.Title,
		"version": config.Version,
		"docs":    config.DocsURL,
	})
}
