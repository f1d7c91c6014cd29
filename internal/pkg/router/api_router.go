package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/pressbrief/pressbrief/app/controllers"
)

type ApiRouter struct {
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api", limiter.New())
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Hello from api",
		})
	})

	// API v1 routes. The feed is open to anonymous callers; the gate decides
	// what an anonymous request is allowed to read.
	v1 := api.Group("/v1")
	v1.Get("/feed", controllers.HandleFeed)
	v1.Get("/quota", controllers.HandleQuota)
	v1.Get("/stats", controllers.HandleStats)
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}
