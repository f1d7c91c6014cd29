package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/pressbrief/pressbrief/internal/pkg/middleware"
	"github.com/pressbrief/pressbrief/internal/pkg/oauth"
	"github.com/pressbrief/pressbrief/internal/pkg/session"
)

type HttpRouter struct {
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	// init session
	session.NewSessionStore()

	// init oauth providers
	oauth.Setup()

	// Apply UserContext middleware globally as first middleware
	app.Use(middleware.UserContextMiddleware)

	h.registerPublicRoutes(app)
}

func NewHttpRouter() *HttpRouter {
	return &HttpRouter{}
}
