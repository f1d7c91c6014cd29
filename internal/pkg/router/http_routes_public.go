package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/pressbrief/pressbrief/app/controllers"
	"github.com/pressbrief/pressbrief/internal/pkg/middleware"
)

func (h HttpRouter) registerPublicRoutes(app *fiber.App) {
	// Passwordless auth
	app.Post("/login", controllers.HandleLoginRequest)
	app.Get("/auth/verify", controllers.HandleLoginVerify)
	app.Post("/logout", middleware.RequireAuth, controllers.HandleLogout)

	// Social OAuth
	app.Get("/auth/:provider", controllers.HandleOAuthLogin)
	app.Get("/auth/:provider/callback", controllers.HandleOAuthCallback)

	// Billing flows (logged-in users)
	app.Get("/billing", middleware.RequireAuth, controllers.HandleBillingStatus)
	app.Post("/billing/checkout", middleware.RequireAuth, controllers.HandleBillingCheckout)
	app.Post("/billing/portal", middleware.RequireAuth, controllers.HandleBillingPortal)

	// Billing provider webhooks (no session, signature-verified in controller)
	app.Post("/webhooks/stripe", controllers.HandleStripeWebhook)
}
