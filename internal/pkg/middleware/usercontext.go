package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/pressbrief/pressbrief/internal/pkg/session"
	"github.com/pressbrief/pressbrief/internal/pkg/usercontext"
)

// UserContextMiddleware sets up the complete user context for every request
// This centralizes user session handling and eliminates code duplication
func UserContextMiddleware(c *fiber.Ctx) error {
	// Avoid interfering with Goth/Fiber session handling on OAuth routes.
	// Goth uses its own fiber session store and relies on per-request locals.
	// We skip our app session on /auth/<provider> to prevent cross-store collisions.
	if isOAuthPath(c.Path()) {
		return c.Next()
	}

	// Get session with error handling
	sess, err := session.GetSessionStore().Get(c)
	if err != nil {
		// On error: treat as anonymous
		c.Locals("USER_CONTEXT", usercontext.UserContext{IsLoggedIn: false})
		c.Locals(usercontext.KeyFromProtected, false)
		return c.Next()
	}

	// Get user ID from session
	userID := sess.Get(usercontext.KeyUserID)
	if userID == nil {
		// Anonymous user - no session data
		c.Locals("USER_CONTEXT", usercontext.UserContext{IsLoggedIn: false})
		c.Locals(usercontext.KeyFromProtected, false)
		return c.Next()
	}

	email := session.GetSessionValue(c, usercontext.KeyUserEmail)
	username := session.GetSessionValue(c, usercontext.KeyUsername)

	// Set complete user context
	userCtx := usercontext.UserContext{
		UserID:     userID.(uint),
		Email:      email,
		Username:   username,
		IsLoggedIn: true,
	}
	c.Locals("USER_CONTEXT", userCtx)

	c.Locals(usercontext.KeyFromProtected, true)
	c.Locals(usercontext.KeyUserID, userID.(uint))
	c.Locals(usercontext.KeyUserEmail, email)
	c.Locals(usercontext.KeyUsername, username)

	return c.Next()
}

func isOAuthPath(path string) bool {
	return strings.HasPrefix(path, "/auth/google") || strings.HasPrefix(path, "/auth/github")
}
