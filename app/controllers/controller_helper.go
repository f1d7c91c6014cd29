package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/pressbrief/pressbrief/app/models"
	"github.com/pressbrief/pressbrief/internal/pkg/billing"
	"github.com/pressbrief/pressbrief/internal/pkg/contentsource"
	"github.com/pressbrief/pressbrief/internal/pkg/metering"
	"github.com/pressbrief/pressbrief/internal/pkg/session"
	"github.com/pressbrief/pressbrief/internal/pkg/usercontext"
)

// Package-level services wired once at startup.
var (
	accessGate *metering.Gate
	billingSvc *billing.Service
	feedSource *contentsource.Source
)

// Setup wires the controllers to their services. Must be called before the
// router starts serving.
func Setup(gate *metering.Gate, svc *billing.Service, source *contentsource.Source) {
	accessGate = gate
	billingSvc = svc
	feedSource = source
}

// createUserSession establishes the logged-in session after any successful
// auth flow (magic link or OAuth).
func createUserSession(c *fiber.Ctx, user *models.User) error {
	sess, err := session.GetSessionStore().Get(c)
	if err != nil {
		return err
	}

	sess.Set(usercontext.AuthKey, true)
	sess.Set(usercontext.KeyUserID, user.ID)
	if err := sess.Save(); err != nil {
		return err
	}

	if err := session.SetSessionValue(c, usercontext.KeyUserEmail, user.Email); err != nil {
		return err
	}
	return session.SetSessionValue(c, usercontext.KeyUsername, user.Name)
}
