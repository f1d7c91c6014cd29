package controllers

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	gothfiber "github.com/shareed2k/goth_fiber"
	"gorm.io/gorm"

	"github.com/pressbrief/pressbrief/app/models"
	"github.com/pressbrief/pressbrief/app/repository"
)

// HandleOAuthLogin starts the provider flow
func HandleOAuthLogin(c *fiber.Ctx) error {
	return gothfiber.BeginAuthHandler(c)
}

// HandleOAuthCallback completes the provider flow and logs the user in
func HandleOAuthCallback(c *fiber.Ctx) error {
	// Complete OAuth with provider and obtain unified user
	u, err := gothfiber.CompleteUserAuth(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).SendString(fmt.Sprintf("OAuth failed: %v", err))
	}

	email := strings.ToLower(strings.TrimSpace(u.Email))
	if email == "" {
		// The email is the metering identity; without one we cannot log in.
		return c.Status(fiber.StatusBadRequest).SendString("OAuth provider did not supply an email address")
	}

	users := repository.GetGlobalFactory().GetUserRepository()
	appUser, lookupErr := users.GetByEmail(email)
	if errors.Is(lookupErr, gorm.ErrRecordNotFound) {
		appUser = &models.User{
			Name:   firstNonEmpty(u.Name, u.NickName, email),
			Email:  email,
			Status: models.STATUS_ACTIVE,
		}
		if err := users.Create(appUser); err != nil {
			return c.Status(fiber.StatusInternalServerError).SendString(fmt.Sprintf("create user failed: %v", err))
		}
	} else if lookupErr != nil {
		return c.Status(fiber.StatusInternalServerError).SendString(fmt.Sprintf("db error: %v", lookupErr))
	}

	if !appUser.IsActive() {
		return c.Status(fiber.StatusForbidden).SendString("account is disabled")
	}

	if err := createUserSession(c, appUser); err != nil {
		return c.Status(fiber.StatusInternalServerError).SendString("session init failed")
	}

	now := time.Now()
	appUser.LastLoginAt = &now
	if err := users.Update(appUser); err != nil {
		log.Warnf("last login update failed for %s: %v", appUser.Email, err)
	}

	return c.Redirect("/", fiber.StatusSeeOther)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
