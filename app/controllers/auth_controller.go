package controllers

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	gothfiber "github.com/shareed2k/goth_fiber"
	"github.com/sujit-baniya/flash"
	"gorm.io/gorm"

	"github.com/pressbrief/pressbrief/app/models"
	"github.com/pressbrief/pressbrief/app/repository"
	"github.com/pressbrief/pressbrief/internal/pkg/constants"
	"github.com/pressbrief/pressbrief/internal/pkg/mail"
	"github.com/pressbrief/pressbrief/internal/pkg/session"
	"github.com/pressbrief/pressbrief/internal/pkg/usercontext"
)

var emailValidate = validator.New()

// HandleLoginRequest accepts an email address and mails a magic sign-in link.
// The response never reveals whether the address was already registered.
func HandleLoginRequest(c *fiber.Ctx) error {
	email := strings.ToLower(strings.TrimSpace(c.FormValue("email")))

	if err := emailValidate.Var(email, "required,email"); err != nil {
		fm := fiber.Map{
			"type":    "error",
			"message": "Please enter a valid email address.",
		}
		return flash.WithError(c, fm).Redirect(constants.LoginRoute)
	}

	users := repository.GetGlobalFactory().GetUserRepository()
	user, err := users.GetByEmail(email)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		user = &models.User{
			Name:   email[:strings.Index(email, "@")],
			Email:  email,
			Status: models.STATUS_ACTIVE,
		}
		if err := users.Create(user); err != nil {
			log.Errorf("user create failed for login request: %v", err)
			return genericLoginResponse(c)
		}
	} else if err != nil {
		log.Errorf("user lookup failed for login request: %v", err)
		return genericLoginResponse(c)
	}

	if err := user.GenerateLoginToken(); err != nil {
		log.Errorf("login token generation failed: %v", err)
		return genericLoginResponse(c)
	}
	if err := users.Update(user); err != nil {
		log.Errorf("login token save failed: %v", err)
		return genericLoginResponse(c)
	}

	// Send asynchronously; SMTP latency must not block the request.
	go func(to, token string) {
		if err := mail.SendLoginLink(to, token); err != nil {
			log.Errorf("login link mail to %s failed: %v", to, err)
		}
	}(user.Email, user.LoginToken)

	return genericLoginResponse(c)
}

func genericLoginResponse(c *fiber.Ctx) error {
	fm := fiber.Map{
		"type":    "success",
		"message": "If that address exists, a sign-in link is on its way. Check your inbox.",
	}
	return flash.WithSuccess(c, fm).Redirect(constants.LoginRoute)
}

// HandleLoginVerify consumes a magic-link token and starts the session.
func HandleLoginVerify(c *fiber.Ctx) error {
	token := strings.TrimSpace(c.Query("token"))
	fm := fiber.Map{
		"type":    "error",
		"message": "This sign-in link is invalid or has expired. Please request a new one.",
	}
	if token == "" {
		return flash.WithError(c, fm).Redirect(constants.LoginRoute)
	}

	users := repository.GetGlobalFactory().GetUserRepository()
	user, err := users.GetByLoginToken(token)
	if err != nil {
		return flash.WithError(c, fm).Redirect(constants.LoginRoute)
	}

	if !user.IsLoginTokenValid(token) {
		return flash.WithError(c, fm).Redirect(constants.LoginRoute)
	}

	// Single use: clear before the session exists so a replayed link fails.
	user.ClearLoginToken()
	now := time.Now()
	user.LastLoginAt = &now
	if err := users.Update(user); err != nil {
		log.Errorf("login token clear failed: %v", err)
		return flash.WithError(c, fm).Redirect(constants.LoginRoute)
	}

	if err := createUserSession(c, user); err != nil {
		fm["message"] = fmt.Sprintf("something went wrong: %s", err)
		return flash.WithError(c, fm).Redirect(constants.LoginRoute)
	}

	fm = fiber.Map{
		"type":    "success",
		"message": "You are signed in. Enjoy your briefing!",
	}
	return flash.WithSuccess(c, fm).Redirect("/")
}

// HandleLogout destroys the session, including any provider session left by
// an OAuth sign-in.
func HandleLogout(c *fiber.Ctx) error {
	fm := fiber.Map{
		"type": "error",
	}

	if err := gothfiber.Logout(c); err != nil {
		log.Warnf("oauth session logout: %v", err)
	}

	sess, err := session.GetSessionStore().Get(c)
	if err != nil {
		fm["message"] = "logged out (no sess)"
		return flash.WithError(c, fm).Redirect(constants.LoginRoute)
	}

	if err := sess.Destroy(); err != nil {
		fm["message"] = fmt.Sprintf("something went wrong: %s", err)
		return flash.WithError(c, fm).Redirect(constants.LoginRoute)
	}

	fm = fiber.Map{
		"type":    "success",
		"message": "Signed out. See you tomorrow!",
	}

	c.Locals(usercontext.KeyFromProtected, false)

	return flash.WithSuccess(c, fm).Redirect(constants.LoginRoute)
}
