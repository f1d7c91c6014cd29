package controllers

import (
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pressbrief/pressbrief/app/repository"
)

func newLoginTestApp() *fiber.App {
	app := fiber.New()
	app.Post("/login", HandleLoginRequest)
	return app
}

func postLoginForm(t *testing.T, app *fiber.App, email string) int {
	t.Helper()

	form := url.Values{"email": {email}}
	req := httptest.NewRequest(fiber.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationForm)

	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp.StatusCode
}

func TestLoginRequestCreatesUserWithToken(t *testing.T) {
	controllerTestDB(t)
	app := newLoginTestApp()

	status := postLoginForm(t, app, "reader@example.com")
	assert.Equal(t, fiber.StatusFound, status)

	user, err := repository.GetGlobalFactory().GetUserRepository().GetByEmail("reader@example.com")
	require.NoError(t, err)
	assert.Equal(t, "reader", user.Name)
	assert.NotEmpty(t, user.LoginToken)
}

func TestLoginRequestReusesExistingUser(t *testing.T) {
	controllerTestDB(t)
	app := newLoginTestApp()
	users := repository.GetGlobalFactory().GetUserRepository()

	require.Equal(t, fiber.StatusFound, postLoginForm(t, app, "repeat@example.com"))
	first, err := users.GetByEmail("repeat@example.com")
	require.NoError(t, err)

	before, err := users.Count()
	require.NoError(t, err)

	require.Equal(t, fiber.StatusFound, postLoginForm(t, app, "repeat@example.com"))
	after, err := users.Count()
	require.NoError(t, err)
	assert.Equal(t, before, after, "a repeat request must not create a second account")

	second, err := users.GetByEmail("repeat@example.com")
	require.NoError(t, err)
	assert.NotEqual(t, first.LoginToken, second.LoginToken, "each request issues a fresh token")
}

func TestLoginRequestRejectsInvalidEmail(t *testing.T) {
	controllerTestDB(t)
	app := newLoginTestApp()
	users := repository.GetGlobalFactory().GetUserRepository()

	before, err := users.Count()
	require.NoError(t, err)

	status := postLoginForm(t, app, "not-an-address")
	assert.Equal(t, fiber.StatusFound, status)

	after, err := users.Count()
	require.NoError(t, err)
	assert.Equal(t, before, after)
}
