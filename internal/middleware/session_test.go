package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huonghan/storefront/internal/logging"
	"github.com/huonghan/storefront/internal/session"
)

const cookieName = "storefront.sid"

func sessionApp(t *testing.T) (*fiber.App, session.Provider) {
	t.Helper()
	provider := session.NewMemoryProvider()
	sessions := NewSessions(provider, cookieName, time.Hour, false, logging.Discard())

	app := fiber.New()
	app.Use(RequestID(), sessions.Handler())
	app.Post("/login/:id", func(c *fiber.Ctx) error {
		if err := sessions.SignIn(c, c.Params("id")); err != nil {
			return err
		}
		return c.SendStatus(http.StatusNoContent)
	})
	app.Post("/logout", func(c *fiber.Ctx) error {
		if err := sessions.SignOut(c); err != nil {
			return err
		}
		return c.SendStatus(http.StatusNoContent)
	})
	app.Post("/stash", func(c *fiber.Ctx) error {
		return SessionFrom(c).Set(c.UserContext(), "note", []byte(c.Query("v")))
	})
	app.Get("/stash", func(c *fiber.Ctx) error {
		v, err := SessionFrom(c).Get(c.UserContext(), "note")
		if err != nil {
			return fiber.NewError(http.StatusNotFound, err.Error())
		}
		return c.Send(v)
	})
	app.Get("/me", RequireLogin(), func(c *fiber.Ctx) error {
		return c.SendString(UserID(c))
	})
	return app, provider
}

func do(t *testing.T, app *fiber.App, method, path string, cookie *http.Cookie) *http.Response {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func sessionCookie(t *testing.T, resp *http.Response) *http.Cookie {
	t.Helper()
	for _, c := range resp.Cookies() {
		if c.Name == cookieName {
			return c
		}
	}
	t.Fatalf("response has no %s cookie", cookieName)
	return nil
}

func TestSessionCookieIsIssuedAndReused(t *testing.T) {
	app, _ := sessionApp(t)

	resp := do(t, app, fiber.MethodPost, "/stash?v=hello", nil)
	cookie := sessionCookie(t, resp)
	assert.True(t, cookie.HttpOnly)
	assert.NotEmpty(t, resp.Header.Get(requestIDHeader))

	resp = do(t, app, fiber.MethodGet, "/stash", cookie)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, cookie.Value, sessionCookie(t, resp).Value)

	resp = do(t, app, fiber.MethodGet, "/stash", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSessionRejectsForgedCookie(t *testing.T) {
	app, _ := sessionApp(t)

	resp := do(t, app, fiber.MethodGet, "/stash", &http.Cookie{Name: cookieName, Value: "not-a-uuid"})
	assert.NotEqual(t, "not-a-uuid", sessionCookie(t, resp).Value)
}

func TestRequireLoginAndSignIn(t *testing.T) {
	app, _ := sessionApp(t)

	resp := do(t, app, fiber.MethodGet, "/me", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	anon := sessionCookie(t, resp)

	resp = do(t, app, fiber.MethodPost, "/login/u-42", anon)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	authed := sessionCookie(t, resp)
	assert.NotEqual(t, anon.Value, authed.Value)

	resp = do(t, app, fiber.MethodGet, "/me", authed)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = do(t, app, fiber.MethodGet, "/me", anon)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestSignOutDestroysSession(t *testing.T) {
	app, provider := sessionApp(t)

	resp := do(t, app, fiber.MethodPost, "/login/u-42", nil)
	authed := sessionCookie(t, resp)

	resp = do(t, app, fiber.MethodPost, "/logout", authed)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	_, err := provider.Open(authed.Value).Get(context.Background(), session.KeyUser)
	assert.ErrorIs(t, err, session.ErrNotFound)

	resp = do(t, app, fiber.MethodGet, "/me", authed)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
