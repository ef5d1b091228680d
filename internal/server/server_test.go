package server

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huonghan/storefront/internal/config"
	"github.com/huonghan/storefront/internal/logging"
	"github.com/huonghan/storefront/internal/routes"
)

func TestErrorHandlerRendersJSON(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: errorHandler(logging.Discard())})
	app.Get("/fiber", func(c *fiber.Ctx) error { return fiber.NewError(http.StatusTooManyRequests, "slow down") })
	app.Get("/plain", func(c *fiber.Ctx) error { return errors.New("db exploded") })

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/fiber", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.JSONEq(t, `{"error":"slow down"}`, string(body))

	resp, err = app.Test(httptest.NewRequest(fiber.MethodGet, "/plain", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	body, _ = io.ReadAll(resp.Body)
	assert.NotContains(t, string(body), "db exploded")
}

func TestNewWiresRoutesInDev(t *testing.T) {
	srv, err := New(routes.Deps{
		Cfg:    config.Config{AppName: "Test Store", Env: "test", SessionCookie: "sid", SessionTTL: time.Hour, OTPTTL: time.Minute},
		Logger: logging.Discard(),
	})
	require.NoError(t, err)

	resp, err := srv.App().Test(httptest.NewRequest(fiber.MethodGet, "/api/v1/ping", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}
