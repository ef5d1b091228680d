package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/huonghan/storefront/internal/account"
	"github.com/huonghan/storefront/internal/middleware"
)

// RegisterAccountRoutes wires the password change and reset flows. Change
// requires a signed-in user; reset works from an anonymous session.
func RegisterAccountRoutes(r fiber.Router, h *account.Handler, otpLimiter fiber.Handler) {
	login := middleware.RequireLogin()
	r.Get("/change-password", login, h.ShowChange)
	r.Post("/change-password", login, h.RequestChange)
	r.Get("/change-password/verify", login, h.ShowChangeVerify)
	r.Post("/change-password/verify", login, h.ConfirmChange)

	r.Get("/forgot-password", h.ShowForgot)
	if otpLimiter != nil {
		r.Post("/forgot-password", otpLimiter, h.RequestReset)
	} else {
		r.Post("/forgot-password", h.RequestReset)
	}
	r.Get("/reset-password", h.ShowReset)
	r.Post("/reset-password", h.ConfirmReset)
}
