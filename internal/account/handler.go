package account

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/huonghan/storefront/internal/apperror"
	"github.com/huonghan/storefront/internal/identity"
	"github.com/huonghan/storefront/internal/middleware"
	"github.com/huonghan/storefront/internal/otp"
)

const (
	pathChangePassword       = "/auth/change-password"
	pathChangePasswordVerify = "/auth/change-password/verify"
	pathForgotPassword       = "/auth/forgot-password"
	pathResetPassword        = "/auth/reset-password"
	pathLogin                = "/auth/login"
)

// Handler exposes the password change and reset endpoints.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

// NewHandler constructs an account HTTP handler.
func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

type changeRequest struct {
	CurrentPassword string `json:"currentPassword" form:"currentPassword"`
	NewPassword     string `json:"newPassword" form:"newPassword"`
	ConfirmPassword string `json:"confirmPassword" form:"confirmPassword"`
}

type otpRequest struct {
	OTP string `json:"otp" form:"otp"`
}

type forgotRequest struct {
	Email string `json:"email" form:"email"`
}

type resetRequest struct {
	OTP             string `json:"otp" form:"otp"`
	NewPassword     string `json:"newPassword" form:"newPassword"`
	ConfirmPassword string `json:"confirmPassword" form:"confirmPassword"`
}

// ShowChange handles GET /auth/change-password.
func (h *Handler) ShowChange(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":            "form",
		"fields":            []string{"currentPassword", "newPassword", "confirmPassword"},
		"minPasswordLength": identity.MinPasswordLength,
	})
}

// ShowForgot handles GET /auth/forgot-password.
func (h *Handler) ShowForgot(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "form", "fields": []string{"email"}})
}

// RequestChange handles POST /auth/change-password.
func (h *Handler) RequestChange(c *fiber.Ctx) error {
	var req changeRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	ch, err := h.service.RequestChange(c.UserContext(), middleware.SessionFrom(c), middleware.UserID(c), ChangeInput{
		CurrentPassword: req.CurrentPassword,
		NewPassword:     req.NewPassword,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		return h.fail(c, err, pathChangePassword)
	}
	return c.Status(http.StatusAccepted).JSON(fiber.Map{
		"status":     "otp_sent",
		"next":       pathChangePasswordVerify,
		"expires_at": ch.ExpiresAt,
	})
}

// ShowChangeVerify handles GET /auth/change-password/verify.
func (h *Handler) ShowChangeVerify(c *fiber.Ctx) error {
	email, err := h.service.PendingEmail(c.UserContext(), middleware.SessionFrom(c), otp.PurposeChangePassword)
	if errors.Is(err, otp.ErrNotFound) {
		return c.Redirect(pathChangePassword, http.StatusSeeOther)
	}
	if err != nil {
		return h.fail(c, err, pathChangePassword)
	}
	return c.JSON(fiber.Map{"status": "otp_pending", "email": email})
}

// ConfirmChange handles POST /auth/change-password/verify.
func (h *Handler) ConfirmChange(c *fiber.Ctx) error {
	var req otpRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if err := h.service.ConfirmChange(c.UserContext(), middleware.SessionFrom(c), req.OTP); err != nil {
		if errors.Is(err, otp.ErrNotFound) {
			return c.Redirect(pathChangePassword, http.StatusSeeOther)
		}
		return h.fail(c, err, pathChangePassword)
	}
	return c.JSON(fiber.Map{"status": "password_changed", "message": "Password changed successfully."})
}

// RequestReset handles POST /auth/forgot-password.
func (h *Handler) RequestReset(c *fiber.Ctx) error {
	var req forgotRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	email, err := h.service.RequestReset(c.UserContext(), middleware.SessionFrom(c), req.Email)
	if err != nil {
		return h.fail(c, err, pathForgotPassword)
	}
	return c.Status(http.StatusAccepted).JSON(fiber.Map{
		"status": "otp_sent",
		"next":   pathResetPassword,
		"email":  email,
	})
}

// ShowReset handles GET /auth/reset-password.
func (h *Handler) ShowReset(c *fiber.Ctx) error {
	email, err := h.service.PendingEmail(c.UserContext(), middleware.SessionFrom(c), otp.PurposeResetPassword)
	if errors.Is(err, otp.ErrNotFound) {
		return c.Redirect(pathForgotPassword, http.StatusSeeOther)
	}
	if err != nil {
		return h.fail(c, err, pathForgotPassword)
	}
	return c.JSON(fiber.Map{"status": "otp_pending", "email": email})
}

// ConfirmReset handles POST /auth/reset-password.
func (h *Handler) ConfirmReset(c *fiber.Ctx) error {
	var req resetRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	email, err := h.service.ConfirmReset(c.UserContext(), middleware.SessionFrom(c), ResetInput{
		Code:            req.OTP,
		NewPassword:     req.NewPassword,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		if errors.Is(err, otp.ErrNotFound) {
			return c.Redirect(pathForgotPassword, http.StatusSeeOther)
		}
		return h.fail(c, err, pathForgotPassword)
	}
	return c.JSON(fiber.Map{
		"status":  "password_reset",
		"next":    pathLogin,
		"email":   email,
		"message": "Password reset successfully, please sign in.",
	})
}

// fail renders err as a structured outcome. Expired codes point the caller
// back to the issuing step.
func (h *Handler) fail(c *fiber.Ctx, err error, restart string) error {
	status := apperror.Status(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("account request failed", slog.String("path", c.Path()), slog.Any("error", err))
	}
	body := fiber.Map{
		"error": apperror.Message(err),
		"kind":  apperror.KindOf(err).String(),
	}
	if errors.Is(err, otp.ErrExpired) {
		body["next"] = restart
	}
	return c.Status(status).JSON(body)
}
