package routes

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/huonghan/storefront/internal/apperror"
	"github.com/huonghan/storefront/internal/identity"
	"github.com/huonghan/storefront/internal/middleware"
)

// AuthOptions carries the optional pieces of the auth routes.
type AuthOptions struct {
	LoginLimiter    fiber.Handler
	RegisterLimiter fiber.Handler
	Logger          *slog.Logger
}

type registerRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
	FullName string `json:"fullName" form:"fullName"`
	Phone    string `json:"phone" form:"phone"`
	Line1    string `json:"line1" form:"line1"`
	City     string `json:"city" form:"city"`
}

type loginRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

type profileResponse struct {
	ID             string             `json:"id"`
	Email          string             `json:"email"`
	FullName       string             `json:"fullName"`
	Role           identity.Role      `json:"role"`
	Provider       identity.Provider  `json:"provider"`
	IsGuest        bool               `json:"isGuest"`
	Addresses      []identity.Address `json:"addresses"`
	DefaultAddress *identity.Address  `json:"defaultAddress"`
	CreatedAt      time.Time          `json:"createdAt"`
}

func profile(u identity.User) profileResponse {
	addresses := u.Addresses
	if addresses == nil {
		addresses = []identity.Address{}
	}
	return profileResponse{
		ID:             u.ID,
		Email:          u.Email,
		FullName:       u.FullName,
		Role:           u.Role,
		Provider:       u.Provider,
		IsGuest:        u.IsGuest,
		Addresses:      addresses,
		DefaultAddress: identity.PreferredAddress(u),
		CreatedAt:      u.CreatedAt,
	}
}

// RegisterAuthRoutes wires registration, login, logout and the profile page.
func RegisterAuthRoutes(r fiber.Router, ids *identity.Service, sessions *middleware.Sessions, opts AuthOptions) {
	logger := opts.Logger
	fail := func(c *fiber.Ctx, err error) error {
		status := apperror.Status(err)
		if status >= http.StatusInternalServerError {
			logger.Error("auth request failed", slog.String("path", c.Path()), slog.Any("error", err))
		}
		return c.Status(status).JSON(fiber.Map{"error": apperror.Message(err), "kind": apperror.KindOf(err).String()})
	}

	register := func(c *fiber.Ctx) error {
		var req registerRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
		user, err := ids.Register(c.UserContext(), identity.RegisterInput{
			Email:    req.Email,
			Password: req.Password,
			FullName: req.FullName,
			Phone:    req.Phone,
			Line1:    req.Line1,
			City:     req.City,
		})
		if err != nil {
			return fail(c, err)
		}
		logger.Info("user registered", slog.String("user_id", user.ID))
		return c.Status(http.StatusCreated).JSON(fiber.Map{"status": "registered", "next": "/auth/login", "user": profile(user)})
	}

	login := func(c *fiber.Ctx) error {
		var req loginRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
		user, err := ids.Authenticate(c.UserContext(), req.Email, req.Password)
		if err != nil {
			return fail(c, err)
		}
		if err := sessions.SignIn(c, user.ID); err != nil {
			return fail(c, apperror.Persistence(err))
		}
		logger.Info("user signed in", slog.String("user_id", user.ID))
		return c.JSON(fiber.Map{"status": "signed_in", "user": profile(user)})
	}

	withLimiter := func(path string, limiter fiber.Handler, h fiber.Handler) {
		if limiter != nil {
			r.Post(path, limiter, h)
			return
		}
		r.Post(path, h)
	}
	withLimiter("/register", opts.RegisterLimiter, register)
	withLimiter("/login", opts.LoginLimiter, login)

	r.Post("/logout", func(c *fiber.Ctx) error {
		if err := sessions.SignOut(c); err != nil {
			return fail(c, apperror.Persistence(err))
		}
		return c.JSON(fiber.Map{"status": "signed_out", "next": "/auth/login"})
	})

	r.Get("/profile", middleware.RequireLogin(), func(c *fiber.Ctx) error {
		user, err := ids.Get(c.UserContext(), middleware.UserID(c))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(profile(user))
	})
}
