package addressbook

import (
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/huonghan/storefront/internal/apperror"
	"github.com/huonghan/storefront/internal/identity"
	"github.com/huonghan/storefront/internal/middleware"
)

// Handler exposes address book endpoints for the logged-in user.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

// NewHandler constructs an address book HTTP handler.
func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

type addressRequest struct {
	FullName  string `json:"fullName" form:"fullName"`
	Phone     string `json:"phone" form:"phone"`
	Line1     string `json:"line1" form:"line1"`
	City      string `json:"city" form:"city"`
	District  string `json:"district" form:"district"`
	Ward      string `json:"ward" form:"ward"`
	IsDefault string `json:"-" form:"isDefault"`
	Default   bool   `json:"isDefault" form:"-"`
}

// input accepts both a JSON boolean and an HTML checkbox ("on", "true", "1").
func (r addressRequest) input() Input {
	def := r.Default
	switch r.IsDefault {
	case "on", "true", "1", "yes":
		def = true
	}
	return Input{FullName: r.FullName, Phone: r.Phone, Line1: r.Line1, City: r.City, District: r.District, Ward: r.Ward, IsDefault: def}
}

type bookResponse struct {
	Addresses      []identity.Address `json:"addresses"`
	DefaultAddress *identity.Address  `json:"defaultAddress"`
}

func book(u identity.User) bookResponse {
	addresses := u.Addresses
	if addresses == nil {
		addresses = []identity.Address{}
	}
	return bookResponse{Addresses: addresses, DefaultAddress: u.DefaultAddress}
}

// List handles GET /auth/addresses.
func (h *Handler) List(c *fiber.Ctx) error {
	addresses, def, err := h.service.List(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return h.fail(c, err)
	}
	if addresses == nil {
		addresses = []identity.Address{}
	}
	return c.JSON(bookResponse{Addresses: addresses, DefaultAddress: def})
}

// Add handles POST /auth/addresses/add.
func (h *Handler) Add(c *fiber.Ctx) error {
	var req addressRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	user, err := h.service.Add(c.UserContext(), middleware.UserID(c), req.input())
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(http.StatusCreated).JSON(book(user))
}

// Update handles POST /auth/addresses/:id/update.
func (h *Handler) Update(c *fiber.Ctx) error {
	var req addressRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	user, err := h.service.Update(c.UserContext(), middleware.UserID(c), c.Params("id"), req.input())
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(book(user))
}

// SetDefault handles POST /auth/addresses/:id/default.
func (h *Handler) SetDefault(c *fiber.Ctx) error {
	user, err := h.service.SetDefault(c.UserContext(), middleware.UserID(c), c.Params("id"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(book(user))
}

// Delete handles POST /auth/addresses/:id/delete.
func (h *Handler) Delete(c *fiber.Ctx) error {
	user, err := h.service.Delete(c.UserContext(), middleware.UserID(c), c.Params("id"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(book(user))
}

func (h *Handler) fail(c *fiber.Ctx, err error) error {
	status := apperror.Status(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("address request failed", slog.String("path", c.Path()), slog.Any("error", err))
	}
	return c.Status(status).JSON(fiber.Map{"error": apperror.Message(err), "kind": apperror.KindOf(err).String()})
}
