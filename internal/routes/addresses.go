package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/huonghan/storefront/internal/addressbook"
	"github.com/huonghan/storefront/internal/middleware"
)

// RegisterAddressRoutes wires the signed-in user's address book.
func RegisterAddressRoutes(r fiber.Router, h *addressbook.Handler, idempotency fiber.Handler) {
	group := r.Group("/addresses", middleware.RequireLogin())
	group.Get("/", h.List)
	group.Post("/add", idempotency, h.Add)
	group.Post("/:id/update", h.Update)
	group.Post("/:id/default", h.SetDefault)
	group.Post("/:id/delete", h.Delete)
}
