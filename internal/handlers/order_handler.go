package handlers

import (
	"github.com/ahmetcoskunkizilkaya/agroconnect-backend/internal/authctx"
	"github.com/ahmetcoskunkizilkaya/agroconnect-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/agroconnect-backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

type OrderHandler struct {
	orderService       *services.OrderService
	transporterService *services.TransporterService
}

func NewOrderHandler(orderService *services.OrderService, transporterService *services.TransporterService) *OrderHandler {
	return &OrderHandler{orderService: orderService, transporterService: transporterService}
}

func (h *OrderHandler) Create(c *fiber.Ctx) error {
	buyerID, err := currentUser(c)
	if err != nil {
		return fail(c, err)
	}
	var req dto.CreateOrderRequest
	if err := parseBody(c, &req); err != nil {
		return fail(c, err)
	}

	order, err := h.orderService.Create(buyerID, &req)
	if err != nil {
		return fail(c, err)
	}
	return created(c, order)
}

func (h *OrderHandler) ListMine(c *fiber.Ctx) error {
	buyerID, err := currentUser(c)
	if err != nil {
		return fail(c, err)
	}
	var f dto.OrderFilter
	if err := parseQuery(c, &f); err != nil {
		return fail(c, err)
	}

	orders, page, err := h.orderService.ListForBuyer(buyerID, f)
	if err != nil {
		return fail(c, err)
	}
	return paged(c, "orders", orders, page)
}

func (h *OrderHandler) ListSelling(c *fiber.Ctx) error {
	sellerID, err := currentUser(c)
	if err != nil {
		return fail(c, err)
	}
	var f dto.OrderFilter
	if err := parseQuery(c, &f); err != nil {
		return fail(c, err)
	}

	orders, page, err := h.orderService.ListForSeller(sellerID, f)
	if err != nil {
		return fail(c, err)
	}
	return paged(c, "orders", orders, page)
}

func (h *OrderHandler) Get(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return fail(c, err)
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return fail(c, err)
	}

	order, err := h.orderService.Get(userID, authctx.GetRole(c), id)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, order)
}

func (h *OrderHandler) UpdateStatus(c *fiber.Ctx) error {
	sellerID, err := currentUser(c)
	if err != nil {
		return fail(c, err)
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	var req dto.UpdateOrderStatusRequest
	if err := parseBody(c, &req); err != nil {
		return fail(c, err)
	}

	order, err := h.orderService.UpdateStatus(sellerID, id, req.Status)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, order)
}

func (h *OrderHandler) Cancel(c *fiber.Ctx) error {
	buyerID, err := currentUser(c)
	if err != nil {
		return fail(c, err)
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return fail(c, err)
	}

	order, err := h.orderService.Cancel(buyerID, id)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, order)
}

// AssignDelivery lets the seller hand a confirmed order to a transporter.
func (h *OrderHandler) AssignDelivery(c *fiber.Ctx) error {
	sellerID, err := currentUser(c)
	if err != nil {
		return fail(c, err)
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	var req dto.AssignDeliveryRequest
	if err := parseBody(c, &req); err != nil {
		return fail(c, err)
	}

	delivery, err := h.transporterService.AssignDelivery(sellerID, id, &req)
	if err != nil {
		return fail(c, err)
	}
	return created(c, delivery)
}
