package handlers

import (
	"github.com/ahmetcoskunkizilkaya/agroconnect-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/agroconnect-backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

type TransporterHandler struct {
	transporterService *services.TransporterService
}

func NewTransporterHandler(transporterService *services.TransporterService) *TransporterHandler {
	return &TransporterHandler{transporterService: transporterService}
}

func (h *TransporterHandler) Available(c *fiber.Ctx) error {
	var q dto.AvailableTransportersQuery
	if err := parseQuery(c, &q); err != nil {
		return fail(c, err)
	}
	if (q.Lat == nil) != (q.Lng == nil) {
		return fail(c, fiber.NewError(fiber.StatusBadRequest, "lat and lng must be sent together"))
	}

	transporters, err := h.transporterService.Available(q)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, transporters)
}

func (h *TransporterHandler) CalculateFee(c *fiber.Ctx) error {
	var req dto.CalculateFeeRequest
	if err := parseBody(c, &req); err != nil {
		return fail(c, err)
	}

	quote, err := h.transporterService.QuoteFee(&req)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, quote)
}

func (h *TransporterHandler) CreateProfile(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return fail(c, err)
	}
	var req dto.CreateTransporterRequest
	if err := parseBody(c, &req); err != nil {
		return fail(c, err)
	}

	t, err := h.transporterService.CreateProfile(userID, &req)
	if err != nil {
		return fail(c, err)
	}
	return created(c, t)
}

func (h *TransporterHandler) GetProfile(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return fail(c, err)
	}

	t, err := h.transporterService.GetProfile(userID)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, t)
}

func (h *TransporterHandler) AddVehicle(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return fail(c, err)
	}
	var req dto.AddVehicleRequest
	if err := parseBody(c, &req); err != nil {
		return fail(c, err)
	}

	v, err := h.transporterService.AddVehicle(userID, &req)
	if err != nil {
		return fail(c, err)
	}
	return created(c, v)
}

func (h *TransporterHandler) Deliveries(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return fail(c, err)
	}
	var q dto.PageQuery
	if err := parseQuery(c, &q); err != nil {
		return fail(c, err)
	}

	deliveries, page, err := h.transporterService.ListDeliveries(userID, c.Query("status"), q)
	if err != nil {
		return fail(c, err)
	}
	return paged(c, "deliveries", deliveries, page)
}

func (h *TransporterHandler) UpdateDeliveryStatus(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return fail(c, err)
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	var req dto.UpdateDeliveryStatusRequest
	if err := parseBody(c, &req); err != nil {
		return fail(c, err)
	}

	d, err := h.transporterService.UpdateDeliveryStatus(userID, id, req.Status)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, d)
}
