package handlers

import (
	"errors"
	"log/slog"

	"github.com/ahmetcoskunkizilkaya/agroconnect-backend/internal/authctx"
	"github.com/ahmetcoskunkizilkaya/agroconnect-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/agroconnect-backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

type PaymentHandler struct {
	paymentService *services.PaymentService
}

func NewPaymentHandler(paymentService *services.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService}
}

func (h *PaymentHandler) Initialize(c *fiber.Ctx) error {
	buyerID, err := currentUser(c)
	if err != nil {
		return fail(c, err)
	}
	var req dto.InitializePaymentRequest
	if err := parseBody(c, &req); err != nil {
		return fail(c, err)
	}

	resp, err := h.paymentService.Initialize(c.UserContext(), buyerID, authctx.GetEmail(c), &req)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, resp)
}

func (h *PaymentHandler) Verify(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return fail(c, err)
	}
	reference := c.Params("reference")
	if reference == "" {
		return fail(c, fiber.NewError(fiber.StatusBadRequest, "reference is required"))
	}

	payment, err := h.paymentService.Verify(c.UserContext(), userID, reference)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, payment)
}

// PaystackWebhook is unauthenticated; the HMAC signature over the raw body
// is the only credential. A 5xx makes Paystack retry, which the event
// ledger makes safe.
func (h *PaymentHandler) PaystackWebhook(c *fiber.Ctx) error {
	err := h.paymentService.HandleWebhook(c.Body(), c.Get("x-paystack-signature"))
	if err != nil {
		if errors.Is(err, services.ErrInvalidSignature) {
			slog.Warn("paystack webhook rejected", "ip", c.IP())
		}
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"received": true})
}

func (h *PaymentHandler) History(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return fail(c, err)
	}
	var q dto.PageQuery
	if err := parseQuery(c, &q); err != nil {
		return fail(c, err)
	}

	payments, page, err := h.paymentService.History(userID, q)
	if err != nil {
		return fail(c, err)
	}
	return paged(c, "payments", payments, page)
}
