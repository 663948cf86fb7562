package handlers

import (
	"github.com/ahmetcoskunkizilkaya/agroconnect-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/agroconnect-backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

type ReviewHandler struct {
	reviewService *services.ReviewService
}

func NewReviewHandler(reviewService *services.ReviewService) *ReviewHandler {
	return &ReviewHandler{reviewService: reviewService}
}

func (h *ReviewHandler) Create(c *fiber.Ctx) error {
	reviewerID, err := currentUser(c)
	if err != nil {
		return fail(c, err)
	}
	var req dto.CreateReviewRequest
	if err := parseBody(c, &req); err != nil {
		return fail(c, err)
	}

	review, err := h.reviewService.Create(reviewerID, &req)
	if err != nil {
		return fail(c, err)
	}
	return created(c, review)
}

func (h *ReviewHandler) ListForUser(c *fiber.Ctx) error {
	userID, err := paramUUID(c, "userId")
	if err != nil {
		return fail(c, err)
	}
	var q dto.PageQuery
	if err := parseQuery(c, &q); err != nil {
		return fail(c, err)
	}

	reviews, page, err := h.reviewService.ListForUser(userID, q)
	if err != nil {
		return fail(c, err)
	}
	return paged(c, "reviews", reviews, page)
}
