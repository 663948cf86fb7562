package handlers

import (
	"github.com/ahmetcoskunkizilkaya/agroconnect-backend/internal/authctx"
	"github.com/ahmetcoskunkizilkaya/agroconnect-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/agroconnect-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/agroconnect-backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

type ProductHandler struct {
	productService *services.ProductService
}

func NewProductHandler(productService *services.ProductService) *ProductHandler {
	return &ProductHandler{productService: productService}
}

func (h *ProductHandler) List(c *fiber.Ctx) error {
	var f dto.ProductFilter
	if err := parseQuery(c, &f); err != nil {
		return fail(c, err)
	}

	products, page, err := h.productService.List(f)
	if err != nil {
		return fail(c, err)
	}
	return paged(c, "products", products, page)
}

// Get is public. A signed-in owner or admin can also see listings that are
// not yet approved.
func (h *ProductHandler) Get(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	viewer, _ := authctx.GetUserID(c)

	product, err := h.productService.Get(id, viewer, authctx.GetRole(c))
	if err != nil {
		return fail(c, err)
	}
	return ok(c, product)
}

func (h *ProductHandler) Create(c *fiber.Ctx) error {
	sellerID, err := currentUser(c)
	if err != nil {
		return fail(c, err)
	}
	var req dto.CreateProductRequest
	if err := parseBody(c, &req); err != nil {
		return fail(c, err)
	}

	product, err := h.productService.Create(sellerID, &req)
	if err != nil {
		return fail(c, err)
	}
	return created(c, product)
}

func (h *ProductHandler) ListMine(c *fiber.Ctx) error {
	sellerID, err := currentUser(c)
	if err != nil {
		return fail(c, err)
	}
	var q dto.PageQuery
	if err := parseQuery(c, &q); err != nil {
		return fail(c, err)
	}

	products, page, err := h.productService.ListMine(sellerID, q)
	if err != nil {
		return fail(c, err)
	}
	return paged(c, "products", products, page)
}

func (h *ProductHandler) Update(c *fiber.Ctx) error {
	sellerID, err := currentUser(c)
	if err != nil {
		return fail(c, err)
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	var req dto.UpdateProductRequest
	if err := parseBody(c, &req); err != nil {
		return fail(c, err)
	}

	product, err := h.productService.Update(sellerID, id, &req)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, product)
}

func (h *ProductHandler) Delete(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return fail(c, err)
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return fail(c, err)
	}

	if err := h.productService.Delete(userID, id, authctx.GetRole(c) == models.RoleAdmin); err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.Map{"id": id, "deleted": true})
}
