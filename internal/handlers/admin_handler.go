package handlers

import (
	"fmt"
	"time"

	"github.com/ahmetcoskunkizilkaya/agroconnect-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/agroconnect-backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

type AdminHandler struct {
	adminService    *services.AdminService
	settingsService *services.SettingsService
}

func NewAdminHandler(adminService *services.AdminService, settingsService *services.SettingsService) *AdminHandler {
	return &AdminHandler{adminService: adminService, settingsService: settingsService}
}

func (h *AdminHandler) ListUsers(c *fiber.Ctx) error {
	var f dto.UserFilter
	if err := parseQuery(c, &f); err != nil {
		return fail(c, err)
	}

	users, page, err := h.adminService.ListUsers(f)
	if err != nil {
		return fail(c, err)
	}
	return paged(c, "users", users, page)
}

func (h *AdminHandler) UpdateRole(c *fiber.Ctx) error {
	userID, err := paramUUID(c, "userId")
	if err != nil {
		return fail(c, err)
	}
	var req dto.UpdateRoleRequest
	if err := parseBody(c, &req); err != nil {
		return fail(c, err)
	}

	user, err := h.adminService.UpdateRole(actingAdmin(c), userID, req.Role)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, user)
}

func (h *AdminHandler) Suspend(c *fiber.Ctx) error {
	userID, err := paramUUID(c, "userId")
	if err != nil {
		return fail(c, err)
	}
	var req dto.SuspendRequest
	if err := parseBody(c, &req); err != nil {
		return fail(c, err)
	}

	user, err := h.adminService.SetSuspended(actingAdmin(c), userID, *req.IsSuspended)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, user)
}

func (h *AdminHandler) ApproveProduct(c *fiber.Ctx) error {
	id, err := paramUUID(c, "productId")
	if err != nil {
		return fail(c, err)
	}
	var req dto.ApprovalRequest
	if err := parseBody(c, &req); err != nil {
		return fail(c, err)
	}

	product, err := h.adminService.ApproveProduct(actingAdmin(c), id, *req.IsApproved)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, product)
}

func (h *AdminHandler) ApproveReview(c *fiber.Ctx) error {
	id, err := paramUUID(c, "reviewId")
	if err != nil {
		return fail(c, err)
	}
	var req dto.ApprovalRequest
	if err := parseBody(c, &req); err != nil {
		return fail(c, err)
	}

	review, err := h.adminService.ApproveReview(actingAdmin(c), id, *req.IsApproved)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, review)
}

func (h *AdminHandler) ListOrders(c *fiber.Ctx) error {
	var f dto.OrderFilter
	if err := parseQuery(c, &f); err != nil {
		return fail(c, err)
	}

	orders, page, err := h.adminService.ListOrders(f)
	if err != nil {
		return fail(c, err)
	}
	return paged(c, "orders", orders, page)
}

func (h *AdminHandler) ExportOrders(c *fiber.Ctx) error {
	data, err := h.adminService.ExportOrders(c.Query("status"))
	if err != nil {
		return fail(c, err)
	}

	name := fmt.Sprintf("orders-%s.xlsx", time.Now().UTC().Format("20060102-150405"))
	c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", name))
	return c.Send(data)
}

func (h *AdminHandler) Analytics(c *fiber.Ctx) error {
	a, err := h.adminService.Analytics()
	if err != nil {
		return fail(c, err)
	}
	return ok(c, a)
}

func (h *AdminHandler) Logs(c *fiber.Ctx) error {
	var q dto.PageQuery
	if err := parseQuery(c, &q); err != nil {
		return fail(c, err)
	}

	logs, page, err := h.adminService.Logs(c.Query("type"), q)
	if err != nil {
		return fail(c, err)
	}
	return paged(c, "logs", logs, page)
}

func (h *AdminHandler) ListAPIKeys(c *fiber.Ctx) error {
	keys, err := h.adminService.ListAPIKeys()
	if err != nil {
		return fail(c, err)
	}
	return ok(c, keys)
}

func (h *AdminHandler) CreateAPIKey(c *fiber.Ctx) error {
	var req dto.CreateAPIKeyRequest
	if err := parseBody(c, &req); err != nil {
		return fail(c, err)
	}

	key, err := h.adminService.CreateAPIKey(actingAdmin(c), &req)
	if err != nil {
		return fail(c, err)
	}
	return created(c, key)
}

func (h *AdminHandler) UpdateAPIKey(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	var req dto.UpdateAPIKeyRequest
	if err := parseBody(c, &req); err != nil {
		return fail(c, err)
	}

	key, err := h.adminService.UpdateAPIKey(actingAdmin(c), id, &req)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, key)
}

func (h *AdminHandler) DeleteAPIKey(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return fail(c, err)
	}

	if err := h.adminService.DeleteAPIKey(actingAdmin(c), id); err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.Map{"id": id, "deleted": true})
}

func (h *AdminHandler) ListReports(c *fiber.Ctx) error {
	var q dto.PageQuery
	if err := parseQuery(c, &q); err != nil {
		return fail(c, err)
	}

	reports, page, err := h.adminService.ListReports(c.Query("status"), q)
	if err != nil {
		return fail(c, err)
	}
	return paged(c, "reports", reports, page)
}

func (h *AdminHandler) ActionReport(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	var req dto.ActionReportRequest
	if err := parseBody(c, &req); err != nil {
		return fail(c, err)
	}

	report, err := h.adminService.ActionReport(actingAdmin(c), id, &req)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, report)
}

func (h *AdminHandler) ListSettings(c *fiber.Ctx) error {
	settings, err := h.settingsService.All()
	if err != nil {
		return fail(c, err)
	}
	return ok(c, settings)
}

func (h *AdminHandler) SetSetting(c *fiber.Ctx) error {
	var req dto.SetSettingRequest
	if err := parseBody(c, &req); err != nil {
		return fail(c, err)
	}

	st, err := h.adminService.SetSetting(actingAdmin(c), c.Params("key"), &req)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, st)
}

func (h *AdminHandler) DeleteSetting(c *fiber.Ctx) error {
	key := c.Params("key")
	if err := h.adminService.DeleteSetting(actingAdmin(c), key); err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.Map{"key": key, "deleted": true})
}
