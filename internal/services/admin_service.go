package services

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/ahmetcoskunkizilkaya/agroconnect-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/agroconnect-backend/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

var ErrSelfAction = errors.New("admins cannot change their own account this way")

// AdminService backs the back-office. Every mutation writes an AdminLog in
// the same transaction as the change.
type AdminService struct {
	db            *gorm.DB
	auth          *AuthService
	apiKeys       *APIKeyService
	moderation    *ModerationService
	settings      *SettingsService
	notifications *NotificationService
}

func NewAdminService(db *gorm.DB, auth *AuthService, apiKeys *APIKeyService, moderation *ModerationService, settings *SettingsService, notifications *NotificationService) *AdminService {
	return &AdminService{
		db:            db,
		auth:          auth,
		apiKeys:       apiKeys,
		moderation:    moderation,
		settings:      settings,
		notifications: notifications,
	}
}

func logAction(tx *gorm.DB, adminID *uuid.UUID, action, entity, entityID string, before, after interface{}) error {
	return tx.Create(&models.AdminLog{
		ID:       uuid.New(),
		AdminID:  adminID,
		Action:   action,
		Entity:   entity,
		EntityID: entityID,
		Before:   toJSON(before),
		After:    toJSON(after),
	}).Error
}

func (s *AdminService) ListUsers(f dto.UserFilter) ([]models.User, dto.Pagination, error) {
	f.Normalize(20, 100)

	q := s.db.Model(&models.User{})
	if f.Role != "" {
		q = q.Where("users.role = ?", strings.ToUpper(f.Role))
	}
	if search := strings.TrimSpace(f.Search); search != "" {
		like := "%" + search + "%"
		q = q.Joins("LEFT JOIN profiles ON profiles.user_id = users.id").
			Where("users.email ILIKE ? OR profiles.first_name ILIKE ? OR profiles.last_name ILIKE ?", like, like, like)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, dto.Pagination{}, err
	}
	var users []models.User
	err := q.Preload("Profile").Order("users.created_at DESC").Scopes(paginate(f.PageQuery)).Find(&users).Error
	return users, dto.NewPagination(f.Page, f.Limit, total), err
}

func (s *AdminService) findUser(id uuid.UUID) (*models.User, error) {
	var u models.User
	if err := s.db.First(&u, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (s *AdminService) UpdateRole(adminID *uuid.UUID, userID uuid.UUID, role string) (*models.User, error) {
	if adminID != nil && *adminID == userID {
		return nil, ErrSelfAction
	}
	u, err := s.findUser(userID)
	if err != nil {
		return nil, err
	}
	before := u.Role

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(u).Update("role", role).Error; err != nil {
			return err
		}
		return logAction(tx, adminID, "user.role", "user", u.ID.String(),
			map[string]string{"role": before}, map[string]string{"role": role})
	})
	if err != nil {
		return nil, err
	}
	u.Role = role
	return u, nil
}

// SetSuspended suspends or reinstates a user. Suspension revokes every
// refresh token so existing sessions end at the next refresh.
func (s *AdminService) SetSuspended(adminID *uuid.UUID, userID uuid.UUID, suspended bool) (*models.User, error) {
	if adminID != nil && *adminID == userID {
		return nil, ErrSelfAction
	}
	u, err := s.findUser(userID)
	if err != nil {
		return nil, err
	}
	before := u.IsSuspended

	action := "user.unsuspend"
	if suspended {
		action = "user.suspend"
	}
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(u).Update("is_suspended", suspended).Error; err != nil {
			return err
		}
		if suspended {
			if err := tx.Model(&models.RefreshToken{}).
				Where("user_id = ? AND revoked = ?", u.ID, false).
				Update("revoked", true).Error; err != nil {
				return err
			}
		}
		return logAction(tx, adminID, action, "user", u.ID.String(),
			map[string]bool{"is_suspended": before}, map[string]bool{"is_suspended": suspended})
	})
	if err != nil {
		return nil, err
	}
	u.IsSuspended = suspended
	return u, nil
}

func (s *AdminService) ApproveProduct(adminID *uuid.UUID, productID uuid.UUID, approved bool) (*models.Product, error) {
	var p models.Product
	if err := s.db.First(&p, "id = ?", productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	before := p.IsApproved

	var note *models.Notification
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&p).Update("is_approved", approved).Error; err != nil {
			return err
		}
		if err := logAction(tx, adminID, "product.approve", "product", p.ID.String(),
			map[string]bool{"is_approved": before}, map[string]bool{"is_approved": approved}); err != nil {
			return err
		}
		title, msg := "Listing approved", fmt.Sprintf("%q is now live on the marketplace", p.Title)
		if !approved {
			title, msg = "Listing not approved", fmt.Sprintf("%q was not approved", p.Title)
		}
		var err error
		note, err = s.notifications.Create(tx, p.SellerID, models.NotificationSystem, title, msg,
			map[string]string{"productId": p.ID.String()})
		return err
	})
	if err != nil {
		return nil, err
	}
	s.notifications.Deliver(note)
	p.IsApproved = approved
	return &p, nil
}

// ApproveReview toggles review visibility and refreshes the reviewee's
// transporter rating.
func (s *AdminService) ApproveReview(adminID *uuid.UUID, reviewID uuid.UUID, approved bool) (*models.Review, error) {
	var r models.Review
	if err := s.db.First(&r, "id = ?", reviewID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReviewNotFound
		}
		return nil, err
	}
	before := r.IsApproved

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&r).Update("is_approved", approved).Error; err != nil {
			return err
		}
		if err := RecalculateRating(tx, r.RevieweeID); err != nil {
			return err
		}
		return logAction(tx, adminID, "review.approve", "review", r.ID.String(),
			map[string]bool{"is_approved": before}, map[string]bool{"is_approved": approved})
	})
	if err != nil {
		return nil, err
	}
	r.IsApproved = approved
	return &r, nil
}

func (s *AdminService) ordersQuery(status string) *gorm.DB {
	q := s.db.Model(&models.Order{})
	if status != "" {
		q = q.Where("status = ?", status)
	}
	return q
}

func (s *AdminService) ListOrders(f dto.OrderFilter) ([]models.Order, dto.Pagination, error) {
	f.Normalize(20, 100)

	var total int64
	if err := s.ordersQuery(f.Status).Count(&total).Error; err != nil {
		return nil, dto.Pagination{}, err
	}
	var orders []models.Order
	err := s.ordersQuery(f.Status).
		Preload("Items").Preload("Payment").Preload("Delivery").
		Preload("Buyer.Profile").Preload("Seller.Profile").
		Order("created_at DESC").
		Scopes(paginate(f.PageQuery)).
		Find(&orders).Error
	return orders, dto.NewPagination(f.Page, f.Limit, total), err
}

var exportHeader = []interface{}{
	"Order ID", "Created", "Status", "Buyer", "Seller", "Items", "Total (GHS)",
	"Payment status", "Payment method", "Reference", "City", "Region",
}

// ExportOrders renders every order matching status as an XLSX workbook.
func (s *AdminService) ExportOrders(status string) ([]byte, error) {
	var orders []models.Order
	err := s.ordersQuery(status).
		Preload("Items").Preload("Payment").Preload("Buyer").Preload("Seller").
		Order("created_at DESC").
		Limit(10000).
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return buildOrdersWorkbook(orders)
}

func buildOrdersWorkbook(orders []models.Order) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Orders"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}
	if err := f.SetSheetRow(sheet, "A1", &exportHeader); err != nil {
		return nil, err
	}
	if err := f.SetRowStyle(sheet, 1, 1, bold); err != nil {
		return nil, err
	}

	for i, o := range orders {
		var buyer, seller, payStatus, payMethod, reference string
		if o.Buyer != nil {
			buyer = o.Buyer.Email
		}
		if o.Seller != nil {
			seller = o.Seller.Email
		}
		if o.Payment != nil {
			payStatus, payMethod, reference = o.Payment.Status, o.Payment.Method, o.Payment.Reference
		}
		titles := make([]string, len(o.Items))
		for j, it := range o.Items {
			titles[j] = fmt.Sprintf("%s x%d", it.Title, it.Quantity)
		}
		total, _ := o.TotalAmount.Float64()

		row := []interface{}{
			o.ID.String(), o.CreatedAt.Format("2006-01-02 15:04"), o.Status, buyer, seller,
			strings.Join(titles, "; "), total, payStatus, payMethod, reference, o.DeliveryCity, o.DeliveryRegion,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, err
		}
	}
	if err := f.SetColWidth(sheet, "A", "A", 38); err != nil {
		return nil, err
	}
	if err := f.SetColWidth(sheet, "B", "L", 18); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s *AdminService) Analytics() (*dto.Analytics, error) {
	a := &dto.Analytics{
		UsersByRole:    map[string]int64{},
		OrdersByStatus: map[string]int64{},
	}
	if err := s.db.Model(&models.User{}).Count(&a.TotalUsers).Error; err != nil {
		return nil, err
	}
	if err := s.db.Model(&models.Product{}).Count(&a.TotalProducts).Error; err != nil {
		return nil, err
	}
	if err := s.db.Model(&models.Order{}).Count(&a.TotalOrders).Error; err != nil {
		return nil, err
	}

	var revenue decimal.NullDecimal
	if err := s.db.Model(&models.Payment{}).
		Select("SUM(amount)").
		Where("status = ?", models.PaymentCompleted).
		Scan(&revenue).Error; err != nil {
		return nil, err
	}
	a.TotalRevenue = revenue.Decimal

	var groups []struct {
		Key   string
		Count int64
	}
	if err := s.db.Model(&models.User{}).Select("role AS key, COUNT(*) AS count").Group("role").Scan(&groups).Error; err != nil {
		return nil, err
	}
	for _, g := range groups {
		a.UsersByRole[g.Key] = g.Count
	}
	groups = nil
	if err := s.db.Model(&models.Order{}).Select("status AS key, COUNT(*) AS count").Group("status").Scan(&groups).Error; err != nil {
		return nil, err
	}
	for _, g := range groups {
		a.OrdersByStatus[g.Key] = g.Count
	}

	var recent []models.Order
	if err := s.db.Preload("Items").Order("created_at DESC").Limit(10).Find(&recent).Error; err != nil {
		return nil, err
	}
	a.RecentOrders = recent

	var top []struct {
		ProductID uuid.UUID `json:"product_id"`
		Title     string    `json:"title"`
		Units     int64     `json:"units"`
	}
	if err := s.db.Model(&models.OrderItem{}).
		Select("order_items.product_id, MAX(order_items.title) AS title, SUM(order_items.quantity) AS units").
		Joins("JOIN orders ON orders.id = order_items.order_id AND orders.status <> ?", models.OrderCancelled).
		Group("order_items.product_id").
		Order("units DESC").
		Limit(10).
		Scan(&top).Error; err != nil {
		return nil, err
	}
	a.TopProducts = top
	return a, nil
}

// Logs lists admin audit entries, or persisted system errors when kind is
// "system".
func (s *AdminService) Logs(kind string, q dto.PageQuery) (interface{}, dto.Pagination, error) {
	q.Normalize(50, 200)
	var total int64

	if kind == "system" {
		var logs []models.SystemLog
		if err := s.db.Model(&models.SystemLog{}).Count(&total).Error; err != nil {
			return nil, dto.Pagination{}, err
		}
		err := s.db.Order("timestamp DESC").Scopes(paginate(q)).Find(&logs).Error
		return logs, dto.NewPagination(q.Page, q.Limit, total), err
	}

	var logs []models.AdminLog
	if err := s.db.Model(&models.AdminLog{}).Count(&total).Error; err != nil {
		return nil, dto.Pagination{}, err
	}
	err := s.db.Preload("Admin").Order("created_at DESC").Scopes(paginate(q)).Find(&logs).Error
	return logs, dto.NewPagination(q.Page, q.Limit, total), err
}

func (s *AdminService) ListAPIKeys() ([]dto.APIKeyView, error) {
	return s.apiKeys.List()
}

func (s *AdminService) CreateAPIKey(adminID *uuid.UUID, req *dto.CreateAPIKeyRequest) (*dto.APIKeyView, error) {
	view, err := s.apiKeys.Create(adminID, req)
	if err != nil {
		return nil, err
	}
	// key values never enter the audit log
	if err := logAction(s.db, adminID, "api_key.create", "api_key", view.ID, nil,
		map[string]string{"name": view.Name, "service": view.Service, "key_type": view.KeyType}); err != nil {
		return nil, err
	}
	return view, nil
}

func (s *AdminService) UpdateAPIKey(adminID *uuid.UUID, id uuid.UUID, req *dto.UpdateAPIKeyRequest) (*dto.APIKeyView, error) {
	view, err := s.apiKeys.Update(id, req)
	if err != nil {
		return nil, err
	}
	after := map[string]interface{}{"value_rotated": req.Value != nil && *req.Value != ""}
	if req.Name != nil {
		after["name"] = *req.Name
	}
	if req.IsActive != nil {
		after["is_active"] = *req.IsActive
	}
	if err := logAction(s.db, adminID, "api_key.update", "api_key", id.String(), nil, after); err != nil {
		return nil, err
	}
	return view, nil
}

func (s *AdminService) DeleteAPIKey(adminID *uuid.UUID, id uuid.UUID) error {
	if err := s.apiKeys.Delete(id); err != nil {
		return err
	}
	return logAction(s.db, adminID, "api_key.delete", "api_key", id.String(), nil, nil)
}

func (s *AdminService) ListReports(status string, q dto.PageQuery) ([]models.Report, dto.Pagination, error) {
	q.Normalize(20, 100)
	reports, total, err := s.moderation.ListReports(status, q)
	return reports, dto.NewPagination(q.Page, q.Limit, total), err
}

func (s *AdminService) ActionReport(adminID *uuid.UUID, id uuid.UUID, req *dto.ActionReportRequest) (*models.Report, error) {
	report, err := s.moderation.ActionReport(id, req)
	if err != nil {
		return nil, err
	}
	if err := logAction(s.db, adminID, "report.action", "report", id.String(), nil,
		map[string]string{"status": req.Status, "admin_note": req.AdminNote}); err != nil {
		return nil, err
	}
	return report, nil
}

func (s *AdminService) SetSetting(adminID *uuid.UUID, key string, req *dto.SetSettingRequest) (*models.Setting, error) {
	var before interface{}
	if old, err := s.settings.Get(key); err == nil {
		before = map[string]string{"value": old.Value, "type": old.Type}
	}
	st, err := s.settings.Set(key, req)
	if err != nil {
		return nil, err
	}
	if err := logAction(s.db, adminID, "setting.set", "setting", key, before,
		map[string]string{"value": st.Value, "type": st.Type}); err != nil {
		return nil, err
	}
	return st, nil
}

func (s *AdminService) DeleteSetting(adminID *uuid.UUID, key string) error {
	old, err := s.settings.Get(key)
	if err != nil {
		return err
	}
	if err := s.settings.Delete(key); err != nil {
		return err
	}
	return logAction(s.db, adminID, "setting.delete", "setting", key,
		map[string]string{"value": old.Value, "type": old.Type}, nil)
}
