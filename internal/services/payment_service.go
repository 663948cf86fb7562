package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ahmetcoskunkizilkaya/agroconnect-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/agroconnect-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/agroconnect-backend/internal/metrics"
	"github.com/ahmetcoskunkizilkaya/agroconnect-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/agroconnect-backend/internal/paystack"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrPaymentNotFound      = errors.New("payment not found")
	ErrOrderNotPayable      = errors.New("order cannot be paid in its current state")
	ErrAlreadyPaid          = errors.New("order is already paid")
	ErrAmountMismatch       = errors.New("paid amount does not match the order total")
	ErrInvalidSignature     = errors.New("invalid webhook signature")
	ErrPaymentNotConfigured = errors.New("payments are not configured")
	ErrMalformedEvent       = errors.New("malformed webhook event")
)

const chargeSuccess = "charge.success"

var mobileMoneyProviders = map[string]string{
	models.MethodMobileMoneyMTN:        "mtn",
	models.MethodMobileMoneyVodafone:   "vodafone",
	models.MethodMobileMoneyAirtelTigo: "tigo",
}

// Gateway is the subset of the Paystack API the payment flow needs.
type Gateway interface {
	Initialize(ctx context.Context, secret string, req *paystack.InitializeRequest) (*paystack.InitializeData, json.RawMessage, error)
	Verify(ctx context.Context, secret, reference string) (*paystack.TransactionData, json.RawMessage, error)
}

// KeyStore resolves credentials managed from the admin panel.
type KeyStore interface {
	ActiveValue(service, keyType string) (string, error)
}

type PaymentService struct {
	db            *gorm.DB
	cfg           *config.Config
	gateway       Gateway
	keys          KeyStore
	notifications *NotificationService
}

func NewPaymentService(db *gorm.DB, cfg *config.Config, gateway Gateway, keys KeyStore, notifications *NotificationService) *PaymentService {
	return &PaymentService{db: db, cfg: cfg, gateway: gateway, keys: keys, notifications: notifications}
}

// secret prefers the active admin-managed Paystack key over the environment.
func (s *PaymentService) secret() string {
	if s.keys != nil {
		v, err := s.keys.ActiveValue("paystack", models.KeyTypeSecret)
		if err != nil {
			slog.Warn("paystack key lookup failed", "error", err)
		}
		if v != "" {
			return v
		}
	}
	return s.cfg.PaystackSecretKey
}

// NewReference returns a gateway reference of the form AGR_<unixmillis>_<8 hex>.
func NewReference() string {
	b := make([]byte, 4)
	_, _ = rand.Read(b)
	return fmt.Sprintf("AGR_%d_%s", time.Now().UnixMilli(), hex.EncodeToString(b))
}

func toMinor(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

func (s *PaymentService) Initialize(ctx context.Context, buyerID uuid.UUID, buyerEmail string, req *dto.InitializePaymentRequest) (*dto.InitializePaymentResponse, error) {
	secret := s.secret()
	if secret == "" {
		return nil, ErrPaymentNotConfigured
	}

	var order models.Order
	if err := s.db.Preload("Payment").First(&order, "id = ?", req.OrderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	if order.BuyerID != buyerID {
		return nil, ErrOrderNotFound
	}
	if order.Payment != nil && order.Payment.Status == models.PaymentCompleted {
		return nil, ErrAlreadyPaid
	}
	if order.Status != models.OrderPending && order.Status != models.OrderConfirmed {
		return nil, ErrOrderNotPayable
	}

	email := req.Email
	if email == "" {
		email = buyerEmail
	}
	reference := NewReference()
	init := &paystack.InitializeRequest{
		Email:       email,
		Amount:      toMinor(order.TotalAmount),
		Reference:   reference,
		Currency:    "GHS",
		CallbackURL: s.cfg.PaymentCallbackURL(),
		Metadata: map[string]string{
			"orderId": order.ID.String(),
			"userId":  buyerID.String(),
		},
	}
	if provider, ok := mobileMoneyProviders[req.Method]; ok {
		init.Channels = []string{"mobile_money"}
		init.MobileMoney = &paystack.MobileMoney{Phone: req.Phone, Provider: provider}
	} else {
		init.Channels = []string{"card"}
	}

	data, raw, err := s.gateway.Initialize(ctx, secret, init)
	if err != nil {
		slog.Error("payment initialize failed", "order_id", order.ID.String(), "reference", reference, "error", err)
		return nil, err
	}

	payment := models.Payment{
		ID:              uuid.New(),
		OrderID:         order.ID,
		Amount:          order.TotalAmount,
		Status:          models.PaymentPending,
		Method:          req.Method,
		Reference:       reference,
		GatewayResponse: datatypes.JSON(raw),
	}
	// a retry replaces the pending attempt but never a completed payment
	res := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "order_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"amount", "status", "method", "reference", "gateway_response", "updated_at"}),
		Where: clause.Where{Exprs: []clause.Expression{
			clause.Expr{SQL: `"payments"."status" <> ?`, Vars: []interface{}{models.PaymentCompleted}},
		}},
	}).Create(&payment)
	if res.Error != nil {
		return nil, fmt.Errorf("failed to store payment: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrAlreadyPaid
	}

	slog.Info("payment initialized", "order_id", order.ID.String(), "reference", reference, "method", req.Method)
	return &dto.InitializePaymentResponse{
		AuthorizationURL: data.AuthorizationURL,
		AccessCode:       data.AccessCode,
		Reference:        reference,
	}, nil
}

func (s *PaymentService) byReference(reference string) (*models.Payment, error) {
	var p models.Payment
	if err := s.db.Preload("Order").Where("reference = ?", reference).First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}
	return &p, nil
}

// Verify asks Paystack for the state of a charge and reconciles it.
func (s *PaymentService) Verify(ctx context.Context, userID uuid.UUID, reference string) (*models.Payment, error) {
	p, err := s.byReference(reference)
	if err != nil {
		return nil, err
	}
	if p.Order == nil || (p.Order.BuyerID != userID && p.Order.SellerID != userID) {
		return nil, ErrPaymentNotFound
	}
	if p.Status == models.PaymentCompleted {
		return p, nil
	}

	secret := s.secret()
	if secret == "" {
		return nil, ErrPaymentNotConfigured
	}
	data, raw, err := s.gateway.Verify(ctx, secret, reference)
	if err != nil {
		slog.Error("payment verify failed", "reference", reference, "error", err)
		return nil, err
	}

	if !data.Succeeded() {
		status := models.PaymentFailed
		if data.Status == "ongoing" || data.Status == "pending" || data.Status == "processing" {
			status = models.PaymentProcessing
		}
		if err := s.db.Model(&models.Payment{}).
			Where("id = ? AND status <> ?", p.ID, models.PaymentCompleted).
			Updates(map[string]interface{}{"status": status, "gateway_response": datatypes.JSON(raw)}).Error; err != nil {
			return nil, err
		}
		metrics.RecordReconciliation("verify", "not_paid")
		p.Status = status
		return p, nil
	}

	if data.Amount != toMinor(p.Amount) {
		slog.Error("payment amount mismatch", "reference", reference, "expected", toMinor(p.Amount), "got", data.Amount)
		metrics.RecordReconciliation("verify", "amount_mismatch")
		return nil, ErrAmountMismatch
	}

	if _, err := s.reconcile("verify", p, raw, parsePaidAt(data.PaidAt)); err != nil {
		return nil, err
	}
	return s.byReference(reference)
}

// HandleWebhook checks the signature over the raw body and reconciles
// charge.success events. Other events are acknowledged and ignored.
func (s *PaymentService) HandleWebhook(body []byte, signature string) error {
	if !paystack.VerifySignature(s.secret(), body, signature) {
		metrics.RecordWebhook("unknown", "bad_signature")
		return ErrInvalidSignature
	}

	var event dto.PaystackEvent
	if err := json.Unmarshal(body, &event); err != nil {
		metrics.RecordWebhook("unknown", "malformed")
		return fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if event.Event != chargeSuccess {
		metrics.RecordWebhook(event.Event, "ignored")
		return nil
	}

	var charge dto.PaystackChargeData
	if err := json.Unmarshal(event.Data, &charge); err != nil || charge.Reference == "" {
		metrics.RecordWebhook(event.Event, "malformed")
		return ErrMalformedEvent
	}

	p, err := s.byReference(charge.Reference)
	if errors.Is(err, ErrPaymentNotFound) {
		slog.Warn("webhook for unknown reference", "reference", charge.Reference)
		metrics.RecordWebhook(event.Event, "unknown_reference")
		return nil
	}
	if err != nil {
		return err
	}

	if charge.Amount != toMinor(p.Amount) {
		slog.Error("payment amount mismatch", "reference", charge.Reference, "expected", toMinor(p.Amount), "got", charge.Amount)
		metrics.RecordWebhook(event.Event, "amount_mismatch")
		return nil
	}

	applied, err := s.reconcile("webhook", p, event.Data, parsePaidAt(charge.PaidAt))
	if err != nil {
		metrics.RecordWebhook(event.Event, "error")
		return err
	}
	if applied {
		metrics.RecordWebhook(event.Event, "applied")
	} else {
		metrics.RecordWebhook(event.Event, "duplicate")
	}
	return nil
}

func parsePaidAt(s string) time.Time {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	return time.Now()
}

// reconcile records the success event and completes the payment. Both the
// webhook and verify paths share one event key per reference, so whichever
// arrives second is a no-op. It reports whether side effects ran.
func (s *PaymentService) reconcile(source string, p *models.Payment, raw json.RawMessage, paidAt time.Time) (bool, error) {
	var notes []*models.Notification
	applied := false

	err := s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Exec(
			`INSERT INTO payment_events (id, event_key, source, reference, event_type, received_at)
			 VALUES (?, ?, ?, ?, ?, ?) ON CONFLICT (event_key) DO NOTHING`,
			uuid.New(), chargeSuccess+":"+p.Reference, source, p.Reference, chargeSuccess, time.Now(),
		)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}

		var err error
		notes, err = s.settle(tx, p, raw, paidAt)
		applied = notes != nil
		return err
	})
	if err != nil {
		metrics.RecordReconciliation(source, "error")
		return false, err
	}

	if !applied {
		metrics.RecordReconciliation(source, "duplicate")
		return false, nil
	}
	metrics.RecordReconciliation(source, "completed")
	s.notifications.Deliver(notes...)
	slog.Info("payment completed", "reference", p.Reference, "order_id", p.OrderID.String(), "source", source)
	return true, nil
}

// settle runs the one-time side effects of a successful charge. It returns
// nil notifications when the payment was already completed.
func (s *PaymentService) settle(tx *gorm.DB, p *models.Payment, raw json.RawMessage, paidAt time.Time) ([]*models.Notification, error) {
	res := tx.Model(&models.Payment{}).
		Where("id = ? AND status <> ?", p.ID, models.PaymentCompleted).
		Updates(map[string]interface{}{
			"status":           models.PaymentCompleted,
			"paid_at":          paidAt,
			"gateway_response": datatypes.JSON(raw),
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}

	res = tx.Model(&models.Order{}).
		Where("id = ? AND status = ?", p.OrderID, models.OrderPending).
		Updates(map[string]interface{}{"status": models.OrderConfirmed, "updated_at": time.Now()})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		slog.Warn("payment completed for an order that is no longer pending", "order_id", p.OrderID.String(), "reference", p.Reference)
	}

	if err := tx.Create(&models.Transaction{
		ID:        uuid.New(),
		PaymentID: p.ID,
		Type:      "charge",
		Amount:    p.Amount,
		Reference: p.Reference,
		Status:    "success",
		Metadata:  toJSON(map[string]string{"orderId": p.OrderID.String()}),
	}).Error; err != nil {
		return nil, err
	}

	data := map[string]string{"orderId": p.OrderID.String(), "reference": p.Reference}
	amount := p.Amount.StringFixed(2)
	var buyerID, sellerID uuid.UUID
	if p.Order != nil {
		buyerID, sellerID = p.Order.BuyerID, p.Order.SellerID
	}

	buyerNote, err := s.notifications.Create(tx, buyerID, models.NotificationPayment,
		"Payment successful", "We received your payment of GHS "+amount, data)
	if err != nil {
		return nil, err
	}
	sellerNote, err := s.notifications.Create(tx, sellerID, models.NotificationPayment,
		"Order paid", "The buyer paid GHS "+amount+" for an order", data)
	if err != nil {
		return nil, err
	}
	return []*models.Notification{buyerNote, sellerNote}, nil
}

// History lists payments on orders where the user is the buyer or the seller.
func (s *PaymentService) History(userID uuid.UUID, q dto.PageQuery) ([]models.Payment, dto.Pagination, error) {
	q.Normalize(20, 100)

	base := s.db.Model(&models.Payment{}).
		Joins("JOIN orders ON orders.id = payments.order_id").
		Where("orders.buyer_id = ? OR orders.seller_id = ?", userID, userID)

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, dto.Pagination{}, err
	}

	var payments []models.Payment
	err := base.Preload("Order").
		Order("payments.created_at DESC").
		Scopes(paginate(q)).
		Find(&payments).Error
	return payments, dto.NewPagination(q.Page, q.Limit, total), err
}
