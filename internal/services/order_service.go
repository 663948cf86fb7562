package services

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ahmetcoskunkizilkaya/agroconnect-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/agroconnect-backend/internal/metrics"
	"github.com/ahmetcoskunkizilkaya/agroconnect-backend/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrOrderNotFound         = errors.New("order not found")
	ErrProductUnavailable    = errors.New("product is not available")
	ErrInsufficientStock     = errors.New("insufficient stock")
	ErrMixedSellers          = errors.New("all items in an order must come from the same seller")
	ErrOwnProduct            = errors.New("you cannot order your own product")
	ErrInvalidTransition     = errors.New("invalid order status transition")
	ErrOrderDelivered        = errors.New("delivered orders cannot be cancelled")
	ErrOrderAlreadyCancelled = errors.New("order is already cancelled")
	ErrOrderNotCancellable   = errors.New("order can no longer be cancelled")
	ErrOrderPaid             = errors.New("order is paid, request a refund instead")
	ErrOrderStateChanged     = errors.New("order status changed, reload and try again")
	ErrDeliveryInProgress    = errors.New("a transporter is handling this order, its status follows the delivery")
)

type OrderService struct {
	db            *gorm.DB
	notifications *NotificationService
}

func NewOrderService(db *gorm.DB, notifications *NotificationService) *OrderService {
	return &OrderService{db: db, notifications: notifications}
}

// reserveStock takes qty units of a product, or fails when fewer remain.
// The WHERE clause makes concurrent reservations for the last unit safe.
func reserveStock(tx *gorm.DB, productID uuid.UUID, qty int) error {
	res := tx.Exec(
		`UPDATE products SET quantity = quantity - ?, is_available = (quantity - ? > 0), updated_at = ?
		 WHERE id = ? AND quantity >= ? AND is_available = true AND deleted_at IS NULL`,
		qty, qty, time.Now(), productID, qty,
	)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrInsufficientStock
	}
	return nil
}

// restoreStock returns reserved units. Products that sold out become
// available again.
func restoreStock(tx *gorm.DB, items []models.OrderItem) error {
	for _, item := range items {
		err := tx.Exec(
			`UPDATE products SET quantity = quantity + ?, is_available = CASE WHEN quantity = 0 THEN true ELSE is_available END, updated_at = ?
			 WHERE id = ?`,
			item.Quantity, time.Now(), item.ProductID,
		).Error
		if err != nil {
			return err
		}
	}
	return nil
}

// setStatus moves an order from one status to another only if nobody else
// moved it first.
func setStatus(tx *gorm.DB, orderID uuid.UUID, from, to string) error {
	res := tx.Model(&models.Order{}).
		Where("id = ? AND status = ?", orderID, from).
		Updates(map[string]interface{}{"status": to, "updated_at": time.Now()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrOrderStateChanged
	}
	return nil
}

func orderData(o *models.Order) map[string]string {
	return map[string]string{"orderId": o.ID.String(), "status": o.Status}
}

func (s *OrderService) Create(buyerID uuid.UUID, req *dto.CreateOrderRequest) (*models.Order, error) {
	wanted := make(map[uuid.UUID]int, len(req.Items))
	var ids []uuid.UUID
	for _, it := range req.Items {
		if _, seen := wanted[it.ProductID]; !seen {
			ids = append(ids, it.ProductID)
		}
		wanted[it.ProductID] += it.Quantity
	}

	order := models.Order{
		ID:              uuid.New(),
		BuyerID:         buyerID,
		Status:          models.OrderPending,
		DeliveryAddress: req.DeliveryAddress,
		DeliveryCity:    req.DeliveryCity,
		DeliveryRegion:  req.DeliveryRegion,
		DeliveryLat:     req.DeliveryLat,
		DeliveryLng:     req.DeliveryLng,
		Notes:           req.Notes,
	}
	var note *models.Notification

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var products []models.Product
		if err := tx.Where("id IN ?", ids).Find(&products).Error; err != nil {
			return err
		}
		byID := make(map[uuid.UUID]models.Product, len(products))
		for _, p := range products {
			byID[p.ID] = p
		}

		total := decimal.Zero
		for i, id := range ids {
			p, ok := byID[id]
			if !ok || !p.IsApproved || !p.IsAvailable {
				return fmt.Errorf("%w: %s", ErrProductUnavailable, id)
			}
			if p.SellerID == buyerID {
				return ErrOwnProduct
			}
			if i == 0 {
				order.SellerID = p.SellerID
			} else if p.SellerID != order.SellerID {
				return ErrMixedSellers
			}
			qty := wanted[id]
			if p.Quantity < qty {
				return fmt.Errorf("%w for %s", ErrInsufficientStock, p.Title)
			}
			if err := reserveStock(tx, p.ID, qty); err != nil {
				if errors.Is(err, ErrInsufficientStock) {
					return fmt.Errorf("%w for %s", ErrInsufficientStock, p.Title)
				}
				return err
			}

			order.Items = append(order.Items, models.OrderItem{
				ID:        uuid.New(),
				ProductID: p.ID,
				Title:     p.Title,
				Quantity:  qty,
				Price:     p.Price,
			})
			total = total.Add(p.Price.Mul(decimal.NewFromInt(int64(qty))))
		}
		order.TotalAmount = total

		if err := tx.Create(&order).Error; err != nil {
			return err
		}

		var err error
		note, err = s.notifications.Create(tx, order.SellerID, models.NotificationOrder,
			"New order received",
			fmt.Sprintf("You have a new order worth GHS %s", total.StringFixed(2)),
			orderData(&order))
		return err
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrInsufficientStock):
			metrics.RecordOrderRejected("insufficient_stock")
		case errors.Is(err, ErrProductUnavailable):
			metrics.RecordOrderRejected("unavailable")
		case errors.Is(err, ErrMixedSellers):
			metrics.RecordOrderRejected("mixed_sellers")
		}
		return nil, err
	}

	metrics.RecordOrderCreated()
	s.notifications.Deliver(note)
	slog.Info("order created", "order_id", order.ID.String(), "buyer_id", buyerID.String(), "total", order.TotalAmount.String())
	return &order, nil
}

func (s *OrderService) list(column string, userID uuid.UUID, f dto.OrderFilter) ([]models.Order, dto.Pagination, error) {
	f.Normalize(20, 100)

	q := s.db.Model(&models.Order{}).Where(column+" = ?", userID)
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, dto.Pagination{}, err
	}

	var orders []models.Order
	err := q.Preload("Items").Preload("Payment").Preload("Delivery").
		Order("created_at DESC").
		Scopes(paginate(f.PageQuery)).
		Find(&orders).Error
	return orders, dto.NewPagination(f.Page, f.Limit, total), err
}

func (s *OrderService) ListForBuyer(buyerID uuid.UUID, f dto.OrderFilter) ([]models.Order, dto.Pagination, error) {
	return s.list("buyer_id", buyerID, f)
}

func (s *OrderService) ListForSeller(sellerID uuid.UUID, f dto.OrderFilter) ([]models.Order, dto.Pagination, error) {
	return s.list("seller_id", sellerID, f)
}

// Get returns an order to its buyer, its seller or an admin.
func (s *OrderService) Get(userID uuid.UUID, role string, id uuid.UUID) (*models.Order, error) {
	var o models.Order
	err := s.db.Preload("Items.Product.Images").
		Preload("Payment").
		Preload("Delivery").
		Preload("Buyer.Profile").
		Preload("Seller.Profile").
		First(&o, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	if o.BuyerID != userID && o.SellerID != userID && role != models.RoleAdmin {
		return nil, ErrOrderNotFound
	}
	return &o, nil
}

func (s *OrderService) load(tx *gorm.DB, id uuid.UUID) (*models.Order, error) {
	var o models.Order
	if err := tx.Preload("Items").Preload("Payment").Preload("Delivery").First(&o, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return &o, nil
}

func cancelGuard(o *models.Order) error {
	switch o.Status {
	case models.OrderDelivered:
		return ErrOrderDelivered
	case models.OrderCancelled:
		return ErrOrderAlreadyCancelled
	}
	if !models.CanTransition(o.Status, models.OrderCancelled) {
		return ErrOrderNotCancellable
	}
	if o.Payment != nil && o.Payment.Status == models.PaymentCompleted {
		return ErrOrderPaid
	}
	return nil
}

// failOpenPayment marks a pending charge FAILED. A charge that completed
// after the order was loaded rolls the cancellation back.
func failOpenPayment(tx *gorm.DB, paymentID uuid.UUID) error {
	res := tx.Model(&models.Payment{}).
		Where("id = ? AND status IN ?", paymentID, []string{models.PaymentPending, models.PaymentProcessing}).
		Update("status", models.PaymentFailed)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}
	var status string
	if err := tx.Model(&models.Payment{}).Where("id = ?", paymentID).Pluck("status", &status).Error; err != nil {
		return err
	}
	if status == models.PaymentCompleted {
		return ErrOrderPaid
	}
	return nil
}

// cancel releases the order's stock and marks it CANCELLED, notifying
// recipient inside the same transaction.
func (s *OrderService) cancel(o *models.Order, recipient uuid.UUID, reason string) (*models.Notification, error) {
	if err := cancelGuard(o); err != nil {
		return nil, err
	}
	from := o.Status

	var note *models.Notification
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := setStatus(tx, o.ID, from, models.OrderCancelled); err != nil {
			return err
		}
		if err := restoreStock(tx, o.Items); err != nil {
			return err
		}
		if o.Payment != nil {
			if err := failOpenPayment(tx, o.Payment.ID); err != nil {
				return err
			}
		}
		if o.Delivery != nil {
			if err := tx.Model(&models.Delivery{}).
				Where("id = ? AND status = ?", o.Delivery.ID, models.DeliveryAssigned).
				Updates(map[string]interface{}{"status": models.DeliveryCancelled, "updated_at": time.Now()}).Error; err != nil {
				return err
			}
			o.Delivery.Status = models.DeliveryCancelled
		}
		o.Status = models.OrderCancelled
		var err error
		note, err = s.notifications.Create(tx, recipient, models.NotificationOrder, "Order cancelled", reason, orderData(o))
		return err
	})
	if err != nil {
		return nil, err
	}
	return note, nil
}

// Cancel lets the buyer cancel an unpaid order.
func (s *OrderService) Cancel(buyerID, id uuid.UUID) (*models.Order, error) {
	o, err := s.load(s.db, id)
	if err != nil {
		return nil, err
	}
	if o.BuyerID != buyerID {
		return nil, ErrOrderNotFound
	}

	note, err := s.cancel(o, o.SellerID, "The buyer cancelled the order")
	if err != nil {
		return nil, err
	}
	s.notifications.Deliver(note)
	return o, nil
}

// UpdateStatus is the seller's side of the order lifecycle.
func (s *OrderService) UpdateStatus(sellerID, id uuid.UUID, status string) (*models.Order, error) {
	o, err := s.load(s.db, id)
	if err != nil {
		return nil, err
	}
	if o.SellerID != sellerID {
		return nil, ErrForbidden
	}

	if status == models.OrderCancelled {
		note, err := s.cancel(o, o.BuyerID, "The seller cancelled your order")
		if err != nil {
			return nil, err
		}
		s.notifications.Deliver(note)
		return o, nil
	}

	if !models.CanTransition(o.Status, status) {
		return nil, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, o.Status, status)
	}
	if o.Delivery != nil && (status == models.OrderInTransit || status == models.OrderDelivered) {
		return nil, ErrDeliveryInProgress
	}

	var note *models.Notification
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := setStatus(tx, o.ID, o.Status, status); err != nil {
			return err
		}
		o.Status = status
		var err error
		note, err = s.notifications.Create(tx, o.BuyerID, models.NotificationOrder,
			"Order update", "Your order is now "+status, orderData(o))
		return err
	})
	if err != nil {
		return nil, err
	}
	s.notifications.Deliver(note)
	return o, nil
}

// ExpireStale cancels PENDING orders older than ttl and returns their stock.
func (s *OrderService) ExpireStale(ttl time.Duration) (int, error) {
	var ids []uuid.UUID
	if err := s.db.Model(&models.Order{}).
		Where("status = ? AND created_at < ?", models.OrderPending, time.Now().Add(-ttl)).
		Limit(200).
		Pluck("id", &ids).Error; err != nil {
		return 0, err
	}

	expired := 0
	for _, id := range ids {
		o, err := s.load(s.db, id)
		if err != nil {
			continue
		}
		note, err := s.cancel(o, o.BuyerID, "Your order expired before payment was received")
		if err != nil {
			if !errors.Is(err, ErrOrderStateChanged) && !errors.Is(err, ErrOrderPaid) {
				slog.Error("order expiry failed", "order_id", id.String(), "error", err)
			}
			continue
		}
		s.notifications.Deliver(note)
		expired++
	}
	return expired, nil
}

// StartExpirySweeper runs ExpireStale every minute until done is closed.
// A zero ttl disables it.
func (s *OrderService) StartExpirySweeper(ttl time.Duration, done <-chan struct{}) {
	if ttl <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				n, err := s.ExpireStale(ttl)
				if err != nil {
					slog.Error("order expiry sweep failed", "error", err)
				} else if n > 0 {
					slog.Info("expired pending orders", "count", n)
				}
			case <-done:
				return
			}
		}
	}()
}
