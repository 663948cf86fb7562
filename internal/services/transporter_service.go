package services

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/ahmetcoskunkizilkaya/agroconnect-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/agroconnect-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/agroconnect-backend/internal/geo"
	"github.com/ahmetcoskunkizilkaya/agroconnect-backend/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrTransporterNotFound   = errors.New("transporter not found")
	ErrTransporterExists     = errors.New("transporter profile already exists")
	ErrTransporterUnverified = errors.New("transporter is not verified")
	ErrPlateTaken            = errors.New("a vehicle with this plate number is already registered")
	ErrOrderNotConfirmed     = errors.New("only confirmed orders can be assigned for delivery")
	ErrMissingCoordinates    = errors.New("order has no delivery coordinates")
	ErrDeliveryExists        = errors.New("order already has a delivery")
	ErrDeliveryNotFound      = errors.New("delivery not found")
	ErrInvalidDeliveryStatus = errors.New("invalid delivery status transition")
)

const defaultSearchRadiusKm = 50

var deliveryTransitions = map[string]struct{ from, orderFrom, orderTo string }{
	models.DeliveryPickedUp:  {models.DeliveryAssigned, models.OrderConfirmed, models.OrderInTransit},
	models.DeliveryDelivered: {models.DeliveryPickedUp, models.OrderInTransit, models.OrderDelivered},
}

type TransporterService struct {
	db            *gorm.DB
	cfg           *config.Config
	settings      *SettingsService
	notifications *NotificationService
}

func NewTransporterService(db *gorm.DB, cfg *config.Config, settings *SettingsService, notifications *NotificationService) *TransporterService {
	return &TransporterService{db: db, cfg: cfg, settings: settings, notifications: notifications}
}

func (s *TransporterService) defaultBasePrice() decimal.Decimal {
	v := s.cfg.DefaultBasePricePerKm
	if s.settings != nil {
		v = s.settings.Float(models.SettingDefaultBasePricePerKm, v)
	}
	return decimal.NewFromFloat(v).Round(2)
}

func (s *TransporterService) byUser(userID uuid.UUID) (*models.Transporter, error) {
	var t models.Transporter
	if err := s.db.Where("user_id = ?", userID).First(&t).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransporterNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (s *TransporterService) CreateProfile(userID uuid.UUID, req *dto.CreateTransporterRequest) (*models.Transporter, error) {
	if _, err := s.byUser(userID); err == nil {
		return nil, ErrTransporterExists
	} else if !errors.Is(err, ErrTransporterNotFound) {
		return nil, err
	}

	price := s.defaultBasePrice()
	if req.BasePricePerKm != nil {
		if !req.BasePricePerKm.IsPositive() {
			return nil, ErrInvalidPrice
		}
		price = req.BasePricePerKm.Round(2)
	}

	t := models.Transporter{
		ID:             uuid.New(),
		UserID:         userID,
		CompanyName:    req.CompanyName,
		LicenseNumber:  req.LicenseNumber,
		BasePricePerKm: price,
	}
	if err := s.db.Create(&t).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrTransporterExists
		}
		return nil, err
	}
	return &t, nil
}

func (s *TransporterService) GetProfile(userID uuid.UUID) (*models.Transporter, error) {
	var t models.Transporter
	err := s.db.Preload("Vehicles").
		Preload("Deliveries", func(db *gorm.DB) *gorm.DB { return db.Order("created_at DESC").Limit(10) }).
		Where("user_id = ?", userID).
		First(&t).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransporterNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (s *TransporterService) AddVehicle(userID uuid.UUID, req *dto.AddVehicleRequest) (*models.Vehicle, error) {
	t, err := s.byUser(userID)
	if err != nil {
		return nil, err
	}
	v := models.Vehicle{
		ID:            uuid.New(),
		TransporterID: t.ID,
		Type:          req.Type,
		Make:          req.Make,
		Model:         req.Model,
		PlateNumber:   req.PlateNumber,
		Capacity:      req.Capacity,
		IsActive:      true,
	}
	if err := s.db.Create(&v).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrPlateTaken
		}
		return nil, err
	}
	return &v, nil
}

type TransporterView struct {
	models.Transporter
	Name       string   `json:"name"`
	DistanceKm *float64 `json:"distance_km,omitempty"`
}

// Available lists verified transporters. With lat and lng set, only those
// within Distance km (50 by default) of the point are returned, nearest first.
func (s *TransporterService) Available(q dto.AvailableTransportersQuery) ([]TransporterView, error) {
	var list []models.Transporter
	err := s.db.Joins("JOIN users ON users.id = transporters.user_id AND users.deleted_at IS NULL").
		Where("transporters.is_verified = ? AND users.is_active = ? AND users.is_suspended = ?", true, true, false).
		Preload("User.Profile").
		Preload("Vehicles", "is_active = ?", true).
		Order("transporters.rating DESC").
		Find(&list).Error
	if err != nil {
		return nil, err
	}

	radius := q.Distance
	if radius <= 0 {
		radius = defaultSearchRadiusKm
	}
	geoFilter := q.Lat != nil && q.Lng != nil

	out := make([]TransporterView, 0, len(list))
	for _, t := range list {
		view := TransporterView{Transporter: t}
		var profile *models.Profile
		if t.User != nil {
			profile = t.User.Profile
			view.User = nil
		}
		if profile != nil {
			view.Name = profile.FirstName + " " + profile.LastName
		}
		if geoFilter {
			if profile == nil || profile.Latitude == nil || profile.Longitude == nil {
				continue
			}
			d := geo.Round2(geo.DistanceKm(*q.Lat, *q.Lng, *profile.Latitude, *profile.Longitude))
			if d > radius {
				continue
			}
			view.DistanceKm = &d
		}
		out = append(out, view)
	}
	if geoFilter {
		sort.SliceStable(out, func(i, j int) bool { return *out[i].DistanceKm < *out[j].DistanceKm })
	}
	return out, nil
}

// Quote prices a trip as distance × base price per km, rounded to cents.
func Quote(distanceKm float64, basePricePerKm decimal.Decimal) dto.FeeQuote {
	d := geo.Round2(distanceKm)
	return dto.FeeQuote{
		DistanceKm:     d,
		BasePricePerKm: basePricePerKm,
		Fee:            decimal.NewFromFloat(d).Mul(basePricePerKm).Round(2),
	}
}

func (s *TransporterService) QuoteFee(req *dto.CalculateFeeRequest) (*dto.FeeQuote, error) {
	price := s.defaultBasePrice()
	if req.TransporterID != "" {
		id, err := uuid.Parse(req.TransporterID)
		if err != nil {
			return nil, ErrTransporterNotFound
		}
		var t models.Transporter
		if err := s.db.First(&t, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrTransporterNotFound
			}
			return nil, err
		}
		price = t.BasePricePerKm
	}
	q := Quote(geo.DistanceKm(req.PickupLat, req.PickupLng, req.DeliveryLat, req.DeliveryLng), price)
	return &q, nil
}

// AssignDelivery hands a confirmed order to a verified transporter at the
// quoted fee.
func (s *TransporterService) AssignDelivery(sellerID, orderID uuid.UUID, req *dto.AssignDeliveryRequest) (*models.Delivery, error) {
	var order models.Order
	if err := s.db.Preload("Delivery").First(&order, "id = ?", orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	if order.SellerID != sellerID {
		return nil, ErrForbidden
	}
	if order.Status != models.OrderConfirmed {
		return nil, ErrOrderNotConfirmed
	}
	if order.Delivery != nil {
		return nil, ErrDeliveryExists
	}
	if order.DeliveryLat == nil || order.DeliveryLng == nil {
		return nil, ErrMissingCoordinates
	}

	var t models.Transporter
	if err := s.db.First(&t, "id = ?", req.TransporterID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransporterNotFound
		}
		return nil, err
	}
	if !t.IsVerified {
		return nil, ErrTransporterUnverified
	}

	quote := Quote(geo.DistanceKm(req.PickupLat, req.PickupLng, *order.DeliveryLat, *order.DeliveryLng), t.BasePricePerKm)
	delivery := models.Delivery{
		ID:            uuid.New(),
		OrderID:       order.ID,
		TransporterID: t.ID,
		Status:        models.DeliveryAssigned,
		DistanceKm:    quote.DistanceKm,
		Fee:           quote.Fee,
	}

	var notes []*models.Notification
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&delivery).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrDeliveryExists
			}
			return err
		}
		data := map[string]string{"orderId": order.ID.String(), "deliveryId": delivery.ID.String()}
		n1, err := s.notifications.Create(tx, t.UserID, models.NotificationOrder, "New delivery job",
			fmt.Sprintf("You have been assigned a %.1f km delivery for GHS %s", quote.DistanceKm, quote.Fee.StringFixed(2)), data)
		if err != nil {
			return err
		}
		n2, err := s.notifications.Create(tx, order.BuyerID, models.NotificationOrder, "Transporter assigned",
			"A transporter has been assigned to your order", data)
		if err != nil {
			return err
		}
		notes = []*models.Notification{n1, n2}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.notifications.Deliver(notes...)
	return &delivery, nil
}

func (s *TransporterService) ListDeliveries(userID uuid.UUID, status string, q dto.PageQuery) ([]models.Delivery, dto.Pagination, error) {
	t, err := s.byUser(userID)
	if err != nil {
		return nil, dto.Pagination{}, err
	}
	q.Normalize(20, 100)

	base := s.db.Model(&models.Delivery{}).Where("transporter_id = ?", t.ID)
	if status != "" {
		base = base.Where("status = ?", status)
	}
	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, dto.Pagination{}, err
	}

	var deliveries []models.Delivery
	err = base.Preload("Order.Items").
		Order("created_at DESC").
		Scopes(paginate(q)).
		Find(&deliveries).Error
	return deliveries, dto.NewPagination(q.Page, q.Limit, total), err
}

// UpdateDeliveryStatus advances a delivery and moves its order along:
// PICKED_UP puts the order IN_TRANSIT, DELIVERED completes it.
func (s *TransporterService) UpdateDeliveryStatus(userID, deliveryID uuid.UUID, status string) (*models.Delivery, error) {
	step, ok := deliveryTransitions[status]
	if !ok {
		return nil, ErrInvalidDeliveryStatus
	}
	t, err := s.byUser(userID)
	if err != nil {
		return nil, err
	}

	var d models.Delivery
	if err := s.db.Preload("Order").First(&d, "id = ? AND transporter_id = ?", deliveryID, t.ID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDeliveryNotFound
		}
		return nil, err
	}
	if d.Status != step.from {
		return nil, fmt.Errorf("%w: %s to %s", ErrInvalidDeliveryStatus, d.Status, status)
	}

	now := time.Now()
	updates := map[string]interface{}{"status": status, "updated_at": now}
	if status == models.DeliveryPickedUp {
		updates["picked_up_at"] = now
	} else {
		updates["delivered_at"] = now
	}

	var notes []*models.Notification
	err = s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Delivery{}).Where("id = ? AND status = ?", d.ID, step.from).Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrOrderStateChanged
		}
		if err := setStatus(tx, d.OrderID, step.orderFrom, step.orderTo); err != nil {
			return err
		}
		if d.Order == nil {
			return nil
		}
		d.Order.Status = step.orderTo
		data := orderData(d.Order)
		title, msg := "Order on the way", "Your order has been picked up and is on its way"
		if step.orderTo == models.OrderDelivered {
			title, msg = "Order delivered", "Your order has been delivered"
		}
		n1, err := s.notifications.Create(tx, d.Order.BuyerID, models.NotificationOrder, title, msg, data)
		if err != nil {
			return err
		}
		n2, err := s.notifications.Create(tx, d.Order.SellerID, models.NotificationOrder, title, "Delivery update: "+status, data)
		if err != nil {
			return err
		}
		notes = []*models.Notification{n1, n2}
		return nil
	})
	if err != nil {
		return nil, err
	}

	d.Status = status
	s.notifications.Deliver(notes...)
	return &d, nil
}
