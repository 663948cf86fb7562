package services

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ahmetcoskunkizilkaya/agroconnect-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/agroconnect-backend/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrInvalidPrice    = errors.New("price must be greater than zero")
	ErrInvalidFilter   = errors.New("invalid price filter")
)

type ProductService struct {
	db         *gorm.DB
	moderation *ModerationService
}

func NewProductService(db *gorm.DB, moderation *ModerationService) *ProductService {
	return &ProductService{db: db, moderation: moderation}
}

// marketplace restricts a query to products buyers can see.
func marketplace(db *gorm.DB) *gorm.DB {
	return db.Where("products.is_approved = ? AND products.is_available = ?", true, true)
}

func (s *ProductService) List(f dto.ProductFilter) ([]models.Product, dto.Pagination, error) {
	f.Normalize(20, 100)

	q := s.db.Model(&models.Product{}).Scopes(marketplace)
	if f.Category != "" {
		q = q.Where("category = ?", strings.ToUpper(f.Category))
	}
	if search := strings.TrimSpace(f.Search); search != "" {
		like := "%" + search + "%"
		q = q.Where("title ILIKE ? OR description ILIKE ?", like, like)
	}
	if f.MinPrice != "" {
		lo, err := decimal.NewFromString(f.MinPrice)
		if err != nil {
			return nil, dto.Pagination{}, ErrInvalidFilter
		}
		q = q.Where("price >= ?", lo)
	}
	if f.MaxPrice != "" {
		hi, err := decimal.NewFromString(f.MaxPrice)
		if err != nil {
			return nil, dto.Pagination{}, ErrInvalidFilter
		}
		q = q.Where("price <= ?", hi)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, dto.Pagination{}, err
	}

	var products []models.Product
	err := q.Preload("Images", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		Preload("Seller.Profile").
		Order("created_at DESC").
		Scopes(paginate(f.PageQuery)).
		Find(&products).Error
	if err != nil {
		return nil, dto.Pagination{}, err
	}
	return products, dto.NewPagination(f.Page, f.Limit, total), nil
}

// Get returns a product and counts the view. Unapproved or unavailable
// products are only visible to their seller and to admins.
func (s *ProductService) Get(id uuid.UUID, viewerID uuid.UUID, viewerRole string) (*models.Product, error) {
	var p models.Product
	err := s.db.Preload("Images", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		Preload("Seller.Profile").
		First(&p, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}

	owner := p.SellerID == viewerID
	if !(p.IsApproved && p.IsAvailable) && !owner && viewerRole != models.RoleAdmin {
		return nil, ErrProductNotFound
	}

	if !owner {
		if err := s.db.Model(&models.Product{}).Where("id = ?", p.ID).UpdateColumn("views", gorm.Expr("views + 1")).Error; err != nil {
			slog.Warn("product view count failed", "product_id", p.ID.String(), "error", err)
		} else {
			p.Views++
		}
	}
	return &p, nil
}

func (s *ProductService) Create(sellerID uuid.UUID, req *dto.CreateProductRequest) (*models.Product, error) {
	if !req.Price.IsPositive() {
		return nil, ErrInvalidPrice
	}
	if err := s.moderation.Check(req.Title + "\n" + req.Description); err != nil {
		return nil, err
	}

	p := models.Product{
		ID:          uuid.New(),
		SellerID:    sellerID,
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		Category:    req.Category,
		Price:       req.Price.Round(2),
		Quantity:    req.Quantity,
		Unit:        req.Unit,
		IsAvailable: req.Quantity > 0,
		Images:      imagesFrom(req.ImageURLs),
	}
	if p.Unit == "" {
		p.Unit = "kg"
	}

	if err := s.db.Create(&p).Error; err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	return &p, nil
}

func imagesFrom(urls []string) []models.ProductImage {
	images := make([]models.ProductImage, 0, len(urls))
	for i, u := range urls {
		images = append(images, models.ProductImage{ID: uuid.New(), URL: u, Position: i})
	}
	return images
}

func (s *ProductService) Update(sellerID, id uuid.UUID, req *dto.UpdateProductRequest) (*models.Product, error) {
	var p models.Product
	if err := s.db.First(&p, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	if p.SellerID != sellerID {
		return nil, ErrForbidden
	}

	updates := map[string]interface{}{}
	text := ""
	if req.Title != nil {
		updates["title"] = strings.TrimSpace(*req.Title)
		text += *req.Title + "\n"
	}
	if req.Description != nil {
		updates["description"] = *req.Description
		text += *req.Description
	}
	if err := s.moderation.Check(text); err != nil {
		return nil, err
	}
	if req.Category != nil {
		updates["category"] = *req.Category
	}
	if req.Price != nil {
		if !req.Price.IsPositive() {
			return nil, ErrInvalidPrice
		}
		updates["price"] = req.Price.Round(2)
	}
	if req.Unit != nil {
		updates["unit"] = *req.Unit
	}
	if req.Quantity != nil {
		updates["quantity"] = *req.Quantity
		if *req.Quantity == 0 {
			updates["is_available"] = false
		}
	}
	if req.IsAvailable != nil {
		available := *req.IsAvailable
		if req.Quantity != nil && *req.Quantity == 0 {
			available = false
		}
		updates["is_available"] = available
	}
	// edited listings go back through approval
	if req.Title != nil || req.Description != nil || req.Price != nil || req.Category != nil {
		updates["is_approved"] = false
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if len(updates) > 0 {
			if err := tx.Model(&p).Updates(updates).Error; err != nil {
				return err
			}
		}
		if req.ImageURLs != nil {
			if err := tx.Where("product_id = ?", p.ID).Delete(&models.ProductImage{}).Error; err != nil {
				return err
			}
			images := imagesFrom(req.ImageURLs)
			for i := range images {
				images[i].ProductID = p.ID
			}
			if len(images) > 0 {
				if err := tx.Create(&images).Error; err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.db.Preload("Images", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).First(&p, "id = ?", p.ID).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// Delete soft-deletes the listing and takes it off the marketplace.
func (s *ProductService) Delete(sellerID, id uuid.UUID, isAdmin bool) error {
	var p models.Product
	if err := s.db.First(&p, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrProductNotFound
		}
		return err
	}
	if p.SellerID != sellerID && !isAdmin {
		return ErrForbidden
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&p).Update("is_available", false).Error; err != nil {
			return err
		}
		return tx.Delete(&p).Error
	})
}

func (s *ProductService) ListMine(sellerID uuid.UUID, q dto.PageQuery) ([]models.Product, dto.Pagination, error) {
	q.Normalize(20, 100)

	var total int64
	base := s.db.Model(&models.Product{}).Where("seller_id = ?", sellerID)
	if err := base.Count(&total).Error; err != nil {
		return nil, dto.Pagination{}, err
	}

	var products []models.Product
	err := base.Preload("Images", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		Order("created_at DESC").
		Scopes(paginate(q)).
		Find(&products).Error
	return products, dto.NewPagination(q.Page, q.Limit, total), err
}
