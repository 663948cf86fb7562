package services

import (
	"errors"

	"github.com/ahmetcoskunkizilkaya/agroconnect-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/agroconnect-backend/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrReviewNotFound  = errors.New("review not found")
	ErrSelfReview      = errors.New("you cannot review yourself")
	ErrAlreadyReviewed = errors.New("this order has already been reviewed")
	ErrInvalidRating   = errors.New("rating must be between 1 and 5")
	ErrNotOrderParty   = errors.New("you can only review the seller or transporter of this order")
)

type ReviewService struct {
	db         *gorm.DB
	moderation *ModerationService
}

func NewReviewService(db *gorm.DB, moderation *ModerationService) *ReviewService {
	return &ReviewService{db: db, moderation: moderation}
}

// ReviewView hides the reviewer's account details.
type ReviewView struct {
	models.Review
	Reviewer dto.UserSummary `json:"reviewer"`
}

func (s *ReviewService) Create(reviewerID uuid.UUID, req *dto.CreateReviewRequest) (*models.Review, error) {
	if req.Rating < 1 || req.Rating > 5 {
		return nil, ErrInvalidRating
	}
	if req.RevieweeID == reviewerID {
		return nil, ErrSelfReview
	}
	if err := s.moderation.Check(req.Comment); err != nil {
		return nil, err
	}

	var n int64
	if err := s.db.Model(&models.User{}).Where("id = ?", req.RevieweeID).Count(&n).Error; err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, ErrUserNotFound
	}

	if req.OrderID != nil {
		var order models.Order
		if err := s.db.First(&order, "id = ?", *req.OrderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrOrderNotFound
			}
			return nil, err
		}
		if order.BuyerID != reviewerID {
			return nil, ErrOrderNotFound
		}
		if order.SellerID != req.RevieweeID {
			if err := s.db.Table("deliveries").
				Joins("JOIN transporters ON transporters.id = deliveries.transporter_id").
				Where("deliveries.order_id = ? AND transporters.user_id = ?", order.ID, req.RevieweeID).
				Count(&n).Error; err != nil {
				return nil, err
			}
			if n == 0 {
				return nil, ErrNotOrderParty
			}
		}
		if err := s.db.Model(&models.Review{}).Where("order_id = ?", order.ID).Count(&n).Error; err != nil {
			return nil, err
		}
		if n > 0 {
			return nil, ErrAlreadyReviewed
		}
	}

	review := models.Review{
		ID:         uuid.New(),
		ReviewerID: reviewerID,
		RevieweeID: req.RevieweeID,
		OrderID:    req.OrderID,
		Rating:     req.Rating,
		Comment:    req.Comment,
	}
	if err := s.db.Create(&review).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrAlreadyReviewed
		}
		return nil, err
	}
	return &review, nil
}

// ListForUser returns approved reviews written about userID.
func (s *ReviewService) ListForUser(userID uuid.UUID, q dto.PageQuery) ([]ReviewView, dto.Pagination, error) {
	q.Normalize(20, 100)

	base := s.db.Model(&models.Review{}).Where("reviewee_id = ? AND is_approved = ?", userID, true)
	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, dto.Pagination{}, err
	}

	var reviews []models.Review
	if err := base.Preload("Reviewer.Profile").
		Order("created_at DESC").
		Scopes(paginate(q)).
		Find(&reviews).Error; err != nil {
		return nil, dto.Pagination{}, err
	}

	out := make([]ReviewView, len(reviews))
	for i, r := range reviews {
		out[i] = ReviewView{Review: r}
		if r.Reviewer != nil {
			out[i].Reviewer = publicUser(r.Reviewer)
		}
		out[i].Review.Reviewer = nil
	}
	return out, dto.NewPagination(q.Page, q.Limit, total), nil
}

// RecalculateRating refreshes a transporter's rating from approved reviews.
// Users without a transporter profile are left untouched.
func RecalculateRating(tx *gorm.DB, revieweeID uuid.UUID) error {
	return tx.Exec(`
		UPDATE transporters SET rating = COALESCE((
			SELECT ROUND(AVG(rating)::numeric, 2) FROM reviews
			WHERE reviewee_id = ? AND is_approved = true
		), 0), updated_at = NOW()
		WHERE user_id = ?`, revieweeID, revieweeID).Error
}
