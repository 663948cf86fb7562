package services

import (
	"errors"

	"github.com/ahmetcoskunkizilkaya/agroconnect-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/agroconnect-backend/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UserService struct {
	db *gorm.DB
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db}
}

func publicUser(u *models.User) dto.UserSummary {
	out := dto.UserSummary{ID: u.ID, Role: u.Role, IsVerified: u.IsVerified, JoinedAt: u.CreatedAt}
	if p := u.Profile; p != nil {
		out.FirstName, out.LastName = p.FirstName, p.LastName
		out.Avatar, out.City, out.Region, out.Bio = p.Avatar, p.City, p.Region, p.Bio
	}
	return out
}

func (s *UserService) GetProfile(userID uuid.UUID) (*models.Profile, error) {
	var p models.Profile
	err := s.db.Where("user_id = ?", userID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &models.Profile{UserID: userID}, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// UpdateProfile creates the profile on first use and applies only the
// fields present in req.
func (s *UserService) UpdateProfile(userID uuid.UUID, req *dto.UpdateProfileRequest) (*models.Profile, error) {
	updates := map[string]interface{}{}
	set := func(col string, v *string) {
		if v != nil {
			updates[col] = *v
		}
	}
	set("first_name", req.FirstName)
	set("last_name", req.LastName)
	set("phone", req.Phone)
	set("avatar", req.Avatar)
	set("address", req.Address)
	set("city", req.City)
	set("region", req.Region)
	set("bio", req.Bio)
	if req.Latitude != nil {
		updates["latitude"] = *req.Latitude
	}
	if req.Longitude != nil {
		updates["longitude"] = *req.Longitude
	}

	err := s.db.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.Profile{ID: uuid.New(), UserID: userID}).Error
	if err != nil {
		return nil, err
	}
	if len(updates) > 0 {
		if err := s.db.Model(&models.Profile{}).Where("user_id = ?", userID).Updates(updates).Error; err != nil {
			return nil, err
		}
	}
	return s.GetProfile(userID)
}

// GetPublic returns an active user's public profile with their approved
// review average.
func (s *UserService) GetPublic(id uuid.UUID) (*dto.PublicUser, error) {
	var u models.User
	err := s.db.Preload("Profile").
		Where("is_active = ? AND is_suspended = ?", true, false).
		First(&u, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	var agg struct {
		Avg   float64
		Count int64
	}
	if err := s.db.Model(&models.Review{}).
		Select("COALESCE(AVG(rating), 0) AS avg, COUNT(*) AS count").
		Where("reviewee_id = ? AND is_approved = ?", id, true).
		Scan(&agg).Error; err != nil {
		return nil, err
	}

	return &dto.PublicUser{
		User:          publicUser(&u),
		AverageRating: roundRating(agg.Avg),
		TotalReviews:  agg.Count,
	}, nil
}

func roundRating(v float64) float64 {
	return float64(int64(v*10+0.5)) / 10
}
