package services

import (
	"encoding/json"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/ahmetcoskunkizilkaya/agroconnect-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/agroconnect-backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrSettingNotFound = errors.New("setting not found")

const maintenanceCacheTTL = 30 * time.Second

// SettingsService serves marketplace settings. Maintenance mode is read on
// every request, so its value is cached briefly.
type SettingsService struct {
	db *gorm.DB

	mu          sync.Mutex
	maintenance bool
	checkedAt   time.Time
}

func NewSettingsService(db *gorm.DB) *SettingsService {
	return &SettingsService{db: db}
}

func decodeSetting(st models.Setting) interface{} {
	switch st.Type {
	case "bool":
		v, _ := strconv.ParseBool(st.Value)
		return v
	case "int":
		v, _ := strconv.Atoi(st.Value)
		return v
	case "float":
		v, _ := strconv.ParseFloat(st.Value, 64)
		return v
	case "json":
		var v interface{}
		if err := json.Unmarshal([]byte(st.Value), &v); err != nil {
			return st.Value
		}
		return v
	default:
		return st.Value
	}
}

// Public returns every public setting decoded by its type.
func (s *SettingsService) Public() (map[string]interface{}, error) {
	var rows []models.Setting
	if err := s.db.Where("is_public = ?", true).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]interface{}, len(rows))
	for _, st := range rows {
		out[st.Key] = decodeSetting(st)
	}
	return out, nil
}

func (s *SettingsService) All() ([]models.Setting, error) {
	var rows []models.Setting
	err := s.db.Order("key").Find(&rows).Error
	return rows, err
}

func (s *SettingsService) Get(key string) (*models.Setting, error) {
	var st models.Setting
	if err := s.db.Where("key = ?", key).First(&st).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSettingNotFound
		}
		return nil, err
	}
	return &st, nil
}

func (s *SettingsService) Set(key string, req *dto.SetSettingRequest) (*models.Setting, error) {
	st := models.Setting{Key: key, Value: req.Value, Type: req.Type, IsPublic: true}
	if st.Type == "" {
		st.Type = "string"
	}
	if req.IsPublic != nil {
		st.IsPublic = *req.IsPublic
	}

	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "type", "is_public", "updated_at"}),
	}).Create(&st).Error
	if err != nil {
		return nil, err
	}

	if key == models.SettingMaintenanceMode {
		s.invalidate()
	}
	return &st, nil
}

func (s *SettingsService) Delete(key string) error {
	res := s.db.Where("key = ?", key).Delete(&models.Setting{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrSettingNotFound
	}
	if key == models.SettingMaintenanceMode {
		s.invalidate()
	}
	return nil
}

// SeedDefaults inserts the default settings without touching existing rows.
func (s *SettingsService) SeedDefaults(basePricePerKm float64) error {
	defaults := []models.Setting{
		{Key: models.SettingMaintenanceMode, Value: "false", Type: "bool", IsPublic: true},
		{Key: models.SettingDefaultBasePricePerKm, Value: strconv.FormatFloat(basePricePerKm, 'f', 2, 64), Type: "float", IsPublic: true},
		{Key: models.SettingSupportEmail, Value: "support@agroconnect.local", Type: "string", IsPublic: true},
		{Key: models.SettingAnnouncement, Value: "", Type: "string", IsPublic: true},
	}
	return s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&defaults).Error
}

// MaintenanceMode reports whether the marketplace is closed for maintenance.
// Lookup failures leave the marketplace open.
func (s *SettingsService) MaintenanceMode() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if time.Since(s.checkedAt) < maintenanceCacheTTL {
		return s.maintenance
	}

	var st models.Setting
	on := false
	if err := s.db.Where("key = ?", models.SettingMaintenanceMode).First(&st).Error; err == nil {
		on, _ = strconv.ParseBool(st.Value)
	}
	s.maintenance = on
	s.checkedAt = time.Now()
	return on
}

// Float returns a numeric setting, or fallback when missing or malformed.
func (s *SettingsService) Float(key string, fallback float64) float64 {
	var st models.Setting
	if err := s.db.Where("key = ?", key).First(&st).Error; err != nil {
		return fallback
	}
	v, err := strconv.ParseFloat(st.Value, 64)
	if err != nil {
		return fallback
	}
	return v
}

func (s *SettingsService) invalidate() {
	s.mu.Lock()
	s.checkedAt = time.Time{}
	s.mu.Unlock()
}
