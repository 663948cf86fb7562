package services

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ahmetcoskunkizilkaya/agroconnect-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/agroconnect-backend/internal/models"
	"github.com/google/uuid"
	"golang.org/x/crypto/chacha20poly1305"
	"gorm.io/gorm"
)

var ErrAPIKeyNotFound = errors.New("api key not found")

const sealedPrefix = "v1:"

// APIKeyService stores third-party credentials sealed with
// XChaCha20-Poly1305. Rows written before sealing was enabled are read
// back as plaintext.
type APIKeyService struct {
	db  *gorm.DB
	key [32]byte
}

func NewAPIKeyService(db *gorm.DB, secret string) *APIKeyService {
	return &APIKeyService{db: db, key: sha256.Sum256([]byte(secret))}
}

func (s *APIKeyService) seal(plain string) (string, error) {
	aead, err := chacha20poly1305.NewX(s.key[:])
	if err != nil {
		return "", err
	}
	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plain)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	sealed := aead.Seal(nonce, nonce, []byte(plain), nil)
	return sealedPrefix + base64.StdEncoding.EncodeToString(sealed), nil
}

func (s *APIKeyService) open(stored string) (string, error) {
	if !strings.HasPrefix(stored, sealedPrefix) {
		return stored, nil
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(stored, sealedPrefix))
	if err != nil {
		return "", fmt.Errorf("decode sealed value: %w", err)
	}
	aead, err := chacha20poly1305.NewX(s.key[:])
	if err != nil {
		return "", err
	}
	if len(raw) < aead.NonceSize() {
		return "", errors.New("sealed value too short")
	}
	plain, err := aead.Open(nil, raw[:aead.NonceSize()], raw[aead.NonceSize():], nil)
	if err != nil {
		return "", fmt.Errorf("open sealed value: %w", err)
	}
	return string(plain), nil
}

func mask(v string) string {
	if len(v) <= 10 {
		return strings.Repeat("*", len(v))
	}
	return v[:10] + "..."
}

func (s *APIKeyService) view(k models.ApiKey) dto.APIKeyView {
	plain, err := s.open(k.Value)
	masked := mask(plain)
	if err != nil {
		masked = "(unreadable)"
	}
	return dto.APIKeyView{
		ID:          k.ID.String(),
		Name:        k.Name,
		Service:     k.Service,
		KeyType:     k.KeyType,
		MaskedValue: masked,
		Description: k.Description,
		IsActive:    k.IsActive,
		CreatedAt:   k.CreatedAt.Format(time.RFC3339),
	}
}

func (s *APIKeyService) List() ([]dto.APIKeyView, error) {
	var keys []models.ApiKey
	if err := s.db.Order("service, key_type, created_at DESC").Find(&keys).Error; err != nil {
		return nil, err
	}
	out := make([]dto.APIKeyView, len(keys))
	for i, k := range keys {
		out[i] = s.view(k)
	}
	return out, nil
}

func (s *APIKeyService) Create(adminID *uuid.UUID, req *dto.CreateAPIKeyRequest) (*dto.APIKeyView, error) {
	sealed, err := s.seal(req.Value)
	if err != nil {
		return nil, err
	}
	k := models.ApiKey{
		ID:          uuid.New(),
		Name:        req.Name,
		Service:     strings.ToLower(req.Service),
		KeyType:     req.KeyType,
		Value:       sealed,
		Description: req.Description,
		IsActive:    true,
		CreatedBy:   adminID,
	}
	if err := s.db.Create(&k).Error; err != nil {
		return nil, err
	}
	v := s.view(k)
	return &v, nil
}

func (s *APIKeyService) Update(id uuid.UUID, req *dto.UpdateAPIKeyRequest) (*dto.APIKeyView, error) {
	var k models.ApiKey
	if err := s.db.First(&k, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAPIKeyNotFound
		}
		return nil, err
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	if req.Value != nil && *req.Value != "" {
		sealed, err := s.seal(*req.Value)
		if err != nil {
			return nil, err
		}
		updates["value"] = sealed
	}
	if len(updates) > 0 {
		if err := s.db.Model(&k).Updates(updates).Error; err != nil {
			return nil, err
		}
	}
	v := s.view(k)
	return &v, nil
}

func (s *APIKeyService) Delete(id uuid.UUID) error {
	res := s.db.Delete(&models.ApiKey{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrAPIKeyNotFound
	}
	return nil
}

// ActiveValue returns the newest active credential for service and keyType,
// or "" when none is configured.
func (s *APIKeyService) ActiveValue(service, keyType string) (string, error) {
	var k models.ApiKey
	err := s.db.Where("service = ? AND key_type = ? AND is_active = ?", service, keyType, true).
		Order("created_at DESC").First(&k).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return s.open(k.Value)
}
