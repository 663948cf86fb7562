package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ahmetcoskunkizilkaya/agroconnect-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/agroconnect-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/agroconnect-backend/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrEmailTaken          = errors.New("email already registered")
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrInvalidToken        = errors.New("invalid or expired refresh token")
	ErrUserNotFound        = errors.New("user not found")
	ErrAccountDisabled     = errors.New("account is deactivated or suspended")
	ErrGoogleNotConfigured = errors.New("google sign-in is not configured")
	ErrGoogleAccountLinked = errors.New("email is linked to a different google account")
	ErrInvalidGoogleToken  = errors.New("invalid google id token")
)

type AuthService struct {
	db       *gorm.DB
	cfg      *config.Config
	verifier IDTokenVerifier
}

func NewAuthService(db *gorm.DB, cfg *config.Config, verifier IDTokenVerifier) *AuthService {
	if verifier == nil {
		verifier = NewGoogleJWKSClient(cfg.GoogleCertsURL)
	}
	return &AuthService{db: db, cfg: cfg, verifier: verifier}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *AuthService) Register(req *dto.RegisterRequest) (*dto.AuthResponse, error) {
	email := normalizeEmail(req.Email)

	var count int64
	if err := s.db.Model(&models.User{}).Unscoped().Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := models.User{
		ID:       uuid.New(),
		Email:    email,
		Password: string(hash),
		Role:     req.Role,
		IsActive: true,
		Profile: &models.Profile{
			ID:        uuid.New(),
			FirstName: req.FirstName,
			LastName:  req.LastName,
			Phone:     req.Phone,
		},
	}

	if err := s.db.Create(&user).Error; err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	slog.Info("user registered", "user_id", user.ID.String(), "role", user.Role)
	return s.generateTokenPair(&user)
}

func (s *AuthService) Login(req *dto.LoginRequest) (*dto.AuthResponse, error) {
	var user models.User
	if err := s.db.Preload("Profile").Where("email = ?", normalizeEmail(req.Email)).First(&user).Error; err != nil {
		return nil, ErrInvalidCredentials
	}

	if user.Password == "" {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if !user.CanSignIn() {
		return nil, ErrAccountDisabled
	}

	return s.generateTokenPair(&user)
}

// GoogleSignIn verifies a Google ID token and signs the holder in, linking
// the Google account to an existing email or creating a new user.
func (s *AuthService) GoogleSignIn(ctx context.Context, req *dto.GoogleSignInRequest) (*dto.AuthResponse, error) {
	if s.cfg.GoogleClientID == "" {
		return nil, ErrGoogleNotConfigured
	}

	claims, err := s.verifier.VerifyIDToken(ctx, req.IDToken, s.cfg.GoogleClientID)
	if err != nil {
		slog.Warn("google token verification failed", "error", err)
		return nil, ErrInvalidGoogleToken
	}
	email := normalizeEmail(claims.Email)
	if email == "" {
		return nil, ErrInvalidGoogleToken
	}
	googleID := claims.Subject

	var user models.User
	err = s.db.Preload("Profile").Where("google_id = ?", googleID).First(&user).Error
	if err == nil {
		if !user.CanSignIn() {
			return nil, ErrAccountDisabled
		}
		return s.generateTokenPair(&user)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	err = s.db.Preload("Profile").Where("email = ?", email).First(&user).Error
	switch {
	case err == nil:
		if user.GoogleID != nil && *user.GoogleID != googleID {
			return nil, ErrGoogleAccountLinked
		}
		if !user.CanSignIn() {
			return nil, ErrAccountDisabled
		}
		updates := map[string]interface{}{"google_id": googleID}
		if claims.Verified() {
			updates["is_verified"] = true
			user.IsVerified = true
		}
		if err := s.db.Model(&user).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("failed to link google account: %w", err)
		}
		user.GoogleID = &googleID

	case errors.Is(err, gorm.ErrRecordNotFound):
		role := req.Role
		if role == "" {
			role = models.RoleBuyer
		}
		user = models.User{
			ID:         uuid.New(),
			Email:      email,
			Role:       role,
			GoogleID:   &googleID,
			IsActive:   true,
			IsVerified: claims.Verified(),
			Profile: &models.Profile{
				ID:        uuid.New(),
				FirstName: claims.GivenName,
				LastName:  claims.FamilyName,
				Avatar:    claims.Picture,
			},
		}
		if err := s.db.Create(&user).Error; err != nil {
			return nil, fmt.Errorf("failed to create google user: %w", err)
		}
		slog.Info("user registered", "user_id", user.ID.String(), "role", role, "provider", "google")

	default:
		return nil, err
	}

	return s.generateTokenPair(&user)
}

// Refresh rotates a refresh token. Only one concurrent caller can win the
// revoke, so a replayed token never yields a second pair.
func (s *AuthService) Refresh(req *dto.RefreshRequest) (*dto.AuthResponse, error) {
	tokenHash := hashToken(req.RefreshToken)

	var stored models.RefreshToken
	if err := s.db.Where("token_hash = ? AND revoked = ?", tokenHash, false).First(&stored).Error; err != nil {
		return nil, ErrInvalidToken
	}

	res := s.db.Model(&models.RefreshToken{}).
		Where("id = ? AND revoked = ?", stored.ID, false).
		Update("revoked", true)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 || time.Now().After(stored.ExpiresAt) {
		return nil, ErrInvalidToken
	}

	var user models.User
	if err := s.db.Preload("Profile").First(&user, "id = ?", stored.UserID).Error; err != nil {
		return nil, ErrInvalidToken
	}
	if !user.CanSignIn() {
		return nil, ErrAccountDisabled
	}

	return s.generateTokenPair(&user)
}

func (s *AuthService) Logout(req *dto.LogoutRequest) error {
	return s.db.Model(&models.RefreshToken{}).
		Where("token_hash = ?", hashToken(req.RefreshToken)).
		Update("revoked", true).Error
}

// RevokeAll invalidates every refresh token of a user.
func (s *AuthService) RevokeAll(userID uuid.UUID) error {
	return s.db.Model(&models.RefreshToken{}).
		Where("user_id = ? AND revoked = ?", userID, false).
		Update("revoked", true).Error
}

func (s *AuthService) Me(userID uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.Preload("Profile").First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// ParseAccessToken validates an access token outside the HTTP middleware,
// for the WebSocket upgrade.
func (s *AuthService) ParseAccessToken(raw string) (uuid.UUID, error) {
	token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		return []byte(s.cfg.JWTSecret), nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithExpirationRequired())
	if err != nil {
		return uuid.Nil, err
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return uuid.Nil, errors.New("invalid claims")
	}
	sub, _ := claims["sub"].(string)
	return uuid.Parse(sub)
}

// EnsureAdmin creates or promotes the bootstrap admin account.
func (s *AuthService) EnsureAdmin(email, password string) (*models.User, bool, error) {
	email = normalizeEmail(email)
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, false, err
	}

	var user models.User
	err = s.db.Where("email = ?", email).First(&user).Error
	if err == nil {
		err = s.db.Model(&user).Updates(map[string]interface{}{
			"role":         models.RoleAdmin,
			"password":     string(hash),
			"is_active":    true,
			"is_suspended": false,
			"is_verified":  true,
		}).Error
		return &user, false, err
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	user = models.User{
		ID:         uuid.New(),
		Email:      email,
		Password:   string(hash),
		Role:       models.RoleAdmin,
		IsActive:   true,
		IsVerified: true,
		Profile:    &models.Profile{ID: uuid.New(), FirstName: "Admin"},
	}
	if err := s.db.Create(&user).Error; err != nil {
		return nil, false, err
	}
	return &user, true, nil
}

func (s *AuthService) generateTokenPair(user *models.User) (*dto.AuthResponse, error) {
	accessToken, err := s.generateAccessToken(user)
	if err != nil {
		return nil, err
	}

	refreshToken, err := s.generateRefreshToken(user)
	if err != nil {
		return nil, err
	}

	resp := &dto.AuthResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User: dto.UserResponse{
			ID:         user.ID,
			Email:      user.Email,
			Role:       user.Role,
			IsVerified: user.IsVerified,
		},
	}
	if user.Profile != nil {
		resp.User.FirstName = user.Profile.FirstName
		resp.User.LastName = user.Profile.LastName
	}
	return resp, nil
}

func (s *AuthService) generateAccessToken(user *models.User) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   user.ID.String(),
		"email": user.Email,
		"role":  user.Role,
		"iat":   now.Unix(),
		"exp":   now.Add(s.cfg.JWTAccessExpiry).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.JWTSecret))
}

func (s *AuthService) generateRefreshToken(user *models.User) (string, error) {
	rawBytes := make([]byte, 32)
	if _, err := rand.Read(rawBytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	rawToken := base64.URLEncoding.EncodeToString(rawBytes)

	record := models.RefreshToken{
		ID:        uuid.New(),
		UserID:    user.ID,
		TokenHash: hashToken(rawToken),
		ExpiresAt: time.Now().Add(s.cfg.JWTRefreshExpiry),
	}

	if err := s.db.Create(&record).Error; err != nil {
		return "", fmt.Errorf("failed to store refresh token: %w", err)
	}

	return rawToken, nil
}

func hashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return fmt.Sprintf("%x", h)
}
