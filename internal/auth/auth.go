// Package auth owns the credential formats the HTTP layer trusts: bcrypt
// password hashes, signed JWT access tokens carrying (user, role) claims,
// and opaque rotating refresh tokens. Refresh tokens are random secrets the
// service never stores; the engine's account store keeps only their SHA-256
// hash, and redemption issues a replacement, invalidating the one used.
package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/unibike/campus-bikeshare/internal/models"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
)

const (
	defaultAccessTTL  = 24 * time.Hour
	defaultRefreshTTL = 30 * 24 * time.Hour
	refreshSecretLen  = 32
)

// Service issues and validates tokens. Construct with NewService.
type Service struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewService builds a Service from the environment: JWT_SECRET,
// JWT_EXPIRY and REFRESH_EXPIRY (both Go durations). Unset values fall back
// to defaults.
func NewService() (*Service, error) {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		secret = "default-secret-key-change-in-production"
	}
	return &Service{
		secret:     []byte(secret),
		accessTTL:  durationEnv("JWT_EXPIRY", defaultAccessTTL),
		refreshTTL: durationEnv("REFRESH_EXPIRY", defaultRefreshTTL),
	}, nil
}

func durationEnv(key string, fallback time.Duration) time.Duration {
	if raw := os.Getenv(key); raw != "" {
		if parsed, err := time.ParseDuration(raw); err == nil {
			return parsed
		}
	}
	return fallback
}

// HashPassword returns the bcrypt hash stored in place of the password.
func (s *Service) HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(bytes), nil
}

// CheckPassword reports whether the password matches the stored hash.
func (s *Service) CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// GenerateToken signs an access token for the user. The engine trusts the
// role claim carried here for admin gating.
func (s *Service) GenerateToken(user *models.User) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"user_id":  user.ID,
		"username": user.Username,
		"role":     string(user.Role),
		"exp":      now.Add(s.accessTTL).Unix(),
		"iat":      now.Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// ValidateToken parses and verifies an access token, accepting an optional
// "Bearer " prefix, and returns its claims.
func (s *Service) ValidateToken(tokenString string) (*models.Claims, error) {
	tokenString = strings.TrimPrefix(tokenString, "Bearer ")

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	userID, okID := mapClaims["user_id"].(string)
	username, okName := mapClaims["username"].(string)
	role, okRole := mapClaims["role"].(string)
	exp, okExp := mapClaims["exp"].(float64)
	if !okID || !okName || !okRole || !okExp {
		return nil, ErrInvalidToken
	}

	return &models.Claims{
		UserID:   userID,
		Username: username,
		Role:     models.Role(role),
		Exp:      int64(exp),
	}, nil
}

// NewRefreshToken mints an opaque refresh token. The returned token goes to
// the client; only the hash and expiry are handed to the account store.
func (s *Service) NewRefreshToken(now time.Time) (token, hash string, expiresAt time.Time, err error) {
	secret := make([]byte, refreshSecretLen)
	if _, err = rand.Read(secret); err != nil {
		return "", "", time.Time{}, fmt.Errorf("failed to generate refresh token: %w", err)
	}
	token = base64.RawURLEncoding.EncodeToString(secret)
	return token, s.HashRefreshToken(token), now.Add(s.refreshTTL), nil
}

// HashRefreshToken maps a refresh token to its stored form.
func (s *Service) HashRefreshToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// ValidatePassword rejects passwords below the minimum length.
func (s *Service) ValidatePassword(password string) error {
	if len(password) < 8 {
		return errors.New("password must be at least 8 characters long")
	}
	return nil
}

// ValidateEmail applies a cheap shape check; real verification is out of
// band.
func (s *Service) ValidateEmail(email string) error {
	if !strings.Contains(email, "@") || !strings.Contains(email, ".") {
		return errors.New("invalid email format")
	}
	return nil
}

// ValidateUsername bounds username length.
func (s *Service) ValidateUsername(username string) error {
	if len(username) < 3 {
		return errors.New("username must be at least 3 characters long")
	}
	if len(username) > 50 {
		return errors.New("username must be less than 50 characters")
	}
	return nil
}
