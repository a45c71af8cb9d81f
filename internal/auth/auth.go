// Package auth issues and checks operator tokens and password hashes.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/ukydev/equipment-checklist/internal/models"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidToken       = errors.New("invalid token")
	ErrExpiredToken       = errors.New("token expired")
	ErrRevokedToken       = errors.New("token revoked")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrUserInactive       = errors.New("user is inactive")
)

const (
	defaultSecret = "default-secret-key-change-in-production"
	defaultExpiry = 24 * time.Hour
)

type tokenClaims struct {
	UserID   string      `json:"user_id"`
	Username string      `json:"username"`
	Role     models.Role `json:"role"`
	jwt.RegisteredClaims
}

// Service signs and validates tokens. Tokens revoked on sign-out are rejected
// until they expire.
type Service struct {
	jwtSecret []byte
	tokenExp  time.Duration
	now       func() time.Time

	mu      sync.Mutex
	revoked map[string]time.Time // jti -> expiry
}

// NewService creates an authentication service. An empty secret or a
// non-positive expiry falls back to the defaults.
func NewService(secret string, expiry time.Duration) *Service {
	if secret == "" {
		secret = defaultSecret
	}
	if expiry <= 0 {
		expiry = defaultExpiry
	}
	return &Service{
		jwtSecret: []byte(secret),
		tokenExp:  expiry,
		now:       time.Now,
		revoked:   make(map[string]time.Time),
	}
}

// UsesDefaultSecret reports whether the service runs with the built-in secret.
func (s *Service) UsesDefaultSecret() bool {
	return string(s.jwtSecret) == defaultSecret
}

// HashPassword hashes a password using bcrypt
func (s *Service) HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(bytes), nil
}

// CheckPassword checks if a password matches a hash
func (s *Service) CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// VerifyCredentials checks a sign-in attempt against the stored account. A nil
// user means the username is unknown.
func (s *Service) VerifyCredentials(user *models.User, password string) error {
	switch {
	case user == nil:
		return ErrUserNotFound
	case !user.IsActive:
		return ErrUserInactive
	case !s.CheckPassword(password, user.PasswordHash):
		return ErrInvalidCredentials
	}
	return nil
}

// GenerateToken signs an HS256 token for user.
func (s *Service) GenerateToken(user *models.User) (string, error) {
	now := s.now()
	claims := tokenClaims{
		UserID:   user.ID.Hex(),
		Username: user.Username,
		Role:     user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   user.ID.Hex(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenExp)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

// ValidateToken validates a JWT token and returns the claims
func (s *Service) ValidateToken(tokenString string) (*models.Claims, error) {
	tokenString = strings.TrimPrefix(tokenString, "Bearer ")

	var claims tokenClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(*jwt.Token) (interface{}, error) {
		return s.jwtSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}
	if !token.Valid || claims.UserID == "" || claims.ExpiresAt == nil {
		return nil, ErrInvalidToken
	}
	if s.isRevoked(claims.ID) {
		return nil, ErrRevokedToken
	}

	return &models.Claims{
		TokenID:  claims.ID,
		UserID:   claims.UserID,
		Username: claims.Username,
		Role:     claims.Role,
		Exp:      claims.ExpiresAt.Unix(),
	}, nil
}

// Revoke rejects the token behind claims until it would have expired anyway.
func (s *Service) Revoke(claims *models.Claims) {
	if claims == nil || claims.TokenID == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruneLocked()
	s.revoked[claims.TokenID] = time.Unix(claims.Exp, 0)
}

func (s *Service) isRevoked(id string) bool {
	if id == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.revoked[id]
	return ok
}

func (s *Service) pruneLocked() {
	now := s.now()
	for id, exp := range s.revoked {
		if now.After(exp) {
			delete(s.revoked, id)
		}
	}
}

// ExtractTokenFromHeader extracts token from Authorization header
func (s *Service) ExtractTokenFromHeader(authHeader string) (string, error) {
	if authHeader == "" {
		return "", ErrInvalidToken
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", ErrInvalidToken
	}

	return parts[1], nil
}

// ValidatePassword validates password strength
func (s *Service) ValidatePassword(password string) error {
	if len(password) < 8 {
		return errors.New("password must be at least 8 characters long")
	}
	return nil
}

// ValidateEmail validates email format
func (s *Service) ValidateEmail(email string) error {
	if !strings.Contains(email, "@") || !strings.Contains(email, ".") {
		return errors.New("invalid email format")
	}
	return nil
}

// ValidateUsername validates username format
func (s *Service) ValidateUsername(username string) error {
	if len(username) < 3 {
		return errors.New("username must be at least 3 characters long")
	}
	if len(username) > 50 {
		return errors.New("username must be less than 50 characters")
	}
	return nil
}

// ValidateRegistration checks every field of a sign-up request and reports
// the first problem.
func (s *Service) ValidateRegistration(req *models.RegisterRequest) error {
	if err := s.ValidateUsername(req.Username); err != nil {
		return err
	}
	if err := s.ValidateEmail(req.Email); err != nil {
		return err
	}
	if err := s.ValidatePassword(req.Password); err != nil {
		return err
	}
	if req.Role != "" && !models.IsValidRole(req.Role) {
		return fmt.Errorf("invalid role %q", req.Role)
	}
	return nil
}
