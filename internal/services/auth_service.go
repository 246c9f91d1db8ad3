package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sjperalta/coachpay-api/internal/config"
)

// Operator roles
const (
	RoleAdmin   = "admin"
	RoleFinance = "finance"
)

// OperatorClaims mirrors the claims the API middleware reads
type OperatorClaims struct {
	UserID uint   `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// AuthService issues operator tokens. Operators sign in through the coaching platform;
// this issuer exists for service accounts and the ops CLI.
type AuthService struct {
	cfg *config.Config
	now func() time.Time
}

// NewAuthService creates a new auth service
func NewAuthService(cfg *config.Config) *AuthService {
	return &AuthService{cfg: cfg, now: time.Now}
}

// IssueToken signs an HS256 token for an operator
func (s *AuthService) IssueToken(userID uint, email, role string, ttl time.Duration) (string, error) {
	if role != RoleAdmin && role != RoleFinance {
		return "", fmt.Errorf("%w: role must be %s or %s", ErrValidation, RoleAdmin, RoleFinance)
	}
	if userID == 0 {
		return "", errors.New("user id is required")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	now := s.now()
	claims := OperatorClaims{
		UserID: userID,
		Email:  email,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Subject:   fmt.Sprintf("%d", userID),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.JWTSecret))
}
