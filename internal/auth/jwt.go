package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/aura-live/showcase/internal/models"
)

var (
	ErrInvalidToken = errors.New("invalid token")
)

// Claims holds JWT claims including user ID and role.
type Claims struct {
	UserID uuid.UUID   `json:"user_id"`
	Email  string      `json:"email"`
	Role   models.Role `json:"role"`
	jwt.RegisteredClaims
}

// JWTService handles token generation and validation.
type JWTService struct {
	secret []byte
	expiry time.Duration
	now    func() time.Time
}

// NewJWTService creates a JWT service.
func NewJWTService(secret string, expireHours int) *JWTService {
	if expireHours <= 0 {
		expireHours = 24
	}
	return &JWTService{
		secret: []byte(secret),
		expiry: time.Duration(expireHours) * time.Hour,
		now:    time.Now,
	}
}

// Generate creates a new JWT for the user.
func (s *JWTService) Generate(u *models.User) (string, error) {
	now := s.now()
	claims := Claims{
		UserID: u.ID,
		Email:  u.Email,
		Role:   u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.New().String(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Validate parses and validates a JWT, returning claims or error.
func (s *JWTService) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Role resolves a websocket token to the connection's role.
func (s *JWTService) Role(tokenString string) (models.Role, error) {
	claims, err := s.Validate(tokenString)
	if err != nil {
		return "", err
	}
	if claims.Role != models.RoleAdmin {
		return models.RoleViewer, nil
	}
	return models.RoleAdmin, nil
}
