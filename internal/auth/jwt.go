package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrWrongType    = errors.New("wrong token type")
)

// Token types carried in the claims.
const (
	TokenAccess  = "access"
	TokenRefresh = "refresh"
)

// Claims holds JWT claims including user ID and roles.
type Claims struct {
	UserID    uuid.UUID `json:"user_id"`
	Email     string    `json:"email"`
	Roles     []string  `json:"roles"`
	TokenType string    `json:"token_type"`
	jwt.RegisteredClaims
}

// JWTService handles token generation and validation.
type JWTService struct {
	secret        []byte
	accessExpire  time.Duration
	refreshExpire time.Duration
}

// NewJWTService creates a JWT service.
func NewJWTService(secret string, accessExpireHours, refreshExpireDays int) *JWTService {
	return &JWTService{
		secret:        []byte(secret),
		accessExpire:  time.Duration(accessExpireHours) * time.Hour,
		refreshExpire: time.Duration(refreshExpireDays) * 24 * time.Hour,
	}
}

// GenerateAccess creates a short-lived access token.
func (s *JWTService) GenerateAccess(userID uuid.UUID, email string, roles []string) (string, error) {
	return s.generate(userID, email, roles, TokenAccess, s.accessExpire)
}

// GenerateRefresh creates a long-lived refresh token.
func (s *JWTService) GenerateRefresh(userID uuid.UUID, email string, roles []string) (string, error) {
	return s.generate(userID, email, roles, TokenRefresh, s.refreshExpire)
}

func (s *JWTService) generate(userID uuid.UUID, email string, roles []string, tokenType string, expire time.Duration) (string, error) {
	claims := Claims{
		UserID:    userID,
		Email:     email,
		Roles:     roles,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expire)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
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
	})
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// ValidateAccess validates a token and requires the access type.
func (s *JWTService) ValidateAccess(tokenString string) (*Claims, error) {
	claims, err := s.Validate(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != TokenAccess {
		return nil, ErrWrongType
	}
	return claims, nil
}

// ValidateRefresh validates a token and requires the refresh type.
func (s *JWTService) ValidateRefresh(tokenString string) (*Claims, error) {
	claims, err := s.Validate(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != TokenRefresh {
		return nil, ErrWrongType
	}
	return claims, nil
}
