package services

import (
	"fmt"
	"linkup/internal/core/domain"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const tokenIssuer = "linkup-backend"

// TokenService issues and checks the HS256 tokens carried by the auth cookie.
type TokenService struct {
	secretKey []byte
	issuer    string
	ttl       time.Duration
}

func NewTokenService(secret string, ttl time.Duration) *TokenService {
	return &TokenService{
		secretKey: []byte(secret),
		issuer:    tokenIssuer,
		ttl:       ttl,
	}
}

func (s *TokenService) TTL() time.Duration { return s.ttl }

func (s *TokenService) GenerateToken(userID string) (string, error) {
	if userID == "" {
		return "", domain.ErrInvalidUserID
	}
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		Issuer:    s.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secretKey)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken parses the token and returns its subject.
func (s *TokenService) ValidateToken(tokenStr string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (any, error) {
		return s.secretKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return "", fmt.Errorf("%w: %v", domain.ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: subject not found in token", domain.ErrInvalidToken)
	}
	return claims.Subject, nil
}
