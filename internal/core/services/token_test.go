package services

import (
	"linkup/internal/core/domain"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestTokenService_RoundTrip(t *testing.T) {
	req := require.New(t)
	svc := NewTokenService("secret", time.Hour)

	token, err := svc.GenerateToken("user-1")
	req.NoError(err)

	subject, err := svc.ValidateToken(token)
	req.NoError(err)
	req.Equal("user-1", subject)
}

func TestTokenService_Rejects(t *testing.T) {
	svc := NewTokenService("secret", time.Hour)
	other, err := NewTokenService("other-secret", time.Hour).GenerateToken("user-1")
	require.NoError(t, err)
	expired, err := NewTokenService("secret", -time.Minute).GenerateToken("user-1")
	require.NoError(t, err)
	foreign, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "user-1",
		Issuer:    "someone-else",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)
	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject: "user-1",
		Issuer:  tokenIssuer,
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	cases := map[string]string{
		"garbage":        "not-a-token",
		"empty":          "",
		"wrong secret":   other,
		"expired":        expired,
		"foreign issuer": foreign,
		"no expiry":      noExpiry,
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.ValidateToken(token)
			require.ErrorIs(t, err, domain.ErrInvalidToken)
		})
	}
}

func TestTokenService_Generate_Requires_Subject(t *testing.T) {
	_, err := NewTokenService("secret", time.Hour).GenerateToken("")
	require.ErrorIs(t, err, domain.ErrInvalidUserID)
}
