package utils

import (
	"errors"
	"time"

	"custody/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

const tokenIssuer = "custody-api"

// GenerateToken signs an HS256 access token whose subject is account.
func GenerateToken(secret, account string, permissions []string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", errors.New("JWT_SECRET not configured")
	}
	if account == "" {
		return "", errors.New("token subject is required")
	}

	now := time.Now()
	claims := models.LedgerClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
			Subject:   account,
		},
		Permissions: permissions,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ParseToken validates tokenString and returns its claims.
func ParseToken(secret, tokenString string) (*models.LedgerClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.LedgerClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(tokenIssuer))
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*models.LedgerClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}
