// Package auth issues and validates the long-lived device tokens used by
// the mobile scanner clients. Tokens are HS256 JWTs; the JTI is persisted so
// a single device can be revoked without rotating the secret.
package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type DeviceClaims struct {
	UserID string `json:"uid"`
	jwt.RegisteredClaims
}

// DefaultDeviceTokenTTL is long-lived on purpose: scanners live in the
// warehouse and rarely see a keyboard.
const DefaultDeviceTokenTTL = 365 * 24 * time.Hour

// GenerateDeviceToken returns the signed token and its JTI.
func GenerateDeviceToken(secret, userID string, ttl time.Duration) (string, string, error) {
	jti, err := newJTI()
	if err != nil {
		return "", "", fmt.Errorf("generating jti: %w", err)
	}
	if ttl <= 0 {
		ttl = DefaultDeviceTokenTTL
	}
	claims := DeviceClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", "", fmt.Errorf("signing token: %w", err)
	}
	return signed, jti, nil
}

// ValidateDeviceToken parses and verifies a token and returns its claims.
func ValidateDeviceToken(secret, tokenStr string) (*DeviceClaims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &DeviceClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("parsing token: %w", err)
	}
	claims, ok := token.Claims.(*DeviceClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}

func newJTI() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
