// Package auth verifies bearer credentials and guards routes by role. A
// request passes through token extraction, signature verification, and a
// session lookup before an identity is attached to its context.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/kru-ai/kru/pkg/apperrors"
	"github.com/kru-ai/kru/pkg/models"
)

// Claims are the token claims issued at login.
type Claims struct {
	jwt.RegisteredClaims
	UserID string      `json:"userId"`
	Email  string      `json:"email"`
	Role   models.Role `json:"role"`
}

// Verifier validates HMAC-signed tokens.
type Verifier struct {
	secret []byte
}

// NewVerifier creates a Verifier for the given signing secret.
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Verify checks the token signature and expiry claim and returns the
// decoded claims. Failures are kinded: TOKEN_EXPIRED for a lapsed expiry,
// INVALID_TOKEN for everything else.
func (v *Verifier) Verify(token string) (Claims, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return v.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, apperrors.Wrap(apperrors.TokenExpired, "token expired", err)
		}
		return Claims{}, apperrors.Wrap(apperrors.InvalidToken, "invalid token", err)
	}
	return claims, nil
}

// Sign issues a token for the given identity. Used at login time and by
// tests; verification is the hot path.
func (v *Verifier) Sign(userID, email string, role models.Role, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		UserID: userID,
		Email:  email,
		Role:   role,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}
