// Package auth mints and verifies the service's own short-lived access
// tokens and parses bearer credentials out of Authorization headers.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/senas-auth/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenCodec signs access tokens with a process-wide HMAC secret. Tokens are
// stateless: there is no revocation list, they simply expire.
type TokenCodec struct {
	secretKey []byte
	now       func() time.Time
}

func NewTokenCodec(secretKey []byte) *TokenCodec {
	return &TokenCodec{secretKey: secretKey, now: time.Now}
}

// Mint returns an HS256 token for subjectID that expires after ttl.
func (c *TokenCodec) Mint(subjectID string, ttl time.Duration) (string, error) {
	now := c.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subjectID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		ID:        uuid.NewString(),
	})

	tokenString, err := token.SignedString(c.secretKey)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return tokenString, nil
}

// Verify returns the subject embedded in tokenString.
// It fails with common.ErrTokenExpired once the token's expiry has passed and
// with common.ErrMalformedToken for anything else: bad structure, bad
// signature, unexpected algorithm, missing expiry or subject.
func (c *TokenCodec) Verify(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return c.secretKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", common.ErrTokenExpired
		}
		return "", fmt.Errorf("%w: %v", common.ErrMalformedToken, err)
	}

	if !token.Valid || claims.Subject == "" {
		return "", common.ErrMalformedToken
	}

	return claims.Subject, nil
}
