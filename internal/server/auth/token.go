// Package auth implements issuing and verifying the bearer tokens that
// protect the carpooling API.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/ostrval/carpooling/internal/common"
)

// DefaultValidityDuration is used when a caller does not request an explicit
// token lifetime. Interactive login grants a longer lifetime via config.
const DefaultValidityDuration = 15 * time.Minute

// TokenService issues and verifies signed bearer tokens. The secret key is
// fixed at construction and never mutated afterwards, so a single instance
// is safe for concurrent use without locking.
type TokenService struct {
	secretKey []byte
}

func NewTokenService(secretKey []byte) *TokenService {
	return &TokenService{secretKey: secretKey}
}

// Issue builds a claim set {sub, iat, exp} for the given subject and signs it
// with HS256. A non-positive duration falls back to DefaultValidityDuration.
// Issuance is stateless: nothing is persisted.
func (s *TokenService) Issue(subject string, validityDuration time.Duration) (string, error) {
	if validityDuration <= 0 {
		validityDuration = DefaultValidityDuration
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(validityDuration)),
	})

	tokenString, err := token.SignedString(s.secretKey)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}

	return tokenString, nil
}

// Verify checks the signature and expiry of tokenString and returns the
// subject it carries. Failures map to common.ErrTokenExpired,
// common.ErrBadSignature, or common.ErrMalformedSubject; malformed tokens are
// reported as bad signatures so a tampered token never reveals which part of
// it broke. Verify performs no I/O and is safe for concurrent use.
func (s *TokenService) Verify(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secretKey, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", fmt.Errorf("%w: %v", common.ErrTokenExpired, err)
		}
		return "", fmt.Errorf("%w: %v", common.ErrBadSignature, err)
	}

	if !token.Valid {
		return "", common.ErrBadSignature
	}

	if claims.Subject == "" {
		return "", common.ErrMalformedSubject
	}

	return claims.Subject, nil
}
