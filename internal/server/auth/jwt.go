// Package auth mints and verifies the HS256 tokens that carry a caller's
// registry identity.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/medkeeper/internal/common"
	"github.com/dmitrijs2005/medkeeper/internal/identity"
	"github.com/golang-jwt/jwt/v5"
)

// Claims are the registered claims plus the caller identity.
type Claims struct {
	jwt.RegisteredClaims
	Identity identity.Address
}

func GenerateToken(id identity.Address, secretKey []byte, validityDuration time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validityDuration)),
			Subject:   id.Hex(),
		},
		Identity: id,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// GetIdentityFromToken returns common.ErrTokenExpired for expired tokens and
// common.ErrInvalidToken for anything else that does not verify.
func GetIdentityFromToken(tokenString string, secretKey []byte) (identity.Address, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return identity.Zero, common.ErrTokenExpired
		}
		return identity.Zero, fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}

	if !token.Valid || claims.Identity.IsZero() {
		return identity.Zero, common.ErrInvalidToken
	}

	return claims.Identity, nil
}
