// Package auth issues and verifies access tokens and carries the resulting
// session through request contexts.
package auth

import (
	"errors"
	"time"

	"github.com/dmitrijs2005/gophadmin/internal/common"
	"github.com/dmitrijs2005/gophadmin/internal/server/models"
	"github.com/golang-jwt/jwt/v5"
)

// Claims embeds the registered claims and adds what access decisions need.
type Claims struct {
	jwt.RegisteredClaims
	UserID      string   `json:"uid"`
	Email       string   `json:"email,omitempty"`
	DisplayName string   `json:"name,omitempty"`
	Roles       []string `json:"roles,omitempty"`
}

// Identity rebuilds the token-level view of the principal.
func (c *Claims) Identity() *models.Identity {
	return &models.Identity{
		ID:          c.UserID,
		Email:       c.Email,
		DisplayName: c.DisplayName,
		Roles:       append([]string(nil), c.Roles...),
	}
}

// GenerateToken signs an HS256 token for the identity.
func GenerateToken(identity *models.Identity, secretKey []byte, validityDuration time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validityDuration)),
		},
		UserID:      identity.ID,
		Email:       identity.Email,
		DisplayName: identity.DisplayName,
		Roles:       identity.Roles,
	})

	return token.SignedString(secretKey)
}

// ParseToken validates tokenString and returns its claims. Expired tokens
// yield common.ErrTokenExpired, any other failure common.ErrInvalidToken.
func ParseToken(tokenString string, secretKey []byte) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, common.ErrInvalidToken
	}

	if !token.Valid || claims.UserID == "" {
		return nil, common.ErrInvalidToken
	}

	return claims, nil
}
