package api

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/nhle/quiz-ledger/internal/model"
)

const issuer = "quizledger"

// Claims is the payload of an access token.
type Claims struct {
	jwt.RegisteredClaims
	Email string     `json:"email"`
	Name  string     `json:"name"`
	Role  model.Role `json:"role"`
}

// User returns the principal the token was issued to.
func (c *Claims) User() model.User {
	return model.User{Name: c.Name, Email: c.Email, Role: c.Role}
}

// GenerateToken signs an HS256 token for u valid for ttl.
func GenerateToken(secret string, u model.User, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", errors.New("signing token: empty secret")
	}

	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.Email,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuer,
		},
		Email: u.Email,
		Name:  u.Name,
		Role:  u.Role,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// ParseToken verifies tokenString and returns its claims.
func ParseToken(secret, tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(_ *jwt.Token) (any, error) {
		return []byte(secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
	)
	if err != nil {
		return nil, fmt.Errorf("parsing token: %w", err)
	}
	if !token.Valid || claims.Email == "" {
		return nil, errors.New("parsing token: invalid claims")
	}
	return claims, nil
}
