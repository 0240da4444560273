package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AccessTokenDuration covers a match-analysis session; the login service
// issues tokens with the same lifetime.
const AccessTokenDuration = 12 * time.Hour

const tokenTypeAccess = "access"

// clockSkew tolerates drift between this server and the login service.
const clockSkew = 30 * time.Second

var errNoUser = errors.New("token has no user")

// Claims are issued by the login service; this package validates them and
// mints matching tokens for local tooling.
type Claims struct {
	UserID    string `json:"userId"`
	Email     string `json:"email"`
	TokenType string `json:"type"`
	jwt.RegisteredClaims
}

var parser = jwt.NewParser(
	jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	jwt.WithExpirationRequired(),
	jwt.WithLeeway(clockSkew),
)

func GenerateAccessToken(secret, userID, email string) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID:    userID,
		Email:     email,
		TokenType: tokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(AccessTokenDuration)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func ValidateToken(secret string, tokenStr string) (*Claims, error) {
	claims := &Claims{}
	if _, err := parser.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (any, error) {
		return []byte(secret), nil
	}); err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	if claims.UserID == "" {
		return nil, errNoUser
	}
	return claims, nil
}
