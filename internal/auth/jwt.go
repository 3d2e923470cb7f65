package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"meettrack/internal/apperr"
)

// Claims represents the JWT payload carried by every issued token.
type Claims struct {
	UserID  string `json:"userId"`
	Email   string `json:"email"`
	IsAdmin bool   `json:"isAdmin"`
	jwt.RegisteredClaims
}

// Token is a signed credential together with its expiry.
type Token struct {
	Value     string
	ExpiresAt time.Time
}

// Issue signs an HS256 token for the given identity.
func Issue(userID, email string, isAdmin bool, issuer, key string, ttl time.Duration) (Token, error) {
	exp := time.Now().Add(ttl)
	claims := Claims{
		UserID:  userID,
		Email:   email,
		IsAdmin: isAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(key))
	if err != nil {
		return Token{}, apperr.Internal(err)
	}
	return Token{Value: signed, ExpiresAt: exp}, nil
}

// Parse validates a token and returns its claims. Every failure mode
// (malformed, expired, bad signature, wrong issuer) collapses into the same
// authentication error.
func Parse(tokenStr, key, issuer string) (Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, apperr.Auth()
		}
		return []byte(key), nil
	})
	if err != nil {
		return Claims{}, apperr.Auth()
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return Claims{}, apperr.Auth()
	}
	if issuer != "" && claims.Issuer != issuer {
		return Claims{}, apperr.Auth()
	}
	return *claims, nil
}
