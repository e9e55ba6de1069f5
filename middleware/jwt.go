package middleware

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the JWT payload. Guest tokens carry ProfileID 0 and Guest=true;
// they allow browsing but are rejected by RequireUser on write endpoints.
type Claims struct {
	ProfileID int64 `json:"profile_id"`
	Guest     bool  `json:"guest,omitempty"`
	jwt.RegisteredClaims
}

// GenerateToken signs a JWT for the given profile with the given secret and TTL.
func GenerateToken(profileID int64, secret string, ttl time.Duration) (string, error) {
	return sign(&Claims{ProfileID: profileID}, secret, ttl)
}

// GenerateGuestToken signs a guest JWT.
func GenerateGuestToken(secret string, ttl time.Duration) (string, error) {
	return sign(&Claims{Guest: true}, secret, ttl)
}

func sign(claims *Claims, secret string, ttl time.Duration) (string, error) {
	claims.RegisteredClaims = jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseToken validates a JWT string and returns the claims.
func ParseToken(tokenStr, secret string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}
