package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims extend standard JWT claims with the caller's address and role
// grants, so API callers carry their capabilities in the token.
type Claims struct {
	jwt.RegisteredClaims
	Address string `json:"address"`
	Roles   []Role `json:"roles,omitempty"`
}

// TokenManager issues and validates HMAC-signed JWTs for API callers.
type TokenManager struct {
	secret []byte
	issuer string
	ttl    time.Duration
	clock  func() time.Time
}

// NewTokenManager returns a manager signing with the given secret.
func NewTokenManager(secret []byte, issuer string, ttl time.Duration) *TokenManager {
	if issuer == "" {
		issuer = "credence.dev/core"
	}
	if ttl == 0 {
		ttl = time.Hour
	}
	return &TokenManager{secret: secret, issuer: issuer, ttl: ttl, clock: time.Now}
}

// WithClock overrides the time source. For tests.
func (tm *TokenManager) WithClock(clock func() time.Time) *TokenManager {
	tm.clock = clock
	return tm
}

// Issue creates a signed token for an address with its role grants.
func (tm *TokenManager) Issue(address string, roles []Role) (string, error) {
	now := tm.clock().UTC()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   address,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tm.ttl)),
			Issuer:    tm.issuer,
		},
		Address: address,
		Roles:   roles,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(tm.secret)
}

// Validate parses and verifies a token string.
func (tm *TokenManager) Validate(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return tm.secret, nil
	}, jwt.WithTimeFunc(tm.clock), jwt.WithIssuer(tm.issuer))
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, jwt.ErrTokenSignatureInvalid
	}
	return claims, nil
}

// HasRole reports whether the claims carry the role.
func (c *Claims) HasRole(role Role) bool {
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}
