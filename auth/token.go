// Package auth issues and verifies the bearer tokens that guard the
// recipe API.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
	ErrNoSecret     = errors.New("token secret not configured")
)

// Claims carried by every issued token.
type Claims struct {
	User string `json:"user"`
	jwt.RegisteredClaims
}

// Issuer signs and verifies HS256 tokens with a shared secret.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer creates an Issuer. A zero ttl issues tokens without an expiry.
func NewIssuer(secret string, ttl time.Duration) *Issuer {
	return &Issuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue returns a signed token for user along with its expiry
// (zero when the token does not expire).
func (i *Issuer) Issue(user string) (string, time.Time, error) {
	if len(i.secret) == 0 {
		return "", time.Time{}, ErrNoSecret
	}

	now := i.now()
	claims := &Claims{
		User: user,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  user,
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	var expires time.Time
	if i.ttl > 0 {
		expires = now.Add(i.ttl)
		claims.ExpiresAt = jwt.NewNumericDate(expires)
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, expires, nil
}

// Verify parses token and returns its claims.
func (i *Issuer) Verify(token string) (*Claims, error) {
	if len(i.secret) == 0 {
		return nil, ErrNoSecret
	}

	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return i.secret, nil
	}, jwt.WithTimeFunc(i.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// LooksLikeToken reports whether s has the three dot-separated segments
// of a compact JWT. Used to tell bearer tokens apart from API keys.
func LooksLikeToken(s string) bool {
	dots := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '.' {
			dots++
		}
	}
	return dots == 2
}
