// Package auth issues and verifies bearer credentials for the two caller
// classes of the service: interactive users holding long-lived signed tokens
// and pump controllers holding short server-side device sessions.
package auth

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"time"

	"github.com/awnumar/memguard"
	"github.com/golang-jwt/jwt/v5"
)

// DeviceTokenType is the "typ" claim carried by device tokens.
const DeviceTokenType = "device"

// Claims is the payload of every token the service signs. Device tokens carry
// only the type marker and a unique ID; the pump and user they are bound to
// stay server-side. User tokens carry the numeric user ID.
type Claims struct {
	Type   string `json:"typ,omitempty"`
	UserID *int64 `json:"id,omitempty"`
	jwt.RegisteredClaims
}

// TokenCodec signs and verifies HS256 claims tokens. The signing key is the
// SHA-256 digest of the configured secret, derived once and held in a
// memguard enclave.
type TokenCodec struct {
	key *memguard.Enclave
	now func() time.Time
}

// NewTokenCodec derives the signing key from secret. now may be nil, in which
// case time.Now is used.
func NewTokenCodec(secret string, now func() time.Time) (*TokenCodec, error) {
	if secret == "" {
		return nil, ErrMissingSecret
	}
	if now == nil {
		now = time.Now
	}
	digest := sha256.Sum256([]byte(secret))
	return &TokenCodec{
		key: memguard.NewEnclave(digest[:]),
		now: now,
	}, nil
}

// Issue stamps the validity window onto claims and signs them. When
// expiresAt is not after the current time the not-before instant is moved
// one second below expiresAt so the result is still well formed, merely
// already expired.
func (c *TokenCodec) Issue(claims *Claims, notBefore, expiresAt time.Time) (string, error) {
	now := c.now()
	if !expiresAt.After(now) {
		notBefore = expiresAt.Add(-time.Second)
	}
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.NotBefore = jwt.NewNumericDate(notBefore)
	claims.ExpiresAt = jwt.NewNumericDate(expiresAt)

	buf, err := c.key.Open()
	if err != nil {
		return "", fmt.Errorf("opening signing key: %w", err)
	}
	defer buf.Destroy()

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(buf.Bytes())
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// Parse verifies the signature and the validity window of token. An expiry
// claim is required. Every failure is reported as ErrInvalidToken.
func (c *TokenCodec) Parse(token string) (*Claims, error) {
	return c.parse(token,
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
}

// Verify checks only the signature and structure of token, leaving expiry to
// the caller. It is used for tokens whose lifetime is tracked server-side.
func (c *TokenCodec) Verify(token string) (*Claims, error) {
	return c.parse(token, jwt.WithoutClaimsValidation())
}

func (c *TokenCodec) parse(token string, opts ...jwt.ParserOption) (*Claims, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}
	buf, err := c.key.Open()
	if err != nil {
		return nil, fmt.Errorf("opening signing key: %w", err)
	}
	defer buf.Destroy()

	opts = append(opts, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return buf.Bytes(), nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// IsExpired reports whether err came from an otherwise valid token whose
// validity window has passed.
func IsExpired(err error) bool {
	return errors.Is(err, jwt.ErrTokenExpired)
}
