package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned for malformed, expired or badly signed tokens.
var ErrInvalidToken = errors.New("invalid token")

// JWTSigner signs and verifies HS256 tokens.
type JWTSigner struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewJWTSigner builds a signer. ttl <= 0 defaults to 24h.
func NewJWTSigner(secret, issuer string, ttl time.Duration) *JWTSigner {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &JWTSigner{secret: []byte(secret), issuer: issuer, ttl: ttl, now: time.Now}
}

// Issue stamps subject, issuer and validity window on claims and signs them.
func (s *JWTSigner) Issue(subject string, claims Claims) (string, error) {
	issuedAt := s.now().UTC()
	registered := claims.Registered()
	registered.Issuer = s.issuer
	registered.Subject = subject
	registered.IssuedAt = jwt.NewNumericDate(issuedAt)
	registered.NotBefore = jwt.NewNumericDate(issuedAt)
	registered.ExpiresAt = jwt.NewNumericDate(issuedAt.Add(s.ttl))

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify parses tokenString into claims, checking signature, algorithm and expiry.
func (s *JWTSigner) Verify(tokenString string, claims Claims) error {
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return ErrInvalidToken
	}
	return nil
}

// Claims is implemented by JWT payloads that embed jwt.RegisteredClaims.
type Claims interface {
	jwt.Claims
	Registered() *jwt.RegisteredClaims
}
