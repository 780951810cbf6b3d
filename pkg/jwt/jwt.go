// Package jwt signs and verifies HS256 tokens with golang-jwt.
//
// The HMAC key is never the raw application secret: it is derived with
// HKDF-SHA256 using a purpose label, so the same secret can back several
// token types without one being accepted as another.
package jwt

import (
	"crypto/sha256"
	"errors"
	"io"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/hkdf"
)

const minSecretLength = 32

var (
	ErrMissingSigningKey = errors.New("jwt: signing key is required")
	ErrSecretTooShort    = errors.New("jwt: signing key must be at least 32 bytes")
	ErrInvalidToken      = errors.New("jwt: invalid token")
	ErrExpiredToken      = errors.New("jwt: token expired")
)

// Option configures a Service.
type Option func(*Service)

// WithPurpose sets the HKDF info label. Defaults to "session token".
func WithPurpose(purpose string) Option {
	return func(s *Service) { s.purpose = purpose }
}

// WithIssuer requires and sets the iss claim.
func WithIssuer(iss string) Option {
	return func(s *Service) { s.issuer = iss }
}

// WithAudience requires and sets the aud claim.
func WithAudience(aud string) Option {
	return func(s *Service) { s.audience = aud }
}

// WithLeeway tolerates clock skew when checking exp, nbf and iat.
func WithLeeway(d time.Duration) Option {
	return func(s *Service) { s.leeway = d }
}

// WithTimeFunc replaces the clock used for validation.
func WithTimeFunc(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// Service signs and parses tokens.
type Service struct {
	key      []byte
	purpose  string
	issuer   string
	audience string
	leeway   time.Duration
	now      func() time.Time
}

// New derives the signing key from secret.
func New(secret []byte, opts ...Option) (*Service, error) {
	if len(secret) == 0 {
		return nil, ErrMissingSigningKey
	}
	if len(secret) < minSecretLength {
		return nil, ErrSecretTooShort
	}

	s := &Service{purpose: "session token", now: time.Now}
	for _, opt := range opts {
		opt(s)
	}

	s.key = make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, nil, []byte(s.purpose)), s.key); err != nil {
		return nil, err
	}
	return s, nil
}

// Issuer returns the configured issuer, if any.
func (s *Service) Issuer() string { return s.issuer }

// Audience returns the configured audience, if any.
func (s *Service) Audience() string { return s.audience }

// Sign serialises claims as a compact HS256 JWS.
func (s *Service) Sign(claims gojwt.Claims) (string, error) {
	signed, err := gojwt.NewWithClaims(gojwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return "", errors.Join(ErrInvalidToken, err)
	}
	return signed, nil
}

// Parse verifies token and decodes it into claims. Expired tokens return
// ErrExpiredToken; every other failure returns ErrInvalidToken.
func (s *Service) Parse(token string, claims gojwt.Claims) error {
	opts := []gojwt.ParserOption{
		gojwt.WithValidMethods([]string{gojwt.SigningMethodHS256.Alg()}),
		gojwt.WithTimeFunc(s.now),
		gojwt.WithIssuedAt(),
		gojwt.WithExpirationRequired(),
	}
	if s.leeway > 0 {
		opts = append(opts, gojwt.WithLeeway(s.leeway))
	}
	if s.issuer != "" {
		opts = append(opts, gojwt.WithIssuer(s.issuer))
	}
	if s.audience != "" {
		opts = append(opts, gojwt.WithAudience(s.audience))
	}

	_, err := gojwt.ParseWithClaims(token, claims, func(*gojwt.Token) (any, error) {
		return s.key, nil
	}, opts...)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gojwt.ErrTokenExpired):
		return errors.Join(ErrExpiredToken, err)
	default:
		return errors.Join(ErrInvalidToken, err)
	}
}
