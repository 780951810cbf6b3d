package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/docuconvo/auth/pkg/cookie"
	"github.com/docuconvo/auth/pkg/logger"
)

// SessionCookieName is the session cookie name. Secure deployments add the
// "__Secure-" prefix.
const SessionCookieName = "docuconvo.session-token"

// TokenCodec signs and verifies session tokens.
type TokenCodec interface {
	Sign(claims gojwt.Claims) (string, error)
	Parse(token string, claims gojwt.Claims) error
	Issuer() string
	Audience() string
}

// CookieJar stores the signed token in an encrypted cookie.
type CookieJar interface {
	SetEncrypted(w http.ResponseWriter, name, value string, opts ...cookie.Option) error
	GetEncrypted(r *http.Request, name string) (string, error)
	Delete(w http.ResponseWriter, name string)
	Secure() bool
}

// SessionConfig holds session lifetime settings.
type SessionConfig struct {
	MaxAge    time.Duration `env:"SESSION_MAX_AGE" envDefault:"720h"`
	UpdateAge time.Duration `env:"SESSION_UPDATE_AGE" envDefault:"24h"`
}

// SessionManager implements the stateless token session strategy.
type SessionManager struct {
	codec      TokenCodec
	jar        CookieJar
	callbacks  *Callbacks
	cookieName string
	maxAge     time.Duration
	updateAge  time.Duration
	log        *slog.Logger
	now        func() time.Time
}

// SessionOption configures a SessionManager.
type SessionOption func(*SessionManager)

// WithSessionMaxAge sets the token lifetime. Defaults to 30 days.
func WithSessionMaxAge(d time.Duration) SessionOption {
	return func(m *SessionManager) {
		if d > 0 {
			m.maxAge = d
		}
	}
}

// WithSessionUpdateAge sets how old a token gets before it is re-issued.
// Defaults to 24 hours.
func WithSessionUpdateAge(d time.Duration) SessionOption {
	return func(m *SessionManager) {
		if d > 0 {
			m.updateAge = d
		}
	}
}

// WithSessionCookieName overrides the cookie name.
func WithSessionCookieName(name string) SessionOption {
	return func(m *SessionManager) {
		if name != "" {
			m.cookieName = name
		}
	}
}

// WithSessionLogger sets the logger.
func WithSessionLogger(l *slog.Logger) SessionOption {
	return func(m *SessionManager) {
		if l != nil {
			m.log = l
		}
	}
}

// WithSessionClock replaces time.Now.
func WithSessionClock(now func() time.Time) SessionOption {
	return func(m *SessionManager) {
		if now != nil {
			m.now = now
		}
	}
}

// NewSessionManager creates a SessionManager.
func NewSessionManager(codec TokenCodec, jar CookieJar, callbacks *Callbacks, opts ...SessionOption) *SessionManager {
	m := &SessionManager{
		codec:      codec,
		jar:        jar,
		callbacks:  callbacks,
		cookieName: SessionCookieName,
		maxAge:     30 * 24 * time.Hour,
		updateAge:  24 * time.Hour,
		log:        logger.Discard(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	if jar.Secure() {
		m.cookieName = "__Secure-" + m.cookieName
	}
	return m
}

// CookieName returns the effective cookie name.
func (m *SessionManager) CookieName() string {
	return m.cookieName
}

// Issue signs a session token for a user who just signed in and writes the
// cookie.
func (m *SessionManager) Issue(ctx context.Context, w http.ResponseWriter, user *User) (*Session, error) {
	tok := Token{Name: user.Name, Email: user.Email, Picture: user.Image}
	tok.Subject = user.ID.String()

	tok, err := m.callbacks.JWT(ctx, tok, user)
	if err != nil {
		return nil, err
	}
	expires, err := m.write(w, tok)
	if err != nil {
		return nil, err
	}

	s := m.callbacks.Session(ctx, Session{Expires: expires}, &tok)
	return &s, nil
}

// Session reads the session of r. ErrNoSession is returned when there is
// no valid cookie; a present but unreadable cookie is also cleared.
func (m *SessionManager) Session(ctx context.Context, w http.ResponseWriter, r *http.Request) (*Session, error) {
	raw, err := m.jar.GetEncrypted(r, m.cookieName)
	if err != nil {
		if !errors.Is(err, cookie.ErrCookieNotFound) {
			m.log.DebugContext(ctx, "unreadable session cookie", logger.Error(err))
			m.Clear(w)
		}
		return nil, ErrNoSession
	}

	var claims Token
	if err := m.codec.Parse(raw, &claims); err != nil {
		m.log.DebugContext(ctx, "invalid session token", logger.Error(err))
		m.Clear(w)
		return nil, ErrNoSession
	}

	tok, err := m.callbacks.JWT(ctx, claims, nil)
	if err != nil {
		return nil, err
	}

	var expires time.Time
	if claims.ExpiresAt != nil {
		expires = claims.ExpiresAt.Time
	}
	if claims.IssuedAt == nil || m.now().Sub(claims.IssuedAt.Time) >= m.updateAge {
		if expires, err = m.write(w, tok); err != nil {
			return nil, err
		}
	}

	s := m.callbacks.Session(ctx, Session{Expires: expires}, &tok)
	return &s, nil
}

// Clear deletes the session cookie.
func (m *SessionManager) Clear(w http.ResponseWriter) {
	m.jar.Delete(w, m.cookieName)
}

func (m *SessionManager) write(w http.ResponseWriter, tok Token) (time.Time, error) {
	now := m.now()
	expires := now.Add(m.maxAge)

	if tok.Subject == "" {
		tok.Subject = tok.ID
	}
	tok.IssuedAt = gojwt.NewNumericDate(now)
	tok.ExpiresAt = gojwt.NewNumericDate(expires)
	tok.RegisteredClaims.ID = uuid.NewString()
	if iss := m.codec.Issuer(); iss != "" {
		tok.Issuer = iss
	}
	if aud := m.codec.Audience(); aud != "" {
		tok.Audience = gojwt.ClaimStrings{aud}
	}

	signed, err := m.codec.Sign(tok)
	if err != nil {
		return time.Time{}, fmt.Errorf("sign session token: %w", err)
	}
	if err := m.jar.SetEncrypted(w, m.cookieName, signed, cookie.WithMaxAge(int(m.maxAge/time.Second))); err != nil {
		return time.Time{}, fmt.Errorf("write session cookie: %w", err)
	}
	return expires, nil
}
