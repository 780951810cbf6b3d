package account

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"net/http"

	"github.com/docuconvo/auth/handler"
	"github.com/docuconvo/auth/pkg/cookie"
)

// CSRFCookieName is the double-submit cookie. Secure deployments use the
// "__Secure-" prefix.
const CSRFCookieName = "docuconvo.csrf-token"

var ErrInvalidCSRFToken = handler.HTTPError{Code: http.StatusForbidden, Key: "invalid_csrf_token"}

// SignedCookies stores the CSRF token and the OAuth state binding in HMAC
// signed cookies.
type SignedCookies interface {
	SetSigned(w http.ResponseWriter, name, value string, opts ...cookie.Option)
	GetSigned(r *http.Request, name string) (string, error)
	Delete(w http.ResponseWriter, name string)
	Secure() bool
}

// CSRF implements the double-submit cookie pattern: the token handed out
// by Token must come back in the csrfToken field of state changing
// requests.
type CSRF struct {
	cookies SignedCookies
	name    string
}

// NewCSRF creates a CSRF guard on top of cookies.
func NewCSRF(cookies SignedCookies) *CSRF {
	name := CSRFCookieName
	if cookies.Secure() {
		name = "__Secure-" + name
	}
	return &CSRF{cookies: cookies, name: name}
}

// Token returns the caller's token. A missing or tampered cookie is
// replaced with a fresh token.
func (c *CSRF) Token(w http.ResponseWriter, r *http.Request) (string, error) {
	if tok, err := c.cookies.GetSigned(r, c.name); err == nil && tok != "" {
		return tok, nil
	}

	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	tok := hex.EncodeToString(b)
	c.cookies.SetSigned(w, c.name, tok,
		cookie.WithPath("/"),
		cookie.WithHTTPOnly(true),
		cookie.WithSameSite(http.SameSiteLaxMode),
	)
	return tok, nil
}

// Verify checks the submitted token against the cookie.
func (c *CSRF) Verify(r *http.Request, submitted string) error {
	if submitted == "" {
		return ErrInvalidCSRFToken
	}
	tok, err := c.cookies.GetSigned(r, c.name)
	if err != nil || tok == "" {
		return ErrInvalidCSRFToken
	}
	if subtle.ConstantTimeCompare([]byte(tok), []byte(submitted)) != 1 {
		return ErrInvalidCSRFToken
	}
	return nil
}

type csrfResponse struct {
	CSRFToken string `json:"csrfToken"`
}

func (s *Service) csrfToken(ctx handler.Context, _ struct{}) handler.Response {
	tok, err := s.csrf.Token(ctx.ResponseWriter(), ctx.Request())
	if err != nil {
		return handler.JSONError(handler.ErrInternal.Wrap(err))
	}
	return handler.JSON(csrfResponse{CSRFToken: tok})
}
