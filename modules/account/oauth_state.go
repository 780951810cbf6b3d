package account

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"net/url"

	"github.com/docuconvo/auth/pkg/cookie"
)

// StateCookieName binds an OAuth flow to the browser that started it.
const StateCookieName = "docuconvo.oauth-state"

// stateCookieMaxAge outlives the default state TTL of ten minutes.
const stateCookieMaxAge = 15 * 60

var (
	errNoStateInAuthURL = errors.New("authorization url carries no state")
	errStateMismatch    = errors.New("oauth state does not match this browser")
)

type stateCookie struct {
	cookies SignedCookies
	name    string
}

func newStateCookie(cookies SignedCookies) *stateCookie {
	name := StateCookieName
	if cookies.Secure() {
		name = "__Secure-" + name
	}
	return &stateCookie{cookies: cookies, name: name}
}

// bind remembers the state of authURL in the browser.
func (c *stateCookie) bind(w http.ResponseWriter, authURL string) error {
	u, err := url.Parse(authURL)
	if err != nil {
		return err
	}
	state := u.Query().Get("state")
	if state == "" {
		return errNoStateInAuthURL
	}
	c.cookies.SetSigned(w, c.name, state,
		cookie.WithPath("/"),
		cookie.WithHTTPOnly(true),
		cookie.WithSameSite(http.SameSiteLaxMode),
		cookie.WithMaxAge(stateCookieMaxAge),
	)
	return nil
}

// check reports whether state was issued to this browser. The cookie is
// one-time and is cleared either way.
func (c *stateCookie) check(w http.ResponseWriter, r *http.Request, state string) error {
	bound, err := c.cookies.GetSigned(r, c.name)
	if _, cerr := r.Cookie(c.name); cerr == nil {
		c.cookies.Delete(w, c.name)
	}
	if err != nil || bound == "" || state == "" {
		return errStateMismatch
	}
	if subtle.ConstantTimeCompare([]byte(bound), []byte(state)) != 1 {
		return errStateMismatch
	}
	return nil
}
