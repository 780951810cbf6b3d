package cookie

import "errors"

// Errors returned by Manager. Callers treat everything except
// ErrCookieNotFound as a tampered or stale cookie and clear it.
var (
	ErrNoSecret         = errors.New("cookie: no secret configured (COOKIE_SECRETS)")
	ErrSecretTooShort   = errors.New("cookie: secret too short")
	ErrInvalidSignature = errors.New("cookie: signature does not match any secret")
	ErrDecryptionFailed = errors.New("cookie: cannot decrypt session value")
	ErrCookieNotFound   = errors.New("cookie: not present in request")
	ErrInvalidFormat    = errors.New("cookie: malformed value")
)
