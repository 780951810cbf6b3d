package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
)

type sessionContextKey struct{}

// WithSession stores s in ctx.
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, s)
}

// SessionFromContext returns the session stored by LoadSession or
// RequireSession.
func SessionFromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(sessionContextKey{}).(*Session)
	return s, ok && s != nil
}

// SessionReader is the read side of SessionManager.
type SessionReader interface {
	Session(ctx context.Context, w http.ResponseWriter, r *http.Request) (*Session, error)
}

// LoadSession attaches the session to the request context when there is
// one. Requests without a session pass through untouched.
func LoadSession(sessions SessionReader) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if s, err := sessions.Session(r.Context(), w, r); err == nil {
				r = r.WithContext(WithSession(r.Context(), s))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireSession rejects requests without a session. Browsers are
// redirected to signInPath with a callbackUrl back to the requested page;
// JSON clients get 401.
func RequireSession(sessions SessionReader, signInPath string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := SessionFromContext(r.Context()); ok {
				next.ServeHTTP(w, r)
				return
			}

			s, err := sessions.Session(r.Context(), w, r)
			switch {
			case err == nil:
				next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), s)))
			case errors.Is(err, ErrNoSession):
				unauthorized(w, r, signInPath)
			default:
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			}
		})
	}
}

func unauthorized(w http.ResponseWriter, r *http.Request, signInPath string) {
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized"})
		return
	}
	target := signInPath + "?" + url.Values{"callbackUrl": {r.URL.RequestURI()}}.Encode()
	http.Redirect(w, r, target, http.StatusFound)
}
