// Package account mounts the sign-in HTTP surface: CSRF token, provider
// list, magic link request and callback, OAuth redirect and callback,
// session lookup and sign-out.
package account

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/docuconvo/auth/handler"
	"github.com/docuconvo/auth/pkg/auth"
	"github.com/docuconvo/auth/pkg/site"
)

// Error codes appended to the sign-in page URL as ?error=.
const (
	ErrorEmailSignin           = "EmailSignin"
	ErrorVerification          = "Verification"
	ErrorOAuthSignin           = "OAuthSignin"
	ErrorOAuthCallback         = "OAuthCallback"
	ErrorOAuthAccountNotLinked = "OAuthAccountNotLinked"
	ErrorAccessDenied          = "AccessDenied"
	ErrorSessionRequired       = "SessionRequired"
	ErrorConfiguration         = "Configuration"
	ErrorDefault               = "Default"
)

// MagicLink is the email provider.
type MagicLink interface {
	RequestSignIn(ctx context.Context, addr, callbackURL string) error
	Verify(ctx context.Context, addr, token string) (*auth.User, bool, error)
}

// OAuthProvider is one configured OAuth provider.
type OAuthProvider interface {
	Provider() string
	AuthURL(ctx context.Context, callbackURL string, linkUserID *uuid.UUID) (string, error)
	Callback(ctx context.Context, code, state string) (*auth.OAuthResult, error)
	Unlink(ctx context.Context, userID uuid.UUID, providerAccountID string) error
}

// Sessions issues, reads and clears session cookies.
type Sessions interface {
	Issue(ctx context.Context, w http.ResponseWriter, user *auth.User) (*auth.Session, error)
	Session(ctx context.Context, w http.ResponseWriter, r *http.Request) (*auth.Session, error)
	Clear(w http.ResponseWriter)
}

// Limiter throttles sign-in requests per key.
type Limiter interface {
	Allow(key string) bool
}

type allowAll struct{}

func (allowAll) Allow(string) bool { return true }

// Service serves the /auth routes.
type Service struct {
	site         site.Site
	baseURL      string
	magic        MagicLink
	providers    map[string]OAuthProvider
	order        []string
	sessions     Sessions
	csrf         *CSRF
	states       *stateCookie
	limiter      Limiter
	log          *slog.Logger
	errorHandler handler.ErrorHandler
}

// Option configures a Service.
type Option func(*Service)

// WithProvider registers an OAuth provider under its Provider() id.
func WithProvider(p OAuthProvider) Option {
	return func(s *Service) {
		if p == nil {
			return
		}
		id := p.Provider()
		if _, ok := s.providers[id]; !ok {
			s.order = append(s.order, id)
		}
		s.providers[id] = p
	}
}

// WithLimiter throttles magic link requests. Keys are "email:<address>"
// and "ip:<remote address>".
func WithLimiter(l Limiter) Option {
	return func(s *Service) {
		if l != nil {
			s.limiter = l
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// WithErrorHandler replaces handler.NewErrorHandler for errors that are
// not turned into sign-in page redirects.
func WithErrorHandler(h handler.ErrorHandler) Option {
	return func(s *Service) {
		if h != nil {
			s.errorHandler = h
		}
	}
}

// New creates the service. magic may be nil to disable email sign-in.
func New(st site.Site, magic MagicLink, sessions Sessions, csrf *CSRF, opts ...Option) *Service {
	s := &Service{
		site:      st,
		baseURL:   st.BaseURL(),
		magic:     magic,
		providers: make(map[string]OAuthProvider),
		sessions:  sessions,
		csrf:      csrf,
		states:    newStateCookie(csrf.cookies),
		limiter:   allowAll{},
		log:       slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.errorHandler == nil {
		s.errorHandler = handler.NewErrorHandler(s.log)
	}
	return s
}

// Handler returns the routes, to be mounted at /auth.
func (s *Service) Handler() http.Handler {
	r := chi.NewRouter()

	r.Get("/csrf", wrap(s, s.csrfToken))
	r.Get("/providers", wrap(s, s.listProviders))
	r.Get("/signin", wrap(s, s.signInPage, fromQuery...))
	r.Get("/session", wrap(s, s.session))
	r.Post("/signout", wrap(s, s.signOut, fromBody...))

	if s.magic != nil {
		r.Post("/signin/email", wrap(s, s.signInEmail, fromBody...))
		r.Get("/verify-request", wrap(s, s.verifyRequest))
		r.Get("/callback/email", wrap(s, s.callbackEmail, fromQuery...))
	}

	r.Get("/signin/{provider}", wrap(s, s.signInOAuth, fromQuery...))
	r.Post("/signin/{provider}", wrap(s, s.signInOAuth, fromBody...))
	r.Get("/callback/{provider}", wrap(s, s.callbackOAuth, fromQuery...))
	r.Post("/unlink/{provider}", wrap(s, s.unlink, fromBody...))

	return r
}

// signInURL is the sign-in page with an error code.
func (s *Service) signInURL(code string) string {
	q := url.Values{}
	if code != "" {
		q.Set("error", code)
	}
	path := s.site.SignInPath
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	return auth.SafeRedirect(s.baseURL, path)
}

// redirect sends browsers to target. Clients that asked for JSON get
// {"url": target} and follow it themselves.
func (s *Service) redirect(ctx handler.Context, target string) handler.Response {
	if handler.WantsJSON(ctx.Request()) {
		return handler.JSON(map[string]string{"url": target})
	}
	return handler.Redirect(target)
}
