package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// Google endpoints.
const (
	GoogleIssuer      = "https://accounts.google.com"
	GoogleJWKSURL     = "https://www.googleapis.com/oauth2/v3/certs"
	GoogleUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"
)

// GoogleConfig holds the Google OAuth client settings. Missing credentials
// are not an error here; Configured reports whether sign-in can work.
type GoogleConfig struct {
	ClientID     string        `env:"GOOGLE_CLIENT_ID" envDefault:""`
	ClientSecret string        `env:"GOOGLE_CLIENT_SECRET" envDefault:""`
	RedirectURL  string        `env:"GOOGLE_REDIRECT_URL"`
	StateTTL     time.Duration `env:"GOOGLE_OAUTH_STATE_TTL" envDefault:"10m"`
	VerifiedOnly bool          `env:"GOOGLE_OAUTH_VERIFIED_ONLY" envDefault:"true"`
}

// Configured reports whether both client credentials are set.
func (c GoogleConfig) Configured() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

// GoogleAdapter is the ProviderAdapter for Google.
type GoogleAdapter struct {
	conf        *oauth2.Config
	verifier    *gooidc.IDTokenVerifier
	httpClient  *http.Client
	userInfoURL string
}

var _ ProviderAdapter = (*GoogleAdapter)(nil)

// GoogleOption configures a GoogleAdapter.
type GoogleOption func(*GoogleAdapter)

// WithGoogleEndpoint overrides the authorization and token endpoints.
func WithGoogleEndpoint(e oauth2.Endpoint) GoogleOption {
	return func(a *GoogleAdapter) {
		a.conf.Endpoint = e
	}
}

// WithGoogleVerifier overrides the ID token verifier.
func WithGoogleVerifier(v *gooidc.IDTokenVerifier) GoogleOption {
	return func(a *GoogleAdapter) {
		a.verifier = v
	}
}

// WithGoogleHTTPClient sets the client used for all calls to Google.
func WithGoogleHTTPClient(c *http.Client) GoogleOption {
	return func(a *GoogleAdapter) {
		if c != nil {
			a.httpClient = c
		}
	}
}

// WithGoogleUserInfoURL overrides the userinfo endpoint.
func WithGoogleUserInfoURL(u string) GoogleOption {
	return func(a *GoogleAdapter) {
		a.userInfoURL = u
	}
}

// NewGoogleAdapter creates a GoogleAdapter requesting the openid, email and
// profile scopes.
func NewGoogleAdapter(cfg GoogleConfig, opts ...GoogleOption) *GoogleAdapter {
	a := &GoogleAdapter{
		conf: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{gooidc.ScopeOpenID, "email", "profile"},
			Endpoint:     google.Endpoint,
		},
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		userInfoURL: GoogleUserInfoURL,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.verifier == nil {
		keys := gooidc.NewRemoteKeySet(gooidc.ClientContext(context.Background(), a.httpClient), GoogleJWKSURL)
		a.verifier = gooidc.NewVerifier(GoogleIssuer, keys, &gooidc.Config{ClientID: cfg.ClientID})
	}
	return a
}

// ProviderID implements ProviderAdapter.
func (a *GoogleAdapter) ProviderID() string {
	return ProviderGoogle
}

// AuthURL implements ProviderAdapter.
func (a *GoogleAdapter) AuthURL(state, verifier string) string {
	return a.conf.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.S256ChallengeOption(verifier))
}

type googleClaims struct {
	Subject       string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// Exchange implements ProviderAdapter. The profile comes from the verified
// id_token, or from the userinfo endpoint when Google did not return one.
func (a *GoogleAdapter) Exchange(ctx context.Context, code, verifier string) (ProviderProfile, error) {
	if a.conf.ClientID == "" || a.conf.ClientSecret == "" {
		return ProviderProfile{}, ErrProviderNotConfigured
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, a.httpClient)

	tok, err := a.conf.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return ProviderProfile{}, fmt.Errorf("%w: %v", ErrInvalidCode, err)
	}

	var claims googleClaims
	rawIDToken, _ := tok.Extra("id_token").(string)
	if rawIDToken != "" {
		idt, err := a.verifier.Verify(ctx, rawIDToken)
		if err != nil {
			return ProviderProfile{}, fmt.Errorf("verify id token: %w", err)
		}
		if err := idt.Claims(&claims); err != nil {
			return ProviderProfile{}, fmt.Errorf("decode id token claims: %w", err)
		}
		claims.Subject = idt.Subject
	} else if err := a.userInfo(ctx, tok, &claims); err != nil {
		return ProviderProfile{}, err
	}

	scope, _ := tok.Extra("scope").(string)
	return ProviderProfile{
		ProviderUserID: claims.Subject,
		Email:          claims.Email,
		EmailVerified:  claims.EmailVerified,
		Name:           claims.Name,
		AvatarURL:      claims.Picture,
		Tokens: ProviderTokens{
			AccessToken:  tok.AccessToken,
			RefreshToken: tok.RefreshToken,
			TokenType:    tok.TokenType,
			Scope:        scope,
			IDToken:      rawIDToken,
			Expiry:       tok.Expiry,
		},
	}, nil
}

func (a *GoogleAdapter) userInfo(ctx context.Context, tok *oauth2.Token, claims *googleClaims) error {
	if a.userInfoURL == "" {
		return errors.New("google: no id token and no userinfo endpoint")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.userInfoURL, nil)
	if err != nil {
		return err
	}
	resp, err := a.conf.Client(ctx, tok).Do(req)
	if err != nil {
		return fmt.Errorf("fetch google userinfo: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("google userinfo returned status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(claims); err != nil {
		return fmt.Errorf("decode google userinfo: %w", err)
	}
	return nil
}
