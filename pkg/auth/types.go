package auth

import (
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// User is a person who can sign in.
type User struct {
	ID            uuid.UUID
	Name          string
	Email         string
	EmailVerified *time.Time
	Image         string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// IsVerified reports whether the user ever completed an email verification
// (or signed in with a provider that vouched for the address).
func (u *User) IsVerified() bool {
	return u != nil && u.EmailVerified != nil
}

// Account links a user to an identity at an OAuth provider.
type Account struct {
	ID                uuid.UUID
	UserID            uuid.UUID
	Type              string
	Provider          string
	ProviderAccountID string
	AccessToken       string
	RefreshToken      string
	ExpiresAt         *time.Time
	TokenType         string
	Scope             string
	IDToken           string
	CreatedAt         time.Time
}

// VerificationToken is a pending magic link. Only the hash of the emailed
// token is stored.
type VerificationToken struct {
	Identifier string
	TokenHash  string
	ExpiresAt  time.Time
}

// OAuthState is what the callback needs to finish an authorization code flow.
type OAuthState struct {
	State        string     `json:"state"`
	Provider     string     `json:"provider"`
	CodeVerifier string     `json:"code_verifier"`
	CallbackURL  string     `json:"callback_url,omitempty"`
	LinkUserID   *uuid.UUID `json:"link_user_id,omitempty"`
	ExpiresAt    time.Time  `json:"expires_at"`
}

// Token holds the claims of the session token.
type Token struct {
	ID      string `json:"id,omitempty"`
	Name    string `json:"name,omitempty"`
	Email   string `json:"email,omitempty"`
	Picture string `json:"picture,omitempty"`
	gojwt.RegisteredClaims
}

// Session is what clients see of a signed-in user.
type Session struct {
	User    SessionUser `json:"user"`
	Expires time.Time   `json:"expires"`
}

// SessionUser is the identity part of Session.
type SessionUser struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Image string `json:"image,omitempty"`
}

// ProviderProfile is the normalised identity returned by a provider.
type ProviderProfile struct {
	ProviderUserID string
	Email          string
	EmailVerified  bool
	Name           string
	AvatarURL      string
	Tokens         ProviderTokens
}

// ProviderTokens are the credentials returned by the token endpoint.
type ProviderTokens struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	Scope        string
	IDToken      string
	Expiry       time.Time
}
