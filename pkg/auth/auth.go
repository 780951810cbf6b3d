// Package auth implements passwordless email sign-in, OAuth sign-in and
// stateless session tokens.
//
// Persistence is behind Adapter (users, provider accounts, verification
// tokens) and StateStore (short-lived OAuth state). Sessions live entirely in
// a signed token stored in an encrypted cookie; Callbacks decide which
// identity claims the token and the session expose.
package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Provider identifiers.
const (
	ProviderEmail  = "email"
	ProviderGoogle = "google"
)

// Account types.
const (
	AccountTypeOAuth = "oauth"
	AccountTypeOIDC  = "oidc"
)

var tracer = otel.Tracer("github.com/docuconvo/auth/pkg/auth")

// Adapter maps authentication state to persistent records.
type Adapter interface {
	CreateUser(ctx context.Context, user *User) error
	GetUser(ctx context.Context, id uuid.UUID) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	GetUserByAccount(ctx context.Context, provider, providerAccountID string) (*User, error)
	UpdateUser(ctx context.Context, user *User) error
	DeleteUser(ctx context.Context, id uuid.UUID) error

	LinkAccount(ctx context.Context, account *Account) error
	UnlinkAccount(ctx context.Context, provider, providerAccountID string) error

	CreateVerificationToken(ctx context.Context, token VerificationToken) error
	// UseVerificationToken deletes the matching token and returns it.
	// A second call with the same arguments returns ErrTokenNotFound.
	UseVerificationToken(ctx context.Context, identifier, tokenHash string) (*VerificationToken, error)
	DeleteExpiredVerificationTokens(ctx context.Context, before time.Time) (int64, error)
}

// UserFinder is the read side of Adapter used by the callbacks and the
// verification mailer.
type UserFinder interface {
	GetUserByEmail(ctx context.Context, email string) (*User, error)
}

// StateStore keeps OAuth state between the redirect and the callback.
type StateStore interface {
	StoreState(ctx context.Context, state OAuthState) error
	// ConsumeState returns and removes the state. Missing, already consumed
	// and expired states all return ErrStateNotFound.
	ConsumeState(ctx context.Context, state string) (*OAuthState, error)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
