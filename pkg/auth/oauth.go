package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/oauth2"

	"github.com/docuconvo/auth/pkg/logger"
)

// ProviderAdapter hides the provider specific parts of an authorization
// code flow with PKCE.
type ProviderAdapter interface {
	ProviderID() string
	AuthURL(state, verifier string) string
	// Exchange trades the code for tokens and resolves the user's profile.
	// A rejected code is reported as ErrInvalidCode.
	Exchange(ctx context.Context, code, verifier string) (ProviderProfile, error)
}

// OAuthResult is the outcome of a successful callback.
type OAuthResult struct {
	User        *User
	IsNewUser   bool
	Linked      bool
	CallbackURL string
}

// OAuthService runs the sign-in and account linking flow for one provider.
type OAuthService struct {
	adapter      Adapter
	states       StateStore
	provider     ProviderAdapter
	log          *slog.Logger
	stateTTL     time.Duration
	verifiedOnly bool
	now          func() time.Time
}

// OAuthOption configures an OAuthService.
type OAuthOption func(*OAuthService)

// WithOAuthLogger sets the logger.
func WithOAuthLogger(l *slog.Logger) OAuthOption {
	return func(s *OAuthService) {
		if l != nil {
			s.log = l
		}
	}
}

// WithStateTTL sets how long a started flow may take. Defaults to 10 minutes.
func WithStateTTL(ttl time.Duration) OAuthOption {
	return func(s *OAuthService) {
		if ttl > 0 {
			s.stateTTL = ttl
		}
	}
}

// WithVerifiedOnly rejects profiles whose email the provider did not verify.
// Enabled by default.
func WithVerifiedOnly(verifiedOnly bool) OAuthOption {
	return func(s *OAuthService) {
		s.verifiedOnly = verifiedOnly
	}
}

// WithOAuthClock replaces time.Now.
func WithOAuthClock(now func() time.Time) OAuthOption {
	return func(s *OAuthService) {
		if now != nil {
			s.now = now
		}
	}
}

// NewOAuthService creates an OAuthService for provider.
func NewOAuthService(adapter Adapter, states StateStore, provider ProviderAdapter, opts ...OAuthOption) *OAuthService {
	s := &OAuthService{
		adapter:      adapter,
		states:       states,
		provider:     provider,
		log:          logger.Discard(),
		stateTTL:     10 * time.Minute,
		verifiedOnly: true,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Provider returns the provider identifier.
func (s *OAuthService) Provider() string {
	return s.provider.ProviderID()
}

// AuthURL starts a flow and returns the provider authorization URL. When
// linkUserID is set the callback links the provider account to that user
// instead of signing in.
func (s *OAuthService) AuthURL(ctx context.Context, callbackURL string, linkUserID *uuid.UUID) (string, error) {
	state, err := generateState()
	if err != nil {
		return "", fmt.Errorf("generate state: %w", err)
	}
	verifier := oauth2.GenerateVerifier()

	if err := s.states.StoreState(ctx, OAuthState{
		State:        state,
		Provider:     s.provider.ProviderID(),
		CodeVerifier: verifier,
		CallbackURL:  callbackURL,
		LinkUserID:   linkUserID,
		ExpiresAt:    s.now().Add(s.stateTTL),
	}); err != nil {
		return "", fmt.Errorf("store state: %w", err)
	}

	return s.provider.AuthURL(state, verifier), nil
}

// Callback finishes a flow started by AuthURL.
func (s *OAuthService) Callback(ctx context.Context, code, state string) (res *OAuthResult, err error) {
	ctx, span := tracer.Start(ctx, "auth.OAuthService.Callback")
	span.SetAttributes(attribute.String("auth.provider", s.provider.ProviderID()))
	defer func() { endSpan(span, err) }()

	if state == "" {
		return nil, ErrInvalidState
	}
	if code == "" {
		return nil, ErrInvalidCode
	}

	st, err := s.states.ConsumeState(ctx, state)
	if err != nil {
		if errors.Is(err, ErrStateNotFound) {
			return nil, ErrInvalidState
		}
		return nil, fmt.Errorf("consume state: %w", err)
	}
	if st.Provider != s.provider.ProviderID() || !st.ExpiresAt.After(s.now()) {
		return nil, ErrInvalidState
	}

	profile, err := s.provider.Exchange(ctx, code, st.CodeVerifier)
	if err != nil {
		return nil, err
	}
	if profile.ProviderUserID == "" {
		return nil, ErrInvalidProfile
	}
	if profile.Email, err = NormalizeEmail(profile.Email); err != nil {
		return nil, ErrInvalidProfile
	}
	if s.verifiedOnly && !profile.EmailVerified {
		return nil, ErrUnverifiedEmail
	}

	if st.LinkUserID != nil {
		user, err := s.link(ctx, *st.LinkUserID, profile)
		if err != nil {
			return nil, err
		}
		return &OAuthResult{User: user, Linked: true, CallbackURL: st.CallbackURL}, nil
	}

	user, isNew, err := s.signIn(ctx, profile)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Bool("auth.new_user", isNew))
	return &OAuthResult{User: user, IsNewUser: isNew, CallbackURL: st.CallbackURL}, nil
}

// Unlink removes the link between userID and a provider account.
func (s *OAuthService) Unlink(ctx context.Context, userID uuid.UUID, providerAccountID string) error {
	owner, err := s.adapter.GetUserByAccount(ctx, s.provider.ProviderID(), providerAccountID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return ErrAccountNotFound
		}
		return fmt.Errorf("get account owner: %w", err)
	}
	if owner.ID != userID {
		return ErrAccountNotFound
	}
	if err := s.adapter.UnlinkAccount(ctx, s.provider.ProviderID(), providerAccountID); err != nil {
		return fmt.Errorf("unlink account: %w", err)
	}
	return nil
}

func (s *OAuthService) link(ctx context.Context, userID uuid.UUID, profile ProviderProfile) (*User, error) {
	owner, err := s.adapter.GetUserByAccount(ctx, s.provider.ProviderID(), profile.ProviderUserID)
	switch {
	case err == nil && owner.ID != userID:
		return nil, ErrAccountAlreadyLinked
	case err == nil:
		return owner, nil
	case !errors.Is(err, ErrUserNotFound):
		return nil, fmt.Errorf("get account owner: %w", err)
	}

	user, err := s.adapter.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if err := s.adapter.LinkAccount(ctx, s.account(user.ID, profile)); err != nil {
		if errors.Is(err, ErrAccountAlreadyLinked) {
			return nil, err
		}
		return nil, fmt.Errorf("link account: %w", err)
	}

	s.log.InfoContext(ctx, "provider account linked", logger.UserID(user.ID), logger.Provider(s.provider.ProviderID()))
	return user, nil
}

func (s *OAuthService) signIn(ctx context.Context, profile ProviderProfile) (*User, bool, error) {
	user, err := s.adapter.GetUserByAccount(ctx, s.provider.ProviderID(), profile.ProviderUserID)
	if err == nil {
		return user, false, nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return nil, false, fmt.Errorf("get account owner: %w", err)
	}

	// An address registered through another method must be linked
	// explicitly while signed in.
	if _, err := s.adapter.GetUserByEmail(ctx, profile.Email); err == nil {
		return nil, false, ErrOAuthAccountNotLinked
	} else if !errors.Is(err, ErrUserNotFound) {
		return nil, false, fmt.Errorf("get user by email: %w", err)
	}

	now := s.now()
	user = &User{
		ID:        uuid.New(),
		Name:      profile.Name,
		Email:     profile.Email,
		Image:     profile.AvatarURL,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if profile.EmailVerified {
		user.EmailVerified = &now
	}
	if err := s.adapter.CreateUser(ctx, user); err != nil {
		if errors.Is(err, ErrEmailAlreadyExists) {
			return nil, false, ErrOAuthAccountNotLinked
		}
		return nil, false, fmt.Errorf("create user: %w", err)
	}

	if err := s.adapter.LinkAccount(ctx, s.account(user.ID, profile)); err != nil {
		if delErr := s.adapter.DeleteUser(ctx, user.ID); delErr != nil {
			s.log.ErrorContext(ctx, "failed to clean up user after account link failure",
				logger.UserID(user.ID),
				logger.Provider(s.provider.ProviderID()),
				logger.Error(delErr),
				logger.Component("oauth"),
			)
		}
		return nil, false, fmt.Errorf("link account: %w", err)
	}

	s.log.InfoContext(ctx, "user signed up", logger.UserID(user.ID), logger.Provider(s.provider.ProviderID()))
	return user, true, nil
}

func (s *OAuthService) account(userID uuid.UUID, profile ProviderProfile) *Account {
	t := profile.Tokens
	acc := &Account{
		ID:                uuid.New(),
		UserID:            userID,
		Type:              AccountTypeOAuth,
		Provider:          s.provider.ProviderID(),
		ProviderAccountID: profile.ProviderUserID,
		AccessToken:       t.AccessToken,
		RefreshToken:      t.RefreshToken,
		TokenType:         t.TokenType,
		Scope:             t.Scope,
		IDToken:           t.IDToken,
		CreatedAt:         s.now(),
	}
	if t.IDToken != "" {
		acc.Type = AccountTypeOIDC
	}
	if !t.Expiry.IsZero() {
		exp := t.Expiry
		acc.ExpiresAt = &exp
	}
	return acc
}

func generateState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
