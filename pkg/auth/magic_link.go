package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/docuconvo/auth/pkg/logger"
)

// MagicLinkConfig holds magic link settings.
type MagicLinkConfig struct {
	MaxAge time.Duration `env:"MAGIC_LINK_MAX_AGE" envDefault:"24h"`
}

// MagicLinkService issues and redeems emailed sign-in links.
type MagicLinkService struct {
	adapter Adapter
	sender  VerificationSender
	secret  string
	baseURL string
	maxAge  time.Duration
	log     *slog.Logger
	now     func() time.Time
}

// MagicLinkOption configures a MagicLinkService.
type MagicLinkOption func(*MagicLinkService)

// WithMagicLinkLogger sets the logger.
func WithMagicLinkLogger(l *slog.Logger) MagicLinkOption {
	return func(s *MagicLinkService) {
		if l != nil {
			s.log = l
		}
	}
}

// WithMagicLinkMaxAge sets how long a link stays valid. Defaults to 24 hours.
func WithMagicLinkMaxAge(d time.Duration) MagicLinkOption {
	return func(s *MagicLinkService) {
		if d > 0 {
			s.maxAge = d
		}
	}
}

// WithMagicLinkClock replaces time.Now.
func WithMagicLinkClock(now func() time.Time) MagicLinkOption {
	return func(s *MagicLinkService) {
		if now != nil {
			s.now = now
		}
	}
}

// NewMagicLinkService creates the service. secret salts stored token hashes;
// baseURL is the public origin the emailed link points to.
func NewMagicLinkService(adapter Adapter, sender VerificationSender, secret, baseURL string, opts ...MagicLinkOption) *MagicLinkService {
	s := &MagicLinkService{
		adapter: adapter,
		sender:  sender,
		secret:  secret,
		baseURL: strings.TrimRight(baseURL, "/"),
		maxAge:  24 * time.Hour,
		log:     logger.Discard(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RequestSignIn stores a new verification token for addr and emails the
// link. It does not create the user; that happens on verification.
func (s *MagicLinkService) RequestSignIn(ctx context.Context, addr, callbackURL string) (err error) {
	ctx, span := tracer.Start(ctx, "auth.MagicLinkService.RequestSignIn")
	defer func() { endSpan(span, err) }()

	identifier, err := NormalizeEmail(addr)
	if err != nil {
		return err
	}

	token := randomToken(32)
	expires := s.now().Add(s.maxAge)
	if err := s.adapter.CreateVerificationToken(ctx, VerificationToken{
		Identifier: identifier,
		TokenHash:  hashToken(token, s.secret),
		ExpiresAt:  expires,
	}); err != nil {
		s.log.ErrorContext(ctx, "store verification token", logger.Email(identifier), logger.Error(err))
		return ErrSendVerificationEmail
	}

	q := url.Values{}
	q.Set("token", token)
	q.Set("email", identifier)
	if callbackURL != "" {
		q.Set("callbackUrl", callbackURL)
	}
	link := s.baseURL + "/auth/callback/email?" + q.Encode()

	if err := s.sender.SendVerificationRequest(ctx, VerificationRequest{
		Identifier: identifier,
		URL:        link,
		ExpiresAt:  expires,
	}); err != nil {
		s.log.ErrorContext(ctx, "send verification request", logger.Email(identifier), logger.Error(err))
		return ErrSendVerificationEmail
	}

	s.log.InfoContext(ctx, "magic link sent", logger.Email(identifier), logger.Provider(ProviderEmail))
	return nil
}

// Verify redeems the token emailed to addr. The first successful
// verification creates the user; later ones mark it verified if needed.
func (s *MagicLinkService) Verify(ctx context.Context, addr, token string) (user *User, isNewUser bool, err error) {
	ctx, span := tracer.Start(ctx, "auth.MagicLinkService.Verify")
	defer func() { endSpan(span, err) }()

	identifier, err := NormalizeEmail(addr)
	if err != nil || token == "" {
		return nil, false, ErrVerificationInvalid
	}

	vt, err := s.adapter.UseVerificationToken(ctx, identifier, hashToken(token, s.secret))
	if err != nil {
		if errors.Is(err, ErrTokenNotFound) {
			return nil, false, ErrVerificationInvalid
		}
		return nil, false, fmt.Errorf("use verification token: %w", err)
	}
	now := s.now()
	if !vt.ExpiresAt.After(now) {
		return nil, false, ErrVerificationExpired
	}

	user, err = s.adapter.GetUserByEmail(ctx, identifier)
	switch {
	case err == nil:
		if user.EmailVerified == nil {
			user.EmailVerified = &now
			user.UpdatedAt = now
			if err := s.adapter.UpdateUser(ctx, user); err != nil {
				return nil, false, fmt.Errorf("mark email verified: %w", err)
			}
		}
	case errors.Is(err, ErrUserNotFound):
		user = &User{
			ID:            uuid.New(),
			Email:         identifier,
			EmailVerified: &now,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := s.adapter.CreateUser(ctx, user); err != nil {
			if !errors.Is(err, ErrEmailAlreadyExists) {
				return nil, false, fmt.Errorf("create user: %w", err)
			}
			// Lost a race with a concurrent verification of the same address.
			if user, err = s.adapter.GetUserByEmail(ctx, identifier); err != nil {
				return nil, false, fmt.Errorf("get user: %w", err)
			}
		} else {
			isNewUser = true
		}
	default:
		return nil, false, fmt.Errorf("get user: %w", err)
	}

	span.SetAttributes(attribute.Bool("auth.new_user", isNewUser))
	s.log.InfoContext(ctx, "magic link verified", logger.UserID(user.ID), logger.Provider(ProviderEmail))
	return user, isNewUser, nil
}
