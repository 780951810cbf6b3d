package auth

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/a-h/templ"

	"github.com/docuconvo/auth/pkg/email"
	"github.com/docuconvo/auth/pkg/email/templates"
	"github.com/docuconvo/auth/pkg/logger"
	"github.com/docuconvo/auth/pkg/site"
)

// Mail types of the magic link email.
const (
	MailTypeLogin    = "login"
	MailTypeRegister = "register"
)

// EntityRefHeader makes every magic link email unique so mail clients do
// not thread them together.
const EntityRefHeader = "X-Entity-Ref-ID"

// VerificationRequest is a magic link ready to be delivered.
type VerificationRequest struct {
	Identifier string
	URL        string
	ExpiresAt  time.Time
}

// VerificationSender delivers magic links.
type VerificationSender interface {
	SendVerificationRequest(ctx context.Context, req VerificationRequest) error
}

// MagicLinkEmailData feeds MagicLinkEmail.
type MagicLinkEmailData struct {
	FirstName string
	ActionURL string
	MailType  string
	SiteName  string
}

// MagicLinkEmail renders the sign-in / activation email body.
func MagicLinkEmail(d MagicLinkEmailData) templ.Component {
	greeting := "Hi,"
	if d.FirstName != "" {
		greeting = "Hi " + d.FirstName + ","
	}
	intro, button := "Click the link below to activate your account.", "Activate Account"
	if d.MailType == MailTypeLogin {
		intro, button = "Click the link below to sign in to your account.", "Sign in"
	}
	return templates.Layout(d.SiteName,
		templates.Heading("Welcome to "+d.SiteName),
		templates.Text(greeting),
		templates.Text(intro),
		templates.Button(d.ActionURL, button),
		templates.TextSecondary("Or copy and paste this URL into your browser:"),
		templates.Link(d.ActionURL),
		templates.TextSecondary("This link expires in 24 hours and can only be used once."),
		templates.TextSecondary("If you did not try to log into your account, you can safely ignore this email."),
	)
}

// VerificationMailer looks up the recipient, picks login or activation copy
// and sends the magic link email.
type VerificationMailer struct {
	users  UserFinder
	sender email.EmailSender
	site   site.Site
	log    *slog.Logger
	now    func() time.Time
}

// VerificationMailerOption configures a VerificationMailer.
type VerificationMailerOption func(*VerificationMailer)

// WithMailerLogger sets the logger.
func WithMailerLogger(l *slog.Logger) VerificationMailerOption {
	return func(m *VerificationMailer) {
		if l != nil {
			m.log = l
		}
	}
}

// WithMailerClock replaces time.Now.
func WithMailerClock(now func() time.Time) VerificationMailerOption {
	return func(m *VerificationMailer) {
		if now != nil {
			m.now = now
		}
	}
}

// NewVerificationMailer creates a VerificationMailer.
func NewVerificationMailer(users UserFinder, sender email.EmailSender, s site.Site, opts ...VerificationMailerOption) *VerificationMailer {
	m := &VerificationMailer{
		users:  users,
		sender: sender,
		site:   s,
		log:    logger.Discard(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// SendVerificationRequest implements VerificationSender. Any delivery
// failure is reported as ErrSendVerificationEmail.
func (m *VerificationMailer) SendVerificationRequest(ctx context.Context, req VerificationRequest) error {
	user, err := m.users.GetUserByEmail(ctx, req.Identifier)
	if err != nil && !errors.Is(err, ErrUserNotFound) {
		return err
	}

	verified := user.IsVerified()
	subject, mailType := "Activate your account", MailTypeRegister
	if verified {
		subject, mailType = "Sign-in link for "+m.site.Name, MailTypeLogin
	}
	var firstName string
	if user != nil {
		firstName = user.Name
	}

	body, err := templates.Render(ctx, MagicLinkEmail(MagicLinkEmailData{
		FirstName: firstName,
		ActionURL: req.URL,
		MailType:  mailType,
		SiteName:  m.site.Name,
	}))
	if err != nil {
		m.log.ErrorContext(ctx, "render magic link email", logger.Error(err))
		return ErrSendVerificationEmail
	}

	err = m.sender.SendEmail(ctx, email.SendEmailParams{
		From:     m.site.SenderAddress(),
		SendTo:   req.Identifier,
		Subject:  subject,
		BodyHTML: body,
		Tag:      "magic-link-" + mailType,
		Headers: map[string]string{
			EntityRefHeader: strconv.FormatInt(m.now().UnixMilli(), 10),
		},
	})
	if err != nil {
		m.log.ErrorContext(ctx, "send magic link email", logger.Email(req.Identifier), logger.Error(err))
		return ErrSendVerificationEmail
	}
	return nil
}
