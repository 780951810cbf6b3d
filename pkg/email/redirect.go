package email

import (
	"context"
	"maps"
)

// OriginalRecipientHeader carries the intended recipient of a redirected message.
const OriginalRecipientHeader = "X-Original-To"

// RedirectSender delivers every message to a single address. It is used in
// development so test sign-ins never reach real inboxes.
type RedirectSender struct {
	next EmailSender
	to   string
}

// NewRedirectSender wraps next. An empty to disables redirection.
func NewRedirectSender(next EmailSender, to string) *RedirectSender {
	return &RedirectSender{next: next, to: to}
}

// SendEmail implements EmailSender.
func (s *RedirectSender) SendEmail(ctx context.Context, params SendEmailParams) error {
	if s.to == "" || params.SendTo == s.to {
		return s.next.SendEmail(ctx, params)
	}

	headers := make(map[string]string, len(params.Headers)+1)
	maps.Copy(headers, params.Headers)
	headers[OriginalRecipientHeader] = params.SendTo

	params.Headers = headers
	params.SendTo = s.to
	return s.next.SendEmail(ctx, params)
}
