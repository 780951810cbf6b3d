package main

import (
	"log/slog"

	"github.com/docuconvo/auth/pkg/email"
	"github.com/docuconvo/auth/pkg/environment"
)

// newEmailSender delivers through Postmark when a server token is set and
// writes messages to disk otherwise. In development every message can be
// rerouted to EMAIL_DEV_RECIPIENT.
func newEmailSender(cfg email.Config, env environment.Environment, log *slog.Logger) (email.EmailSender, error) {
	var sender email.EmailSender
	if cfg.PostmarkServerToken != "" {
		pm, err := email.NewPostmarkClient(cfg)
		if err != nil {
			return nil, err
		}
		sender = pm
	} else {
		log.Warn("POSTMARK_SERVER_TOKEN not set, writing emails to disk", slog.String("dir", cfg.DevOutputDir))
		sender = email.NewDevSender(cfg.DevOutputDir)
	}

	if env.IsDevelopment() && cfg.DevRecipient != "" {
		log.Info("redirecting all email", slog.String("to", cfg.DevRecipient))
		sender = email.NewRedirectSender(sender, cfg.DevRecipient)
	}
	return sender, nil
}
