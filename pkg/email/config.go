package email

// Config holds email service configuration.
// Without a Postmark server token mail is written to DevOutputDir instead.
type Config struct {
	PostmarkServerToken  string `env:"POSTMARK_SERVER_TOKEN"`
	PostmarkAccountToken string `env:"POSTMARK_ACCOUNT_TOKEN"`
	SenderEmail          string `env:"SENDER_EMAIL" envDefault:"noreply@docuconvo.com"`
	SupportEmail         string `env:"SUPPORT_EMAIL" envDefault:"support@docuconvo.com"`
	DevOutputDir         string `env:"EMAIL_DEV_OUTPUT_DIR" envDefault:"tmp/emails"`
	// DevRecipient receives every message in development when set.
	DevRecipient string `env:"EMAIL_DEV_RECIPIENT"`
}
