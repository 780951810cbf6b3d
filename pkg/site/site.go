// Package site loads public metadata about the product (display name, base
// URL, sender mailbox) from a YAML file.
package site

import (
	"errors"
	"fmt"
	"net/mail"
	"net/url"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	ErrReadSiteConfig    = errors.New("site: failed to read config file")
	ErrInvalidSiteConfig = errors.New("site: invalid config")
)

// Config points at the YAML file.
type Config struct {
	Path string `env:"SITE_CONFIG_PATH" envDefault:"config/site.yaml"`
}

// Site is the product metadata used in emails and redirects.
type Site struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	URL         string `yaml:"url"`
	// Sender is the mailbox outgoing mail is sent from.
	Sender  string `yaml:"sender"`
	Support string `yaml:"support"`
	// SignInPath is the page users are sent to for sign-in and auth errors.
	SignInPath string `yaml:"sign_in_path"`
}

// Default returns the built-in metadata used when no file is present.
func Default() Site {
	return Site{
		Name:       "DocuConvo",
		URL:        "http://localhost:8080",
		Sender:     "onboarding@docuconvo.com",
		Support:    "support@docuconvo.com",
		SignInPath: "/login",
	}
}

// Load reads the file at path over the defaults. A missing file yields the
// defaults unchanged.
func Load(path string) (Site, error) {
	s := Default()
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return s, nil
		}
		return Site{}, errors.Join(ErrReadSiteConfig, err)
	}
	if err := yaml.Unmarshal(raw, &s); err != nil {
		return Site{}, errors.Join(ErrInvalidSiteConfig, err)
	}
	if err := s.Validate(); err != nil {
		return Site{}, err
	}
	return s, nil
}

// Validate checks the URL and mailboxes.
func (s Site) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidSiteConfig)
	}
	u, err := url.Parse(s.URL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("%w: url must be an absolute http(s) URL", ErrInvalidSiteConfig)
	}
	if _, err := mail.ParseAddress(s.Sender); err != nil {
		return fmt.Errorf("%w: sender must be an email address", ErrInvalidSiteConfig)
	}
	if !strings.HasPrefix(s.SignInPath, "/") {
		return fmt.Errorf("%w: sign_in_path must start with /", ErrInvalidSiteConfig)
	}
	return nil
}

// SenderAddress formats the From header, e.g. "DocuConvo App <onboarding@docuconvo.com>".
func (s Site) SenderAddress() string {
	addr := &mail.Address{Name: s.Name + " App", Address: s.Sender}
	return addr.String()
}

// BaseURL returns URL without a trailing slash.
func (s Site) BaseURL() string {
	return strings.TrimRight(s.URL, "/")
}
