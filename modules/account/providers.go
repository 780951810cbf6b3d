package account

import (
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/docuconvo/auth/handler"
	"github.com/docuconvo/auth/pkg/auth"
)

// ProviderInfo describes a sign-in option.
type ProviderInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Type        string `json:"type"`
	SignInURL   string `json:"signinUrl"`
	CallbackURL string `json:"callbackUrl"`
}

var providerNames = map[string]string{
	auth.ProviderGoogle: "Google",
}

// providerName returns the display name of an OAuth provider. A Caser
// holds state, so one is built per call.
func providerName(id string) string {
	if name, ok := providerNames[id]; ok {
		return name
	}
	return cases.Title(language.English).String(id)
}

// Providers lists the enabled sign-in options, OAuth providers first in
// registration order.
func (s *Service) Providers() []ProviderInfo {
	out := make([]ProviderInfo, 0, len(s.order)+1)
	for _, id := range s.order {
		out = append(out, ProviderInfo{
			ID:          id,
			Name:        providerName(id),
			Type:        auth.AccountTypeOAuth,
			SignInURL:   s.baseURL + "/auth/signin/" + id,
			CallbackURL: s.baseURL + "/auth/callback/" + id,
		})
	}
	if s.magic != nil {
		out = append(out, ProviderInfo{
			ID:          auth.ProviderEmail,
			Name:        "Email",
			Type:        auth.ProviderEmail,
			SignInURL:   s.baseURL + "/auth/signin/email",
			CallbackURL: s.baseURL + "/auth/callback/email",
		})
	}
	return out
}

func (s *Service) listProviders(_ handler.Context, _ struct{}) handler.Response {
	providers := s.Providers()
	byID := make(map[string]ProviderInfo, len(providers))
	for _, p := range providers {
		byID[p.ID] = p
	}
	return handler.JSON(byID)
}
