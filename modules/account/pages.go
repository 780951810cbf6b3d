package account

import (
	"context"
	"io"

	"github.com/a-h/templ"
)

var errorMessages = map[string]string{
	ErrorEmailSignin:           "The sign-in email could not be sent.",
	ErrorVerification:          "The sign-in link is no longer valid. It may have been used already or it may have expired.",
	ErrorOAuthSignin:           "Try signing in with a different account.",
	ErrorOAuthCallback:         "Try signing in with a different account.",
	ErrorOAuthAccountNotLinked: "To confirm your identity, sign in with the same account you used originally.",
	ErrorAccessDenied:          "You do not have permission to sign in.",
	ErrorSessionRequired:       "Please sign in to access this page.",
	ErrorConfiguration:         "There is a problem with the server configuration.",
	ErrorDefault:               "Unable to sign in.",
}

func errorMessage(code string) string {
	if code == "" {
		return ""
	}
	if msg, ok := errorMessages[code]; ok {
		return msg
	}
	return errorMessages[ErrorDefault]
}

type signInPageData struct {
	SiteName    string
	CSRFToken   string
	CallbackURL string
	Error       string
	Providers   []ProviderInfo
}

func page(title string, body func(w io.Writer) error) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, `<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`+
			`<meta name="viewport" content="width=device-width, initial-scale=1"><title>`+templ.EscapeString(title)+`</title></head>`+
			`<body style="font-family:Helvetica,Arial,sans-serif;background:#f4f4f7;display:flex;justify-content:center;padding:48px 16px;">`+
			`<main style="background:#fff;border-radius:8px;padding:32px;max-width:380px;width:100%;">`); err != nil {
			return err
		}
		if err := body(w); err != nil {
			return err
		}
		_, err := io.WriteString(w, `</main></body></html>`)
		return err
	})
}

func signInPage(d signInPageData) templ.Component {
	return page("Sign in to "+d.SiteName, func(w io.Writer) error {
		out := `<h1 style="font-size:22px;">Sign in to ` + templ.EscapeString(d.SiteName) + `</h1>`
		if d.Error != "" {
			out += `<p role="alert" style="color:#b91c1c;">` + templ.EscapeString(errorMessage(d.Error)) + `</p>`
		}
		for _, p := range d.Providers {
			if p.Type == "email" {
				out += `<form method="post" action="` + templ.EscapeString(p.SignInURL) + `">` +
					hidden("csrfToken", d.CSRFToken) + hidden("callbackUrl", d.CallbackURL) +
					`<label for="email">Email</label>` +
					`<input id="email" name="email" type="email" placeholder="email@example.com" required style="display:block;width:100%;margin:8px 0 12px;">` +
					`<button type="submit">Sign in with Email</button></form>`
				continue
			}
			out += `<form method="post" action="` + templ.EscapeString(p.SignInURL) + `" style="margin-bottom:12px;">` +
				hidden("csrfToken", d.CSRFToken) + hidden("callbackUrl", d.CallbackURL) +
				`<button type="submit">Sign in with ` + templ.EscapeString(p.Name) + `</button></form>`
		}
		_, err := io.WriteString(w, out)
		return err
	})
}

func hidden(name, value string) string {
	return `<input type="hidden" name="` + name + `" value="` + templ.EscapeString(value) + `">`
}

func verifyRequestPage(siteName, siteURL string) templ.Component {
	return page("Check your email", func(w io.Writer) error {
		_, err := io.WriteString(w, `<h1 style="font-size:22px;">Check your email</h1>`+
			`<p>A sign in link has been sent to your email address.</p>`+
			`<p><a href="`+templ.EscapeString(string(templ.URL(siteURL)))+`">`+templ.EscapeString(siteName)+`</a></p>`)
		return err
	})
}
