// Package templates holds small templ components for transactional email
// bodies. Styles are inlined because most mail clients drop <style> blocks.
package templates

import (
	"context"
	"io"
	"strings"

	"github.com/a-h/templ"
)

// Render renders a component to a string.
func Render(ctx context.Context, tpl templ.Component) (string, error) {
	var sb strings.Builder
	if err := tpl.Render(ctx, &sb); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// Layout wraps body components in a centered single-column document.
func Layout(title string, body ...templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, `<!DOCTYPE html><html lang="en"><head><meta charset="utf-8"><meta name="viewport" content="width=device-width, initial-scale=1"><title>`+
			templ.EscapeString(title)+
			`</title></head><body style="margin:0;padding:0;background:#f4f4f7;font-family:Helvetica,Arial,sans-serif;color:#333;">`+
			`<table role="presentation" width="100%" cellpadding="0" cellspacing="0"><tr><td align="center" style="padding:32px 16px;">`+
			`<table role="presentation" width="100%" style="max-width:560px;background:#ffffff;border-radius:8px;padding:32px;"><tr><td>`); err != nil {
			return err
		}
		for _, c := range body {
			if err := c.Render(ctx, w); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, `</td></tr></table></td></tr></table></body></html>`)
		return err
	})
}

// Heading renders a level-one heading.
func Heading(text string) templ.Component {
	return element(`<h1 style="font-size:22px;margin:0 0 16px;">`, text, `</h1>`)
}

// Text renders a paragraph.
func Text(text string) templ.Component {
	return element(`<p style="font-size:16px;line-height:1.5;margin:0 0 16px;">`, text, `</p>`)
}

// TextSecondary renders a muted paragraph.
func TextSecondary(text string) templ.Component {
	return element(`<p style="font-size:13px;line-height:1.5;color:#8a8a8a;margin:0 0 12px;">`, text, `</p>`)
}

// Button renders a call-to-action link styled as a button.
// Unsafe URL schemes are replaced by templ's sanitised placeholder.
func Button(href, label string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w, `<p style="margin:24px 0;"><a href="`+
			templ.EscapeString(string(templ.URL(href)))+
			`" style="display:inline-block;background:#2563eb;color:#ffffff;text-decoration:none;padding:12px 24px;border-radius:6px;font-weight:600;">`+
			templ.EscapeString(label)+`</a></p>`)
		return err
	})
}

// Link renders the raw URL as a clickable fallback for clients that hide buttons.
func Link(href string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		safe := templ.EscapeString(string(templ.URL(href)))
		_, err := io.WriteString(w, `<p style="font-size:13px;word-break:break-all;margin:0 0 16px;"><a href="`+safe+`" style="color:#2563eb;">`+safe+`</a></p>`)
		return err
	})
}

func element(open, text, closing string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w, open+templ.EscapeString(text)+closing)
		return err
	})
}
