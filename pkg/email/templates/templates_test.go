package templates_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docuconvo/auth/pkg/email/templates"
)

func TestRender(t *testing.T) {
	t.Parallel()

	html, err := templates.Render(context.Background(), templates.Layout("Sign in",
		templates.Heading("Hello <Jane>"),
		templates.Text("Click below."),
		templates.Button("https://example.com/cb?token=a&email=b", "Sign in"),
		templates.Link("https://example.com/cb"),
		templates.TextSecondary("Ignore this if it was not you."),
	))
	require.NoError(t, err)

	assert.Contains(t, html, "<title>Sign in</title>")
	assert.Contains(t, html, "Hello &lt;Jane&gt;")
	assert.Contains(t, html, `href="https://example.com/cb?token=a&amp;email=b"`)
	assert.Contains(t, html, "Ignore this if it was not you.")
	assert.Contains(t, html, "</html>")
}

func TestButton_UnsafeURL(t *testing.T) {
	t.Parallel()

	html, err := templates.Render(context.Background(), templates.Button("javascript:alert(1)", "x"))
	require.NoError(t, err)
	assert.NotContains(t, html, "javascript:")
}
