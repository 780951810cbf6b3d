package auth

import (
	"net/url"
	"strings"
)

// SafeRedirect returns where to send the browser after sign-in or
// sign-out. Relative paths are resolved against baseURL, absolute URLs are
// allowed only on baseURL's origin, and everything else falls back to
// baseURL.
func SafeRedirect(baseURL, target string) string {
	baseURL = strings.TrimRight(baseURL, "/")
	if target == "" {
		return baseURL
	}
	if strings.HasPrefix(target, "/") {
		if strings.HasPrefix(target, "//") || strings.HasPrefix(target, "/\\") {
			return baseURL
		}
		return baseURL + target
	}

	base, err := url.Parse(baseURL)
	if err != nil {
		return baseURL
	}
	u, err := url.Parse(target)
	if err != nil || !u.IsAbs() {
		return baseURL
	}
	if !strings.EqualFold(u.Scheme, base.Scheme) || !strings.EqualFold(u.Host, base.Host) {
		return baseURL
	}
	return target
}
