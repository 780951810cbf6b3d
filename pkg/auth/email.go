package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"net/mail"
	"strings"

	"golang.org/x/text/cases"
)

var fold = cases.Fold()

// NormalizeEmail trims, case-folds and validates an address. Anything after
// a comma is dropped so "a@x.com,b@y.com" cannot request two links at once.
func NormalizeEmail(raw string) (string, error) {
	raw, _, _ = strings.Cut(raw, ",")
	e := fold.String(strings.TrimSpace(raw))
	if e == "" || len(e) > 254 {
		return "", ErrInvalidEmail
	}
	addr, err := mail.ParseAddress(e)
	if err != nil || addr.Address != e || addr.Name != "" {
		return "", ErrInvalidEmail
	}
	local, domain, ok := strings.Cut(e, "@")
	if !ok || local == "" || !strings.Contains(domain, ".") || strings.HasSuffix(domain, ".") {
		return "", ErrInvalidEmail
	}
	return e, nil
}

// randomToken returns n random bytes, hex encoded.
func randomToken(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// hashToken is the stored form of an emailed token.
func hashToken(token, secret string) string {
	sum := sha256.Sum256([]byte(token + secret))
	return hex.EncodeToString(sum[:])
}
