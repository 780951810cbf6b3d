package auth

import "errors"

// Storage errors.
var (
	ErrUserNotFound         = errors.New("user not found")
	ErrEmailAlreadyExists   = errors.New("email already exists")
	ErrAccountNotFound      = errors.New("account not found")
	ErrAccountAlreadyLinked = errors.New("provider account already linked to another user")
	ErrTokenNotFound        = errors.New("verification token not found")
	ErrStateNotFound        = errors.New("oauth state not found or expired")
)

// Email sign-in errors.
var (
	ErrInvalidEmail          = errors.New("invalid email address")
	ErrSendVerificationEmail = errors.New("Failed to send verification email.")
	ErrVerificationInvalid   = errors.New("invalid verification link")
	ErrVerificationExpired   = errors.New("verification link expired")
)

// OAuth errors.
var (
	ErrInvalidState          = errors.New("invalid oauth state")
	ErrInvalidCode           = errors.New("invalid oauth code")
	ErrInvalidProfile        = errors.New("incomplete provider profile")
	ErrUnverifiedEmail       = errors.New("email not verified by provider")
	ErrOAuthAccountNotLinked = errors.New("email already registered with another sign-in method")
	ErrProviderNotConfigured = errors.New("provider is not configured")
)

// Session errors.
var (
	ErrNoSession = errors.New("no session")
)
