package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/singleflight"

	"github.com/docuconvo/auth/pkg/logger"
)

// Callbacks decide which identity fields end up in the session token and in
// the session returned to clients.
type Callbacks struct {
	users UserFinder
	group singleflight.Group
	log   *slog.Logger
}

// CallbacksOption configures Callbacks.
type CallbacksOption func(*Callbacks)

// WithCallbacksLogger sets the logger.
func WithCallbacksLogger(l *slog.Logger) CallbacksOption {
	return func(c *Callbacks) {
		if l != nil {
			c.log = l
		}
	}
}

// NewCallbacks creates Callbacks backed by users.
func NewCallbacks(users UserFinder, opts ...CallbacksOption) *Callbacks {
	c := &Callbacks{users: users, log: logger.Discard()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// JWT runs whenever a session token is created or read. user is only set on
// sign-in. When a stored user matches token.Email the result is a fresh
// token built from that record; otherwise token is returned with its ID
// taken from user, if any.
func (c *Callbacks) JWT(ctx context.Context, token Token, user *User) (Token, error) {
	dbUser, err := c.lookup(ctx, token.Email)
	if err != nil {
		return token, fmt.Errorf("jwt callback: %w", err)
	}
	if dbUser == nil {
		if user != nil {
			token.ID = user.ID.String()
		}
		return token, nil
	}
	return Token{
		ID:      dbUser.ID.String(),
		Name:    dbUser.Name,
		Email:   dbUser.Email,
		Picture: dbUser.Image,
	}, nil
}

// Session copies the token identity onto session.User.
func (c *Callbacks) Session(_ context.Context, session Session, token *Token) Session {
	if token != nil {
		session.User.ID = token.ID
		session.User.Name = token.Name
		session.User.Email = token.Email
		session.User.Image = token.Picture
	}
	return session
}

// lookup returns nil without error when there is no user for addr.
// Concurrent lookups for the same address share one query.
func (c *Callbacks) lookup(ctx context.Context, addr string) (*User, error) {
	if addr == "" {
		return nil, nil
	}
	v, err, _ := c.group.Do(addr, func() (any, error) {
		u, err := c.users.GetUserByEmail(ctx, addr)
		if errors.Is(err, ErrUserNotFound) {
			return (*User)(nil), nil
		}
		return u, err
	})
	if err != nil {
		c.log.ErrorContext(ctx, "jwt callback user lookup", logger.Email(addr), logger.Error(err))
		return nil, err
	}
	return v.(*User), nil
}
