// Package memory keeps users, accounts, verification tokens and OAuth state
// in process memory. It backs tests and the "memory" storage driver.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/docuconvo/auth/pkg/auth"
)

var (
	_ auth.Adapter     = (*Store)(nil)
	_ auth.StateStore  = (*Store)(nil)
	_ auth.StatePurger = (*Store)(nil)
	_ auth.TokenPurger = (*Store)(nil)
)

type accountKey struct {
	provider string
	id       string
}

type tokenKey struct {
	identifier string
	hash       string
}

// Store is a concurrency safe in-memory Adapter and StateStore.
type Store struct {
	mu       sync.RWMutex
	users    map[uuid.UUID]auth.User
	emails   map[string]uuid.UUID
	accounts map[accountKey]auth.Account
	tokens   map[tokenKey]auth.VerificationToken
	states   map[string]auth.OAuthState
	now      func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces time.Now for state expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// New creates an empty Store.
func New(opts ...Option) *Store {
	s := &Store{
		users:    make(map[uuid.UUID]auth.User),
		emails:   make(map[string]uuid.UUID),
		accounts: make(map[accountKey]auth.Account),
		tokens:   make(map[tokenKey]auth.VerificationToken),
		states:   make(map[string]auth.OAuthState),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) CreateUser(_ context.Context, user *auth.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	if _, ok := s.emails[user.Email]; ok {
		return auth.ErrEmailAlreadyExists
	}
	s.users[user.ID] = *user
	s.emails[user.Email] = user.ID
	return nil
}

func (s *Store) GetUser(_ context.Context, id uuid.UUID) (*auth.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, auth.ErrUserNotFound
	}
	return &u, nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (*auth.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.emails[email]
	if !ok {
		return nil, auth.ErrUserNotFound
	}
	u := s.users[id]
	return &u, nil
}

func (s *Store) GetUserByAccount(_ context.Context, provider, providerAccountID string) (*auth.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	acc, ok := s.accounts[accountKey{provider, providerAccountID}]
	if !ok {
		return nil, auth.ErrUserNotFound
	}
	u, ok := s.users[acc.UserID]
	if !ok {
		return nil, auth.ErrUserNotFound
	}
	return &u, nil
}

func (s *Store) UpdateUser(_ context.Context, user *auth.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.users[user.ID]
	if !ok {
		return auth.ErrUserNotFound
	}
	if old.Email != user.Email {
		if _, taken := s.emails[user.Email]; taken {
			return auth.ErrEmailAlreadyExists
		}
		delete(s.emails, old.Email)
		s.emails[user.Email] = user.ID
	}
	s.users[user.ID] = *user
	return nil
}

// DeleteUser removes the user and every account linked to it.
func (s *Store) DeleteUser(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return auth.ErrUserNotFound
	}
	delete(s.users, id)
	delete(s.emails, u.Email)
	for k, acc := range s.accounts {
		if acc.UserID == id {
			delete(s.accounts, k)
		}
	}
	return nil
}

func (s *Store) LinkAccount(_ context.Context, account *auth.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[account.UserID]; !ok {
		return auth.ErrUserNotFound
	}
	k := accountKey{account.Provider, account.ProviderAccountID}
	if _, ok := s.accounts[k]; ok {
		return auth.ErrAccountAlreadyLinked
	}
	if account.ID == uuid.Nil {
		account.ID = uuid.New()
	}
	s.accounts[k] = *account
	return nil
}

func (s *Store) UnlinkAccount(_ context.Context, provider, providerAccountID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := accountKey{provider, providerAccountID}
	if _, ok := s.accounts[k]; !ok {
		return auth.ErrAccountNotFound
	}
	delete(s.accounts, k)
	return nil
}

func (s *Store) CreateVerificationToken(_ context.Context, token auth.VerificationToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tokens[tokenKey{token.Identifier, token.TokenHash}] = token
	return nil
}

func (s *Store) UseVerificationToken(_ context.Context, identifier, tokenHash string) (*auth.VerificationToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := tokenKey{identifier, tokenHash}
	t, ok := s.tokens[k]
	if !ok {
		return nil, auth.ErrTokenNotFound
	}
	delete(s.tokens, k)
	return &t, nil
}

func (s *Store) DeleteExpiredVerificationTokens(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for k, t := range s.tokens {
		if t.ExpiresAt.Before(before) {
			delete(s.tokens, k)
			n++
		}
	}
	return n, nil
}

func (s *Store) StoreState(_ context.Context, state auth.OAuthState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.states[state.State] = state
	return nil
}

func (s *Store) ConsumeState(_ context.Context, state string) (*auth.OAuthState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.states[state]
	if !ok {
		return nil, auth.ErrStateNotFound
	}
	delete(s.states, state)
	if !st.ExpiresAt.After(s.now()) {
		return nil, auth.ErrStateNotFound
	}
	return &st, nil
}

// DeleteExpiredStates drops states that expired before the given time.
// States are otherwise only removed when consumed.
func (s *Store) DeleteExpiredStates(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for k, st := range s.states {
		if st.ExpiresAt.Before(before) {
			delete(s.states, k)
			n++
		}
	}
	return n, nil
}

// StateCount reports how many states are held, expired ones included.
func (s *Store) StateCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.states)
}
