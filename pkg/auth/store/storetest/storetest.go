// Package storetest holds the behaviour every auth storage backend must
// share. Backend packages call RunAdapter and RunStateStore from their own
// tests.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docuconvo/auth/pkg/auth"
)

// RunAdapter exercises an auth.Adapter. newAdapter must return an empty store.
func RunAdapter(t *testing.T, newAdapter func(t *testing.T) auth.Adapter) {
	t.Helper()

	t.Run("users", func(t *testing.T) { testUsers(t, newAdapter(t)) })
	t.Run("accounts", func(t *testing.T) { testAccounts(t, newAdapter(t)) })
	t.Run("verification tokens", func(t *testing.T) { testVerificationTokens(t, newAdapter(t)) })
}

// RunStateStore exercises an auth.StateStore.
func RunStateStore(t *testing.T, newStore func(t *testing.T) auth.StateStore) {
	t.Helper()

	t.Run("consume once", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		link := uuid.New()
		in := auth.OAuthState{
			State:        "state-" + uuid.NewString(),
			Provider:     auth.ProviderGoogle,
			CodeVerifier: "verifier",
			CallbackURL:  "/dashboard",
			LinkUserID:   &link,
			ExpiresAt:    time.Now().Add(10 * time.Minute).UTC().Truncate(time.Second),
		}
		require.NoError(t, s.StoreState(ctx, in))

		got, err := s.ConsumeState(ctx, in.State)
		require.NoError(t, err)
		assert.Equal(t, in.State, got.State)
		assert.Equal(t, in.Provider, got.Provider)
		assert.Equal(t, in.CodeVerifier, got.CodeVerifier)
		assert.Equal(t, in.CallbackURL, got.CallbackURL)
		require.NotNil(t, got.LinkUserID)
		assert.Equal(t, link, *got.LinkUserID)
		assert.WithinDuration(t, in.ExpiresAt, got.ExpiresAt, time.Millisecond)

		_, err = s.ConsumeState(ctx, in.State)
		assert.ErrorIs(t, err, auth.ErrStateNotFound)
	})

	t.Run("unknown state", func(t *testing.T) {
		_, err := newStore(t).ConsumeState(context.Background(), "missing")
		assert.ErrorIs(t, err, auth.ErrStateNotFound)
	})

	t.Run("expired state", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		in := auth.OAuthState{State: "old-" + uuid.NewString(), Provider: auth.ProviderGoogle, ExpiresAt: time.Now().Add(-time.Minute)}
		require.NoError(t, s.StoreState(ctx, in))

		_, err := s.ConsumeState(ctx, in.State)
		assert.ErrorIs(t, err, auth.ErrStateNotFound)
	})
}

func newUser(email string) *auth.User {
	now := time.Now().UTC().Truncate(time.Second)
	return &auth.User{
		ID:        uuid.New(),
		Name:      "Jane Doe",
		Email:     email,
		Image:     "https://example.com/jane.png",
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func testUsers(t *testing.T, a auth.Adapter) {
	ctx := context.Background()

	u := newUser("jane@example.com")
	require.NoError(t, a.CreateUser(ctx, u))

	got, err := a.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, u.Name, got.Name)
	assert.Equal(t, u.Email, got.Email)
	assert.Equal(t, u.Image, got.Image)
	assert.Nil(t, got.EmailVerified)
	assert.WithinDuration(t, u.CreatedAt, got.CreatedAt, time.Millisecond)

	got, err = a.GetUserByEmail(ctx, "jane@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	err = a.CreateUser(ctx, newUser("jane@example.com"))
	assert.ErrorIs(t, err, auth.ErrEmailAlreadyExists)

	verified := time.Now().UTC().Truncate(time.Second)
	got.Name = "Jane Smith"
	got.EmailVerified = &verified
	got.UpdatedAt = verified
	require.NoError(t, a.UpdateUser(ctx, got))

	got, err = a.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Jane Smith", got.Name)
	require.NotNil(t, got.EmailVerified)
	assert.WithinDuration(t, verified, *got.EmailVerified, time.Millisecond)
	assert.True(t, got.IsVerified())

	other := newUser("other@example.com")
	require.NoError(t, a.CreateUser(ctx, other))
	other.Email = "jane@example.com"
	assert.ErrorIs(t, a.UpdateUser(ctx, other), auth.ErrEmailAlreadyExists)

	assert.ErrorIs(t, a.UpdateUser(ctx, newUser("ghost@example.com")), auth.ErrUserNotFound)

	_, err = a.GetUser(ctx, uuid.New())
	assert.ErrorIs(t, err, auth.ErrUserNotFound)
	_, err = a.GetUserByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, auth.ErrUserNotFound)

	require.NoError(t, a.DeleteUser(ctx, u.ID))
	_, err = a.GetUser(ctx, u.ID)
	assert.ErrorIs(t, err, auth.ErrUserNotFound)
	assert.ErrorIs(t, a.DeleteUser(ctx, u.ID), auth.ErrUserNotFound)

	// The address is free again.
	require.NoError(t, a.CreateUser(ctx, newUser("jane@example.com")))
}

func testAccounts(t *testing.T, a auth.Adapter) {
	ctx := context.Background()

	u := newUser("jane@example.com")
	require.NoError(t, a.CreateUser(ctx, u))

	expires := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
	acc := &auth.Account{
		ID:                uuid.New(),
		UserID:            u.ID,
		Type:              auth.AccountTypeOIDC,
		Provider:          auth.ProviderGoogle,
		ProviderAccountID: "google-123",
		AccessToken:       "access",
		RefreshToken:      "refresh",
		ExpiresAt:         &expires,
		TokenType:         "Bearer",
		Scope:             "openid email profile",
		IDToken:           "id-token",
		CreatedAt:         time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(t, a.LinkAccount(ctx, acc))

	got, err := a.GetUserByAccount(ctx, auth.ProviderGoogle, "google-123")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = a.GetUserByAccount(ctx, auth.ProviderGoogle, "google-999")
	assert.ErrorIs(t, err, auth.ErrUserNotFound)

	dup := *acc
	dup.ID = uuid.New()
	assert.ErrorIs(t, a.LinkAccount(ctx, &dup), auth.ErrAccountAlreadyLinked)

	orphan := *acc
	orphan.ID = uuid.New()
	orphan.UserID = uuid.New()
	orphan.ProviderAccountID = "google-456"
	assert.ErrorIs(t, a.LinkAccount(ctx, &orphan), auth.ErrUserNotFound)

	require.NoError(t, a.UnlinkAccount(ctx, auth.ProviderGoogle, "google-123"))
	_, err = a.GetUserByAccount(ctx, auth.ProviderGoogle, "google-123")
	assert.ErrorIs(t, err, auth.ErrUserNotFound)
	assert.ErrorIs(t, a.UnlinkAccount(ctx, auth.ProviderGoogle, "google-123"), auth.ErrAccountNotFound)

	relinked := *acc
	relinked.ID = uuid.New()
	require.NoError(t, a.LinkAccount(ctx, &relinked))
	require.NoError(t, a.DeleteUser(ctx, u.ID))
	_, err = a.GetUserByAccount(ctx, auth.ProviderGoogle, "google-123")
	assert.ErrorIs(t, err, auth.ErrUserNotFound)
}

func testVerificationTokens(t *testing.T, a auth.Adapter) {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	live := auth.VerificationToken{Identifier: "jane@example.com", TokenHash: "hash-live", ExpiresAt: now.Add(time.Hour)}
	stale := auth.VerificationToken{Identifier: "jane@example.com", TokenHash: "hash-stale", ExpiresAt: now.Add(-time.Hour)}
	require.NoError(t, a.CreateVerificationToken(ctx, live))
	require.NoError(t, a.CreateVerificationToken(ctx, stale))

	_, err := a.UseVerificationToken(ctx, "eve@example.com", "hash-live")
	assert.ErrorIs(t, err, auth.ErrTokenNotFound)

	n, err := a.DeleteExpiredVerificationTokens(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = a.UseVerificationToken(ctx, "jane@example.com", "hash-stale")
	assert.ErrorIs(t, err, auth.ErrTokenNotFound)

	got, err := a.UseVerificationToken(ctx, "jane@example.com", "hash-live")
	require.NoError(t, err)
	assert.Equal(t, live.Identifier, got.Identifier)
	assert.Equal(t, live.TokenHash, got.TokenHash)
	assert.WithinDuration(t, live.ExpiresAt, got.ExpiresAt, time.Millisecond)

	_, err = a.UseVerificationToken(ctx, "jane@example.com", "hash-live")
	assert.ErrorIs(t, err, auth.ErrTokenNotFound)
}
