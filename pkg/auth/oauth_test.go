package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type oauthFixture struct {
	svc      *OAuthService
	adapter  *MockAdapter
	states   *MockStateStore
	provider *MockProviderAdapter
	now      time.Time
}

func newOAuthFixture(opts ...OAuthOption) *oauthFixture {
	f := &oauthFixture{
		adapter:  &MockAdapter{},
		states:   &MockStateStore{},
		provider: &MockProviderAdapter{},
		now:      time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	f.provider.On("ProviderID").Return(ProviderGoogle)
	opts = append([]OAuthOption{WithOAuthClock(func() time.Time { return f.now })}, opts...)
	f.svc = NewOAuthService(f.adapter, f.states, f.provider, opts...)
	return f
}

func (f *oauthFixture) expectState(state string, linkUserID *uuid.UUID) {
	f.states.On("ConsumeState", mock.Anything, state).Return(&OAuthState{
		State:        state,
		Provider:     ProviderGoogle,
		CodeVerifier: "verifier",
		CallbackURL:  "/dashboard",
		LinkUserID:   linkUserID,
		ExpiresAt:    f.now.Add(5 * time.Minute),
	}, nil)
}

func googleProfile() ProviderProfile {
	return ProviderProfile{
		ProviderUserID: "google-123",
		Email:          "Jane@Example.com",
		EmailVerified:  true,
		Name:           "Jane Doe",
		AvatarURL:      "https://lh3.googleusercontent.com/a/jane",
		Tokens: ProviderTokens{
			AccessToken:  "access",
			RefreshToken: "refresh",
			TokenType:    "Bearer",
			Scope:        "openid email profile",
			IDToken:      "id-token",
			Expiry:       time.Date(2025, 3, 1, 13, 0, 0, 0, time.UTC),
		},
	}
}

func TestNewOAuthService(t *testing.T) {
	t.Parallel()

	svc := NewOAuthService(&MockAdapter{}, &MockStateStore{}, &MockProviderAdapter{})
	assert.Equal(t, 10*time.Minute, svc.stateTTL)
	assert.True(t, svc.verifiedOnly)
	assert.NotNil(t, svc.log)

	svc = NewOAuthService(&MockAdapter{}, &MockStateStore{}, &MockProviderAdapter{},
		WithStateTTL(time.Minute),
		WithVerifiedOnly(false),
	)
	assert.Equal(t, time.Minute, svc.stateTTL)
	assert.False(t, svc.verifiedOnly)
}

func TestOAuthService_AuthURL(t *testing.T) {
	t.Parallel()

	t.Run("stores state with pkce verifier", func(t *testing.T) {
		t.Parallel()

		f := newOAuthFixture()
		linkID := uuid.New()

		var stored OAuthState
		f.states.On("StoreState", mock.Anything, mock.AnythingOfType("auth.OAuthState")).
			Run(func(args mock.Arguments) { stored = args.Get(1).(OAuthState) }).
			Return(nil)
		f.provider.On("AuthURL", mock.Anything, mock.Anything).Return("https://accounts.example.com/auth")

		got, err := f.svc.AuthURL(context.Background(), "/settings", &linkID)
		require.NoError(t, err)
		assert.Equal(t, "https://accounts.example.com/auth", got)

		assert.NotEmpty(t, stored.State)
		assert.NotEmpty(t, stored.CodeVerifier)
		assert.Equal(t, ProviderGoogle, stored.Provider)
		assert.Equal(t, "/settings", stored.CallbackURL)
		assert.Equal(t, &linkID, stored.LinkUserID)
		assert.Equal(t, f.now.Add(10*time.Minute), stored.ExpiresAt)
		f.provider.AssertCalled(t, "AuthURL", stored.State, stored.CodeVerifier)
	})

	t.Run("states are unique", func(t *testing.T) {
		t.Parallel()

		f := newOAuthFixture()
		var states []string
		f.states.On("StoreState", mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) { states = append(states, args.Get(1).(OAuthState).State) }).
			Return(nil)
		f.provider.On("AuthURL", mock.Anything, mock.Anything).Return("")

		for range 3 {
			_, err := f.svc.AuthURL(context.Background(), "", nil)
			require.NoError(t, err)
		}
		require.Len(t, states, 3)
		assert.NotEqual(t, states[0], states[1])
		assert.NotEqual(t, states[1], states[2])
	})

	t.Run("store failure", func(t *testing.T) {
		t.Parallel()

		f := newOAuthFixture()
		f.states.On("StoreState", mock.Anything, mock.Anything).Return(errors.New("redis down"))

		_, err := f.svc.AuthURL(context.Background(), "", nil)
		require.Error(t, err)
		f.provider.AssertNotCalled(t, "AuthURL", mock.Anything, mock.Anything)
	})
}

func TestOAuthService_Callback(t *testing.T) {
	t.Parallel()

	t.Run("missing state or code", func(t *testing.T) {
		t.Parallel()

		f := newOAuthFixture()
		_, err := f.svc.Callback(context.Background(), "code", "")
		require.ErrorIs(t, err, ErrInvalidState)
		_, err = f.svc.Callback(context.Background(), "", "state")
		require.ErrorIs(t, err, ErrInvalidCode)
	})

	t.Run("unknown state", func(t *testing.T) {
		t.Parallel()

		f := newOAuthFixture()
		f.states.On("ConsumeState", mock.Anything, "state").Return(nil, ErrStateNotFound)

		_, err := f.svc.Callback(context.Background(), "code", "state")
		require.ErrorIs(t, err, ErrInvalidState)
	})

	t.Run("state for another provider", func(t *testing.T) {
		t.Parallel()

		f := newOAuthFixture()
		f.states.On("ConsumeState", mock.Anything, "state").
			Return(&OAuthState{State: "state", Provider: "github", ExpiresAt: f.now.Add(time.Minute)}, nil)

		_, err := f.svc.Callback(context.Background(), "code", "state")
		require.ErrorIs(t, err, ErrInvalidState)
	})

	t.Run("expired state", func(t *testing.T) {
		t.Parallel()

		f := newOAuthFixture()
		f.states.On("ConsumeState", mock.Anything, "state").
			Return(&OAuthState{State: "state", Provider: ProviderGoogle, ExpiresAt: f.now.Add(-time.Second)}, nil)

		_, err := f.svc.Callback(context.Background(), "code", "state")
		require.ErrorIs(t, err, ErrInvalidState)
	})

	t.Run("rejected code", func(t *testing.T) {
		t.Parallel()

		f := newOAuthFixture()
		f.expectState("state", nil)
		f.provider.On("Exchange", mock.Anything, "code", "verifier").Return(ProviderProfile{}, ErrInvalidCode)

		_, err := f.svc.Callback(context.Background(), "code", "state")
		require.ErrorIs(t, err, ErrInvalidCode)
	})

	t.Run("incomplete profile", func(t *testing.T) {
		t.Parallel()

		f := newOAuthFixture()
		f.expectState("state", nil)
		f.provider.On("Exchange", mock.Anything, "code", "verifier").
			Return(ProviderProfile{ProviderUserID: "google-123", Email: "nope", EmailVerified: true}, nil)

		_, err := f.svc.Callback(context.Background(), "code", "state")
		require.ErrorIs(t, err, ErrInvalidProfile)
	})

	t.Run("unverified email rejected", func(t *testing.T) {
		t.Parallel()

		f := newOAuthFixture()
		f.expectState("state", nil)
		p := googleProfile()
		p.EmailVerified = false
		f.provider.On("Exchange", mock.Anything, "code", "verifier").Return(p, nil)

		_, err := f.svc.Callback(context.Background(), "code", "state")
		require.ErrorIs(t, err, ErrUnverifiedEmail)
	})

	t.Run("unverified email allowed when configured", func(t *testing.T) {
		t.Parallel()

		f := newOAuthFixture(WithVerifiedOnly(false))
		f.expectState("state", nil)
		p := googleProfile()
		p.EmailVerified = false
		f.provider.On("Exchange", mock.Anything, "code", "verifier").Return(p, nil)
		f.adapter.On("GetUserByAccount", mock.Anything, ProviderGoogle, "google-123").Return(nil, ErrUserNotFound)
		f.adapter.On("GetUserByEmail", mock.Anything, "jane@example.com").Return(nil, ErrUserNotFound)
		f.adapter.On("CreateUser", mock.Anything, mock.Anything).Return(nil)
		f.adapter.On("LinkAccount", mock.Anything, mock.Anything).Return(nil)

		res, err := f.svc.Callback(context.Background(), "code", "state")
		require.NoError(t, err)
		assert.True(t, res.IsNewUser)
		assert.Nil(t, res.User.EmailVerified)
	})

	t.Run("existing account signs in", func(t *testing.T) {
		t.Parallel()

		f := newOAuthFixture()
		f.expectState("state", nil)
		existing := &User{ID: uuid.New(), Email: "jane@example.com"}
		f.provider.On("Exchange", mock.Anything, "code", "verifier").Return(googleProfile(), nil)
		f.adapter.On("GetUserByAccount", mock.Anything, ProviderGoogle, "google-123").Return(existing, nil)

		res, err := f.svc.Callback(context.Background(), "code", "state")
		require.NoError(t, err)
		assert.Equal(t, existing, res.User)
		assert.False(t, res.IsNewUser)
		assert.Equal(t, "/dashboard", res.CallbackURL)
		f.adapter.AssertNotCalled(t, "CreateUser", mock.Anything, mock.Anything)
	})

	t.Run("email registered with another method", func(t *testing.T) {
		t.Parallel()

		f := newOAuthFixture()
		f.expectState("state", nil)
		f.provider.On("Exchange", mock.Anything, "code", "verifier").Return(googleProfile(), nil)
		f.adapter.On("GetUserByAccount", mock.Anything, ProviderGoogle, "google-123").Return(nil, ErrUserNotFound)
		f.adapter.On("GetUserByEmail", mock.Anything, "jane@example.com").Return(&User{ID: uuid.New()}, nil)

		_, err := f.svc.Callback(context.Background(), "code", "state")
		require.ErrorIs(t, err, ErrOAuthAccountNotLinked)
		f.adapter.AssertNotCalled(t, "CreateUser", mock.Anything, mock.Anything)
	})

	t.Run("creates user and links account", func(t *testing.T) {
		t.Parallel()

		f := newOAuthFixture()
		f.expectState("state", nil)
		f.provider.On("Exchange", mock.Anything, "code", "verifier").Return(googleProfile(), nil)
		f.adapter.On("GetUserByAccount", mock.Anything, ProviderGoogle, "google-123").Return(nil, ErrUserNotFound)
		f.adapter.On("GetUserByEmail", mock.Anything, "jane@example.com").Return(nil, ErrUserNotFound)
		var created *User
		f.adapter.On("CreateUser", mock.Anything, mock.AnythingOfType("*auth.User")).
			Run(func(args mock.Arguments) { created = args.Get(1).(*User) }).
			Return(nil)
		var linked *Account
		f.adapter.On("LinkAccount", mock.Anything, mock.AnythingOfType("*auth.Account")).
			Run(func(args mock.Arguments) { linked = args.Get(1).(*Account) }).
			Return(nil)

		res, err := f.svc.Callback(context.Background(), "code", "state")
		require.NoError(t, err)
		assert.True(t, res.IsNewUser)
		assert.Equal(t, created, res.User)

		assert.Equal(t, "jane@example.com", created.Email)
		assert.Equal(t, "Jane Doe", created.Name)
		assert.Equal(t, "https://lh3.googleusercontent.com/a/jane", created.Image)
		require.NotNil(t, created.EmailVerified)
		assert.Equal(t, f.now, *created.EmailVerified)

		assert.Equal(t, created.ID, linked.UserID)
		assert.Equal(t, AccountTypeOIDC, linked.Type)
		assert.Equal(t, ProviderGoogle, linked.Provider)
		assert.Equal(t, "google-123", linked.ProviderAccountID)
		assert.Equal(t, "refresh", linked.RefreshToken)
		require.NotNil(t, linked.ExpiresAt)
		assert.Equal(t, googleProfile().Tokens.Expiry, *linked.ExpiresAt)
	})

	t.Run("rolls back user when linking fails", func(t *testing.T) {
		t.Parallel()

		f := newOAuthFixture()
		f.expectState("state", nil)
		f.provider.On("Exchange", mock.Anything, "code", "verifier").Return(googleProfile(), nil)
		f.adapter.On("GetUserByAccount", mock.Anything, ProviderGoogle, "google-123").Return(nil, ErrUserNotFound)
		f.adapter.On("GetUserByEmail", mock.Anything, "jane@example.com").Return(nil, ErrUserNotFound)
		var created *User
		f.adapter.On("CreateUser", mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) { created = args.Get(1).(*User) }).
			Return(nil)
		f.adapter.On("LinkAccount", mock.Anything, mock.Anything).Return(errors.New("db down"))
		f.adapter.On("DeleteUser", mock.Anything, mock.AnythingOfType("uuid.UUID")).Return(nil)

		_, err := f.svc.Callback(context.Background(), "code", "state")
		require.Error(t, err)
		f.adapter.AssertCalled(t, "DeleteUser", mock.Anything, created.ID)
	})

	t.Run("links account to signed-in user", func(t *testing.T) {
		t.Parallel()

		f := newOAuthFixture()
		userID := uuid.New()
		current := &User{ID: userID, Email: "jane@work.example.com"}
		f.expectState("state", &userID)
		f.provider.On("Exchange", mock.Anything, "code", "verifier").Return(googleProfile(), nil)
		f.adapter.On("GetUserByAccount", mock.Anything, ProviderGoogle, "google-123").Return(nil, ErrUserNotFound)
		f.adapter.On("GetUser", mock.Anything, userID).Return(current, nil)
		f.adapter.On("LinkAccount", mock.Anything, mock.MatchedBy(func(a *Account) bool {
			return a.UserID == userID && a.ProviderAccountID == "google-123"
		})).Return(nil)

		res, err := f.svc.Callback(context.Background(), "code", "state")
		require.NoError(t, err)
		assert.True(t, res.Linked)
		assert.Equal(t, current, res.User)
		f.adapter.AssertExpectations(t)
	})

	t.Run("account already linked to someone else", func(t *testing.T) {
		t.Parallel()

		f := newOAuthFixture()
		userID := uuid.New()
		f.expectState("state", &userID)
		f.provider.On("Exchange", mock.Anything, "code", "verifier").Return(googleProfile(), nil)
		f.adapter.On("GetUserByAccount", mock.Anything, ProviderGoogle, "google-123").Return(&User{ID: uuid.New()}, nil)

		_, err := f.svc.Callback(context.Background(), "code", "state")
		require.ErrorIs(t, err, ErrAccountAlreadyLinked)
		f.adapter.AssertNotCalled(t, "LinkAccount", mock.Anything, mock.Anything)
	})

	t.Run("account already linked to same user", func(t *testing.T) {
		t.Parallel()

		f := newOAuthFixture()
		userID := uuid.New()
		current := &User{ID: userID}
		f.expectState("state", &userID)
		f.provider.On("Exchange", mock.Anything, "code", "verifier").Return(googleProfile(), nil)
		f.adapter.On("GetUserByAccount", mock.Anything, ProviderGoogle, "google-123").Return(current, nil)

		res, err := f.svc.Callback(context.Background(), "code", "state")
		require.NoError(t, err)
		assert.True(t, res.Linked)
		f.adapter.AssertNotCalled(t, "LinkAccount", mock.Anything, mock.Anything)
	})
}

func TestOAuthService_Unlink(t *testing.T) {
	t.Parallel()

	t.Run("unlinks own account", func(t *testing.T) {
		t.Parallel()

		f := newOAuthFixture()
		userID := uuid.New()
		f.adapter.On("GetUserByAccount", mock.Anything, ProviderGoogle, "google-123").Return(&User{ID: userID}, nil)
		f.adapter.On("UnlinkAccount", mock.Anything, ProviderGoogle, "google-123").Return(nil)

		require.NoError(t, f.svc.Unlink(context.Background(), userID, "google-123"))
		f.adapter.AssertExpectations(t)
	})

	t.Run("refuses foreign account", func(t *testing.T) {
		t.Parallel()

		f := newOAuthFixture()
		f.adapter.On("GetUserByAccount", mock.Anything, ProviderGoogle, "google-123").Return(&User{ID: uuid.New()}, nil)

		err := f.svc.Unlink(context.Background(), uuid.New(), "google-123")
		require.ErrorIs(t, err, ErrAccountNotFound)
		f.adapter.AssertNotCalled(t, "UnlinkAccount", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("unknown account", func(t *testing.T) {
		t.Parallel()

		f := newOAuthFixture()
		f.adapter.On("GetUserByAccount", mock.Anything, ProviderGoogle, "google-123").Return(nil, ErrUserNotFound)

		err := f.svc.Unlink(context.Background(), uuid.New(), "google-123")
		require.ErrorIs(t, err, ErrAccountNotFound)
	})
}
