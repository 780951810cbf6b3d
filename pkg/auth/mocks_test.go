package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/docuconvo/auth/pkg/email"
)

// MockAdapter is a mock implementation of Adapter.
type MockAdapter struct {
	mock.Mock
}

func (m *MockAdapter) CreateUser(ctx context.Context, user *User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockAdapter) GetUser(ctx context.Context, id uuid.UUID) (*User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*User), args.Error(1)
}

func (m *MockAdapter) GetUserByEmail(ctx context.Context, addr string) (*User, error) {
	args := m.Called(ctx, addr)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*User), args.Error(1)
}

func (m *MockAdapter) GetUserByAccount(ctx context.Context, provider, providerAccountID string) (*User, error) {
	args := m.Called(ctx, provider, providerAccountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*User), args.Error(1)
}

func (m *MockAdapter) UpdateUser(ctx context.Context, user *User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockAdapter) DeleteUser(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockAdapter) LinkAccount(ctx context.Context, account *Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

func (m *MockAdapter) UnlinkAccount(ctx context.Context, provider, providerAccountID string) error {
	args := m.Called(ctx, provider, providerAccountID)
	return args.Error(0)
}

func (m *MockAdapter) CreateVerificationToken(ctx context.Context, token VerificationToken) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func (m *MockAdapter) UseVerificationToken(ctx context.Context, identifier, tokenHash string) (*VerificationToken, error) {
	args := m.Called(ctx, identifier, tokenHash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*VerificationToken), args.Error(1)
}

func (m *MockAdapter) DeleteExpiredVerificationTokens(ctx context.Context, before time.Time) (int64, error) {
	args := m.Called(ctx, before)
	return args.Get(0).(int64), args.Error(1)
}

// MockStateStore is a mock implementation of StateStore.
type MockStateStore struct {
	mock.Mock
}

func (m *MockStateStore) StoreState(ctx context.Context, state OAuthState) error {
	args := m.Called(ctx, state)
	return args.Error(0)
}

func (m *MockStateStore) ConsumeState(ctx context.Context, state string) (*OAuthState, error) {
	args := m.Called(ctx, state)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*OAuthState), args.Error(1)
}

// MockProviderAdapter is a mock implementation of ProviderAdapter.
type MockProviderAdapter struct {
	mock.Mock
}

func (m *MockProviderAdapter) ProviderID() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockProviderAdapter) AuthURL(state, verifier string) string {
	args := m.Called(state, verifier)
	return args.String(0)
}

func (m *MockProviderAdapter) Exchange(ctx context.Context, code, verifier string) (ProviderProfile, error) {
	args := m.Called(ctx, code, verifier)
	return args.Get(0).(ProviderProfile), args.Error(1)
}

// MockVerificationSender is a mock implementation of VerificationSender.
type MockVerificationSender struct {
	mock.Mock
}

func (m *MockVerificationSender) SendVerificationRequest(ctx context.Context, req VerificationRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

// MockEmailSender is a mock implementation of email.EmailSender.
type MockEmailSender struct {
	mock.Mock
}

func (m *MockEmailSender) SendEmail(ctx context.Context, params email.SendEmailParams) error {
	args := m.Called(ctx, params)
	return args.Error(0)
}

// MockTokenPurger is a mock implementation of TokenPurger.
type MockTokenPurger struct {
	mock.Mock
}

func (m *MockTokenPurger) DeleteExpiredVerificationTokens(ctx context.Context, before time.Time) (int64, error) {
	args := m.Called(ctx, before)
	return args.Get(0).(int64), args.Error(1)
}

// MockStatePurger is a mock implementation of StatePurger.
type MockStatePurger struct {
	mock.Mock
}

func (m *MockStatePurger) DeleteExpiredStates(ctx context.Context, before time.Time) (int64, error) {
	args := m.Called(ctx, before)
	return args.Get(0).(int64), args.Error(1)
}
