package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestRunJanitor(t *testing.T) {
	t.Parallel()

	t.Run("purges until cancelled", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		store := &MockTokenPurger{}
		store.On("DeleteExpiredVerificationTokens", mock.Anything, mock.AnythingOfType("time.Time")).
			Return(int64(3), nil).Once()
		store.On("DeleteExpiredVerificationTokens", mock.Anything, mock.AnythingOfType("time.Time")).
			Run(func(mock.Arguments) { cancel() }).
			Return(int64(0), nil)

		require.NoError(t, RunJanitor(ctx, store, 5*time.Millisecond, nil))
		store.AssertNumberOfCalls(t, "DeleteExpiredVerificationTokens", 2)
	})

	t.Run("keeps running after failures", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		store := &MockTokenPurger{}
		store.On("DeleteExpiredVerificationTokens", mock.Anything, mock.Anything).
			Return(int64(0), errors.New("db down")).Once()
		store.On("DeleteExpiredVerificationTokens", mock.Anything, mock.Anything).
			Run(func(mock.Arguments) { cancel() }).
			Return(int64(1), nil)

		require.NoError(t, RunJanitor(ctx, store, 5*time.Millisecond, nil))
		store.AssertNumberOfCalls(t, "DeleteExpiredVerificationTokens", 2)
	})

	t.Run("stops immediately when cancelled", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		store := &MockTokenPurger{}
		require.NoError(t, RunJanitor(ctx, store, time.Hour, nil))
		store.AssertNotCalled(t, "DeleteExpiredVerificationTokens", mock.Anything, mock.Anything)
	})

	t.Run("purges expired states", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		store := &MockTokenPurger{}
		store.On("DeleteExpiredVerificationTokens", mock.Anything, mock.Anything).Return(int64(0), nil)

		states := &MockStatePurger{}
		states.On("DeleteExpiredStates", mock.Anything, mock.AnythingOfType("time.Time")).
			Return(int64(0), errors.New("boom")).Once()
		states.On("DeleteExpiredStates", mock.Anything, mock.AnythingOfType("time.Time")).
			Run(func(mock.Arguments) { cancel() }).
			Return(int64(10000), nil)

		require.NoError(t, RunJanitor(ctx, store, 5*time.Millisecond, nil, states))
		states.AssertNumberOfCalls(t, "DeleteExpiredStates", 2)
	})
}
