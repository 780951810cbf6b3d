package pg_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docuconvo/auth/pkg/pg"
)

func TestIsUniqueViolation(t *testing.T) {
	t.Parallel()

	dup := &pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "users_email_key"}
	wrapped := fmt.Errorf("insert user: %w", dup)

	assert.True(t, pg.IsUniqueViolation(dup))
	assert.True(t, pg.IsUniqueViolation(wrapped))
	assert.True(t, pg.IsUniqueViolation(wrapped, "accounts_provider_key", "users_email_key"))
	assert.False(t, pg.IsUniqueViolation(wrapped, "accounts_provider_key"))
	assert.False(t, pg.IsUniqueViolation(&pgconn.PgError{Code: pgerrcode.ForeignKeyViolation}))
	assert.False(t, pg.IsUniqueViolation(errors.New("plain")))
	assert.False(t, pg.IsUniqueViolation(nil))
}

func TestIsForeignKeyViolation(t *testing.T) {
	t.Parallel()

	assert.True(t, pg.IsForeignKeyViolation(&pgconn.PgError{Code: pgerrcode.ForeignKeyViolation}))
	assert.False(t, pg.IsForeignKeyViolation(&pgconn.PgError{Code: pgerrcode.UniqueViolation}))
}

func TestIsNotFoundError(t *testing.T) {
	t.Parallel()

	assert.True(t, pg.IsNotFoundError(fmt.Errorf("get user: %w", pgx.ErrNoRows)))
	assert.False(t, pg.IsNotFoundError(errors.New("other")))
}

func TestConnect_InvalidConnectionString(t *testing.T) {
	t.Parallel()

	_, err := pg.Connect(context.Background(), pg.Config{ConnectionString: "postgres://%zz"})
	require.Error(t, err)
	assert.ErrorIs(t, err, pg.ErrFailedToParseDBConfig)
}
