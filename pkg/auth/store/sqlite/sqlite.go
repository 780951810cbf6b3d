// Package sqlite implements auth.Adapter on an embedded SQLite database.
// Timestamps are stored as Unix milliseconds.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/docuconvo/auth/pkg/auth"
	sqlitedb "github.com/docuconvo/auth/pkg/sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

var _ auth.Adapter = (*Store)(nil)

// Store is a SQLite backed auth.Adapter.
type Store struct {
	db *sql.DB
}

// New wraps an open database.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Migrate applies pending schema migrations.
func (s *Store) Migrate(ctx context.Context, log *slog.Logger) error {
	sub, err := fs.Sub(migrations, "migrations")
	if err != nil {
		return err
	}
	return sqlitedb.Migrate(ctx, s.db, sub, log)
}

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(v int64) time.Time {
	return time.UnixMilli(v).UTC()
}

func nullMillis(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: toMillis(*t), Valid: true}
}

func timePtr(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := fromMillis(v.Int64)
	return &t
}

func isUniqueViolation(err error, target string) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
		default:
			return false
		}
	}
	message := strings.ToLower(err.Error())
	return strings.Contains(message, "unique constraint failed") && strings.Contains(message, target)
}

func isForeignKeyViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code() == sqlite3lib.SQLITE_CONSTRAINT_FOREIGNKEY {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "foreign key constraint failed")
}

const userColumns = `u.id, u.name, u.email, u.email_verified, u.image, u.created_at, u.updated_at`

func (s *Store) CreateUser(ctx context.Context, user *auth.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, name, email, email_verified, image, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		user.ID.String(), user.Name, user.Email, nullMillis(user.EmailVerified), user.Image,
		toMillis(user.CreatedAt), toMillis(user.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err, "users.email") {
			return auth.ErrEmailAlreadyExists
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *Store) GetUser(ctx context.Context, id uuid.UUID) (*auth.User, error) {
	return s.queryUser(ctx, `SELECT `+userColumns+` FROM users u WHERE u.id = ?`, id.String())
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*auth.User, error) {
	return s.queryUser(ctx, `SELECT `+userColumns+` FROM users u WHERE u.email = ?`, email)
}

func (s *Store) GetUserByAccount(ctx context.Context, provider, providerAccountID string) (*auth.User, error) {
	return s.queryUser(ctx, `
		SELECT `+userColumns+`
		FROM users u
		JOIN accounts a ON a.user_id = u.id
		WHERE a.provider = ? AND a.provider_account_id = ?`,
		provider, providerAccountID,
	)
}

func (s *Store) queryUser(ctx context.Context, query string, args ...any) (*auth.User, error) {
	var (
		u        auth.User
		verified sql.NullInt64
		created  int64
		updated  int64
	)
	err := s.db.QueryRowContext(ctx, query, args...).
		Scan(&u.ID, &u.Name, &u.Email, &verified, &u.Image, &created, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, auth.ErrUserNotFound
		}
		return nil, fmt.Errorf("query user: %w", err)
	}
	u.EmailVerified = timePtr(verified)
	u.CreatedAt = fromMillis(created)
	u.UpdatedAt = fromMillis(updated)
	return &u, nil
}

func (s *Store) UpdateUser(ctx context.Context, user *auth.User) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET name = ?, email = ?, email_verified = ?, image = ?, updated_at = ?
		WHERE id = ?`,
		user.Name, user.Email, nullMillis(user.EmailVerified), user.Image, toMillis(user.UpdatedAt),
		user.ID.String(),
	)
	if err != nil {
		if isUniqueViolation(err, "users.email") {
			return auth.ErrEmailAlreadyExists
		}
		return fmt.Errorf("update user: %w", err)
	}
	return affected(res, auth.ErrUserNotFound)
}

func (s *Store) DeleteUser(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return affected(res, auth.ErrUserNotFound)
}

func (s *Store) LinkAccount(ctx context.Context, a *auth.Account) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO accounts (
			id, user_id, type, provider, provider_account_id,
			access_token, refresh_token, expires_at, token_type, scope, id_token, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID.String(), a.UserID.String(), a.Type, a.Provider, a.ProviderAccountID,
		a.AccessToken, a.RefreshToken, nullMillis(a.ExpiresAt), a.TokenType, a.Scope, a.IDToken,
		toMillis(a.CreatedAt),
	)
	switch {
	case err == nil:
		return nil
	case isUniqueViolation(err, "accounts.provider"):
		return auth.ErrAccountAlreadyLinked
	case isForeignKeyViolation(err):
		return auth.ErrUserNotFound
	default:
		return fmt.Errorf("insert account: %w", err)
	}
}

func (s *Store) UnlinkAccount(ctx context.Context, provider, providerAccountID string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM accounts WHERE provider = ? AND provider_account_id = ?`,
		provider, providerAccountID,
	)
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	return affected(res, auth.ErrAccountNotFound)
}

func (s *Store) CreateVerificationToken(ctx context.Context, t auth.VerificationToken) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO verification_tokens (identifier, token_hash, expires_at)
		VALUES (?, ?, ?)
		ON CONFLICT (identifier, token_hash) DO UPDATE SET expires_at = excluded.expires_at`,
		t.Identifier, t.TokenHash, toMillis(t.ExpiresAt),
	)
	if err != nil {
		return fmt.Errorf("insert verification token: %w", err)
	}
	return nil
}

func (s *Store) UseVerificationToken(ctx context.Context, identifier, tokenHash string) (*auth.VerificationToken, error) {
	var (
		t       auth.VerificationToken
		expires int64
	)
	err := s.db.QueryRowContext(ctx, `
		DELETE FROM verification_tokens
		WHERE identifier = ? AND token_hash = ?
		RETURNING identifier, token_hash, expires_at`,
		identifier, tokenHash,
	).Scan(&t.Identifier, &t.TokenHash, &expires)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, auth.ErrTokenNotFound
		}
		return nil, fmt.Errorf("use verification token: %w", err)
	}
	t.ExpiresAt = fromMillis(expires)
	return &t, nil
}

func (s *Store) DeleteExpiredVerificationTokens(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM verification_tokens WHERE expires_at < ?`, toMillis(before))
	if err != nil {
		return 0, fmt.Errorf("delete expired verification tokens: %w", err)
	}
	return res.RowsAffected()
}

func affected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}
