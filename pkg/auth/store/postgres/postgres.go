// Package postgres implements auth.Adapter on PostgreSQL with pgx.
package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/docuconvo/auth/pkg/auth"
	"github.com/docuconvo/auth/pkg/pg"
)

//go:embed migrations/*.sql
var migrations embed.FS

const (
	usersEmailKey      = "users_email_key"
	accountProviderKey = "accounts_provider_account_key"
)

var _ auth.Adapter = (*Store)(nil)

// Store is a PostgreSQL backed auth.Adapter.
type Store struct {
	pool *pgxpool.Pool
}

// New wraps an open pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Migrations returns the embedded schema migrations.
func Migrations() fs.FS {
	sub, err := fs.Sub(migrations, "migrations")
	if err != nil {
		panic(err)
	}
	return sub
}

// Migrate applies pending schema migrations.
func (s *Store) Migrate(ctx context.Context, log *slog.Logger) error {
	return pg.Migrate(ctx, s.pool, Migrations(), log)
}

type userRow struct {
	ID            uuid.UUID  `db:"id"`
	Name          string     `db:"name"`
	Email         string     `db:"email"`
	EmailVerified *time.Time `db:"email_verified"`
	Image         string     `db:"image"`
	CreatedAt     time.Time  `db:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at"`
}

func (r userRow) user() *auth.User {
	u := auth.User(r)
	return &u
}

const userColumns = `u.id, u.name, u.email, u.email_verified, u.image, u.created_at, u.updated_at`

func (s *Store) CreateUser(ctx context.Context, user *auth.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO users (id, name, email, email_verified, image, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		user.ID, user.Name, user.Email, user.EmailVerified, user.Image, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		if pg.IsUniqueViolation(err, usersEmailKey) {
			return auth.ErrEmailAlreadyExists
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *Store) GetUser(ctx context.Context, id uuid.UUID) (*auth.User, error) {
	return s.queryUser(ctx, `SELECT `+userColumns+` FROM users u WHERE u.id = $1`, id)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*auth.User, error) {
	return s.queryUser(ctx, `SELECT `+userColumns+` FROM users u WHERE u.email = $1`, email)
}

func (s *Store) GetUserByAccount(ctx context.Context, provider, providerAccountID string) (*auth.User, error) {
	return s.queryUser(ctx, `
		SELECT `+userColumns+`
		FROM users u
		JOIN accounts a ON a.user_id = u.id
		WHERE a.provider = $1 AND a.provider_account_id = $2`,
		provider, providerAccountID,
	)
}

func (s *Store) queryUser(ctx context.Context, query string, args ...any) (*auth.User, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}
	row, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[userRow])
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, auth.ErrUserNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return row.user(), nil
}

func (s *Store) UpdateUser(ctx context.Context, user *auth.User) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE users
		SET name = $2, email = $3, email_verified = $4, image = $5, updated_at = $6
		WHERE id = $1`,
		user.ID, user.Name, user.Email, user.EmailVerified, user.Image, user.UpdatedAt,
	)
	if err != nil {
		if pg.IsUniqueViolation(err, usersEmailKey) {
			return auth.ErrEmailAlreadyExists
		}
		return fmt.Errorf("update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return auth.ErrUserNotFound
	}
	return nil
}

func (s *Store) DeleteUser(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return auth.ErrUserNotFound
	}
	return nil
}

func (s *Store) LinkAccount(ctx context.Context, a *auth.Account) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO accounts (
			id, user_id, type, provider, provider_account_id,
			access_token, refresh_token, expires_at, token_type, scope, id_token, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		a.ID, a.UserID, a.Type, a.Provider, a.ProviderAccountID,
		a.AccessToken, a.RefreshToken, a.ExpiresAt, a.TokenType, a.Scope, a.IDToken, a.CreatedAt,
	)
	switch {
	case err == nil:
		return nil
	case pg.IsUniqueViolation(err, accountProviderKey):
		return auth.ErrAccountAlreadyLinked
	case pg.IsForeignKeyViolation(err):
		return auth.ErrUserNotFound
	default:
		return fmt.Errorf("insert account: %w", err)
	}
}

func (s *Store) UnlinkAccount(ctx context.Context, provider, providerAccountID string) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM accounts WHERE provider = $1 AND provider_account_id = $2`,
		provider, providerAccountID,
	)
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return auth.ErrAccountNotFound
	}
	return nil
}

func (s *Store) CreateVerificationToken(ctx context.Context, t auth.VerificationToken) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO verification_tokens (identifier, token_hash, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (identifier, token_hash) DO UPDATE SET expires_at = EXCLUDED.expires_at`,
		t.Identifier, t.TokenHash, t.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("insert verification token: %w", err)
	}
	return nil
}

func (s *Store) UseVerificationToken(ctx context.Context, identifier, tokenHash string) (*auth.VerificationToken, error) {
	var t auth.VerificationToken
	err := s.pool.QueryRow(ctx, `
		DELETE FROM verification_tokens
		WHERE identifier = $1 AND token_hash = $2
		RETURNING identifier, token_hash, expires_at`,
		identifier, tokenHash,
	).Scan(&t.Identifier, &t.TokenHash, &t.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, auth.ErrTokenNotFound
		}
		return nil, fmt.Errorf("use verification token: %w", err)
	}
	return &t, nil
}

func (s *Store) DeleteExpiredVerificationTokens(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM verification_tokens WHERE expires_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("delete expired verification tokens: %w", err)
	}
	return tag.RowsAffected(), nil
}
