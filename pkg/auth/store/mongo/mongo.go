// Package mongo implements auth.Adapter on MongoDB.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/docuconvo/auth/pkg/auth"
)

// Collection names.
const (
	UsersCollection              = "users"
	AccountsCollection           = "accounts"
	VerificationTokensCollection = "verification_tokens"
)

var _ auth.Adapter = (*Store)(nil)

// Store is a MongoDB backed auth.Adapter.
type Store struct {
	users    *mongo.Collection
	accounts *mongo.Collection
	tokens   *mongo.Collection
}

// New uses the collections of db.
func New(db *mongo.Database) *Store {
	return &Store{
		users:    db.Collection(UsersCollection),
		accounts: db.Collection(AccountsCollection),
		tokens:   db.Collection(VerificationTokensCollection),
	}
}

// EnsureIndexes creates the unique indexes the store relies on and a TTL
// index that lets the server expire verification tokens.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	if _, err := s.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("users_email_key"),
	}); err != nil {
		return fmt.Errorf("create users index: %w", err)
	}
	if _, err := s.accounts.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "provider", Value: 1}, {Key: "provider_account_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("accounts_provider_account_key"),
		},
		{Keys: bson.D{{Key: "user_id", Value: 1}}},
	}); err != nil {
		return fmt.Errorf("create accounts indexes: %w", err)
	}
	if _, err := s.tokens.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "identifier", Value: 1}, {Key: "token_hash", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0),
		},
	}); err != nil {
		return fmt.Errorf("create verification token indexes: %w", err)
	}
	return nil
}

type userDoc struct {
	ID            string     `bson:"_id"`
	Name          string     `bson:"name"`
	Email         string     `bson:"email"`
	EmailVerified *time.Time `bson:"email_verified"`
	Image         string     `bson:"image"`
	CreatedAt     time.Time  `bson:"created_at"`
	UpdatedAt     time.Time  `bson:"updated_at"`
}

func (d userDoc) user() (*auth.User, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return nil, fmt.Errorf("parse user id: %w", err)
	}
	return &auth.User{
		ID:            id,
		Name:          d.Name,
		Email:         d.Email,
		EmailVerified: d.EmailVerified,
		Image:         d.Image,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}, nil
}

type accountDoc struct {
	ID                string     `bson:"_id"`
	UserID            string     `bson:"user_id"`
	Type              string     `bson:"type"`
	Provider          string     `bson:"provider"`
	ProviderAccountID string     `bson:"provider_account_id"`
	AccessToken       string     `bson:"access_token"`
	RefreshToken      string     `bson:"refresh_token"`
	ExpiresAt         *time.Time `bson:"expires_at"`
	TokenType         string     `bson:"token_type"`
	Scope             string     `bson:"scope"`
	IDToken           string     `bson:"id_token"`
	CreatedAt         time.Time  `bson:"created_at"`
}

type tokenDoc struct {
	Identifier string    `bson:"identifier"`
	TokenHash  string    `bson:"token_hash"`
	ExpiresAt  time.Time `bson:"expires_at"`
}

func (s *Store) CreateUser(ctx context.Context, user *auth.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	_, err := s.users.InsertOne(ctx, userDoc{
		ID:            user.ID.String(),
		Name:          user.Name,
		Email:         user.Email,
		EmailVerified: user.EmailVerified,
		Image:         user.Image,
		CreatedAt:     user.CreatedAt,
		UpdatedAt:     user.UpdatedAt,
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return auth.ErrEmailAlreadyExists
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *Store) GetUser(ctx context.Context, id uuid.UUID) (*auth.User, error) {
	return s.findUser(ctx, bson.M{"_id": id.String()})
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*auth.User, error) {
	return s.findUser(ctx, bson.M{"email": email})
}

func (s *Store) GetUserByAccount(ctx context.Context, provider, providerAccountID string) (*auth.User, error) {
	var acc accountDoc
	err := s.accounts.FindOne(ctx, bson.M{"provider": provider, "provider_account_id": providerAccountID}).Decode(&acc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, auth.ErrUserNotFound
		}
		return nil, fmt.Errorf("find account: %w", err)
	}
	return s.findUser(ctx, bson.M{"_id": acc.UserID})
}

func (s *Store) findUser(ctx context.Context, filter bson.M) (*auth.User, error) {
	var doc userDoc
	if err := s.users.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, auth.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return doc.user()
}

func (s *Store) UpdateUser(ctx context.Context, user *auth.User) error {
	res, err := s.users.UpdateOne(ctx, bson.M{"_id": user.ID.String()}, bson.M{"$set": bson.M{
		"name":           user.Name,
		"email":          user.Email,
		"email_verified": user.EmailVerified,
		"image":          user.Image,
		"updated_at":     user.UpdatedAt,
	}})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return auth.ErrEmailAlreadyExists
		}
		return fmt.Errorf("update user: %w", err)
	}
	if res.MatchedCount == 0 {
		return auth.ErrUserNotFound
	}
	return nil
}

// DeleteUser removes the user and then its linked accounts.
func (s *Store) DeleteUser(ctx context.Context, id uuid.UUID) error {
	res, err := s.users.DeleteOne(ctx, bson.M{"_id": id.String()})
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if res.DeletedCount == 0 {
		return auth.ErrUserNotFound
	}
	if _, err := s.accounts.DeleteMany(ctx, bson.M{"user_id": id.String()}); err != nil {
		return fmt.Errorf("delete user accounts: %w", err)
	}
	return nil
}

func (s *Store) LinkAccount(ctx context.Context, a *auth.Account) error {
	if _, err := s.GetUser(ctx, a.UserID); err != nil {
		return err
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	_, err := s.accounts.InsertOne(ctx, accountDoc{
		ID:                a.ID.String(),
		UserID:            a.UserID.String(),
		Type:              a.Type,
		Provider:          a.Provider,
		ProviderAccountID: a.ProviderAccountID,
		AccessToken:       a.AccessToken,
		RefreshToken:      a.RefreshToken,
		ExpiresAt:         a.ExpiresAt,
		TokenType:         a.TokenType,
		Scope:             a.Scope,
		IDToken:           a.IDToken,
		CreatedAt:         a.CreatedAt,
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return auth.ErrAccountAlreadyLinked
		}
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

func (s *Store) UnlinkAccount(ctx context.Context, provider, providerAccountID string) error {
	res, err := s.accounts.DeleteOne(ctx, bson.M{"provider": provider, "provider_account_id": providerAccountID})
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	if res.DeletedCount == 0 {
		return auth.ErrAccountNotFound
	}
	return nil
}

func (s *Store) CreateVerificationToken(ctx context.Context, t auth.VerificationToken) error {
	_, err := s.tokens.InsertOne(ctx, tokenDoc(t))
	if err != nil {
		return fmt.Errorf("insert verification token: %w", err)
	}
	return nil
}

func (s *Store) UseVerificationToken(ctx context.Context, identifier, tokenHash string) (*auth.VerificationToken, error) {
	var doc tokenDoc
	err := s.tokens.FindOneAndDelete(ctx, bson.M{"identifier": identifier, "token_hash": tokenHash}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, auth.ErrTokenNotFound
		}
		return nil, fmt.Errorf("use verification token: %w", err)
	}
	t := auth.VerificationToken(doc)
	return &t, nil
}

func (s *Store) DeleteExpiredVerificationTokens(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.tokens.DeleteMany(ctx, bson.M{"expires_at": bson.M{"$lt": before}})
	if err != nil {
		return 0, fmt.Errorf("delete expired verification tokens: %w", err)
	}
	return res.DeletedCount, nil
}
