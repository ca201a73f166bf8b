package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"ecommerce/api/internal/models"
	"ecommerce/api/internal/repository"
)

const usersCollection = "users"

type userDocument struct {
	ID                     string     `bson:"_id"`
	Name                   string     `bson:"name"`
	Email                  string     `bson:"email"`
	PasswordHash           []byte     `bson:"password_hash"`
	Role                   string     `bson:"role"`
	Active                 bool       `bson:"active"`
	PasswordChangedAt      *time.Time `bson:"password_changed_at"`
	PasswordResetCode      *string    `bson:"password_reset_code"`
	PasswordResetExpiresAt *time.Time `bson:"password_reset_expires_at"`
	PasswordResetVerified  bool       `bson:"password_reset_verified"`
	RefreshToken           *string    `bson:"refresh_token"`
	RefreshTokenExpiresAt  *time.Time `bson:"refresh_token_expires_at"`
	CreatedAt              time.Time  `bson:"created_at"`
	UpdatedAt              time.Time  `bson:"updated_at"`
}

type UserStore struct {
	client *mongodriver.Client
	users  *mongodriver.Collection
}

// New prepares the users collection of db and its indexes.
func New(ctx context.Context, client *mongodriver.Client, db string) (*UserStore, error) {
	s := &UserStore{
		client: client,
		users:  client.Database(db).Collection(usersCollection),
	}
	if err := s.ensureIndexes(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *UserStore) ensureIndexes(ctx context.Context) error {
	indexes := []mongodriver.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetName("email_unique").SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "refresh_token", Value: 1}},
			Options: options.Index().SetName("refresh_token").SetSparse(true),
		},
		{
			Keys:    bson.D{{Key: "password_reset_code", Value: 1}},
			Options: options.Index().SetName("password_reset_code").SetSparse(true),
		},
	}

	if _, err := s.users.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("mongo ensure indexes: %w", err)
	}
	return nil
}

func (s *UserStore) Create(ctx context.Context, user models.User) error {
	if _, err := s.users.InsertOne(ctx, toDocument(user)); err != nil {
		return fmt.Errorf("create user: %w", mapWriteError(err))
	}
	return nil
}

func (s *UserStore) GetByID(ctx context.Context, id string) (models.User, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

func (s *UserStore) FindByEmail(ctx context.Context, email string) (models.User, error) {
	return s.findOne(ctx, bson.M{"email": email})
}

func (s *UserStore) FindByRefreshToken(ctx context.Context, token string, now time.Time) (models.User, error) {
	return s.findOne(ctx, bson.M{
		"refresh_token":            token,
		"refresh_token_expires_at": bson.M{"$gt": now},
	})
}

func (s *UserStore) FindByResetCode(ctx context.Context, codeHash string, now time.Time) (models.User, error) {
	return s.findOne(ctx, bson.M{
		"password_reset_code":       codeHash,
		"password_reset_expires_at": bson.M{"$gt": now},
	})
}

// Update $sets only the fields named by upd.
func (s *UserStore) Update(ctx context.Context, id string, upd models.UserUpdate) error {
	set := bson.M{}
	if upd.Name != nil {
		set["name"] = *upd.Name
	}
	if upd.Email != nil {
		set["email"] = *upd.Email
	}
	if upd.Role != nil {
		set["role"] = string(*upd.Role)
	}
	if upd.Active != nil {
		set["active"] = *upd.Active
	}
	if upd.Password != nil {
		set["password_hash"] = upd.Password.Hash
		set["password_changed_at"] = upd.Password.ChangedAt
	}
	if upd.Refresh != nil {
		set["refresh_token"] = upd.Refresh.Token
		set["refresh_token_expires_at"] = upd.Refresh.ExpiresAt
	}
	if upd.Reset != nil {
		set["password_reset_code"] = upd.Reset.CodeHash
		set["password_reset_expires_at"] = upd.Reset.ExpiresAt
	}
	if verified, ok := upd.ResetVerifiedValue(); ok {
		set["password_reset_verified"] = verified
	}
	if !upd.UpdatedAt.IsZero() {
		set["updated_at"] = upd.UpdatedAt
	}
	if len(set) == 0 {
		return nil
	}

	res, err := s.users.UpdateByID(ctx, id, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("update user: %w", mapWriteError(err))
	}
	if res.MatchedCount == 0 {
		return repository.ErrUserNotFound
	}
	return nil
}

func (s *UserStore) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	refresh, err := s.users.UpdateMany(ctx,
		bson.M{"refresh_token_expires_at": bson.M{"$lte": now}},
		bson.M{"$set": bson.M{"refresh_token": nil, "refresh_token_expires_at": nil, "updated_at": now}},
	)
	if err != nil {
		return 0, fmt.Errorf("purge refresh tokens: %w", err)
	}

	reset, err := s.users.UpdateMany(ctx,
		bson.M{"password_reset_expires_at": bson.M{"$lte": now}},
		bson.M{"$set": bson.M{
			"password_reset_code":       nil,
			"password_reset_expires_at": nil,
			"password_reset_verified":   false,
			"updated_at":                now,
		}},
	)
	if err != nil {
		return refresh.ModifiedCount, fmt.Errorf("purge reset codes: %w", err)
	}
	return refresh.ModifiedCount + reset.ModifiedCount, nil
}

func (s *UserStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *UserStore) findOne(ctx context.Context, filter bson.M) (models.User, error) {
	var doc userDocument
	if err := s.users.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongodriver.ErrNoDocuments) {
			return models.User{}, repository.ErrUserNotFound
		}
		return models.User{}, fmt.Errorf("find user: %w", err)
	}
	return doc.toModel(), nil
}

func mapWriteError(err error) error {
	if !mongodriver.IsDuplicateKeyError(err) {
		return err
	}
	field := "id"
	if strings.Contains(err.Error(), "email") {
		field = "email"
	}
	return &repository.DuplicateKeyError{Fields: []string{field}, Err: err}
}

func toDocument(u models.User) userDocument {
	return userDocument{
		ID:                     u.ID,
		Name:                   u.Name,
		Email:                  u.Email,
		PasswordHash:           u.PasswordHash,
		Role:                   string(u.Role),
		Active:                 u.Active,
		PasswordChangedAt:      u.PasswordChangedAt,
		PasswordResetCode:      u.PasswordResetCode,
		PasswordResetExpiresAt: u.PasswordResetExpiresAt,
		PasswordResetVerified:  u.PasswordResetVerified,
		RefreshToken:           u.RefreshToken,
		RefreshTokenExpiresAt:  u.RefreshTokenExpiresAt,
		CreatedAt:              u.CreatedAt,
		UpdatedAt:              u.UpdatedAt,
	}
}

func (d userDocument) toModel() models.User {
	return models.User{
		ID:                     d.ID,
		Name:                   d.Name,
		Email:                  d.Email,
		PasswordHash:           d.PasswordHash,
		Role:                   models.Role(d.Role),
		Active:                 d.Active,
		PasswordChangedAt:      utc(d.PasswordChangedAt),
		PasswordResetCode:      d.PasswordResetCode,
		PasswordResetExpiresAt: utc(d.PasswordResetExpiresAt),
		PasswordResetVerified:  d.PasswordResetVerified,
		RefreshToken:           d.RefreshToken,
		RefreshTokenExpiresAt:  utc(d.RefreshTokenExpiresAt),
		CreatedAt:              d.CreatedAt.UTC(),
		UpdatedAt:              d.UpdatedAt.UTC(),
	}
}

func utc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}
