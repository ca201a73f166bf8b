package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"ecommerce/api/internal/models"
)

const userColumns = `
	id, name, email, password_hash, role, active, password_changed_at,
	password_reset_code, password_reset_expires_at, password_reset_verified,
	refresh_token, refresh_token_expires_at, created_at, updated_at`

var constraintFields = map[string]string{
	"users_email_key": "email",
	"users_pkey":      "id",
}

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func (r *UserRepository) Create(ctx context.Context, user models.User) error {
	const query = `
		INSERT INTO users (
			id, name, email, password_hash, role, active, password_changed_at,
			password_reset_code, password_reset_expires_at, password_reset_verified,
			refresh_token, refresh_token_expires_at, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14
		)
	`

	_, err := r.pool.Exec(ctx, query,
		user.ID,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.Role,
		user.Active,
		user.PasswordChangedAt,
		user.PasswordResetCode,
		user.PasswordResetExpiresAt,
		user.PasswordResetVerified,
		user.RefreshToken,
		user.RefreshTokenExpiresAt,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create user: %w", mapPgError(err))
	}
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.pool.QueryRow(ctx, query, id))
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(r.pool.QueryRow(ctx, query, email))
}

func (r *UserRepository) FindByRefreshToken(ctx context.Context, token string, now time.Time) (models.User, error) {
	query := `SELECT ` + userColumns + `
		FROM users
		WHERE refresh_token = $1 AND refresh_token_expires_at > $2`
	return scanUser(r.pool.QueryRow(ctx, query, token, now))
}

func (r *UserRepository) FindByResetCode(ctx context.Context, codeHash string, now time.Time) (models.User, error) {
	query := `SELECT ` + userColumns + `
		FROM users
		WHERE password_reset_code = $1 AND password_reset_expires_at > $2`
	return scanUser(r.pool.QueryRow(ctx, query, codeHash, now))
}

// Update writes only the columns named by upd.
func (r *UserRepository) Update(ctx context.Context, id string, upd models.UserUpdate) error {
	args := []any{id}
	var sets []string
	set := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if upd.Name != nil {
		set("name", *upd.Name)
	}
	if upd.Email != nil {
		set("email", *upd.Email)
	}
	if upd.Role != nil {
		set("role", string(*upd.Role))
	}
	if upd.Active != nil {
		set("active", *upd.Active)
	}
	if upd.Password != nil {
		set("password_hash", upd.Password.Hash)
		set("password_changed_at", upd.Password.ChangedAt)
	}
	if upd.Refresh != nil {
		set("refresh_token", upd.Refresh.Token)
		set("refresh_token_expires_at", upd.Refresh.ExpiresAt)
	}
	if upd.Reset != nil {
		set("password_reset_code", upd.Reset.CodeHash)
		set("password_reset_expires_at", upd.Reset.ExpiresAt)
	}
	if verified, ok := upd.ResetVerifiedValue(); ok {
		set("password_reset_verified", verified)
	}
	if !upd.UpdatedAt.IsZero() {
		set("updated_at", upd.UpdatedAt)
	}
	if len(sets) == 0 {
		return nil
	}

	query := `UPDATE users SET ` + strings.Join(sets, ", ") + ` WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update user: %w", mapPgError(err))
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// PurgeExpired clears lapsed refresh tokens and reset codes.
func (r *UserRepository) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	const refreshQuery = `
		UPDATE users
		SET refresh_token = NULL, refresh_token_expires_at = NULL, updated_at = $1
		WHERE refresh_token_expires_at <= $1
	`
	const resetQuery = `
		UPDATE users
		SET password_reset_code = NULL, password_reset_expires_at = NULL,
			password_reset_verified = FALSE, updated_at = $1
		WHERE password_reset_expires_at <= $1
	`

	var total int64
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		for _, q := range []string{refreshQuery, resetQuery} {
			tag, err := tx.Exec(ctx, q, now)
			if err != nil {
				return err
			}
			total += tag.RowsAffected()
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("purge expired: %w", err)
	}
	return total, nil
}

func (r *UserRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func scanUser(row pgx.Row) (models.User, error) {
	var user models.User
	if err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&user.Role,
		&user.Active,
		&user.PasswordChangedAt,
		&user.PasswordResetCode,
		&user.PasswordResetExpiresAt,
		&user.PasswordResetVerified,
		&user.RefreshToken,
		&user.RefreshTokenExpiresAt,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, ErrUserNotFound
		}
		return models.User{}, fmt.Errorf("scan user: %w", err)
	}
	return user, nil
}

func mapPgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		field, ok := constraintFields[pgErr.ConstraintName]
		if !ok {
			field = pgErr.ConstraintName
		}
		return &DuplicateKeyError{Fields: []string{field}, Err: err}
	}
	return err
}
