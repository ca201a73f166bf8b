package service

import (
	"context"
	"time"

	"ecommerce/api/internal/mail"
	"ecommerce/api/internal/models"
)

type UserStore interface {
	Create(ctx context.Context, user models.User) error
	GetByID(ctx context.Context, id string) (models.User, error)
	FindByEmail(ctx context.Context, email string) (models.User, error)
	FindByRefreshToken(ctx context.Context, token string, now time.Time) (models.User, error)
	FindByResetCode(ctx context.Context, codeHash string, now time.Time) (models.User, error)
	// Update writes only the fields upd names.
	Update(ctx context.Context, id string, upd models.UserUpdate) error
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

// Denylist is satisfied by *denylist.Denylist. Its methods never fail; they
// report the outcome instead.
type Denylist interface {
	BlacklistToken(ctx context.Context, token string) bool
	IsTokenBlacklisted(ctx context.Context, token string) bool
	BlacklistUser(ctx context.Context, userID string, ttl time.Duration) bool
	IsUserBlacklisted(ctx context.Context, userID string) bool
	RemoveUserFromBlacklist(ctx context.Context, userID string) bool
}

type Mailer interface {
	Send(ctx context.Context, msg mail.Message) error
}

type RejectionRecorder interface {
	AuthRejected(reason string)
}

type noopRecorder struct{}

func (noopRecorder) AuthRejected(string) {}
