package service

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"ecommerce/api/internal/config"
	"ecommerce/api/internal/models"
	"ecommerce/api/internal/security"
)

type AccessToken struct {
	Token     string
	ExpiresAt time.Time
}

type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

type TokenIssuer struct {
	users      UserStore
	secret     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewTokenIssuer(users UserStore, cfg config.SecurityConfig, now func() time.Time) *TokenIssuer {
	if now == nil {
		now = time.Now
	}
	return &TokenIssuer{
		users:      users,
		secret:     cfg.JWTSecret,
		accessTTL:  cfg.JWTAccessTTL,
		refreshTTL: cfg.RefreshTTL,
		now:        now,
	}
}

func (t *TokenIssuer) IssueAccessToken(user models.User) (AccessToken, error) {
	token, expiresAt, err := security.GenerateAccessToken(t.secret, user.ID, t.now(), t.accessTTL)
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: token, ExpiresAt: expiresAt}, nil
}

// IssuePair replaces the stored refresh token of user, so any earlier
// refresh token stops matching. Only the refresh pair is written.
func (t *TokenIssuer) IssuePair(ctx context.Context, user *models.User) (TokenPair, error) {
	access, err := t.IssueAccessToken(*user)
	if err != nil {
		return TokenPair{}, err
	}

	refresh, err := security.GenerateRefreshToken()
	if err != nil {
		return TokenPair{}, err
	}

	now := t.now()
	refreshExpiresAt := now.Add(t.refreshTTL)
	upd := models.UserUpdate{Refresh: models.SetRefresh(refresh, refreshExpiresAt), UpdatedAt: now}
	if err := t.users.Update(ctx, user.ID, upd); err != nil {
		return TokenPair{}, fmt.Errorf("store refresh token: %w", err)
	}
	user.Apply(upd)

	return TokenPair{
		AccessToken:      access.Token,
		RefreshToken:     refresh,
		AccessExpiresAt:  access.ExpiresAt,
		RefreshExpiresAt: refreshExpiresAt,
	}, nil
}

func (t *TokenIssuer) Verify(token string) (*security.AccessClaims, error) {
	return security.ParseAccessToken(token, t.secret, jwt.WithTimeFunc(t.now))
}
