package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"ecommerce/api/internal/models"
	"ecommerce/api/internal/repository"
)

func TestUserStore_CreateFindUpdate(t *testing.T) {
	s := NewUserStore()
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	u := models.User{ID: "u1", Email: "ann@example.com", Role: models.RoleUser, Active: true, CreatedAt: now}
	require.NoError(t, s.Create(ctx, u))

	err := s.Create(ctx, models.User{ID: "u2", Email: "ANN@example.com"})
	var dup *repository.DuplicateKeyError
	require.ErrorAs(t, err, &dup)
	require.Equal(t, []string{"email"}, dup.Fields)

	got, err := s.FindByEmail(ctx, "ann@example.com")
	require.NoError(t, err)
	require.Equal(t, "u1", got.ID)

	require.NoError(t, s.Update(ctx, got.ID, models.UserUpdate{Refresh: models.SetRefresh("tok", now.Add(time.Hour))}))

	_, err = s.FindByRefreshToken(ctx, "tok", now)
	require.NoError(t, err)
	_, err = s.FindByRefreshToken(ctx, "tok", now.Add(time.Hour))
	require.ErrorIs(t, err, repository.ErrUserNotFound)

	active := false
	require.ErrorIs(t, s.Update(ctx, "missing", models.UserUpdate{Active: &active}), repository.ErrUserNotFound)
}

func TestUserStore_UpdateKeepsUnnamedFields(t *testing.T) {
	s := NewUserStore()
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, s.Create(ctx, models.User{ID: "u1", Email: "a@example.com", PasswordHash: []byte("old"), Active: true}))
	require.NoError(t, s.Create(ctx, models.User{ID: "u2", Email: "b@example.com"}))

	stale, err := s.GetByID(ctx, "u1")
	require.NoError(t, err)

	require.NoError(t, s.Update(ctx, "u1", models.UserUpdate{
		Password: &models.PasswordUpdate{Hash: []byte("new"), ChangedAt: now},
	}))
	require.NoError(t, s.Update(ctx, stale.ID, models.UserUpdate{Refresh: models.ClearRefresh(), UpdatedAt: now}))

	got, err := s.GetByID(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, []byte("new"), got.PasswordHash)
	require.Equal(t, now, *got.PasswordChangedAt)
	require.True(t, got.Active)

	email := "B@example.com"
	err = s.Update(ctx, "u1", models.UserUpdate{Email: &email})
	var dup *repository.DuplicateKeyError
	require.ErrorAs(t, err, &dup)
}

func TestUserStore_ReturnsCopies(t *testing.T) {
	s := NewUserStore()
	ctx := context.Background()
	require.NoError(t, s.Create(ctx, models.User{ID: "u1", Email: "a@example.com"}))

	got, err := s.GetByID(ctx, "u1")
	require.NoError(t, err)
	got.SetRefreshToken("leak", time.Now().Add(time.Hour))

	again, err := s.GetByID(ctx, "u1")
	require.NoError(t, err)
	require.Nil(t, again.RefreshToken)
}

func TestUserStore_FindByResetCode(t *testing.T) {
	s := NewUserStore()
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	u := models.User{ID: "u1", Email: "a@example.com"}
	u.SetPasswordReset("hash", now.Add(10*time.Minute))
	require.NoError(t, s.Create(ctx, u))

	_, err := s.FindByResetCode(ctx, "hash", now)
	require.NoError(t, err)
	_, err = s.FindByResetCode(ctx, "hash", now.Add(10*time.Minute))
	require.ErrorIs(t, err, repository.ErrUserNotFound)
	_, err = s.FindByResetCode(ctx, "other", now)
	require.ErrorIs(t, err, repository.ErrUserNotFound)
}

func TestUserStore_PurgeExpired(t *testing.T) {
	s := NewUserStore()
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	stale := models.User{ID: "stale", Email: "s@example.com"}
	stale.SetRefreshToken("old", now)
	stale.SetPasswordReset("hash", now.Add(-time.Second))
	require.NoError(t, s.Create(ctx, stale))

	fresh := models.User{ID: "fresh", Email: "f@example.com"}
	fresh.SetRefreshToken("new", now.Add(time.Second))
	require.NoError(t, s.Create(ctx, fresh))

	n, err := s.PurgeExpired(ctx, now)
	require.NoError(t, err)
	require.EqualValues(t, 2, n)

	got, _ := s.GetByID(ctx, "stale")
	require.Nil(t, got.RefreshToken)
	require.Nil(t, got.RefreshTokenExpiresAt)
	require.Nil(t, got.PasswordResetCode)

	got, _ = s.GetByID(ctx, "fresh")
	require.NotNil(t, got.RefreshToken)
}
