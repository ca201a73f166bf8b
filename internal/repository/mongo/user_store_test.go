package mongo

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"ecommerce/api/internal/ids"
	"ecommerce/api/internal/models"
	"ecommerce/api/internal/repository"
)

// Integration tests against a real MongoDB, run with:
//
//	GO_TEST_INTEGRATION=1 go test ./internal/repository/mongo -v -count=1
func startMongo(t *testing.T) *UserStore {
	t.Helper()
	if os.Getenv("GO_TEST_INTEGRATION") == "" {
		t.Skip("integration tests are disabled (set GO_TEST_INTEGRATION=1)")
	}

	ctx := context.Background()
	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: tc.ContainerRequest{
			Image:        "mongo:7",
			ExposedPorts: []string{"27017/tcp"},
			WaitingFor:   wait.ForListeningPort("27017/tcp").WithStartupTimeout(90 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Terminate(context.Background()) })

	host, err := c.Host(ctx)
	require.NoError(t, err)
	port, err := c.MappedPort(ctx, "27017/tcp")
	require.NoError(t, err)

	client, err := mongodriver.Connect(ctx, options.Client().ApplyURI(fmt.Sprintf("mongodb://%s:%s", host, port.Port())))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Disconnect(context.Background()) })

	store, err := New(ctx, client, "shop_test")
	require.NoError(t, err)
	return store
}

func newUser(email string, now time.Time) models.User {
	return models.User{
		ID:           ids.New(),
		Name:         "Ann",
		Email:        email,
		PasswordHash: []byte("$argon2id$stub"),
		Role:         models.RoleUser,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestUserStore_RoundTrip(t *testing.T) {
	s := startMongo(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	u := newUser("ann@example.com", now)
	require.NoError(t, s.Create(ctx, u))

	got, err := s.FindByEmail(ctx, "ann@example.com")
	require.NoError(t, err)
	require.Equal(t, u.ID, got.ID)
	require.Equal(t, models.RoleUser, got.Role)
	require.Nil(t, got.RefreshToken)

	require.NoError(t, s.Update(ctx, got.ID, models.UserUpdate{Refresh: models.SetRefresh("abc", now.Add(time.Hour))}))

	byToken, err := s.FindByRefreshToken(ctx, "abc", now)
	require.NoError(t, err)
	require.Equal(t, u.ID, byToken.ID)

	_, err = s.FindByRefreshToken(ctx, "abc", now.Add(2*time.Hour))
	require.ErrorIs(t, err, repository.ErrUserNotFound)

	_, err = s.GetByID(ctx, ids.New())
	require.ErrorIs(t, err, repository.ErrUserNotFound)
}

func TestUserStore_DuplicateEmail(t *testing.T) {
	s := startMongo(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, s.Create(ctx, newUser("dup@example.com", now)))
	err := s.Create(ctx, newUser("dup@example.com", now))

	var dup *repository.DuplicateKeyError
	require.ErrorAs(t, err, &dup)
	require.Equal(t, []string{"email"}, dup.Fields)
}

func TestUserStore_PurgeExpired(t *testing.T) {
	s := startMongo(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	stale := newUser("stale@example.com", now)
	stale.SetRefreshToken("old", now.Add(-time.Minute))
	require.NoError(t, s.Create(ctx, stale))

	n, err := s.PurgeExpired(ctx, now)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	got, err := s.GetByID(ctx, stale.ID)
	require.NoError(t, err)
	require.Nil(t, got.RefreshToken)
	require.Nil(t, got.RefreshTokenExpiresAt)
}

func TestUserStore_UpdateIsFieldScoped(t *testing.T) {
	s := startMongo(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	u := newUser("scoped@example.com", now)
	require.NoError(t, s.Create(ctx, u))

	active := false
	require.NoError(t, s.Update(ctx, u.ID, models.UserUpdate{Active: &active, UpdatedAt: now}))
	require.NoError(t, s.Update(ctx, u.ID, models.UserUpdate{Refresh: models.SetRefresh("tok", now.Add(time.Hour))}))

	got, err := s.GetByID(ctx, u.ID)
	require.NoError(t, err)
	require.False(t, got.Active)
	require.Equal(t, "tok", *got.RefreshToken)

	err = s.Update(ctx, ids.New(), models.UserUpdate{Active: &active})
	require.ErrorIs(t, err, repository.ErrUserNotFound)
}
