package service

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"ecommerce/api/internal/apperr"
	"ecommerce/api/internal/config"
	"ecommerce/api/internal/denylist"
	"ecommerce/api/internal/mail"
	"ecommerce/api/internal/models"
	"ecommerce/api/internal/repository/memory"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// fakeTTLStore expires entries against the test clock. hook, when set, runs
// before every Set and Delete so tests can interleave other writes.
type fakeTTLStore struct {
	mu      sync.Mutex
	now     func() time.Time
	entries map[string]time.Time
	err     error
	hook    func(op, key string)
}

func (s *fakeTTLStore) Set(_ context.Context, key string, ttl time.Duration) error {
	s.runHook("set", key)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.entries[key] = s.now().Add(ttl)
	return nil
}

func (s *fakeTTLStore) Exists(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return false, s.err
	}
	exp, ok := s.entries[key]
	return ok && s.now().Before(exp), nil
}

func (s *fakeTTLStore) Delete(_ context.Context, key string) error {
	s.runHook("delete", key)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	delete(s.entries, key)
	return nil
}

func (s *fakeTTLStore) runHook(op, key string) {
	s.mu.Lock()
	hook := s.hook
	s.mu.Unlock()
	if hook != nil {
		hook(op, key)
	}
}

func (s *fakeTTLStore) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

type fakeMailer struct {
	mu     sync.Mutex
	sent   []mail.Message
	err    error
	onSend func(ctx context.Context) error
}

func (m *fakeMailer) Send(ctx context.Context, msg mail.Message) error {
	if m.onSend != nil {
		if err := m.onSend(ctx); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

var resetCodePattern = regexp.MustCompile(`\b\d{6}\b`)

func (m *fakeMailer) lastCode(t *testing.T) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.sent)
	code := resetCodePattern.FindString(m.sent[len(m.sent)-1].Body)
	require.Len(t, code, 6)
	return code
}

type harness struct {
	clock  *testClock
	store  *memory.UserStore
	ttl    *fakeTTLStore
	mailer *fakeMailer
	cfg    *config.AppConfig
	tokens *TokenIssuer
	auth   *AuthService
	users  *UserService
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	clock := &testClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	cfg := &config.AppConfig{
		Security: config.SecurityConfig{
			JWTSecret:           "test-secret",
			JWTAccessTTL:        15 * time.Minute,
			RefreshTTL:          30 * 24 * time.Hour,
			PasswordChangeGrace: 10 * time.Second,
			ResetCodeTTL:        10 * time.Minute,
			Denylist:            config.DenylistConfig{UserTTL: time.Hour},
		},
		Mail: config.MailConfig{Company: "E-Shop"},
	}

	store := memory.NewUserStore()
	ttl := &fakeTTLStore{now: clock.Now, entries: make(map[string]time.Time)}
	mailer := &fakeMailer{}
	deny := denylist.New(ttl, denylist.DefaultTimeouts, zerolog.Nop(), denylist.WithClock(clock.Now))
	tokens := NewTokenIssuer(store, cfg.Security, clock.Now)

	return &harness{
		clock:  clock,
		store:  store,
		ttl:    ttl,
		mailer: mailer,
		cfg:    cfg,
		tokens: tokens,
		auth:   NewAuthService(store, tokens, deny, mailer, cfg, zerolog.Nop(), WithClock(clock.Now)),
		users:  NewUserService(store, tokens, zerolog.Nop(), clock.Now),
	}
}

func (h *harness) signup(t *testing.T, name, email, password string) AuthResult {
	t.Helper()
	res, err := h.auth.Signup(context.Background(), SignupInput{Name: name, Email: email, Password: password})
	require.NoError(t, err)
	return res
}

func (h *harness) setRole(t *testing.T, id string, role models.Role) models.User {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, h.store.Update(ctx, id, models.UserUpdate{Role: &role}))
	u, err := h.store.GetByID(ctx, id)
	require.NoError(t, err)
	return u
}

func (h *harness) stored(t *testing.T, id string) models.User {
	t.Helper()
	u, err := h.store.GetByID(context.Background(), id)
	require.NoError(t, err)
	return u
}

func requireKind(t *testing.T, err error, kind apperr.Kind) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, kind, apperr.KindOf(err), "unexpected error: %v", err)
}

func requireMessage(t *testing.T, err error, msg string) {
	t.Helper()
	var appErr *apperr.Error
	require.True(t, errors.As(err, &appErr), "not an apperr: %v", err)
	require.Equal(t, msg, appErr.Message)
}
