// Package memory keeps users in process memory. It backs the "memory"
// storage driver and the service tests.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"ecommerce/api/internal/models"
	"ecommerce/api/internal/repository"
)

type UserStore struct {
	mu    sync.RWMutex
	users map[string]models.User
}

func NewUserStore() *UserStore {
	return &UserStore{users: make(map[string]models.User)}
}

func (s *UserStore) Create(_ context.Context, user models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.ID]; ok {
		return &repository.DuplicateKeyError{Fields: []string{"id"}}
	}
	if s.emailTaken(user.Email, "") {
		return &repository.DuplicateKeyError{Fields: []string{"email"}}
	}
	s.users[user.ID] = clone(user)
	return nil
}

func (s *UserStore) GetByID(_ context.Context, id string) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return models.User{}, repository.ErrUserNotFound
	}
	return clone(u), nil
}

func (s *UserStore) FindByEmail(_ context.Context, email string) (models.User, error) {
	return s.find(func(u models.User) bool { return strings.EqualFold(u.Email, email) })
}

func (s *UserStore) FindByRefreshToken(_ context.Context, token string, now time.Time) (models.User, error) {
	return s.find(func(u models.User) bool {
		return u.RefreshToken != nil && *u.RefreshToken == token &&
			u.RefreshTokenExpiresAt != nil && u.RefreshTokenExpiresAt.After(now)
	})
}

func (s *UserStore) FindByResetCode(_ context.Context, codeHash string, now time.Time) (models.User, error) {
	return s.find(func(u models.User) bool {
		return u.PasswordResetCode != nil && *u.PasswordResetCode == codeHash &&
			u.PasswordResetExpiresAt != nil && u.PasswordResetExpiresAt.After(now)
	})
}

func (s *UserStore) Update(_ context.Context, id string, upd models.UserUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	if upd.Email != nil && s.emailTaken(*upd.Email, id) {
		return &repository.DuplicateKeyError{Fields: []string{"email"}}
	}
	u.Apply(upd)
	s.users[id] = clone(u)
	return nil
}

func (s *UserStore) PurgeExpired(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for id, u := range s.users {
		changed := false
		if u.RefreshTokenExpiresAt != nil && !u.RefreshTokenExpiresAt.After(now) {
			u.ClearRefreshToken()
			n++
			changed = true
		}
		if u.PasswordResetExpiresAt != nil && !u.PasswordResetExpiresAt.After(now) {
			u.ClearPasswordReset()
			n++
			changed = true
		}
		if changed {
			u.UpdatedAt = now
			s.users[id] = u
		}
	}
	return n, nil
}

func (s *UserStore) Ping(context.Context) error {
	return nil
}

func (s *UserStore) find(match func(models.User) bool) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if match(u) {
			return clone(u), nil
		}
	}
	return models.User{}, repository.ErrUserNotFound
}

func (s *UserStore) emailTaken(email, exceptID string) bool {
	for id, u := range s.users {
		if id != exceptID && strings.EqualFold(u.Email, email) {
			return true
		}
	}
	return false
}

func clone(u models.User) models.User {
	u.PasswordHash = append([]byte(nil), u.PasswordHash...)
	u.PasswordChangedAt = copyTime(u.PasswordChangedAt)
	u.PasswordResetCode = copyString(u.PasswordResetCode)
	u.PasswordResetExpiresAt = copyTime(u.PasswordResetExpiresAt)
	u.RefreshToken = copyString(u.RefreshToken)
	u.RefreshTokenExpiresAt = copyTime(u.RefreshTokenExpiresAt)
	return u
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
