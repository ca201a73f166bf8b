package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"ecommerce/api/internal/apperr"
	"ecommerce/api/internal/models"
	"ecommerce/api/internal/repository"
	"ecommerce/api/internal/security"
)

type UserService struct {
	users  UserStore
	tokens *TokenIssuer
	log    zerolog.Logger
	now    func() time.Time
}

func NewUserService(users UserStore, tokens *TokenIssuer, log zerolog.Logger, now func() time.Time) *UserService {
	if now == nil {
		now = time.Now
	}
	return &UserService{users: users, tokens: tokens, log: log, now: now}
}

type CreateUserInput struct {
	Name     string
	Email    string
	Password string
	Role     models.Role
}

// UpdateUserInput carries the admin-editable fields; nil means unchanged.
type UpdateUserInput struct {
	Name   *string
	Email  *string
	Role   *models.Role
	Active *bool
}

func (s *UserService) Me(ctx context.Context) (models.User, error) {
	current, ok := UserFromContext(ctx)
	if !ok {
		return models.User{}, apperr.Auth(msgNotLoggedIn)
	}
	return s.load(ctx, current.ID)
}

func (s *UserService) GetUser(ctx context.Context, id string) (models.User, error) {
	return s.load(ctx, id)
}

// CreateUser provisions an account with an explicit role.
func (s *UserService) CreateUser(ctx context.Context, input CreateUserInput) (models.User, error) {
	input.Email = normalizeEmail(input.Email)
	input.Name = strings.TrimSpace(input.Name)
	if input.Role == "" {
		input.Role = models.RoleUser
	}
	if !input.Role.Valid() {
		return models.User{}, apperr.Validation(fmt.Sprintf("Unknown role %q", input.Role))
	}

	if _, err := s.users.FindByEmail(ctx, input.Email); err == nil {
		return models.User{}, apperr.Conflict("E-mail already in use")
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return models.User{}, apperr.Internal("lookup email", err)
	}

	user, err := newUserRecord(SignupInput{Name: input.Name, Email: input.Email, Password: input.Password}, input.Role, s.now())
	if err != nil {
		return models.User{}, err
	}
	if err := s.users.Create(ctx, user); err != nil {
		return models.User{}, storeError("create user", err)
	}

	s.log.Info().Str("user_id", user.ID).Str("role", string(user.Role)).Msg("user created by admin")
	return user, nil
}

// UpdateUser changes profile, role or active flag of another user. A role
// or active change applies to that user's next request.
func (s *UserService) UpdateUser(ctx context.Context, id string, input UpdateUserInput) (models.User, error) {
	if input.Role != nil && !input.Role.Valid() {
		return models.User{}, apperr.Validation(fmt.Sprintf("Unknown role %q", *input.Role))
	}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		input.Name = &name
	}
	if input.Email != nil {
		email := normalizeEmail(*input.Email)
		input.Email = &email
	}

	upd := models.UserUpdate{
		Name:      input.Name,
		Email:     input.Email,
		Role:      input.Role,
		Active:    input.Active,
		UpdatedAt: s.now(),
	}
	return s.update(ctx, id, upd, "update user")
}

// UpdateMe lets the authenticated user change their own name.
func (s *UserService) UpdateMe(ctx context.Context, name string) (models.User, error) {
	current, ok := UserFromContext(ctx)
	if !ok {
		return models.User{}, apperr.Auth(msgNotLoggedIn)
	}
	name = strings.TrimSpace(name)
	return s.update(ctx, current.ID, models.UserUpdate{Name: &name, UpdatedAt: s.now()}, "update profile")
}

// ChangeUserPassword sets the password of another user. Access tokens that
// user holds stop authenticating once the grace window has passed.
func (s *UserService) ChangeUserPassword(ctx context.Context, targetID, newPassword string) (models.User, error) {
	now := s.now()
	password, err := passwordUpdate(newPassword, now)
	if err != nil {
		return models.User{}, err
	}

	user, err := s.update(ctx, targetID, models.UserUpdate{Password: password, UpdatedAt: now}, "change password")
	if err != nil {
		return models.User{}, err
	}

	s.log.Info().Str("user_id", user.ID).Msg("password changed by admin")
	return user, nil
}

// ChangeMyPassword checks the current password, stores the new one and
// returns an access token issued after the change.
func (s *UserService) ChangeMyPassword(ctx context.Context, currentPassword, newPassword string) (AccessToken, error) {
	current, ok := UserFromContext(ctx)
	if !ok {
		return AccessToken{}, apperr.Auth(msgNotLoggedIn)
	}

	user, err := s.load(ctx, current.ID)
	if err != nil {
		return AccessToken{}, err
	}

	matches, err := security.VerifyPassword(currentPassword, user.PasswordHash)
	if err != nil {
		return AccessToken{}, apperr.Internal("verify password", err)
	}
	if !matches {
		return AccessToken{}, apperr.Validation("Incorrect current password")
	}

	now := s.now()
	password, err := passwordUpdate(newPassword, now)
	if err != nil {
		return AccessToken{}, err
	}
	if _, err := s.update(ctx, user.ID, models.UserUpdate{Password: password, UpdatedAt: now}, "change password"); err != nil {
		return AccessToken{}, err
	}

	token, err := s.tokens.IssueAccessToken(user)
	if err != nil {
		return AccessToken{}, apperr.Internal("issue access token", err)
	}
	return token, nil
}

func (s *UserService) DeactivateMe(ctx context.Context) error {
	current, ok := UserFromContext(ctx)
	if !ok {
		return apperr.Auth(msgNotLoggedIn)
	}

	inactive := false
	if _, err := s.update(ctx, current.ID, models.UserUpdate{Active: &inactive, UpdatedAt: s.now()}, "deactivate user"); err != nil {
		return err
	}

	s.log.Info().Str("user_id", current.ID).Msg("user deactivated")
	return nil
}

// BootstrapAdmin promotes the account registered under email to admin. It
// is a no-op when email is empty; a missing account is only logged so the
// operator can sign it up and restart.
func (s *UserService) BootstrapAdmin(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if email == "" {
		return nil
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			s.log.Warn().Str("email", email).Msg("bootstrap admin account does not exist yet")
			return nil
		}
		return fmt.Errorf("lookup bootstrap admin: %w", err)
	}
	if user.Role == models.RoleAdmin && user.Active {
		return nil
	}

	role, active := models.RoleAdmin, true
	if err := s.users.Update(ctx, user.ID, models.UserUpdate{Role: &role, Active: &active, UpdatedAt: s.now()}); err != nil {
		return fmt.Errorf("promote bootstrap admin: %w", err)
	}

	s.log.Info().Str("user_id", user.ID).Msg("bootstrap admin promoted")
	return nil
}

// PurgeExpired drops lapsed refresh tokens and reset codes.
func (s *UserService) PurgeExpired(ctx context.Context) (int64, error) {
	return s.users.PurgeExpired(ctx, s.now())
}

func (s *UserService) load(ctx context.Context, id string) (models.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return models.User{}, notFoundByID(id)
		}
		return models.User{}, apperr.Internal("load user", err)
	}
	return user, nil
}

// update writes upd and returns the record as stored afterwards.
func (s *UserService) update(ctx context.Context, id string, upd models.UserUpdate, op string) (models.User, error) {
	if err := s.users.Update(ctx, id, upd); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return models.User{}, notFoundByID(id)
		}
		return models.User{}, storeError(op, err)
	}
	return s.load(ctx, id)
}

func notFoundByID(id string) error {
	return apperr.NotFound(fmt.Sprintf("No user found for this id %s", id))
}
