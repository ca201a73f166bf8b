package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"ecommerce/api/internal/apperr"
	"ecommerce/api/internal/config"
	"ecommerce/api/internal/ids"
	"ecommerce/api/internal/mail"
	"ecommerce/api/internal/models"
	"ecommerce/api/internal/repository"
	"ecommerce/api/internal/security"
)

const (
	msgNotLoggedIn     = "You are not logged in! Please log in to get access."
	msgInactive        = "User is not active. Please contact support."
	msgBadCredentials  = "Incorrect email or password"
	msgNoUserWithEmail = "There is no user with that email"
)

type AuthService struct {
	users    UserStore
	tokens   *TokenIssuer
	denylist Denylist
	mailer   Mailer
	cfg      config.SecurityConfig
	company  string
	log      zerolog.Logger
	now      func() time.Time
	rejected RejectionRecorder
}

type Option func(*AuthService)

func WithClock(now func() time.Time) Option {
	return func(s *AuthService) { s.now = now }
}

func WithRejectionRecorder(r RejectionRecorder) Option {
	return func(s *AuthService) { s.rejected = r }
}

func NewAuthService(
	users UserStore,
	tokens *TokenIssuer,
	denylist Denylist,
	mailer Mailer,
	cfg *config.AppConfig,
	log zerolog.Logger,
	opts ...Option,
) *AuthService {
	s := &AuthService{
		users:    users,
		tokens:   tokens,
		denylist: denylist,
		mailer:   mailer,
		cfg:      cfg.Security,
		company:  cfg.Mail.Company,
		log:      log,
		now:      time.Now,
		rejected: noopRecorder{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type SignupInput struct {
	Name     string
	Email    string
	Password string
}

type AuthResult struct {
	User             models.User
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

type KickResult struct {
	Message     string
	Blacklisted bool
}

func (s *AuthService) Signup(ctx context.Context, input SignupInput) (AuthResult, error) {
	input.Email = normalizeEmail(input.Email)
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" || input.Email == "" || input.Password == "" {
		return AuthResult{}, apperr.Validation("Name, email and password are required")
	}

	if _, err := s.users.FindByEmail(ctx, input.Email); err == nil {
		return AuthResult{}, apperr.Conflict("E-mail already in use")
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return AuthResult{}, apperr.Internal("lookup email", err)
	}

	user, err := newUserRecord(input, models.RoleUser, s.now())
	if err != nil {
		return AuthResult{}, err
	}
	if err := s.users.Create(ctx, user); err != nil {
		return AuthResult{}, storeError("create user", err)
	}

	s.log.Info().Str("user_id", user.ID).Msg("user signed up")
	return s.issue(ctx, user)
}

func (s *AuthService) Login(ctx context.Context, email, password string) (AuthResult, error) {
	user, err := s.users.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return AuthResult{}, apperr.Auth(msgBadCredentials)
		}
		return AuthResult{}, apperr.Internal("lookup user", err)
	}

	ok, err := security.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return AuthResult{}, apperr.Internal("verify password", err)
	}
	if !ok {
		return AuthResult{}, apperr.Auth(msgBadCredentials)
	}

	if !user.Active {
		return AuthResult{}, apperr.Forbidden(msgInactive)
	}

	// Logging in again lifts a kick.
	s.denylist.RemoveUserFromBlacklist(ctx, user.ID)

	return s.issue(ctx, user)
}

// Authenticate validates a bearer token and resolves its user. The checks run
// in a fixed order and the first failure is returned.
func (s *AuthService) Authenticate(ctx context.Context, token string) (models.User, error) {
	if token == "" || token == "null" || token == "undefined" {
		return s.reject("missing_token", apperr.Auth(msgNotLoggedIn))
	}

	claims, err := s.tokens.Verify(token)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return s.reject("expired_token", apperr.Auth("Your token has expired! Please log in again."))
		}
		return s.reject("invalid_token", apperr.Auth("Invalid token. Please log in again."))
	}

	if s.denylist.IsTokenBlacklisted(ctx, token) {
		return s.reject("token_revoked", apperr.Auth("Token has been invalidated. Please log in again."))
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return s.reject("user_gone", apperr.Auth("The user belonging to this token does no longer exist."))
		}
		return models.User{}, apperr.Internal("load user", err)
	}

	if s.denylist.IsUserBlacklisted(ctx, user.ID) {
		return s.reject("user_suspended", apperr.Auth("Your account has been temporarily suspended. Please contact support."))
	}

	if user.ChangedPasswordAfter(claims.IssuedAtTime(), s.cfg.PasswordChangeGrace) {
		return s.reject("password_changed", apperr.Auth("User recently changed password! Please log in again."))
	}

	if !user.Active {
		return s.reject("inactive", apperr.Forbidden(msgInactive))
	}

	return user, nil
}

// Allowed reports whether role is one of allowed.
func Allowed(allowed []models.Role, role models.Role) error {
	for _, r := range allowed {
		if r == role {
			return nil
		}
	}
	return apperr.Forbidden("You are not allowed to perform this action")
}

// Refresh trades a stored, unexpired refresh token for a new pair.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (AuthResult, error) {
	if refreshToken == "" {
		return AuthResult{}, apperr.Validation("Refresh token is required")
	}

	user, err := s.users.FindByRefreshToken(ctx, refreshToken, s.now())
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return AuthResult{}, apperr.Auth("Invalid or expired refresh token")
		}
		return AuthResult{}, apperr.Internal("lookup refresh token", err)
	}

	return s.issue(ctx, user)
}

// Logout denies the presented access token and drops the stored refresh
// token of the user in ctx.
func (s *AuthService) Logout(ctx context.Context, bearer string) error {
	current, ok := UserFromContext(ctx)
	if !ok {
		return apperr.Auth(msgNotLoggedIn)
	}

	if bearer != "" {
		if !s.denylist.BlacklistToken(ctx, bearer) {
			s.log.Warn().Str("user_id", current.ID).Msg("logout: access token not denylisted")
		}
	}

	upd := models.UserUpdate{Refresh: models.ClearRefresh(), UpdatedAt: s.now()}
	if err := s.users.Update(context.WithoutCancel(ctx), current.ID, upd); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil
		}
		return storeError("clear refresh token", err)
	}
	return nil
}

// KickUser suspends every session of targetID. Blacklisted reports whether
// the denylist write landed; the refresh token is cleared either way.
func (s *AuthService) KickUser(ctx context.Context, actor models.User, targetID string) (KickResult, error) {
	target, err := s.users.GetByID(ctx, targetID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return KickResult{}, apperr.NotFound("User not found")
		}
		return KickResult{}, apperr.Internal("load user", err)
	}

	if target.ID == actor.ID {
		return KickResult{}, apperr.Validation("Cannot kick yourself")
	}

	blacklisted := s.denylist.BlacklistUser(ctx, target.ID, s.cfg.Denylist.UserTTL)

	// A client disconnect must not leave the kick half applied.
	upd := models.UserUpdate{Refresh: models.ClearRefresh(), UpdatedAt: s.now()}
	if err := s.users.Update(context.WithoutCancel(ctx), target.ID, upd); err != nil {
		return KickResult{}, storeError("clear refresh token", err)
	}

	s.log.Info().
		Str("actor_id", actor.ID).
		Str("user_id", target.ID).
		Bool("blacklisted", blacklisted).
		Msg("user kicked")

	return KickResult{
		Message:     fmt.Sprintf("User %s kicked - must login again to access", target.Name),
		Blacklisted: blacklisted,
	}, nil
}

func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.users.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return apperr.NotFound(msgNoUserWithEmail)
		}
		return apperr.Internal("lookup user", err)
	}

	code, err := security.GenerateResetCode()
	if err != nil {
		return apperr.Internal("generate reset code", err)
	}

	now := s.now()
	upd := models.UserUpdate{
		Reset:     models.SetReset(security.HashResetCode(code), now.Add(s.cfg.ResetCodeTTL)),
		UpdatedAt: now,
	}
	if err := s.users.Update(ctx, user.ID, upd); err != nil {
		return storeError("store reset code", err)
	}

	// From here on the request no longer controls the outcome: the mailer
	// bounds the send with its own timeout.
	detached := context.WithoutCancel(ctx)
	msg := mail.ResetCodeMessage(user.Email, user.Name, code, s.company, s.cfg.ResetCodeTTL)
	if err := s.mailer.Send(detached, msg); err != nil {
		rollback := models.UserUpdate{Reset: models.ClearReset(), UpdatedAt: s.now()}
		if clearErr := s.users.Update(detached, user.ID, rollback); clearErr != nil {
			s.log.Error().Err(clearErr).Str("user_id", user.ID).Msg("clear reset code after mail failure")
		}
		return apperr.Unavailable("There was an error sending the email. Try again later.", err)
	}
	return nil
}

func (s *AuthService) VerifyResetCode(ctx context.Context, code string) error {
	if code == "" {
		return apperr.Validation("Reset code is required")
	}

	user, err := s.users.FindByResetCode(ctx, security.HashResetCode(code), s.now())
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return apperr.Validation("Invalid or expired reset code")
		}
		return apperr.Internal("lookup reset code", err)
	}

	verified := true
	upd := models.UserUpdate{ResetVerified: &verified, UpdatedAt: s.now()}
	if err := s.users.Update(ctx, user.ID, upd); err != nil {
		return storeError("verify reset code", err)
	}
	return nil
}

// ResetPassword completes a verified reset. It hands back an access token
// only; the refresh token is left as it was.
func (s *AuthService) ResetPassword(ctx context.Context, email, newPassword string) (AccessToken, error) {
	user, err := s.users.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return AccessToken{}, apperr.NotFound(msgNoUserWithEmail)
		}
		return AccessToken{}, apperr.Internal("lookup user", err)
	}

	if !user.PasswordResetVerified {
		return AccessToken{}, apperr.Validation("Reset code not verified")
	}

	now := s.now()
	password, err := passwordUpdate(newPassword, now)
	if err != nil {
		return AccessToken{}, err
	}
	upd := models.UserUpdate{Password: password, Reset: models.ClearReset(), UpdatedAt: now}
	if err := s.users.Update(ctx, user.ID, upd); err != nil {
		return AccessToken{}, storeError("reset password", err)
	}
	user.Apply(upd)

	token, err := s.tokens.IssueAccessToken(user)
	if err != nil {
		return AccessToken{}, apperr.Internal("issue access token", err)
	}
	return token, nil
}

func (s *AuthService) issue(ctx context.Context, user models.User) (AuthResult, error) {
	pair, err := s.tokens.IssuePair(ctx, &user)
	if err != nil {
		return AuthResult{}, storeError("issue token pair", err)
	}
	return AuthResult{
		User:             user,
		AccessToken:      pair.AccessToken,
		RefreshToken:     pair.RefreshToken,
		AccessExpiresAt:  pair.AccessExpiresAt,
		RefreshExpiresAt: pair.RefreshExpiresAt,
	}, nil
}

func (s *AuthService) reject(reason string, err *apperr.Error) (models.User, error) {
	s.rejected.AuthRejected(reason)
	return models.User{}, err
}

// passwordUpdate rehashes the password and stamps the change time that
// invalidates older access tokens.
func passwordUpdate(password string, now time.Time) (*models.PasswordUpdate, error) {
	if password == "" {
		return nil, apperr.Validation("Password is required")
	}
	hash, err := security.HashPassword(password)
	if err != nil {
		return nil, apperr.Internal("hash password", err)
	}
	// ChangedAt is the real change instant with no backdating; the grace
	// window in Authenticate absorbs skew against a token issued alongside.
	return &models.PasswordUpdate{Hash: hash, ChangedAt: now}, nil
}

func newUserRecord(input SignupInput, role models.Role, now time.Time) (models.User, error) {
	password, err := passwordUpdate(input.Password, now)
	if err != nil {
		return models.User{}, err
	}
	return models.User{
		ID:           ids.New(),
		Name:         input.Name,
		Email:        input.Email,
		PasswordHash: password.Hash,
		Role:         role,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// storeError maps credential store failures onto the error taxonomy.
func storeError(op string, err error) error {
	var dup *repository.DuplicateKeyError
	switch {
	case errors.As(err, &dup):
		return apperr.Conflict(fmt.Sprintf("Duplicate value for %s", strings.Join(dup.Fields, ", ")))
	case errors.Is(err, repository.ErrUserNotFound):
		return apperr.NotFound("User not found")
	default:
		return apperr.Internal(op, err)
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
