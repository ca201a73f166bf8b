package models

import "time"

type Role string

const (
	RoleUser    Role = "user"
	RoleManager Role = "manager"
	RoleAdmin   Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleManager, RoleAdmin:
		return true
	}
	return false
}

type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash []byte
	Role         Role
	Active       bool

	PasswordChangedAt *time.Time

	// Only the SHA-256 of the reset code is kept.
	PasswordResetCode      *string
	PasswordResetExpiresAt *time.Time
	PasswordResetVerified  bool

	// RefreshToken and RefreshTokenExpiresAt are set and cleared together.
	RefreshToken          *string
	RefreshTokenExpiresAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (u *User) SetRefreshToken(token string, expiresAt time.Time) {
	u.RefreshToken = &token
	u.RefreshTokenExpiresAt = &expiresAt
}

func (u *User) ClearRefreshToken() {
	u.RefreshToken = nil
	u.RefreshTokenExpiresAt = nil
}

func (u *User) SetPasswordReset(codeHash string, expiresAt time.Time) {
	u.PasswordResetCode = &codeHash
	u.PasswordResetExpiresAt = &expiresAt
	u.PasswordResetVerified = false
}

func (u *User) ClearPasswordReset() {
	u.PasswordResetCode = nil
	u.PasswordResetExpiresAt = nil
	u.PasswordResetVerified = false
}

// ChangedPasswordAfter reports whether the password was changed strictly after
// issuedAt+grace. Both instants are compared at second precision, like JWT iat.
func (u *User) ChangedPasswordAfter(issuedAt time.Time, grace time.Duration) bool {
	if u.PasswordChangedAt == nil {
		return false
	}
	return u.PasswordChangedAt.Unix() > issuedAt.Unix()+int64(grace/time.Second)
}
