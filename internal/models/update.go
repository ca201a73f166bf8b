package models

import "time"

// UserUpdate names the fields a single write touches. Nil fields keep their
// stored value, so writers of disjoint fields never undo each other.
type UserUpdate struct {
	Name          *string
	Email         *string
	Role          *Role
	Active        *bool
	Password      *PasswordUpdate
	Refresh       *RefreshUpdate
	Reset         *ResetUpdate
	ResetVerified *bool
	UpdatedAt     time.Time
}

type PasswordUpdate struct {
	Hash      []byte
	ChangedAt time.Time
}

// RefreshUpdate writes the refresh token and its expiry together. A nil
// Token clears both.
type RefreshUpdate struct {
	Token     *string
	ExpiresAt *time.Time
}

func SetRefresh(token string, expiresAt time.Time) *RefreshUpdate {
	return &RefreshUpdate{Token: &token, ExpiresAt: &expiresAt}
}

func ClearRefresh() *RefreshUpdate {
	return &RefreshUpdate{}
}

// ResetUpdate replaces the pending reset code and always resets the
// verified flag. A nil CodeHash clears the pending reset.
type ResetUpdate struct {
	CodeHash  *string
	ExpiresAt *time.Time
}

func SetReset(codeHash string, expiresAt time.Time) *ResetUpdate {
	return &ResetUpdate{CodeHash: &codeHash, ExpiresAt: &expiresAt}
}

func ClearReset() *ResetUpdate {
	return &ResetUpdate{}
}

// ResetVerifiedValue is the verified flag the update leaves behind, if it
// writes one.
func (u UserUpdate) ResetVerifiedValue() (bool, bool) {
	switch {
	case u.ResetVerified != nil:
		return *u.ResetVerified, true
	case u.Reset != nil:
		return false, true
	}
	return false, false
}

// Apply copies the fields named by upd onto u.
func (u *User) Apply(upd UserUpdate) {
	if upd.Name != nil {
		u.Name = *upd.Name
	}
	if upd.Email != nil {
		u.Email = *upd.Email
	}
	if upd.Role != nil {
		u.Role = *upd.Role
	}
	if upd.Active != nil {
		u.Active = *upd.Active
	}
	if upd.Password != nil {
		u.PasswordHash = append([]byte(nil), upd.Password.Hash...)
		changedAt := upd.Password.ChangedAt
		u.PasswordChangedAt = &changedAt
	}
	if upd.Refresh != nil {
		if upd.Refresh.Token == nil {
			u.ClearRefreshToken()
		} else {
			u.SetRefreshToken(*upd.Refresh.Token, *upd.Refresh.ExpiresAt)
		}
	}
	if upd.Reset != nil {
		if upd.Reset.CodeHash == nil {
			u.ClearPasswordReset()
		} else {
			u.SetPasswordReset(*upd.Reset.CodeHash, *upd.Reset.ExpiresAt)
		}
	}
	if verified, ok := upd.ResetVerifiedValue(); ok {
		u.PasswordResetVerified = verified
	}
	if !upd.UpdatedAt.IsZero() {
		u.UpdatedAt = upd.UpdatedAt
	}
}
