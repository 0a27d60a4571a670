package models

import "time"

// AdminUser represents an admin account of the CMS panel.
// Lockout state is fully derivable from (FailedLoginAttempts, LockedUntil, now);
// there is no background sweep.
type AdminUser struct {
	ID                   string     `db:"id" json:"id"`
	Email                string     `db:"email" json:"email"`
	Username             string     `db:"username" json:"username"`
	PasswordHash         string     `db:"password_hash" json:"-"`
	IsActive             bool       `db:"is_active" json:"is_active"`
	IsSuperadmin         bool       `db:"is_superadmin" json:"is_superadmin"`
	LastLogin            *time.Time `db:"last_login" json:"last_login,omitempty"`
	FailedLoginAttempts  int        `db:"failed_login_attempts" json:"-"`
	LockedUntil          *time.Time `db:"locked_until" json:"-"`
	PasswordResetToken   *string    `db:"password_reset_token" json:"-"`
	PasswordResetExpires *time.Time `db:"password_reset_expires" json:"-"`
	CreatedAt            time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time  `db:"updated_at" json:"updated_at"`
}

// IsLocked reports whether the account is locked at the given instant.
func (u *AdminUser) IsLocked(now time.Time) bool {
	return u.LockedUntil != nil && now.Before(*u.LockedUntil)
}

// AdminUserResponse is the sanitized view returned by the API.
type AdminUserResponse struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	Username     string     `json:"username"`
	IsActive     bool       `json:"is_active"`
	IsSuperadmin bool       `json:"is_superadmin"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// Sanitized strips credential and lockout fields from a user record.
func (u *AdminUser) Sanitized() AdminUserResponse {
	return AdminUserResponse{
		ID:           u.ID,
		Email:        u.Email,
		Username:     u.Username,
		IsActive:     u.IsActive,
		IsSuperadmin: u.IsSuperadmin,
		LastLogin:    u.LastLogin,
		CreatedAt:    u.CreatedAt,
	}
}
