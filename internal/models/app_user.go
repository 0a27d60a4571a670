package models

import "time"

// Subscription tiers for public accounts. New registrations start on the
// free tier with a running trial.
const (
	TierFree = "free"
	TierPro  = "pro"
)

// AppUser represents a public end-user account of the product, as opposed to
// an AdminUser of the CMS panel. Public accounts have no lockout state; they
// are throttled at the route level instead.
type AppUser struct {
	ID               string     `db:"id" json:"id"`
	Email            string     `db:"email" json:"email"`
	PasswordHash     string     `db:"password_hash" json:"-"`
	FullName         string     `db:"full_name" json:"full_name"`
	CompanyName      *string    `db:"company_name" json:"company_name,omitempty"`
	IsActive         bool       `db:"is_active" json:"is_active"`
	IsVerified       bool       `db:"is_verified" json:"is_verified"`
	SubscriptionTier string     `db:"subscription_tier" json:"subscription_tier"`
	TrialEndsAt      *time.Time `db:"trial_ends_at" json:"trial_ends_at,omitempty"`
	LastLogin        *time.Time `db:"last_login" json:"last_login,omitempty"`
	LoginCount       int        `db:"login_count" json:"-"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`
}

// AppUserResponse is the sanitized view returned by the API.
type AppUserResponse struct {
	ID               string     `json:"id"`
	Email            string     `json:"email"`
	FullName         string     `json:"full_name"`
	CompanyName      *string    `json:"company_name,omitempty"`
	IsActive         bool       `json:"is_active"`
	IsVerified       bool       `json:"is_verified"`
	SubscriptionTier string     `json:"subscription_tier"`
	TrialEndsAt      *time.Time `json:"trial_ends_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

// Sanitized strips credential fields from a public-user record.
func (u *AppUser) Sanitized() AppUserResponse {
	return AppUserResponse{
		ID:               u.ID,
		Email:            u.Email,
		FullName:         u.FullName,
		CompanyName:      u.CompanyName,
		IsActive:         u.IsActive,
		IsVerified:       u.IsVerified,
		SubscriptionTier: u.SubscriptionTier,
		TrialEndsAt:      u.TrialEndsAt,
		CreatedAt:        u.CreatedAt,
	}
}
