package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/timelov/admin-api/internal/models"
)

const appUserColumns = `
	id, email, password_hash, full_name, company_name,
	is_active, is_verified, subscription_tier, trial_ends_at,
	last_login, login_count, created_at, updated_at
`

// AppUserRepository persists public end-user accounts.
type AppUserRepository struct {
	db *sqlx.DB
}

// NewAppUserRepository constructs an AppUserRepository.
func NewAppUserRepository(db *sqlx.DB) *AppUserRepository {
	return &AppUserRepository{db: db}
}

// GetByEmail fetches a user by case-normalized email.
func (r *AppUserRepository) GetByEmail(ctx context.Context, email string) (*models.AppUser, error) {
	var user models.AppUser
	err := r.db.GetContext(ctx, &user, `
		SELECT `+appUserColumns+`
		FROM app_users
		WHERE email = lower($1)
	`, email)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByID fetches a user by id.
func (r *AppUserRepository) GetByID(ctx context.Context, id string) (*models.AppUser, error) {
	var user models.AppUser
	err := r.db.GetContext(ctx, &user, `
		SELECT `+appUserColumns+`
		FROM app_users
		WHERE id = $1
	`, id)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Create inserts a new public-user account.
func (r *AppUserRepository) Create(ctx context.Context, user *models.AppUser) error {
	query := `
		INSERT INTO app_users (id, email, password_hash, full_name, company_name,
		                       is_active, is_verified, subscription_tier, trial_ends_at)
		VALUES ($1, lower($2), $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`
	return r.db.QueryRowContext(ctx, query,
		user.ID, user.Email, user.PasswordHash, user.FullName, user.CompanyName,
		user.IsActive, user.IsVerified, user.SubscriptionTier, user.TrialEndsAt).
		Scan(&user.CreatedAt, &user.UpdatedAt)
}

// RecordLogin stamps last_login and bumps the login counter in one statement.
func (r *AppUserRepository) RecordLogin(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE app_users
		SET last_login = $2,
		    login_count = login_count + 1,
		    updated_at = NOW()
		WHERE id = $1
	`, id, at)
	return err
}
