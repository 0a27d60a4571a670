package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/timelov/admin-api/internal/models"
)

const adminUserColumns = `
	id, email, username, password_hash, is_active, is_superadmin,
	last_login, failed_login_attempts, locked_until,
	password_reset_token, password_reset_expires, created_at, updated_at
`

// AdminUserRepository persists admin accounts.
type AdminUserRepository struct {
	db *sqlx.DB
}

// NewAdminUserRepository constructs an AdminUserRepository.
func NewAdminUserRepository(db *sqlx.DB) *AdminUserRepository {
	return &AdminUserRepository{db: db}
}

// GetByEmail fetches a user by case-normalized email.
func (r *AdminUserRepository) GetByEmail(ctx context.Context, email string) (*models.AdminUser, error) {
	var user models.AdminUser
	err := r.db.GetContext(ctx, &user, `
		SELECT `+adminUserColumns+`
		FROM admin_users
		WHERE email = lower($1)
	`, email)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByID fetches a user by id.
func (r *AdminUserRepository) GetByID(ctx context.Context, id string) (*models.AdminUser, error) {
	var user models.AdminUser
	err := r.db.GetContext(ctx, &user, `
		SELECT `+adminUserColumns+`
		FROM admin_users
		WHERE id = $1
	`, id)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Count returns the number of admin accounts. Used by the one-time setup
// endpoint to decide whether bootstrap is still allowed.
func (r *AdminUserRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM admin_users`)
	return n, err
}

// Create inserts a new admin account.
func (r *AdminUserRepository) Create(ctx context.Context, user *models.AdminUser) error {
	query := `
		INSERT INTO admin_users (id, email, username, password_hash, is_active, is_superadmin)
		VALUES ($1, lower($2), $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`
	return r.db.QueryRowContext(ctx, query,
		user.ID, user.Email, user.Username, user.PasswordHash, user.IsActive, user.IsSuperadmin).
		Scan(&user.CreatedAt, &user.UpdatedAt)
}

// RecordLoginSuccess resets lockout state and stamps last_login in one
// statement.
func (r *AdminUserRepository) RecordLoginSuccess(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE admin_users
		SET failed_login_attempts = 0,
		    locked_until = NULL,
		    last_login = $2,
		    updated_at = NOW()
		WHERE id = $1
	`, id, at)
	return err
}

// RecordLoginFailure increments the failed-attempt counter and, when the new
// count reaches the threshold, sets locked_until. The increment and lock
// decision run in a single UPDATE so concurrent failures for the same user
// never lose counts.
func (r *AdminUserRepository) RecordLoginFailure(ctx context.Context, id string, threshold int, lockFor time.Duration) (int, error) {
	var attempts int
	err := r.db.QueryRowContext(ctx, `
		UPDATE admin_users
		SET failed_login_attempts = failed_login_attempts + 1,
		    locked_until = CASE
		        WHEN failed_login_attempts + 1 >= $2 THEN NOW() + $3::interval
		        ELSE locked_until
		    END,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING failed_login_attempts
	`, id, threshold, lockFor.String()).Scan(&attempts)
	return attempts, err
}

// SetResetToken stores a single-use password-reset token and its expiry.
func (r *AdminUserRepository) SetResetToken(ctx context.Context, id, token string, expires time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE admin_users
		SET password_reset_token = $2,
		    password_reset_expires = $3,
		    updated_at = NOW()
		WHERE id = $1
	`, id, token, expires)
	return err
}

// GetByResetToken fetches the user holding an unexpired reset token. Exact
// token match plus expiry check in one query; no distinction between a wrong
// and an expired token is surfaced.
func (r *AdminUserRepository) GetByResetToken(ctx context.Context, token string, now time.Time) (*models.AdminUser, error) {
	var user models.AdminUser
	err := r.db.GetContext(ctx, &user, `
		SELECT `+adminUserColumns+`
		FROM admin_users
		WHERE password_reset_token = $1
		  AND password_reset_expires > $2
	`, token, now)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// CompletePasswordReset replaces the password hash, consumes the reset token
// and clears lockout state.
func (r *AdminUserRepository) CompletePasswordReset(ctx context.Context, id, passwordHash string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE admin_users
		SET password_hash = $2,
		    password_reset_token = NULL,
		    password_reset_expires = NULL,
		    failed_login_attempts = 0,
		    locked_until = NULL,
		    updated_at = NOW()
		WHERE id = $1
	`, id, passwordHash)
	return err
}
