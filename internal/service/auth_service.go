package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/timelov/admin-api/internal/cache"
	"github.com/timelov/admin-api/internal/config"
	"github.com/timelov/admin-api/internal/models"
	"github.com/timelov/admin-api/internal/utils"
)

// userStore is the subset of the admin-user repository the auth flow needs.
// Implementations return sql.ErrNoRows for missing records.
type userStore interface {
	GetByEmail(ctx context.Context, email string) (*models.AdminUser, error)
	GetByID(ctx context.Context, id string) (*models.AdminUser, error)
	Count(ctx context.Context) (int, error)
	Create(ctx context.Context, user *models.AdminUser) error
	RecordLoginSuccess(ctx context.Context, id string, at time.Time) error
	RecordLoginFailure(ctx context.Context, id string, threshold int, lockFor time.Duration) (int, error)
	SetResetToken(ctx context.Context, id, token string, expires time.Time) error
	GetByResetToken(ctx context.Context, token string, now time.Time) (*models.AdminUser, error)
	CompletePasswordReset(ctx context.Context, id, passwordHash string) error
}

// auditRecorder is the write-only audit hook consumed by the auth flow.
type auditRecorder interface {
	Record(ctx context.Context, entry *models.AuditLog)
}

// TokenPair is the response shape of login and refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
}

const minPasswordLength = 8

// AuthService orchestrates login, token refresh with rotation, logout,
// password reset and the one-time setup against the user store, token codec,
// revocation store and audit trail.
//
// Every security-relevant transition writes exactly one audit record. All
// login failures except an active lockout return the same ErrInvalidCredentials
// so the response carries no account-enumeration signal; the real reason goes
// only to the audit trail.
type AuthService struct {
	users     userStore
	tokens    *TokenService
	hasher    *PasswordHasher
	blacklist cache.TokenBlacklist
	audit     auditRecorder
	emails    EmailSender

	maxLoginFails int
	lockoutWindow time.Duration
	resetTokenTTL time.Duration
	resetURLBase  string
	adminEmail    string
	adminPassword string

	now func() time.Time
}

// NewAuthService wires the authentication flow.
func NewAuthService(
	cfg *config.Config,
	users userStore,
	tokens *TokenService,
	hasher *PasswordHasher,
	blacklist cache.TokenBlacklist,
	audit auditRecorder,
	emails EmailSender,
) *AuthService {
	return &AuthService{
		users:         users,
		tokens:        tokens,
		hasher:        hasher,
		blacklist:     blacklist,
		audit:         audit,
		emails:        emails,
		maxLoginFails: cfg.Auth.MaxLoginFails,
		lockoutWindow: cfg.Auth.LockoutWindow,
		resetTokenTTL: cfg.Auth.ResetTokenTTL,
		resetURLBase:  cfg.Auth.ResetURLBase,
		adminEmail:    cfg.Admin.Email,
		adminPassword: cfg.Admin.Password,
		now:           time.Now,
	}
}

// NormalizeEmail lowercases and trims an email address for lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Login authenticates by email and password and issues an access+refresh
// pair. Failure cases, in check order: unknown email, active lockout,
// inactive account, wrong password. Only the lockout is distinguishable to
// the caller.
func (s *AuthService) Login(ctx context.Context, email, password string, rememberMe bool, meta RequestMeta) (*TokenPair, error) {
	email = NormalizeEmail(email)

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			log.Error().Err(err).Msg("user lookup failed during login")
		}
		s.auditAuth(ctx, models.AuditLoginFailed, nil, &email, meta, models.JSONMap{"reason": "user_not_found"})
		return nil, utils.ErrInvalidCredentials
	}

	now := s.now()

	// Lock check happens before the password is even verified: a locked
	// account rejects a correct password too.
	if user.IsLocked(now) {
		s.auditAuth(ctx, models.AuditLoginFailed, &user.ID, &user.Email, meta, models.JSONMap{"reason": "account_locked"})
		return nil, utils.ErrAccountLocked
	}

	if !user.IsActive {
		s.auditAuth(ctx, models.AuditLoginFailed, &user.ID, &user.Email, meta, models.JSONMap{"reason": "account_inactive"})
		return nil, utils.ErrInvalidCredentials
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		extra := models.JSONMap{"reason": "invalid_password"}
		attempts, ferr := s.users.RecordLoginFailure(ctx, user.ID, s.maxLoginFails, s.lockoutWindow)
		if ferr != nil {
			// Counter state is unknown on this branch; the audit entry
			// carries no attempts field rather than a zero value.
			log.Error().Err(ferr).Str("user_id", user.ID).Msg("failed to record login failure")
		} else {
			extra["attempts"] = attempts
			if attempts >= s.maxLoginFails {
				log.Warn().Str("email", user.Email).Int("attempts", attempts).Msg("account locked after repeated failures")
			}
		}
		s.auditAuth(ctx, models.AuditLoginFailed, &user.ID, &user.Email, meta, extra)
		return nil, utils.ErrInvalidCredentials
	}

	if err := s.users.RecordLoginSuccess(ctx, user.ID, now); err != nil {
		log.Error().Err(err).Str("user_id", user.ID).Msg("failed to record login success")
	}

	pair, err := s.issuePair(user.ID, user.Email, rememberMe)
	if err != nil {
		return nil, err
	}

	s.auditAuth(ctx, models.AuditLoginSuccess, &user.ID, &user.Email, meta, nil)
	log.Info().Str("email", user.Email).Msg("login successful")

	return pair, nil
}

// Refresh exchanges a valid refresh token for a fresh pair, revoking the
// presented token first. Once used, a refresh token is dead even if a crash
// prevents the new pair from being issued; the client then logs in again.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string, meta RequestMeta) (*TokenPair, error) {
	claims, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return nil, err
	}

	revoked, err := s.blacklist.IsRevoked(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, utils.ErrTokenRevoked
	}

	user, err := s.users.GetByID(ctx, claims.Subject)
	if err != nil || !user.IsActive {
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			log.Error().Err(err).Msg("user lookup failed during refresh")
		}
		return nil, utils.ErrUserNotFound
	}

	// Rotation: the presented token dies before its successor is born.
	if err := s.blacklist.Revoke(ctx, refreshToken, s.tokens.RemainingLifetime(claims)); err != nil {
		return nil, err
	}

	pair, err := s.issuePair(user.ID, user.Email, false)
	if err != nil {
		return nil, err
	}

	s.auditAuth(ctx, models.AuditTokenRefresh, &user.ID, &user.Email, meta, nil)
	return pair, nil
}

// Logout revokes the presented access token. Idempotent: revoking an already
// revoked token still reports success.
func (s *AuthService) Logout(ctx context.Context, accessToken string, claims *TokenClaims, meta RequestMeta) error {
	if err := s.blacklist.Revoke(ctx, accessToken, s.tokens.RemainingLifetime(claims)); err != nil {
		return err
	}
	s.auditAuth(ctx, models.AuditLogout, &claims.Subject, &claims.Email, meta, nil)
	return nil
}

// Authenticate is the gate consulted on every protected request: blacklist
// first, then signature and expiry. Callers must not distinguish a revoked
// token from an invalid one in their response.
func (s *AuthService) Authenticate(ctx context.Context, accessToken string) (*TokenClaims, error) {
	revoked, err := s.blacklist.IsRevoked(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, utils.ErrTokenRevoked
	}
	return s.tokens.VerifyAccess(accessToken)
}

// ForgotPassword generates and dispatches a single-use reset token when the
// email matches an account. It never reports whether the email exists; the
// audit trail records the true branch.
func (s *AuthService) ForgotPassword(ctx context.Context, email string, meta RequestMeta) error {
	email = NormalizeEmail(email)

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			log.Error().Err(err).Msg("user lookup failed during password reset request")
		}
		s.auditAuth(ctx, models.AuditPasswordResetRequest, nil, &email, meta, models.JSONMap{"user_found": false})
		return nil
	}

	token, err := utils.GenerateResetToken()
	if err != nil {
		return err
	}

	if err := s.users.SetResetToken(ctx, user.ID, token, s.now().Add(s.resetTokenTTL)); err != nil {
		return err
	}

	if err := s.emails.SendPasswordReset(user.Email, token, s.resetURLBase); err != nil {
		log.Error().Err(err).Str("email", user.Email).Msg("failed to send password reset email")
	}

	s.auditAuth(ctx, models.AuditPasswordResetRequest, &user.ID, &user.Email, meta, models.JSONMap{"user_found": true})
	return nil
}

// ResetPassword consumes a reset token and installs a new password hash,
// clearing lockout state. Wrong and expired tokens are indistinguishable.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string, meta RequestMeta) error {
	if len(newPassword) < minPasswordLength {
		return utils.ErrWeakPassword
	}

	user, err := s.users.GetByResetToken(ctx, token, s.now())
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			log.Error().Err(err).Msg("reset token lookup failed")
		}
		return utils.ErrResetTokenInvalid
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}

	if err := s.users.CompletePasswordReset(ctx, user.ID, hash); err != nil {
		return err
	}

	s.auditAuth(ctx, models.AuditPasswordResetSuccess, &user.ID, &user.Email, meta, nil)
	log.Info().Str("email", user.Email).Msg("password reset completed")
	return nil
}

// Setup creates the first admin account from environment configuration.
// Rejected once any admin exists; bootstrap only.
func (s *AuthService) Setup(ctx context.Context) (*models.AdminUser, error) {
	count, err := s.users.Count(ctx)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, utils.ErrSetupAlreadyDone
	}
	if s.adminPassword == "" {
		return nil, errors.New("ADMIN_PASSWORD must be set for initial setup")
	}

	hash, err := s.hasher.Hash(s.adminPassword)
	if err != nil {
		return nil, err
	}

	user := &models.AdminUser{
		ID:           uuid.New().String(),
		Email:        NormalizeEmail(s.adminEmail),
		Username:     "admin",
		PasswordHash: hash,
		IsActive:     true,
		IsSuperadmin: true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	log.Info().Str("email", user.Email).Msg("initial admin created")
	return user, nil
}

// GetUser returns the sanitized record for /me.
func (s *AuthService) GetUser(ctx context.Context, id string) (*models.AdminUser, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, utils.ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func (s *AuthService) issuePair(userID, email string, rememberMe bool) (*TokenPair, error) {
	access, refresh, err := s.tokens.IssuePair(userID, email, rememberMe)
	if err != nil {
		return nil, err
	}
	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "bearer",
		ExpiresIn:    int(s.tokens.AccessTTL().Seconds()),
	}, nil
}

func (s *AuthService) auditAuth(ctx context.Context, action models.AuditAction, adminID, adminEmail *string, meta RequestMeta, info models.JSONMap) {
	entry := &models.AuditLog{
		Action:         action,
		EntityType:     models.EntityAuth,
		AdminID:        adminID,
		AdminEmail:     adminEmail,
		IPAddress:      meta.IP,
		AdditionalInfo: info,
	}
	if meta.UserAgent != "" {
		entry.UserAgent = &meta.UserAgent
	}
	s.audit.Record(ctx, entry)
}
