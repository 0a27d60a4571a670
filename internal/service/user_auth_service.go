package service

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/timelov/admin-api/internal/cache"
	"github.com/timelov/admin-api/internal/models"
	"github.com/timelov/admin-api/internal/utils"
)

// appUserStore is the subset of the public-user repository the auth flow
// needs. Implementations return sql.ErrNoRows for missing records.
type appUserStore interface {
	GetByEmail(ctx context.Context, email string) (*models.AppUser, error)
	GetByID(ctx context.Context, id string) (*models.AppUser, error)
	Create(ctx context.Context, user *models.AppUser) error
	RecordLogin(ctx context.Context, id string, at time.Time) error
}

// PasswordPolicyError reports which composition rule a candidate password
// broke. The message is user-facing; errors.Is(err, utils.ErrWeakPassword)
// matches every rule.
type PasswordPolicyError struct {
	Reason string
}

func (e *PasswordPolicyError) Error() string { return e.Reason }

func (e *PasswordPolicyError) Unwrap() error { return utils.ErrWeakPassword }

var (
	passwordUpper  = regexp.MustCompile(`[A-Z]`)
	passwordDigit  = regexp.MustCompile(`[0-9]`)
	passwordSymbol = regexp.MustCompile(`[!@#$%^&*(),.?":{}|<>]`)
)

// ValidateUserPassword enforces the registration password policy: minimum
// length plus uppercase, digit and symbol. Admin accounts are provisioned by
// operators and only get the length check on reset; self-registered accounts
// get the full composition rules.
func ValidateUserPassword(password string) error {
	switch {
	case len(password) < minPasswordLength:
		return &PasswordPolicyError{Reason: "Hasło musi mieć minimum 8 znaków"}
	case !passwordUpper.MatchString(password):
		return &PasswordPolicyError{Reason: "Hasło musi zawierać wielką literę"}
	case !passwordDigit.MatchString(password):
		return &PasswordPolicyError{Reason: "Hasło musi zawierać cyfrę"}
	case !passwordSymbol.MatchString(password):
		return &PasswordPolicyError{Reason: "Hasło musi zawierać znak specjalny"}
	}
	return nil
}

// trialPeriod is how long a fresh registration keeps free-tier trial access.
const trialPeriod = 14 * 24 * time.Hour

// UserRegistration is the input of Register.
type UserRegistration struct {
	Email       string
	Password    string
	FullName    string
	CompanyName *string
}

// UserSession is the response shape of a public-user login: the token pair
// plus the account the client renders after sign-in.
type UserSession struct {
	TokenPair
	User models.AppUserResponse `json:"user"`
}

// UserAuthService handles registration and sessions for public end-user
// accounts. It shares the token codec and revocation store with the admin
// flow but issues distinctly-kinded tokens, so neither side's tokens work on
// the other's routes. Public accounts have no lockout counters or audit
// trail; route-level throttling covers brute force.
type UserAuthService struct {
	users     appUserStore
	tokens    *TokenService
	hasher    *PasswordHasher
	blacklist cache.TokenBlacklist

	now func() time.Time
}

// NewUserAuthService wires the public-user authentication flow.
func NewUserAuthService(users appUserStore, tokens *TokenService, hasher *PasswordHasher, blacklist cache.TokenBlacklist) *UserAuthService {
	return &UserAuthService{
		users:     users,
		tokens:    tokens,
		hasher:    hasher,
		blacklist: blacklist,
		now:       time.Now,
	}
}

// Register creates a new account on the free tier with a running trial.
// Duplicate emails return utils.ErrEmailTaken; the registration endpoint is
// public, so unlike login it may say so.
func (s *UserAuthService) Register(ctx context.Context, reg UserRegistration) (*models.AppUser, error) {
	if err := ValidateUserPassword(reg.Password); err != nil {
		return nil, err
	}

	email := NormalizeEmail(reg.Email)

	_, err := s.users.GetByEmail(ctx, email)
	if err == nil {
		return nil, utils.ErrEmailTaken
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	hash, err := s.hasher.Hash(reg.Password)
	if err != nil {
		return nil, err
	}

	trialEnds := s.now().Add(trialPeriod)
	user := &models.AppUser{
		ID:               uuid.New().String(),
		Email:            email,
		PasswordHash:     hash,
		FullName:         reg.FullName,
		CompanyName:      reg.CompanyName,
		IsActive:         true,
		IsVerified:       false,
		SubscriptionTier: models.TierFree,
		TrialEndsAt:      &trialEnds,
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	log.Info().Str("email", email).Msg("new user registered")
	return user, nil
}

// Login authenticates a public user. Unknown email and wrong password share
// ErrInvalidCredentials; a deactivated account is reported as such, it is an
// operator action, not a secret.
func (s *UserAuthService) Login(ctx context.Context, email, password string, rememberMe bool) (*UserSession, error) {
	user, err := s.users.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			log.Error().Err(err).Msg("user lookup failed during login")
		}
		return nil, utils.ErrInvalidCredentials
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, utils.ErrInvalidCredentials
	}

	if !user.IsActive {
		return nil, utils.ErrUserInactive
	}

	if err := s.users.RecordLogin(ctx, user.ID, s.now()); err != nil {
		log.Error().Err(err).Str("user_id", user.ID).Msg("failed to record user login")
	}

	pair, err := s.issueUserPair(user.ID, user.Email, rememberMe)
	if err != nil {
		return nil, err
	}

	log.Info().Str("email", user.Email).Msg("user login successful")
	return &UserSession{TokenPair: *pair, User: user.Sanitized()}, nil
}

// Refresh rotates a public-user refresh token: the presented token is
// revoked before its successor is issued, so a replayed token always fails.
func (s *UserAuthService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.tokens.VerifyUserRefresh(refreshToken)
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

	if err := s.blacklist.Revoke(ctx, refreshToken, s.tokens.RemainingLifetime(claims)); err != nil {
		return nil, err
	}

	return s.issueUserPair(user.ID, user.Email, false)
}

// Authenticate validates a bearer access token for user routes.
func (s *UserAuthService) Authenticate(ctx context.Context, accessToken string) (*TokenClaims, error) {
	revoked, err := s.blacklist.IsRevoked(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, utils.ErrTokenRevoked
	}
	return s.tokens.VerifyUserAccess(accessToken)
}

// GetUser loads a public-user account by id.
func (s *UserAuthService) GetUser(ctx context.Context, id string) (*models.AppUser, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, utils.ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func (s *UserAuthService) issueUserPair(userID, email string, rememberMe bool) (*TokenPair, error) {
	access, refresh, err := s.tokens.IssueUserPair(userID, email, rememberMe)
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
