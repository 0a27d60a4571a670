package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/timelov/admin-api/internal/cache"
	"github.com/timelov/admin-api/internal/config"
	"github.com/timelov/admin-api/internal/models"
	"github.com/timelov/admin-api/internal/utils"
)

// fakeUserStore keeps admin users in memory with the same contract as the
// SQL repository: sql.ErrNoRows for missing records, atomic failure counting
// with a lock installed at the threshold.
type fakeUserStore struct {
	users map[string]*models.AdminUser

	recordFailureErr error
}

func newFakeUserStore(users ...*models.AdminUser) *fakeUserStore {
	s := &fakeUserStore{users: map[string]*models.AdminUser{}}
	for _, u := range users {
		s.users[u.ID] = u
	}
	return s
}

func (s *fakeUserStore) GetByEmail(_ context.Context, email string) (*models.AdminUser, error) {
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *fakeUserStore) GetByID(_ context.Context, id string) (*models.AdminUser, error) {
	if u, ok := s.users[id]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func (s *fakeUserStore) Count(_ context.Context) (int, error) {
	return len(s.users), nil
}

func (s *fakeUserStore) Create(_ context.Context, user *models.AdminUser) error {
	s.users[user.ID] = user
	return nil
}

func (s *fakeUserStore) RecordLoginSuccess(_ context.Context, id string, at time.Time) error {
	u := s.users[id]
	u.FailedLoginAttempts = 0
	u.LockedUntil = nil
	u.LastLogin = &at
	return nil
}

func (s *fakeUserStore) RecordLoginFailure(_ context.Context, id string, threshold int, lockFor time.Duration) (int, error) {
	if s.recordFailureErr != nil {
		return 0, s.recordFailureErr
	}
	u, ok := s.users[id]
	if !ok {
		return 0, sql.ErrNoRows
	}
	u.FailedLoginAttempts++
	if u.FailedLoginAttempts >= threshold {
		until := time.Now().Add(lockFor)
		u.LockedUntil = &until
	}
	return u.FailedLoginAttempts, nil
}

func (s *fakeUserStore) SetResetToken(_ context.Context, id, token string, expires time.Time) error {
	u := s.users[id]
	u.PasswordResetToken = &token
	u.PasswordResetExpires = &expires
	return nil
}

func (s *fakeUserStore) GetByResetToken(_ context.Context, token string, now time.Time) (*models.AdminUser, error) {
	for _, u := range s.users {
		if u.PasswordResetToken != nil && *u.PasswordResetToken == token &&
			u.PasswordResetExpires != nil && u.PasswordResetExpires.After(now) {
			return u, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *fakeUserStore) CompletePasswordReset(_ context.Context, id, passwordHash string) error {
	u := s.users[id]
	u.PasswordHash = passwordHash
	u.PasswordResetToken = nil
	u.PasswordResetExpires = nil
	u.FailedLoginAttempts = 0
	u.LockedUntil = nil
	return nil
}

// fakeAudit captures audit entries for assertions.
type fakeAudit struct {
	entries []*models.AuditLog
}

func (a *fakeAudit) Record(_ context.Context, entry *models.AuditLog) {
	a.entries = append(a.entries, entry)
}

func (a *fakeAudit) last() *models.AuditLog {
	if len(a.entries) == 0 {
		return nil
	}
	return a.entries[len(a.entries)-1]
}

// fakeEmailSender captures the reset token instead of sending mail.
type fakeEmailSender struct {
	lastToken string
	lastEmail string
}

func (f *fakeEmailSender) SendPasswordReset(email, resetToken, _ string) error {
	f.lastEmail = email
	f.lastToken = resetToken
	return nil
}

type authFixture struct {
	svc    *AuthService
	store  *fakeUserStore
	audit  *fakeAudit
	emails *fakeEmailSender
	user   *models.AdminUser
}

const testPassword = "bezpieczne-haslo-123"

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()

	hasher := &PasswordHasher{cost: bcrypt.MinCost}
	hash, err := hasher.Hash(testPassword)
	if err != nil {
		t.Fatalf("hash test password: %v", err)
	}

	user := &models.AdminUser{
		ID:           "user-1",
		Email:        "admin@example.com",
		Username:     "admin",
		PasswordHash: hash,
		IsActive:     true,
	}

	store := newFakeUserStore(user)
	audit := &fakeAudit{}
	emails := &fakeEmailSender{}

	cfg := &config.Config{
		Auth: config.AuthConfig{
			AccessSecret:  "access-secret-for-tests",
			RefreshSecret: "refresh-secret-for-tests",
			AccessTTL:     15 * time.Minute,
			RefreshTTL:    7 * 24 * time.Hour,
			RememberMeTTL: 30 * 24 * time.Hour,
			ResetTokenTTL: time.Hour,
			MaxLoginFails: 5,
			LockoutWindow: 15 * time.Minute,
		},
		Admin: config.AdminBootstrapConfig{
			Email:    "boot@example.com",
			Password: "bootstrap-haslo-1",
		},
	}

	svc := NewAuthService(cfg, store, NewTokenService(&cfg.Auth), hasher,
		cache.NewMemoryTokenBlacklist(), audit, emails)

	return &authFixture{svc: svc, store: store, audit: audit, emails: emails, user: user}
}

func TestLogin_Success(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	pair, err := f.svc.Login(ctx, "Admin@Example.com", testPassword, false, RequestMeta{IP: "10.0.0.1"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatal("login returned empty tokens")
	}
	if pair.TokenType != "bearer" {
		t.Errorf("token type = %q, want bearer", pair.TokenType)
	}
	if pair.ExpiresIn != int((15 * time.Minute).Seconds()) {
		t.Errorf("expires_in = %d, want 900", pair.ExpiresIn)
	}
	if f.user.LastLogin == nil {
		t.Error("last login not recorded")
	}

	entry := f.audit.last()
	if entry == nil || entry.Action != models.AuditLoginSuccess {
		t.Fatalf("expected login_success audit entry, got %+v", entry)
	}
	if entry.IPAddress != "10.0.0.1" {
		t.Errorf("audit ip = %q, want 10.0.0.1", entry.IPAddress)
	}
}

func TestLogin_FailuresAreIndistinguishable(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	inactive := &models.AdminUser{
		ID:           "user-2",
		Email:        "inactive@example.com",
		PasswordHash: f.user.PasswordHash,
		IsActive:     false,
	}
	f.store.users[inactive.ID] = inactive

	cases := []struct {
		name     string
		email    string
		password string
	}{
		{"unknown email", "nobody@example.com", testPassword},
		{"wrong password", "admin@example.com", "wrong-password"},
		{"inactive account", "inactive@example.com", testPassword},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Login(ctx, tc.email, tc.password, false, RequestMeta{})
			if !errors.Is(err, utils.ErrInvalidCredentials) {
				t.Errorf("err = %v, want ErrInvalidCredentials", err)
			}
		})
	}
}

func TestLogin_CounterFailureOmitsAttemptsFromAudit(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	// When the failure counter cannot be updated the true count is unknown;
	// the audit entry must not invent one.
	f.store.recordFailureErr = errors.New("connection reset")

	_, err := f.svc.Login(ctx, "admin@example.com", "wrong-password", false, RequestMeta{})
	if !errors.Is(err, utils.ErrInvalidCredentials) {
		t.Fatalf("err = %v, want ErrInvalidCredentials", err)
	}

	entry := f.audit.last()
	if entry.Action != models.AuditLoginFailed {
		t.Fatalf("audit action = %q, want login_failed", entry.Action)
	}
	if reason := entry.AdditionalInfo["reason"]; reason != "invalid_password" {
		t.Errorf("audit reason = %v, want invalid_password", reason)
	}
	if v, ok := entry.AdditionalInfo["attempts"]; ok {
		t.Errorf("audit carries attempts = %v, want field absent", v)
	}
}

func TestLogin_LockoutAfterRepeatedFailures(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := f.svc.Login(ctx, "admin@example.com", "wrong-password", false, RequestMeta{})
		if !errors.Is(err, utils.ErrInvalidCredentials) {
			t.Fatalf("attempt %d: err = %v, want ErrInvalidCredentials", i+1, err)
		}
	}
	if f.user.LockedUntil == nil {
		t.Fatal("account not locked after threshold failures")
	}

	// Even the correct password is rejected while the lock holds.
	_, err := f.svc.Login(ctx, "admin@example.com", testPassword, false, RequestMeta{})
	if !errors.Is(err, utils.ErrAccountLocked) {
		t.Fatalf("locked account: err = %v, want ErrAccountLocked", err)
	}

	entry := f.audit.last()
	if entry.Action != models.AuditLoginFailed {
		t.Errorf("audit action = %q, want login_failed", entry.Action)
	}
	if reason := entry.AdditionalInfo["reason"]; reason != "account_locked" {
		t.Errorf("audit reason = %v, want account_locked", reason)
	}
}

func TestLogin_LockExpiresLazily(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	until := time.Now().Add(15 * time.Minute)
	f.user.LockedUntil = &until
	f.user.FailedLoginAttempts = 5

	if _, err := f.svc.Login(ctx, "admin@example.com", testPassword, false, RequestMeta{}); !errors.Is(err, utils.ErrAccountLocked) {
		t.Fatalf("within lock window: err = %v, want ErrAccountLocked", err)
	}

	// Move the service clock past the lock. No background job runs; the next
	// login simply sees an expired lock.
	f.svc.now = func() time.Time { return time.Now().Add(16 * time.Minute) }

	pair, err := f.svc.Login(ctx, "admin@example.com", testPassword, false, RequestMeta{})
	if err != nil {
		t.Fatalf("after lock expiry: %v", err)
	}
	if pair.AccessToken == "" {
		t.Fatal("no tokens issued after lock expiry")
	}
	if f.user.FailedLoginAttempts != 0 || f.user.LockedUntil != nil {
		t.Error("successful login did not clear lockout state")
	}
}

func TestRefresh_RotationRejectsReplay(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	pair, err := f.svc.Login(ctx, "admin@example.com", testPassword, false, RequestMeta{})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	rotated, err := f.svc.Refresh(ctx, pair.RefreshToken, RequestMeta{})
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if rotated.RefreshToken == pair.RefreshToken {
		t.Fatal("rotation returned the same refresh token")
	}

	// The consumed token is dead.
	if _, err := f.svc.Refresh(ctx, pair.RefreshToken, RequestMeta{}); !errors.Is(err, utils.ErrTokenRevoked) {
		t.Fatalf("replayed token: err = %v, want ErrTokenRevoked", err)
	}

	// The successor still works.
	if _, err := f.svc.Refresh(ctx, rotated.RefreshToken, RequestMeta{}); err != nil {
		t.Fatalf("rotated token rejected: %v", err)
	}
}

func TestRefresh_RejectsAccessToken(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	pair, err := f.svc.Login(ctx, "admin@example.com", testPassword, false, RequestMeta{})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if _, err := f.svc.Refresh(ctx, pair.AccessToken, RequestMeta{}); !errors.Is(err, utils.ErrInvalidToken) {
		t.Fatalf("access token accepted for refresh: err = %v", err)
	}
}

func TestRefresh_DeactivatedUserRejected(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	pair, err := f.svc.Login(ctx, "admin@example.com", testPassword, false, RequestMeta{})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	f.user.IsActive = false
	if _, err := f.svc.Refresh(ctx, pair.RefreshToken, RequestMeta{}); !errors.Is(err, utils.ErrUserNotFound) {
		t.Fatalf("deactivated user refresh: err = %v, want ErrUserNotFound", err)
	}
}

func TestLogout_RevokesAccessToken(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	pair, err := f.svc.Login(ctx, "admin@example.com", testPassword, false, RequestMeta{})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	claims, err := f.svc.Authenticate(ctx, pair.AccessToken)
	if err != nil {
		t.Fatalf("Authenticate before logout: %v", err)
	}

	if err := f.svc.Logout(ctx, pair.AccessToken, claims, RequestMeta{}); err != nil {
		t.Fatalf("Logout: %v", err)
	}

	if _, err := f.svc.Authenticate(ctx, pair.AccessToken); !errors.Is(err, utils.ErrTokenRevoked) {
		t.Fatalf("revoked token authenticated: err = %v", err)
	}

	// Logout is idempotent.
	if err := f.svc.Logout(ctx, pair.AccessToken, claims, RequestMeta{}); err != nil {
		t.Fatalf("repeated Logout: %v", err)
	}
}

func TestForgotPassword_UniformAcknowledgement(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	// Unknown email: no error, no email, audit records the miss.
	if err := f.svc.ForgotPassword(ctx, "nobody@example.com", RequestMeta{}); err != nil {
		t.Fatalf("ForgotPassword unknown: %v", err)
	}
	if f.emails.lastToken != "" {
		t.Error("reset email sent for unknown address")
	}
	if found := f.audit.last().AdditionalInfo["user_found"]; found != false {
		t.Errorf("audit user_found = %v, want false", found)
	}

	// Known email: token stored and dispatched.
	if err := f.svc.ForgotPassword(ctx, "admin@example.com", RequestMeta{}); err != nil {
		t.Fatalf("ForgotPassword known: %v", err)
	}
	if f.emails.lastToken == "" {
		t.Fatal("no reset token dispatched")
	}
	if f.user.PasswordResetToken == nil || *f.user.PasswordResetToken != f.emails.lastToken {
		t.Error("stored reset token does not match dispatched one")
	}
	if found := f.audit.last().AdditionalInfo["user_found"]; found != true {
		t.Errorf("audit user_found = %v, want true", found)
	}
}

func TestResetPassword_Flow(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	if err := f.svc.ForgotPassword(ctx, "admin@example.com", RequestMeta{}); err != nil {
		t.Fatalf("ForgotPassword: %v", err)
	}
	token := f.emails.lastToken

	if err := f.svc.ResetPassword(ctx, token, "short", RequestMeta{}); !errors.Is(err, utils.ErrWeakPassword) {
		t.Fatalf("short password: err = %v, want ErrWeakPassword", err)
	}
	if err := f.svc.ResetPassword(ctx, "bogus-token", "nowe-haslo-123", RequestMeta{}); !errors.Is(err, utils.ErrResetTokenInvalid) {
		t.Fatalf("bogus token: err = %v, want ErrResetTokenInvalid", err)
	}

	if err := f.svc.ResetPassword(ctx, token, "nowe-haslo-123", RequestMeta{}); err != nil {
		t.Fatalf("ResetPassword: %v", err)
	}

	// Token is single use.
	if err := f.svc.ResetPassword(ctx, token, "kolejne-haslo-123", RequestMeta{}); !errors.Is(err, utils.ErrResetTokenInvalid) {
		t.Fatalf("reused token: err = %v, want ErrResetTokenInvalid", err)
	}

	// Old password dead, new one works.
	if _, err := f.svc.Login(ctx, "admin@example.com", testPassword, false, RequestMeta{}); !errors.Is(err, utils.ErrInvalidCredentials) {
		t.Fatalf("old password still valid: err = %v", err)
	}
	if _, err := f.svc.Login(ctx, "admin@example.com", "nowe-haslo-123", false, RequestMeta{}); err != nil {
		t.Fatalf("new password rejected: %v", err)
	}
}

func TestResetPassword_ExpiredToken(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	if err := f.svc.ForgotPassword(ctx, "admin@example.com", RequestMeta{}); err != nil {
		t.Fatalf("ForgotPassword: %v", err)
	}
	token := f.emails.lastToken

	f.svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	if err := f.svc.ResetPassword(ctx, token, "nowe-haslo-123", RequestMeta{}); !errors.Is(err, utils.ErrResetTokenInvalid) {
		t.Fatalf("expired token: err = %v, want ErrResetTokenInvalid", err)
	}
}

func TestSetup_BootstrapOnce(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	// Store already holds a user; setup must refuse.
	if _, err := f.svc.Setup(ctx); !errors.Is(err, utils.ErrSetupAlreadyDone) {
		t.Fatalf("setup on populated store: err = %v, want ErrSetupAlreadyDone", err)
	}

	// Empty store: setup creates the superadmin from configuration.
	delete(f.store.users, f.user.ID)
	created, err := f.svc.Setup(ctx)
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	if created.Email != "boot@example.com" {
		t.Errorf("bootstrap email = %q, want boot@example.com", created.Email)
	}
	if !created.IsSuperadmin || !created.IsActive {
		t.Error("bootstrap admin is not an active superadmin")
	}

	if _, err := f.svc.Login(ctx, "boot@example.com", "bootstrap-haslo-1", false, RequestMeta{}); err != nil {
		t.Fatalf("login as bootstrap admin: %v", err)
	}
}
