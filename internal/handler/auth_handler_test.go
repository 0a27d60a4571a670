package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/timelov/admin-api/internal/cache"
	"github.com/timelov/admin-api/internal/config"
	"github.com/timelov/admin-api/internal/middleware"
	"github.com/timelov/admin-api/internal/models"
	"github.com/timelov/admin-api/internal/service"
)

// memUserStore backs the handler tests with an in-memory user table.
type memUserStore struct {
	mu    sync.Mutex
	users map[string]*models.AdminUser

	getByIDErr error
}

func newMemUserStore() *memUserStore {
	return &memUserStore{users: map[string]*models.AdminUser{}}
}

func (s *memUserStore) GetByEmail(_ context.Context, email string) (*models.AdminUser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *memUserStore) GetByID(_ context.Context, id string) (*models.AdminUser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getByIDErr != nil {
		return nil, s.getByIDErr
	}
	if u, ok := s.users[id]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func (s *memUserStore) Count(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users), nil
}

func (s *memUserStore) Create(_ context.Context, user *models.AdminUser) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.ID] = user
	return nil
}

func (s *memUserStore) RecordLoginSuccess(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.users[id]
	u.FailedLoginAttempts = 0
	u.LockedUntil = nil
	u.LastLogin = &at
	return nil
}

func (s *memUserStore) RecordLoginFailure(_ context.Context, id string, threshold int, lockFor time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
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

func (s *memUserStore) SetResetToken(_ context.Context, id, token string, expires time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.users[id]
	u.PasswordResetToken = &token
	u.PasswordResetExpires = &expires
	return nil
}

func (s *memUserStore) GetByResetToken(_ context.Context, token string, now time.Time) (*models.AdminUser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.PasswordResetToken != nil && *u.PasswordResetToken == token &&
			u.PasswordResetExpires != nil && u.PasswordResetExpires.After(now) {
			return u, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *memUserStore) CompletePasswordReset(_ context.Context, id, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.users[id]
	u.PasswordHash = passwordHash
	u.PasswordResetToken = nil
	u.PasswordResetExpires = nil
	u.FailedLoginAttempts = 0
	u.LockedUntil = nil
	return nil
}

type noopAudit struct{}

func (noopAudit) Record(_ context.Context, _ *models.AuditLog) {}

type captureEmailSender struct {
	mu        sync.Mutex
	lastToken string
}

func (s *captureEmailSender) SendPasswordReset(_, resetToken, _ string) error {
	s.mu.Lock()
	s.lastToken = resetToken
	s.mu.Unlock()
	return nil
}

func (s *captureEmailSender) token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastToken
}

type apiFixture struct {
	router *gin.Engine
	store  *memUserStore
	emails *captureEmailSender
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

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
			Email:    "admin@timelov.pl",
			Password: "poczatkowe-haslo-1",
		},
	}

	store := newMemUserStore()
	emails := &captureEmailSender{}
	auth := service.NewAuthService(cfg, store, service.NewTokenService(&cfg.Auth),
		service.NewPasswordHasher(bcrypt.MinCost), cache.NewMemoryTokenBlacklist(), noopAudit{}, emails)

	authHandler := NewAuthHandler(auth)
	jwtMw := middleware.NewJWTMiddleware(auth)

	router := gin.New()
	api := router.Group("/api/auth")
	{
		api.POST("/login", authHandler.Login)
		api.POST("/refresh", authHandler.Refresh)
		api.POST("/forgot-password", authHandler.ForgotPassword)
		api.POST("/reset-password", authHandler.ResetPassword)
		api.POST("/setup", authHandler.Setup)
		api.POST("/logout", jwtMw.Handle(), authHandler.Logout)
		api.GET("/me", jwtMw.Handle(), authHandler.Me)
	}

	return &apiFixture{router: router, store: store, emails: emails}
}

func (f *apiFixture) do(t *testing.T, method, path string, payload interface{}, bearer string) *httptest.ResponseRecorder {
	t.Helper()
	var body *bytes.Buffer
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewBuffer(raw)
	} else {
		body = bytes.NewBuffer(nil)
	}
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v; body: %s", err, w.Body.String())
	}
	return env
}

type tokenPairData struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
}

func decodePair(t *testing.T, w *httptest.ResponseRecorder) tokenPairData {
	t.Helper()
	env := decodeEnvelope(t, w)
	var pair tokenPairData
	if err := json.Unmarshal(env.Data, &pair); err != nil {
		t.Fatalf("decode token pair: %v", err)
	}
	return pair
}

// Full session lifecycle through the HTTP surface: setup, login, refresh
// with rotation, logout, and the post-logout rejection.
func TestAuthEndpoints_SessionLifecycle(t *testing.T) {
	f := newAPIFixture(t)

	// Bootstrap the first admin.
	w := f.do(t, http.MethodPost, "/api/auth/setup", nil, "")
	if w.Code != http.StatusCreated {
		t.Fatalf("setup: status = %d; body: %s", w.Code, w.Body.String())
	}

	// Second setup call is refused.
	w = f.do(t, http.MethodPost, "/api/auth/setup", nil, "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("second setup: status = %d, want 400", w.Code)
	}
	if env := decodeEnvelope(t, w); env.Error == nil || env.Error.Code != "SETUP_ALREADY_DONE" {
		t.Fatalf("second setup error = %+v", env.Error)
	}

	// Login.
	w = f.do(t, http.MethodPost, "/api/auth/login", gin.H{
		"email":    "admin@timelov.pl",
		"password": "poczatkowe-haslo-1",
	}, "")
	if w.Code != http.StatusOK {
		t.Fatalf("login: status = %d; body: %s", w.Code, w.Body.String())
	}
	pair := decodePair(t, w)
	if pair.TokenType != "bearer" || pair.ExpiresIn != 900 {
		t.Errorf("pair meta = %+v, want bearer/900", pair)
	}

	// /me with the access token.
	w = f.do(t, http.MethodGet, "/api/auth/me", nil, pair.AccessToken)
	if w.Code != http.StatusOK {
		t.Fatalf("me: status = %d; body: %s", w.Code, w.Body.String())
	}
	var me struct {
		Email        string `json:"email"`
		IsSuperadmin bool   `json:"is_superadmin"`
	}
	env := decodeEnvelope(t, w)
	if err := json.Unmarshal(env.Data, &me); err != nil {
		t.Fatalf("decode me: %v", err)
	}
	if me.Email != "admin@timelov.pl" || !me.IsSuperadmin {
		t.Errorf("me = %+v, want superadmin admin@timelov.pl", me)
	}

	// Refresh rotates the pair.
	w = f.do(t, http.MethodPost, "/api/auth/refresh", gin.H{"refresh_token": pair.RefreshToken}, "")
	if w.Code != http.StatusOK {
		t.Fatalf("refresh: status = %d; body: %s", w.Code, w.Body.String())
	}
	rotated := decodePair(t, w)
	if rotated.RefreshToken == pair.RefreshToken {
		t.Fatal("refresh did not rotate the refresh token")
	}

	// The consumed refresh token is rejected on replay.
	w = f.do(t, http.MethodPost, "/api/auth/refresh", gin.H{"refresh_token": pair.RefreshToken}, "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("replayed refresh: status = %d, want 401", w.Code)
	}

	// Logout with the rotated access token.
	w = f.do(t, http.MethodPost, "/api/auth/logout", nil, rotated.AccessToken)
	if w.Code != http.StatusOK {
		t.Fatalf("logout: status = %d; body: %s", w.Code, w.Body.String())
	}

	// The revoked access token no longer opens protected routes.
	w = f.do(t, http.MethodGet, "/api/auth/me", nil, rotated.AccessToken)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("me after logout: status = %d, want 401", w.Code)
	}
}

func TestAuthEndpoints_LoginFailures(t *testing.T) {
	f := newAPIFixture(t)
	if w := f.do(t, http.MethodPost, "/api/auth/setup", nil, ""); w.Code != http.StatusCreated {
		t.Fatalf("setup: status = %d", w.Code)
	}

	// Unknown email and wrong password must produce the same error payload.
	unknown := f.do(t, http.MethodPost, "/api/auth/login", gin.H{
		"email": "nobody@timelov.pl", "password": "whatever-123",
	}, "")
	wrong := f.do(t, http.MethodPost, "/api/auth/login", gin.H{
		"email": "admin@timelov.pl", "password": "not-the-password",
	}, "")

	if unknown.Code != http.StatusUnauthorized || wrong.Code != http.StatusUnauthorized {
		t.Fatalf("status: unknown=%d wrong=%d, want both 401", unknown.Code, wrong.Code)
	}
	a, b := decodeEnvelope(t, unknown), decodeEnvelope(t, wrong)
	if a.Error == nil || b.Error == nil || *a.Error != *b.Error {
		t.Errorf("error payloads differ: %+v vs %+v", a.Error, b.Error)
	}

	// Malformed body.
	w := f.do(t, http.MethodPost, "/api/auth/login", gin.H{"email": "not-an-email"}, "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("malformed login: status = %d, want 400", w.Code)
	}
}

func TestAuthEndpoints_LockoutReturns423(t *testing.T) {
	f := newAPIFixture(t)
	if w := f.do(t, http.MethodPost, "/api/auth/setup", nil, ""); w.Code != http.StatusCreated {
		t.Fatalf("setup: status = %d", w.Code)
	}

	for i := 0; i < 5; i++ {
		w := f.do(t, http.MethodPost, "/api/auth/login", gin.H{
			"email": "admin@timelov.pl", "password": "not-the-password",
		}, "")
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("attempt %d: status = %d, want 401", i+1, w.Code)
		}
	}

	w := f.do(t, http.MethodPost, "/api/auth/login", gin.H{
		"email": "admin@timelov.pl", "password": "poczatkowe-haslo-1",
	}, "")
	if w.Code != http.StatusLocked {
		t.Fatalf("locked login: status = %d, want 423", w.Code)
	}
	if env := decodeEnvelope(t, w); env.Error == nil || env.Error.Code != "ACCOUNT_LOCKED" {
		t.Errorf("locked error = %+v", env.Error)
	}
}

func TestAuthEndpoints_PasswordResetFlow(t *testing.T) {
	f := newAPIFixture(t)
	if w := f.do(t, http.MethodPost, "/api/auth/setup", nil, ""); w.Code != http.StatusCreated {
		t.Fatalf("setup: status = %d", w.Code)
	}

	// The acknowledgement is identical for known and unknown addresses.
	known := f.do(t, http.MethodPost, "/api/auth/forgot-password", gin.H{"email": "admin@timelov.pl"}, "")
	unknown := f.do(t, http.MethodPost, "/api/auth/forgot-password", gin.H{"email": "nobody@timelov.pl"}, "")
	if known.Code != http.StatusOK || unknown.Code != http.StatusOK {
		t.Fatalf("forgot-password status: known=%d unknown=%d, want both 200", known.Code, unknown.Code)
	}
	if a, b := decodeEnvelope(t, known), decodeEnvelope(t, unknown); a.Message != b.Message {
		t.Errorf("acknowledgements differ: %q vs %q", a.Message, b.Message)
	}

	token := f.emails.token()
	if token == "" {
		t.Fatal("no reset token dispatched")
	}

	// Too-short password.
	w := f.do(t, http.MethodPost, "/api/auth/reset-password", gin.H{
		"token": token, "new_password": "krotkie",
	}, "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("weak password: status = %d, want 400", w.Code)
	}
	if env := decodeEnvelope(t, w); env.Error == nil || env.Error.Code != "WEAK_PASSWORD" {
		t.Errorf("weak password error = %+v", env.Error)
	}

	// Wrong token.
	w = f.do(t, http.MethodPost, "/api/auth/reset-password", gin.H{
		"token": "bogus", "new_password": "zupelnie-nowe-haslo",
	}, "")
	if env := decodeEnvelope(t, w); w.Code != http.StatusBadRequest || env.Error == nil || env.Error.Code != "RESET_TOKEN_INVALID" {
		t.Fatalf("bogus token: status = %d, error = %+v", w.Code, env.Error)
	}

	// Valid reset.
	w = f.do(t, http.MethodPost, "/api/auth/reset-password", gin.H{
		"token": token, "new_password": "zupelnie-nowe-haslo",
	}, "")
	if w.Code != http.StatusOK {
		t.Fatalf("reset: status = %d; body: %s", w.Code, w.Body.String())
	}

	// New password logs in.
	w = f.do(t, http.MethodPost, "/api/auth/login", gin.H{
		"email": "admin@timelov.pl", "password": "zupelnie-nowe-haslo",
	}, "")
	if w.Code != http.StatusOK {
		t.Fatalf("login after reset: status = %d; body: %s", w.Code, w.Body.String())
	}
}

// Storage trouble behind /me is a server error, not a missing account.
func TestMe_StorageFailureIsServerError(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(t, http.MethodPost, "/api/auth/setup", nil, "")
	if w.Code != http.StatusCreated {
		t.Fatalf("setup: status = %d; body: %s", w.Code, w.Body.String())
	}
	w = f.do(t, http.MethodPost, "/api/auth/login", gin.H{
		"email":    "admin@timelov.pl",
		"password": "poczatkowe-haslo-1",
	}, "")
	if w.Code != http.StatusOK {
		t.Fatalf("login: status = %d; body: %s", w.Code, w.Body.String())
	}
	pair := decodePair(t, w)

	f.store.mu.Lock()
	f.store.getByIDErr = errors.New("connection reset")
	f.store.mu.Unlock()

	w = f.do(t, http.MethodGet, "/api/auth/me", nil, pair.AccessToken)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("me during outage: status = %d, want 500; body: %s", w.Code, w.Body.String())
	}
	if env := decodeEnvelope(t, w); env.Error == nil || env.Error.Code != "INTERNAL_ERROR" {
		t.Fatalf("me during outage error = %+v, want INTERNAL_ERROR", env.Error)
	}

	// A genuinely missing account still reads as 404.
	f.store.mu.Lock()
	f.store.getByIDErr = nil
	f.store.users = map[string]*models.AdminUser{}
	f.store.mu.Unlock()

	w = f.do(t, http.MethodGet, "/api/auth/me", nil, pair.AccessToken)
	if w.Code != http.StatusNotFound {
		t.Fatalf("me for missing account: status = %d, want 404; body: %s", w.Code, w.Body.String())
	}
	if env := decodeEnvelope(t, w); env.Error == nil || env.Error.Code != "USER_NOT_FOUND" {
		t.Fatalf("me for missing account error = %+v, want USER_NOT_FOUND", env.Error)
	}
}
