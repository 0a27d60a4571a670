package service

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/timelov/admin-api/internal/config"
	"github.com/timelov/admin-api/internal/utils"
)

// TokenKind discriminates access from refresh tokens. The verifier enforces
// the kind, so an access token can never pass where a refresh token is
// required and vice versa.
type TokenKind string

const (
	TokenAccess  TokenKind = "access"
	TokenRefresh TokenKind = "refresh"

	// Public end-user tokens carry their own kinds so they never pass the
	// admin verifiers, and admin tokens never pass the user ones.
	TokenUserAccess  TokenKind = "user_access"
	TokenUserRefresh TokenKind = "user_refresh"
)

// TokenClaims is the signed payload of both token kinds. Refresh tokens
// additionally carry a unique ID (jti) so each issuance is individually
// revocable under rotation.
type TokenClaims struct {
	Email     string    `json:"email"`
	TokenType TokenKind `json:"type"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies the two JWT kinds. Access and refresh
// tokens are signed with distinct secrets.
type TokenService struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	rememberTTL   time.Duration

	now func() time.Time
}

// NewTokenService constructs a TokenService from auth configuration.
func NewTokenService(cfg *config.AuthConfig) *TokenService {
	return &TokenService{
		accessSecret:  []byte(cfg.AccessSecret),
		refreshSecret: []byte(cfg.RefreshSecret),
		accessTTL:     cfg.AccessTTL,
		refreshTTL:    cfg.RefreshTTL,
		rememberTTL:   cfg.RememberMeTTL,
		now:           time.Now,
	}
}

// AccessTTL exposes the access token lifetime for the expires_in response field.
func (s *TokenService) AccessTTL() time.Duration {
	return s.accessTTL
}

// IssueAccess creates a signed access token for the subject.
func (s *TokenService) IssueAccess(userID, email string) (string, error) {
	return s.issue(TokenAccess, userID, email, s.accessTTL, s.accessSecret, "")
}

// IssueRefresh creates a signed refresh token. rememberMe extends the expiry
// window; every refresh token gets a fresh random jti.
func (s *TokenService) IssueRefresh(userID, email string, rememberMe bool) (string, error) {
	ttl := s.refreshTTL
	if rememberMe {
		ttl = s.rememberTTL
	}
	return s.issue(TokenRefresh, userID, email, ttl, s.refreshSecret, uuid.New().String())
}

// IssuePair creates an access+refresh pair for a login or rotation.
func (s *TokenService) IssuePair(userID, email string, rememberMe bool) (access, refresh string, err error) {
	if access, err = s.IssueAccess(userID, email); err != nil {
		return "", "", err
	}
	if refresh, err = s.IssueRefresh(userID, email, rememberMe); err != nil {
		return "", "", err
	}
	return access, refresh, nil
}

func (s *TokenService) issue(kind TokenKind, userID, email string, ttl time.Duration, secret []byte, jti string) (string, error) {
	now := s.now()
	claims := TokenClaims{
		Email:     email,
		TokenType: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        jti,
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// IssueUserPair creates an access+refresh pair for a public end-user session.
func (s *TokenService) IssueUserPair(userID, email string, rememberMe bool) (access, refresh string, err error) {
	if access, err = s.issue(TokenUserAccess, userID, email, s.accessTTL, s.accessSecret, ""); err != nil {
		return "", "", err
	}
	ttl := s.refreshTTL
	if rememberMe {
		ttl = s.rememberTTL
	}
	if refresh, err = s.issue(TokenUserRefresh, userID, email, ttl, s.refreshSecret, uuid.New().String()); err != nil {
		return "", "", err
	}
	return access, refresh, nil
}

// VerifyAccess validates an access token and returns its claims.
func (s *TokenService) VerifyAccess(token string) (*TokenClaims, error) {
	return s.verify(token, TokenAccess, s.accessSecret)
}

// VerifyRefresh validates a refresh token and returns its claims.
func (s *TokenService) VerifyRefresh(token string) (*TokenClaims, error) {
	return s.verify(token, TokenRefresh, s.refreshSecret)
}

// VerifyUserAccess validates a public end-user access token.
func (s *TokenService) VerifyUserAccess(token string) (*TokenClaims, error) {
	return s.verify(token, TokenUserAccess, s.accessSecret)
}

// VerifyUserRefresh validates a public end-user refresh token.
func (s *TokenService) VerifyUserRefresh(token string) (*TokenClaims, error) {
	return s.verify(token, TokenUserRefresh, s.refreshSecret)
}

// verify returns utils.ErrExpiredToken for expiry and utils.ErrInvalidToken
// for everything else: bad signature, malformed payload, wrong kind.
func (s *TokenService) verify(token string, kind TokenKind, secret []byte) (*TokenClaims, error) {
	parsed, err := jwt.ParseWithClaims(token, &TokenClaims{}, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, utils.ErrExpiredToken
		}
		return nil, utils.ErrInvalidToken
	}

	claims, ok := parsed.Claims.(*TokenClaims)
	if !ok || !parsed.Valid {
		return nil, utils.ErrInvalidToken
	}
	if claims.TokenType != kind {
		return nil, utils.ErrInvalidToken
	}
	if claims.Subject == "" {
		return nil, utils.ErrInvalidToken
	}
	return claims, nil
}

// RemainingLifetime returns how long the token stays valid from now. Used to
// size blacklist TTLs so revocation entries expire with their token.
func (s *TokenService) RemainingLifetime(claims *TokenClaims) time.Duration {
	if claims.ExpiresAt == nil {
		return 0
	}
	return claims.ExpiresAt.Time.Sub(s.now())
}
