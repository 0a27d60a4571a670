package utils

import "errors"

// Common application errors used across services. Authentication failures
// that must stay indistinguishable to the caller (unknown email, wrong
// password, inactive account) all collapse into ErrInvalidCredentials;
// the true reason goes to the audit trail only. ErrAccountLocked is the
// one intentionally distinguishable login failure.
var (
	ErrInvalidCredentials = errors.New("INVALID_CREDENTIALS")
	ErrAccountLocked      = errors.New("ACCOUNT_LOCKED")
	ErrInvalidToken       = errors.New("INVALID_TOKEN")
	ErrExpiredToken       = errors.New("EXPIRED_TOKEN")
	ErrTokenRevoked       = errors.New("TOKEN_REVOKED")
	ErrUserNotFound       = errors.New("USER_NOT_FOUND")
	ErrWeakPassword       = errors.New("WEAK_PASSWORD")
	ErrResetTokenInvalid  = errors.New("RESET_TOKEN_INVALID")
	ErrSetupAlreadyDone   = errors.New("SETUP_ALREADY_DONE")

	ErrEmailTaken   = errors.New("EMAIL_TAKEN")
	ErrUserInactive = errors.New("USER_INACTIVE")

	ErrSlugExists     = errors.New("SLUG_EXISTS")
	ErrPageNotFound   = errors.New("PAGE_NOT_FOUND")
	ErrPostNotFound   = errors.New("POST_NOT_FOUND")
	ErrWidgetNotFound = errors.New("WIDGET_NOT_FOUND")
)
