package service

import (
	"fmt"

	"github.com/rs/zerolog/log"
)

// EmailSender dispatches transactional mail. The real SMTP integration lives
// outside this service; deployments without one fall back to LogEmailSender.
type EmailSender interface {
	SendPasswordReset(email, resetToken, resetURL string) error
}

// LogEmailSender writes the reset link to the structured log instead of
// sending mail. Good enough for development and staging.
type LogEmailSender struct{}

// NewLogEmailSender constructs a LogEmailSender.
func NewLogEmailSender() *LogEmailSender {
	return &LogEmailSender{}
}

// SendPasswordReset logs the reset link.
func (s *LogEmailSender) SendPasswordReset(email, resetToken, resetURL string) error {
	log.Info().
		Str("to", email).
		Str("reset_url", fmt.Sprintf("%s?token=%s", resetURL, resetToken)).
		Msg("[MOCK EMAIL] password reset link")
	return nil
}
