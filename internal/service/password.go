package service

import (
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

// PasswordHasher performs adaptive salted password hashing. bcrypt salts
// per call, so hashing the same plaintext twice yields different strings.
type PasswordHasher struct {
	cost int
}

// NewPasswordHasher constructs a hasher with the given bcrypt cost.
// Cost 12 keeps a verification in the tens of milliseconds.
func NewPasswordHasher(cost int) *PasswordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = 12
	}
	return &PasswordHasher{cost: cost}
}

// Hash returns the bcrypt hash of a password.
func (h *PasswordHasher) Hash(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Verify reports whether the password matches the stored hash. It fails
// closed: a corrupt hash or algorithm mismatch returns false, never an error
// to the caller.
func (h *PasswordHasher) Verify(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if err != nil && err != bcrypt.ErrMismatchedHashAndPassword {
		log.Warn().Err(err).Msg("password hash comparison failed")
	}
	return err == nil
}
