package security

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// MinCost is the lowest bcrypt work factor accepted for stored passwords.
const MinCost = 12

// bcrypt only reads the first 72 bytes of its input.
const maxBcryptBytes = 72

// bcryptInput cuts plain to the bytes bcrypt actually reads, so passwords
// the policy accepts never fail with ErrPasswordTooLong.
func bcryptInput(plain string) []byte {
	b := []byte(plain)
	if len(b) > maxBcryptBytes {
		b = b[:maxBcryptBytes]
	}
	return b
}

// HashPassword hashes a plain text password with bcrypt at the given cost.
// Costs below MinCost are raised to MinCost.
func HashPassword(plain string, cost int) (string, error) {
	if cost < MinCost {
		cost = MinCost
	}

	hash, err := bcrypt.GenerateFromPassword(bcryptInput(plain), cost)

	if err != nil {
		return "", err
	}

	return string(hash), nil
}

// CheckPassword compares a bcrypt hash with a plaintext password.
// A mismatch is reported as ErrPasswordMismatch.
func CheckPassword(hash, plain string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), bcryptInput(plain))

	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrPasswordMismatch
	}

	return err
}

var ErrPasswordMismatch = errors.New("password mismatch")
